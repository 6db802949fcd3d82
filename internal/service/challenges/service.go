// Package challenges tracks user progress through gamified challenges and pays
// out wallet rewards on completion.
package challenges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/aimd54/fanscore/internal/metrics"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/repository"
	"github.com/aimd54/fanscore/pkg/logger"
)

var (
	// ErrChallengeNotFound is returned when a challenge id is not in the catalog.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeInactive is returned when starting a retired challenge.
	ErrChallengeInactive = errors.New("challenge is not active")
)

// ChallengeRepository interface for challenge and progress storage.
type ChallengeRepository interface {
	UpsertChallenge(ctx context.Context, challenge *models.Challenge) error
	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
	ListChallenges(ctx context.Context, activeOnly bool) ([]models.Challenge, error)
	ResetProgress(ctx context.Context, progress *models.ChallengeProgress) error
	GetProgress(ctx context.Context, userID, challengeID string) (*models.ChallengeProgress, error)
	ListActiveProgress(ctx context.Context, userID string) ([]models.ChallengeProgress, error)
	ListProgress(ctx context.Context, userID string) ([]models.ChallengeProgress, error)
	IncrementProgress(ctx context.Context, progressID string, entry *models.ChallengeActionLog, delta float64, now time.Time) (*models.ChallengeProgress, bool, error)
	SetProgressValue(ctx context.Context, progressID string, entry *models.ChallengeActionLog, value float64, now time.Time) (*models.ChallengeProgress, bool, error)
	MarkExpired(ctx context.Context, progressID string, now time.Time) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// WalletRepository interface for reward payouts.
type WalletRepository interface {
	Credit(ctx context.Context, txn *models.PointTransaction) (*models.UserWallet, error)
	GetWallet(ctx context.Context, userID string) (*models.UserWallet, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.PointTransaction, error)
}

// Notifier is told about completed challenges.
type Notifier interface {
	SendChallengeCompleted(ctx context.Context, userID string, challenge *models.Challenge, balance int64) error
}

// Service handles challenge progress.
type Service struct {
	challenges ChallengeRepository
	wallets    WalletRepository
	notifier   Notifier
	now        func() time.Time
	log        *logger.Logger
}

// NewService creates a new challenge service with concrete repository types.
// notifier may be nil.
func NewService(challengeRepo *repository.ChallengeRepository, walletRepo *repository.WalletRepository, notifier Notifier, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(challengeRepo, walletRepo, notifier, time.Now, log)
}

// NewServiceWithInterfaces creates a new challenge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(challenges ChallengeRepository, wallets WalletRepository, notifier Notifier, now func() time.Time, log *logger.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		challenges: challenges,
		wallets:    wallets,
		notifier:   notifier,
		now:        now,
		log:        log.Component("challenges"),
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// ListChallenges returns the catalog.
func (s *Service) ListChallenges(ctx context.Context, activeOnly bool) ([]models.Challenge, error) {
	list, err := s.challenges.ListChallenges(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return list, nil
}

// GetChallenge returns one catalog entry or ErrChallengeNotFound.
func (s *Service) GetChallenge(ctx context.Context, challengeID string) (*models.Challenge, error) {
	c, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if c == nil {
		return nil, ErrChallengeNotFound
	}
	return c, nil
}

// StartChallenge starts a challenge for a user, replacing any earlier progress.
func (s *Service) StartChallenge(ctx context.Context, userID, challengeID string) (*models.ChallengeProgress, error) {
	c, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrChallengeInactive
	}

	now := s.clock()
	p := &models.ChallengeProgress{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: c.ID,
		TargetValue: c.TargetValue,
		Status:      models.ProgressActive,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if c.DurationHours > 0 {
		expires := now.Add(time.Duration(c.DurationHours) * time.Hour)
		p.ExpiresAt = &expires
	}

	if err := s.challenges.ResetProgress(ctx, p); err != nil {
		return nil, err
	}
	p.Challenge = c

	s.log.Info().
		Str("user_id", userID).
		Str("challenge_id", c.ID).
		Float64("target", c.TargetValue).
		Msg("Challenge started")

	return p, nil
}

// expireIfDue moves an active progress past its deadline to expired.
func (s *Service) expireIfDue(ctx context.Context, p *models.ChallengeProgress) error {
	now := s.clock()
	if p.Status != models.ProgressActive || !p.IsExpiredAt(now) {
		return nil
	}
	if err := s.challenges.MarkExpired(ctx, p.ID, now); err != nil {
		return err
	}
	p.Status = models.ProgressExpired
	metrics.RecordChallengesExpired(1)
	return nil
}

// GetProgress returns the progress of a user on a challenge, or nil if never started.
func (s *Service) GetProgress(ctx context.Context, userID, challengeID string) (*models.ChallengeProgress, error) {
	p, err := s.challenges.GetProgress(ctx, userID, challengeID)
	if err != nil || p == nil {
		return p, err
	}
	if err := s.expireIfDue(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProgress returns every progress row of a user.
func (s *Service) ListProgress(ctx context.Context, userID string) ([]models.ChallengeProgress, error) {
	list, err := s.challenges.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if err := s.expireIfDue(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// ListActive returns the active progress rows of a user that are still in time.
func (s *Service) ListActive(ctx context.Context, userID string) ([]models.ChallengeProgress, error) {
	list, err := s.challenges.ListActiveProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := list[:0]
	for i := range list {
		if err := s.expireIfDue(ctx, &list[i]); err != nil {
			return nil, err
		}
		if list[i].Status == models.ProgressActive {
			active = append(active, list[i])
		}
	}
	return active, nil
}

// RecordAction adds value to the progress of a user on a challenge. It returns nil
// when the challenge was never started; terminal progress is returned unchanged.
func (s *Service) RecordAction(ctx context.Context, userID, challengeID, actionType string, value float64) (*models.ChallengeProgress, error) {
	p, err := s.GetProgress(ctx, userID, challengeID)
	if err != nil || p == nil {
		return nil, err
	}
	if p.Status != models.ProgressActive {
		return p, nil
	}
	if value <= 0 {
		value = 1
	}
	return s.apply(ctx, p, actionType, value, false, nil)
}

// SetProgressValue sets the counter of a progress to an absolute value.
func (s *Service) SetProgressValue(ctx context.Context, userID, challengeID, actionType string, value float64) (*models.ChallengeProgress, error) {
	p, err := s.GetProgress(ctx, userID, challengeID)
	if err != nil || p == nil {
		return nil, err
	}
	if p.Status != models.ProgressActive {
		return p, nil
	}
	return s.apply(ctx, p, actionType, value, true, nil)
}

// apply logs the action and updates the counter in one transaction, then pays out
// when the update completed the challenge.
func (s *Service) apply(ctx context.Context, p *models.ChallengeProgress, actionType string, value float64, absolute bool, meta datatypes.JSON) (*models.ChallengeProgress, error) {
	entry := &models.ChallengeActionLog{
		UserID:      p.UserID,
		ChallengeID: p.ChallengeID,
		ActionType:  actionType,
		Value:       value,
		Metadata:    meta,
	}

	var (
		updated   *models.ChallengeProgress
		completed bool
		err       error
	)
	if absolute {
		updated, completed, err = s.challenges.SetProgressValue(ctx, p.ID, entry, value, s.clock())
	} else {
		updated, completed, err = s.challenges.IncrementProgress(ctx, p.ID, entry, value, s.clock())
	}
	if err != nil {
		return nil, err
	}
	if updated.Challenge == nil {
		updated.Challenge = p.Challenge
	}

	category := ""
	if updated.Challenge != nil {
		category = string(updated.Challenge.Category)
	}
	metrics.RecordChallengeAction(category)

	if completed {
		metrics.RecordChallengeCompleted(category)
		s.payout(ctx, updated)
	}
	return updated, nil
}

// payout credits the reward of a completed challenge. Failures are logged: the
// completion itself is already committed.
func (s *Service) payout(ctx context.Context, p *models.ChallengeProgress) {
	c := p.Challenge
	if c == nil {
		var err error
		if c, err = s.challenges.GetChallenge(ctx, p.ChallengeID); err != nil || c == nil {
			s.log.Error().Err(err).Str("challenge_id", p.ChallengeID).Msg("Failed to load completed challenge")
			return
		}
	}

	logEvent := s.log.Info().
		Str("user_id", p.UserID).
		Str("challenge_id", c.ID).
		Int64("reward", c.PointsReward)

	var balance int64
	if c.PointsReward > 0 {
		meta := datatypes.JSONMap{
			"challenge_id": c.ID,
			"progress_id":  p.ID,
		}
		if c.Scope.Kind == models.ScopeArtist {
			meta["artist_id"] = c.Scope.ArtistID
		}
		wallet, err := s.wallets.Credit(ctx, &models.PointTransaction{
			UserID:      p.UserID,
			Amount:      c.PointsReward,
			Type:        models.TransactionChallengeReward,
			Source:      c.ID,
			Description: "Completed challenge: " + c.Title,
			Metadata:    meta,
		})
		if err != nil {
			s.log.Error().Err(err).
				Str("user_id", p.UserID).
				Str("challenge_id", c.ID).
				Msg("Failed to credit challenge reward")
			return
		}
		balance = wallet.PointsBalance
		metrics.RecordWalletCredit(c.PointsReward)
	}
	logEvent.Int64("balance", balance).Msg("Challenge completed")

	if s.notifier != nil {
		if err := s.notifier.SendChallengeCompleted(ctx, p.UserID, c, balance); err != nil {
			s.log.Warn().Err(err).Str("challenge_id", c.ID).Msg("Failed to send completion notification")
		}
	}
}

// ExpireStale moves every active progress past its deadline to expired.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.challenges.ExpireStale(ctx, s.clock())
	if err != nil {
		return 0, err
	}
	metrics.RecordChallengesExpired(n)
	return n, nil
}

// GetWallet returns the wallet of a user; users without one get an empty wallet.
func (s *Service) GetWallet(ctx context.Context, userID string) (*models.UserWallet, error) {
	w, err := s.wallets.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = &models.UserWallet{UserID: userID}
	}
	return w, nil
}

// ListTransactions returns the latest wallet transactions of a user.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.wallets.ListTransactions(ctx, userID, limit)
}
