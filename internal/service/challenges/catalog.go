package challenges

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aimd54/fanscore/internal/models"
)

// catalogFile is the on-disk shape of a challenge catalog.
type catalogFile struct {
	Challenges []models.Challenge `yaml:"challenges"`
}

// LoadCatalog reads and validates a YAML challenge catalog.
func LoadCatalog(path string) ([]models.Challenge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML challenge catalog and fills the defaults.
func ParseCatalog(data []byte) ([]models.Challenge, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse challenge catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Challenges))
	for i := range file.Challenges {
		c := &file.Challenges[i]
		if c.Scope.Kind == "" {
			c.Scope.Kind = models.ScopeGlobal
		}
		if c.Metric == "" {
			c.Metric = models.MetricCount
		}
		if err := validateChallenge(c); err != nil {
			return nil, fmt.Errorf("challenge %d: %w", i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("duplicate challenge id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return file.Challenges, nil
}

func validateChallenge(c *models.Challenge) error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.Title == "" {
		return fmt.Errorf("%s: title is required", c.ID)
	}
	switch c.Category {
	case models.CategoryListening, models.CategorySocial, models.CategoryEngagement, models.CategoryCreative:
	default:
		return fmt.Errorf("%s: unknown category %q", c.ID, c.Category)
	}
	switch c.Metric {
	case models.MetricCount, models.MetricUniqueSongs:
	default:
		return fmt.Errorf("%s: unknown metric %q", c.ID, c.Metric)
	}
	switch c.Scope.Kind {
	case models.ScopeGlobal:
		c.Scope.ArtistID = ""
	case models.ScopeArtist:
		if c.Scope.ArtistID == "" {
			return fmt.Errorf("%s: artist scope needs an artist_id", c.ID)
		}
	default:
		return fmt.Errorf("%s: unknown scope %q", c.ID, c.Scope.Kind)
	}
	if c.TargetValue <= 0 {
		return fmt.Errorf("%s: target_value must be positive", c.ID)
	}
	if c.PointsReward < 0 {
		return fmt.Errorf("%s: points_reward must not be negative", c.ID)
	}
	if c.DurationHours < 0 {
		return fmt.Errorf("%s: duration_hours must not be negative", c.ID)
	}
	return nil
}

// SeedCatalog upserts every challenge of a catalog.
func (s *Service) SeedCatalog(ctx context.Context, catalog []models.Challenge) error {
	for i := range catalog {
		if err := s.challenges.UpsertChallenge(ctx, &catalog[i]); err != nil {
			return err
		}
	}
	s.log.Info().Int("challenges", len(catalog)).Msg("Challenge catalog seeded")
	return nil
}
