// Package mattermost provides webhook client for sending notifications to Mattermost.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aimd54/fanscore/internal/config"
	"github.com/aimd54/fanscore/internal/metrics"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/pkg/logger"
)

const (
	botUsername = "FanScore Bot"
	sendTimeout = 10 * time.Second

	kindChallenge = "challenge_completed"
	kindDigest    = "top_fans_digest"
)

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Mattermost client.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: sendTimeout},
		log:        log,
	}
}

// Message represents a Mattermost message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Pretext  string  `json:"pretext,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

// SendMessage sends a message to Mattermost.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}
	if msg.Username == "" {
		msg.Username = botUsername
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

func (c *Client) send(ctx context.Context, kind string, msg *Message) error {
	if err := c.SendMessage(ctx, msg); err != nil {
		metrics.RecordNotificationFailed(kind)
		return err
	}
	if c.enabled {
		metrics.RecordNotificationSent(kind)
	}
	return nil
}

// SendChallengeCompleted announces a completed challenge and the user's new balance.
func (c *Client) SendChallengeCompleted(ctx context.Context, userID string, challenge *models.Challenge, balance int64) error {
	if !c.enabled {
		return nil
	}

	fields := []Field{
		{Short: true, Title: "Fan", Value: userID},
		{Short: true, Title: "Reward", Value: fmt.Sprintf("%d points", challenge.PointsReward)},
		{Short: true, Title: "Category", Value: string(challenge.Category)},
		{Short: true, Title: "Balance", Value: fmt.Sprintf("%d points", balance)},
	}
	if challenge.Scope.Kind == models.ScopeArtist {
		fields = append(fields, Field{Short: true, Title: "Artist", Value: challenge.Scope.ArtistID})
	}

	return c.send(ctx, kindChallenge, &Message{
		Attachments: []Attachment{{
			Fallback: fmt.Sprintf("%s completed %s", userID, challenge.Title),
			Color:    "#2eb886",
			Pretext:  "🏆 Challenge completed",
			Title:    challenge.Title,
			Text:     challenge.Description,
			Fields:   fields,
		}},
	})
}

// TopFan is one line of a top fans digest.
type TopFan struct {
	Rank     int
	Username string
	FanScore int64
	Badges   []string
}

// SendTopFansDigest posts the top fans of an artist. An empty list sends nothing.
func (c *Client) SendTopFansDigest(ctx context.Context, artistID string, fans []TopFan) error {
	if len(fans) == 0 {
		c.log.Debug().Str("artist_id", artistID).Msg("No ranked fans, skipping digest")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### 🎤 Top fans of %s\n\n", artistID)
	for _, f := range fans {
		icon := "•"
		switch f.Rank {
		case 1:
			icon = "🥇"
		case 2:
			icon = "🥈"
		case 3:
			icon = "🥉"
		}
		fmt.Fprintf(&b, "%s **#%d** @%s with %d points", icon, f.Rank, f.Username, f.FanScore)
		if len(f.Badges) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(f.Badges, ", "))
		}
		b.WriteString("\n")
	}

	return c.send(ctx, kindDigest, &Message{Text: b.String()})
}
