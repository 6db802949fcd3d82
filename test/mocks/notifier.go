package mocks

import (
	"context"
	"sync"

	"github.com/aimd54/fanscore/internal/models"
)

// Completion is one recorded challenge completion notice.
type Completion struct {
	UserID      string
	ChallengeID string
	Balance     int64
}

// MockNotifier records completion notices instead of sending them.
type MockNotifier struct {
	mu          sync.Mutex
	Completions []Completion
	Err         error
}

func (m *MockNotifier) SendChallengeCompleted(_ context.Context, userID string, challenge *models.Challenge, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Completions = append(m.Completions, Completion{UserID: userID, ChallengeID: challenge.ID, Balance: balance})
	return m.Err
}

// Count returns the number of recorded notices.
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Completions)
}
