package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aimd54/fanscore/internal/models"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestActionWindow_AllowAndExpire(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	w := NewActionWindow(3, time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, w.Allow("u1", models.KindPostLike))
		w.Record("u1", models.KindPostLike)
	}
	assert.False(t, w.Allow("u1", models.KindPostLike))

	// other kinds and users are tracked separately
	assert.True(t, w.Allow("u1", models.KindPostShare))
	assert.True(t, w.Allow("u2", models.KindPostLike))

	clock.Advance(time.Minute)
	assert.True(t, w.Allow("u1", models.KindPostLike))
}

func TestActionWindow_Prune(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	w := NewActionWindow(10, time.Minute, clock.Now)

	w.Record("u1", models.KindSongPlay)
	w.Record("u2", models.KindSongPlay)
	clock.Advance(30 * time.Second)
	w.Record("u3", models.KindSongPlay)

	assert.Equal(t, 3, w.Prune())

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, w.Prune())

	w.Reset()
	assert.Equal(t, 0, w.Prune())
}
