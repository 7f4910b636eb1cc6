package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"slimechat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, ms *memMessages, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, ms.Append(context.Background(), &models.Message{
			ID:       fmt.Sprintf("seed.%d", i),
			UserID:   "seeder",
			Name:     "seed",
			Color:    DefaultColor,
			Content:  fmt.Sprintf("message %d", i),
			UnixTime: int64(i),
			Type:     models.TypeUser,
		}))
	}
}

func TestRetentionKeepsNewestN(t *testing.T) {
	ms := &memMessages{}
	seedMessages(t, ms, 150)

	svc := NewRetentionService(ms, 100, time.Minute, testLogger())
	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, 100, ms.count())

	// The 100 survivors are exactly the newest ones
	remaining, err := ms.ListRecent(context.Background(), 150)
	require.NoError(t, err)
	require.Len(t, remaining, 100)
	assert.Equal(t, int64(150), remaining[0].UnixTime)
	assert.Equal(t, int64(51), remaining[99].UnixTime)
}

func TestRetentionUnderCapDeletesNothing(t *testing.T) {
	ms := &memMessages{}
	seedMessages(t, ms, 50)

	svc := NewRetentionService(ms, 100, time.Minute, testLogger())
	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, 50, ms.count())
}

func TestRetentionExactlyAtCapDeletesNothing(t *testing.T) {
	ms := &memMessages{}
	seedMessages(t, ms, 100)

	svc := NewRetentionService(ms, 100, time.Minute, testLogger())
	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, 100, ms.count())
}

func TestRetentionSecondRunIsIdempotent(t *testing.T) {
	ms := &memMessages{}
	seedMessages(t, ms, 150)

	svc := NewRetentionService(ms, 100, time.Minute, testLogger())
	require.NoError(t, svc.RunOnce(context.Background()))
	require.Equal(t, 100, ms.count())

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 100, ms.count(), "second pass with no new messages must delete nothing")
}

func TestRetentionVacuumsEveryFifthDeletingTick(t *testing.T) {
	ms := &memMessages{}
	svc := NewRetentionService(ms, 10, time.Minute, testLogger())

	for tick := 0; tick < 5; tick++ {
		// Refill above the cap so every tick produces a cutoff
		seedMessages(t, ms, 20)
		require.NoError(t, svc.RunOnce(context.Background()))
	}

	assert.Equal(t, 1, ms.vacuums)
}

func TestRetentionRunStopsOnCancel(t *testing.T) {
	ms := &memMessages{}
	svc := NewRetentionService(ms, 100, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention service did not stop on cancellation")
	}
}
