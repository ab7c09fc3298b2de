package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timetrack/internal/kvstore"
	"timetrack/internal/queue"
)

func TestTrailAppendAndCap(t *testing.T) {
	ctx := context.Background()
	trail := NewTrail(kvstore.NewMemory(), 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, trail.Append(ctx, queue.Event{
			Type:     queue.TypeClockIn,
			RecordID: fmt.Sprintf("1-%d", i),
			UserID:   1,
			At:       time.Date(2026, time.August, 12, 8, i, 0, 0, time.UTC),
		}))
	}

	entries := trail.Entries(ctx)
	require.Len(t, entries, 3)
	require.Equal(t, "1-2", entries[0].RecordID, "oldest entries dropped")
	require.Equal(t, "1-4", entries[2].RecordID)
}

func TestTrailEmptyOnMissingStorage(t *testing.T) {
	trail := NewTrail(kvstore.NewMemory(), 10)
	require.Empty(t, trail.Entries(context.Background()))
}
