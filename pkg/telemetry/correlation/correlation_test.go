package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_KeepsExisting(t *testing.T) {
	ctx := WithID(context.Background(), "run-1")
	ctx, id := Ensure(ctx, time.Now())
	assert.Equal(t, "run-1", id)
	assert.Equal(t, "run-1", FromContext(ctx))
}

func TestEnsure_GeneratesFromClock(t *testing.T) {
	now := time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC)
	ctx, id := Ensure(context.Background(), now)
	assert.Len(t, id, 26)
	assert.Equal(t, id, FromContext(ctx))

	started, ok := StartedAt(id)
	require.True(t, ok)
	assert.True(t, started.Equal(now))
}

func TestWithID_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithID(ctx, ""))
	assert.Equal(t, "", FromContext(nil))
}

func TestStartedAt_RejectsGarbage(t *testing.T) {
	_, ok := StartedAt("not-a-ulid")
	assert.False(t, ok)
}
