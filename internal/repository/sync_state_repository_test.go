package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStateRepository_AbsentIsNil(t *testing.T) {
	repo := NewSyncStateRepository(setupTestDB(t))

	last, err := repo.LastSyncedAt(context.Background(), "inbox")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestSyncStateRepository_SetAndGet(t *testing.T) {
	repo := NewSyncStateRepository(setupTestDB(t))
	ctx := context.Background()
	first := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SetLastSyncedAt(ctx, "inbox", first))

	last, err := repo.LastSyncedAt(ctx, "inbox")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(first))

	// Last write wins.
	second := first.Add(time.Hour)
	require.NoError(t, repo.SetLastSyncedAt(ctx, "inbox", second))

	last, err = repo.LastSyncedAt(ctx, "inbox")
	require.NoError(t, err)
	assert.True(t, last.Equal(second))
}

func TestSyncStateRepository_PerMailbox(t *testing.T) {
	repo := NewSyncStateRepository(setupTestDB(t))
	ctx := context.Background()
	inboxTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sentTime := inboxTime.Add(30 * time.Minute)

	require.NoError(t, repo.SetLastSyncedAt(ctx, "inbox", inboxTime))
	require.NoError(t, repo.SetLastSyncedAt(ctx, "sent", sentTime))

	last, err := repo.LastSyncedAt(ctx, "inbox")
	require.NoError(t, err)
	assert.True(t, last.Equal(inboxTime))

	last, err = repo.LastSyncedAt(ctx, "sent")
	require.NoError(t, err)
	assert.True(t, last.Equal(sentTime))
}
