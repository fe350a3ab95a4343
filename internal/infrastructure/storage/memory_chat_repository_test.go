package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"photo-counter/internal/domain/entity"
)

func TestMemoryChatRepository_GetSaveUpdate(t *testing.T) {
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	chat, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, chat.State)

	chat.SelectSession("s1")
	chat.SetState(entity.StateReviewing)
	require.NoError(t, repo.Save(ctx, chat))

	got, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, "s1", got.ActiveSessionID)
	require.Equal(t, entity.StateReviewing, got.State)

	require.NoError(t, repo.UpdateState(ctx, 10, entity.StateProcessing))
	got, _ = repo.Get(ctx, 10, 1)
	require.Equal(t, entity.StateProcessing, got.State)
}
