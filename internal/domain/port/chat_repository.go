package port

import (
	"context"

	"photo-counter/internal/domain/entity"
)

// ChatRepository интерфейс хранилища состояний чатов
type ChatRepository interface {
	// Get возвращает чат по ID, создаёт новый если не найден
	Get(ctx context.Context, chatID, userID int64) (*entity.Chat, error)

	// Save сохраняет состояние чата
	Save(ctx context.Context, chat *entity.Chat) error

	// UpdateState обновляет состояние чата
	UpdateState(ctx context.Context, chatID int64, state entity.ChatState) error
}
