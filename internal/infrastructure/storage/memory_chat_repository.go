package storage

import (
	"context"
	"sync"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
)

// MemoryChatRepository in-memory хранилище состояний чатов
type MemoryChatRepository struct {
	mu    sync.RWMutex
	chats map[int64]*entity.Chat
}

// NewMemoryChatRepository создаёт новое in-memory хранилище
func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		chats: make(map[int64]*entity.Chat),
	}
}

// Get возвращает чат по ID, создаёт новый если не найден
func (r *MemoryChatRepository) Get(ctx context.Context, chatID, userID int64) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chat, exists := r.chats[chatID]; exists {
		cp := *chat
		return &cp, nil
	}

	chat := entity.NewChat(chatID, userID)
	r.chats[chatID] = chat

	cp := *chat
	return &cp, nil
}

// Save сохраняет состояние чата
func (r *MemoryChatRepository) Save(ctx context.Context, chat *entity.Chat) error {
	cp := *chat

	r.mu.Lock()
	r.chats[chat.ID] = &cp
	r.mu.Unlock()

	return nil
}

// UpdateState обновляет состояние чата
func (r *MemoryChatRepository) UpdateState(ctx context.Context, chatID int64, state entity.ChatState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chat, exists := r.chats[chatID]; exists {
		chat.SetState(state)
	}

	return nil
}

// Проверка реализации интерфейса
var _ port.ChatRepository = (*MemoryChatRepository)(nil)
