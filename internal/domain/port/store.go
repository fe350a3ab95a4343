package port

import (
	"context"

	"photo-counter/internal/domain/entity"
)

// KeyValueStore долговременное хранилище целых записей по ключу.
// Частичного доступа нет: каждая запись читается и пишется целиком.
type KeyValueStore interface {
	// Load возвращает значение по ключу; ok=false если записи нет
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Save заменяет значение по ключу целиком
	Save(ctx context.Context, key string, value []byte) error

	// Close освобождает ресурсы хранилища
	Close() error
}

// CollectionStore коллекция сессий и запись настроек поверх KeyValueStore.
// Чтение не возвращает ошибок: при сбое отдаются пустая коллекция или
// настройки по умолчанию. Запись возвращает entity.PersistenceError.
type CollectionStore interface {
	LoadSessions(ctx context.Context) []entity.Session
	SaveSessions(ctx context.Context, sessions []entity.Session) error
	LoadSettings(ctx context.Context) entity.Settings
	SaveSettings(ctx context.Context, settings entity.Settings) error
}
