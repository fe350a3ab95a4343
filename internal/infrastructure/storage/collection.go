package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
	"photo-counter/internal/logger"
)

const (
	SessionsKey = "counting_sessions" // вся коллекция сессий
	SettingsKey = "app_settings"      // запись настроек
)

// CollectionStore типизированный слой над KeyValueStore: коллекция сессий и
// настройки читаются и пишутся целиком.
//
// Ошибки чтения (I/O, битый JSON) не возвращаются: вызывающий получает пустую
// коллекцию или настройки по умолчанию. Ошибки записи возвращаются как
// entity.PersistenceError.
type CollectionStore struct {
	kv  port.KeyValueStore
	log *logger.Logger
}

// NewCollectionStore создаёт типизированное хранилище поверх kv
func NewCollectionStore(kv port.KeyValueStore, log *logger.Logger) *CollectionStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CollectionStore{kv: kv, log: log}
}

// LoadSessions возвращает всю коллекцию сессий в сохранённом порядке.
func (s *CollectionStore) LoadSessions(ctx context.Context) []entity.Session {
	b, ok, err := s.kv.Load(ctx, SessionsKey)
	if err != nil {
		s.log.Warning("Failed to read sessions, using empty collection: %v", err)
		return []entity.Session{}
	}
	if !ok {
		return []entity.Session{}
	}

	var sessions []entity.Session
	if err := json.Unmarshal(b, &sessions); err != nil {
		s.log.Warning("Stored sessions are corrupt, using empty collection: %v", err)
		return []entity.Session{}
	}

	for i := range sessions {
		if sessions[i].Images == nil {
			sessions[i].Images = []entity.ImageCount{}
		}
		for j := range sessions[i].Images {
			if sessions[i].Images[j].Detections == nil {
				sessions[i].Images[j].Detections = []entity.Detection{}
			}
		}
	}
	if sessions == nil {
		sessions = []entity.Session{}
	}
	return sessions
}

// SaveSessions заменяет сохранённую коллекцию целиком
func (s *CollectionStore) SaveSessions(ctx context.Context, sessions []entity.Session) error {
	if sessions == nil {
		sessions = []entity.Session{}
	}
	return s.save(ctx, SessionsKey, sessions)
}

// LoadSettings возвращает настройки; отсутствующие поля берутся по умолчанию.
func (s *CollectionStore) LoadSettings(ctx context.Context) entity.Settings {
	settings := entity.DefaultSettings()

	b, ok, err := s.kv.Load(ctx, SettingsKey)
	if err != nil {
		s.log.Warning("Failed to read settings, using defaults: %v", err)
		return settings
	}
	if !ok {
		return settings
	}

	if err := json.Unmarshal(b, &settings); err != nil {
		s.log.Warning("Stored settings are corrupt, using defaults: %v", err)
		return entity.DefaultSettings()
	}
	return settings
}

// SaveSettings заменяет запись настроек
func (s *CollectionStore) SaveSettings(ctx context.Context, settings entity.Settings) error {
	return s.save(ctx, SettingsKey, settings)
}

func (s *CollectionStore) save(ctx context.Context, key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &entity.PersistenceError{Key: key, Err: err}
	}
	if err := s.kv.Save(ctx, key, b); err != nil {
		return &entity.PersistenceError{Key: key, Err: err}
	}
	return nil
}

// Open создаёт хранилище по имени драйвера: file, sqlite или memory.
func Open(driver, dataDir string) (port.KeyValueStore, error) {
	switch driver {
	case "", "file":
		return NewFileStore(dataDir)
	case "sqlite":
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(dataDir, "photo-counter.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

var _ port.CollectionStore = (*CollectionStore)(nil)
