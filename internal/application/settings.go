package app

import (
	"context"
	"strings"
	"sync"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
)

// SettingsService чтение и запись общих настроек
type SettingsService struct {
	store port.CollectionStore
	mu    sync.Mutex
}

func NewSettingsService(store port.CollectionStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get возвращает текущие настройки (по умолчанию, если их нет)
func (s *SettingsService) Get(ctx context.Context) entity.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadSettings(ctx)
}

// Update проверяет и сохраняет настройки целиком
func (s *SettingsService) Update(ctx context.Context, settings entity.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SaveSettings(ctx, settings)
}

// SetDetectorAPIKey сохраняет ключ удалённого детектора
func (s *SettingsService) SetDetectorAPIKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.store.LoadSettings(ctx)
	settings.DetectorAPIKey = strings.TrimSpace(key)
	return s.store.SaveSettings(ctx, settings)
}

// SeedDetectorAPIKey записывает ключ, только если в настройках его ещё нет.
func (s *SettingsService) SeedDetectorAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.store.LoadSettings(ctx)
	if settings.HasDetectorKey() {
		return nil
	}
	settings.DetectorAPIKey = key
	return s.store.SaveSettings(ctx, settings)
}
