package container

import (
	"context"
	"fmt"
	"time"

	"photo-counter/config"
	"photo-counter/internal/api/live"
	app "photo-counter/internal/application"
	"photo-counter/internal/domain/port"
	"photo-counter/internal/infrastructure/photo"
	"photo-counter/internal/infrastructure/storage"
	"photo-counter/internal/infrastructure/vision"
	"photo-counter/internal/logger"
)

type Container struct {
	SessionService  *app.SessionService
	SettingsService *app.SettingsService
	CountingService *app.CountingService
	ExportService   *app.ExportService

	Chats  port.ChatRepository
	Photos port.PhotoStore
	Hub    *live.Hub
	Logger *logger.Logger

	kv port.KeyValueStore
}

// New собирает сервисы поверх готовых адаптеров.
func New(kv port.KeyValueStore, photos port.PhotoStore, counter port.ObjectCounter, timeout time.Duration, log *logger.Logger) *Container {
	if log == nil {
		log = logger.Nop()
	}

	hub := live.NewHub(log)
	store := storage.NewCollectionStore(kv, log)
	sessionService := app.NewSessionService(store, app.WithNotifier(hub), app.WithLogger(log))
	settingsService := app.NewSettingsService(store)
	countingService := app.NewCountingService(sessionService, settingsService, photos, counter, timeout, log)

	return &Container{
		SessionService:  sessionService,
		SettingsService: settingsService,
		CountingService: countingService,
		ExportService:   app.NewExportService(sessionService),
		Chats:           storage.NewMemoryChatRepository(),
		Photos:          photos,
		Hub:             hub,
		Logger:          log,
		kv:              kv,
	}
}

// Build открывает хранилища и детектор по конфигурации.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.Nop()
	}

	kv, err := storage.Open(cfg.StoreDriver, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	photos, err := photo.NewDirStore(cfg.PhotoDir)
	if err != nil {
		kv.Close()
		return nil, err
	}

	counter, err := NewCounter(cfg)
	if err != nil {
		kv.Close()
		return nil, err
	}

	c := New(kv, photos, counter, cfg.DetectorTimeout, log)
	if err := c.SettingsService.SeedDetectorAPIKey(ctx, cfg.DetectorAPIKey); err != nil {
		log.Warning("Failed to seed detector API key: %v", err)
	}
	return c, nil
}

// NewCounter выбирает детектор по DETECTOR_DRIVER.
func NewCounter(cfg *config.Config) (port.ObjectCounter, error) {
	switch cfg.DetectorDriver {
	case "", config.DetectorRemote:
		return vision.NewRemoteCounter(cfg.DetectorEndpoint, cfg.DetectorModel, cfg.DetectorStrictParse), nil
	case config.DetectorLocal:
		return vision.NewLocalCounter(), nil
	default:
		return nil, fmt.Errorf("unknown detector driver %q", cfg.DetectorDriver)
	}
}

// Close закрывает хранилище
func (c *Container) Close() error {
	if c.kv == nil {
		return nil
	}
	return c.kv.Close()
}
