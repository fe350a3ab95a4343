package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
	"photo-counter/internal/logger"
)

// SessionService CRUD над сессиями и их фото; держит инвариант TotalCount.
//
// Хранилище работает целыми коллекциями (read-modify-write), поэтому все
// изменения сериализуются мьютексом сервиса: бот и HTTP-сервер вызывают
// сервис одновременно.
type SessionService struct {
	store    port.CollectionStore
	notifier port.SessionNotifier
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
	mu       sync.Mutex
}

// SessionOption настраивает SessionService
type SessionOption func(*SessionService)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов
func WithIDGenerator(newID func() string) SessionOption {
	return func(s *SessionService) { s.newID = newID }
}

// WithNotifier подписывает получателя изменений
func WithNotifier(n port.SessionNotifier) SessionOption {
	return func(s *SessionService) { s.notifier = n }
}

// WithLogger задаёт логгер сервиса
func WithLogger(l *logger.Logger) SessionOption {
	return func(s *SessionService) { s.log = l }
}

// NewSessionService создаёт сервис поверх хранилища коллекции
func NewSessionService(store port.CollectionStore, opts ...SessionOption) *SessionService {
	s := &SessionService{
		store: store,
		log:   logger.Nop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSessions возвращает сессии, новые первыми. Никогда не падает.
func (s *SessionService) ListSessions(ctx context.Context) []entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadSessions(ctx)
}

// GetSession возвращает сессию по ID; ok=false если её нет.
func (s *SessionService) GetSession(ctx context.Context, id string) (entity.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.LoadSessions(ctx)
	if i := indexOf(sessions, id); i >= 0 {
		return sessions[i], true
	}
	return entity.Session{}, false
}

// CreateSession создаёт пустую сессию и сохраняет её в начало коллекции.
func (s *SessionService) CreateSession(ctx context.Context, name, objectType string) (entity.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Session{}, entity.NewValidationError("session name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := entity.Session{
		ID:         s.newID(),
		Name:       name,
		ObjectType: strings.TrimSpace(objectType),
		CreatedAt:  s.now(),
		Images:     []entity.ImageCount{},
		TotalCount: 0,
	}

	sessions := s.store.LoadSessions(ctx)
	sessions = append([]entity.Session{session}, sessions...)
	if err := s.store.SaveSessions(ctx, sessions); err != nil {
		return entity.Session{}, err
	}

	s.log.Info("Created session %s (%q)", session.ID, session.Name)
	s.changed(session)
	return session.Clone(), nil
}

// UpdateSession заменяет сохранённую сессию переданной как есть.
// TotalCount не пересчитывается: если вызывающий правил Images, он обязан
// вызвать RecalculateTotal сам.
func (s *SessionService) UpdateSession(ctx context.Context, session entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.LoadSessions(ctx)
	i := indexOf(sessions, session.ID)
	if i < 0 {
		return entity.NewNotFoundError("session", session.ID)
	}

	sessions[i] = session.Clone()
	if err := s.store.SaveSessions(ctx, sessions); err != nil {
		return err
	}

	s.changed(sessions[i])
	return nil
}

// RenameSession меняет имя и тип объектов, не трогая фото.
func (s *SessionService) RenameSession(ctx context.Context, id, name, objectType string) (entity.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Session{}, entity.NewValidationError("session name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.LoadSessions(ctx)
	i := indexOf(sessions, id)
	if i < 0 {
		return entity.Session{}, entity.NewNotFoundError("session", id)
	}

	sessions[i].Name = name
	sessions[i].ObjectType = strings.TrimSpace(objectType)
	if err := s.store.SaveSessions(ctx, sessions); err != nil {
		return entity.Session{}, err
	}

	s.changed(sessions[i])
	return sessions[i].Clone(), nil
}

// DeleteSession удаляет сессию; отсутствие сессии не ошибка.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.LoadSessions(ctx)
	i := indexOf(sessions, id)
	if i < 0 {
		return nil
	}

	sessions = append(sessions[:i], sessions[i+1:]...)
	if err := s.store.SaveSessions(ctx, sessions); err != nil {
		return err
	}

	s.log.Info("Deleted session %s", id)
	if s.notifier != nil {
		s.notifier.SessionDeleted(id)
	}
	return nil
}

// AddImageToSession добавляет фото с нулём правок.
func (s *SessionService) AddImageToSession(ctx context.Context, sessionID, path string, count int, detections []entity.Detection) (entity.ImageCount, error) {
	return s.AddImage(ctx, sessionID, entity.NewImage{
		Path:       path,
		Count:      count,
		Detections: detections,
	})
}

// AddImage добавляет проверенное фото в конец сессии и пересчитывает сумму.
func (s *SessionService) AddImage(ctx context.Context, sessionID string, img entity.NewImage) (entity.ImageCount, error) {
	if img.Count < 0 {
		return entity.ImageCount{}, entity.NewValidationError("count must not be negative")
	}
	if img.Corrections < 0 {
		return entity.ImageCount{}, entity.NewValidationError("corrections must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.LoadSessions(ctx)
	i := indexOf(sessions, sessionID)
	if i < 0 {
		return entity.ImageCount{}, entity.NewNotFoundError("session", sessionID)
	}

	image := entity.ImageCount{
		ID:          s.newID(),
		Path:        img.Path,
		Count:       img.Count,
		Timestamp:   s.now(),
		Corrections: img.Corrections,
		Detections:  entity.CloneDetections(img.Detections),
	}

	sessions[i].Images = append(sessions[i].Images, image)
	sessions[i].RecalculateTotal()
	if err := s.store.SaveSessions(ctx, sessions); err != nil {
		return entity.ImageCount{}, err
	}

	s.log.Info("Added image %s to session %s: count=%d total=%d", image.ID, sessionID, image.Count, sessions[i].TotalCount)
	s.changed(sessions[i])

	image.Detections = entity.CloneDetections(image.Detections)
	return image, nil
}

// RemoveImageFromSession удаляет фото; отсутствующее фото пропускается.
func (s *SessionService) RemoveImageFromSession(ctx context.Context, sessionID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.LoadSessions(ctx)
	i := indexOf(sessions, sessionID)
	if i < 0 {
		return entity.NewNotFoundError("session", sessionID)
	}

	j := sessions[i].ImageIndex(imageID)
	if j < 0 {
		return nil
	}

	images := sessions[i].Images
	sessions[i].Images = append(images[:j], images[j+1:]...)
	sessions[i].RecalculateTotal()
	if err := s.store.SaveSessions(ctx, sessions); err != nil {
		return err
	}

	s.log.Info("Removed image %s from session %s: total=%d", imageID, sessionID, sessions[i].TotalCount)
	s.changed(sessions[i])
	return nil
}

// Stats возвращает сводку по всем сессиям
func (s *SessionService) Stats(ctx context.Context) entity.Stats {
	var stats entity.Stats
	for _, session := range s.ListSessions(ctx) {
		stats.Sessions++
		stats.Images += len(session.Images)
		stats.TotalCount += session.TotalCount
	}
	return stats
}

func (s *SessionService) changed(session entity.Session) {
	if s.notifier != nil {
		s.notifier.SessionChanged(session.Clone())
	}
}

func indexOf(sessions []entity.Session, id string) int {
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}
