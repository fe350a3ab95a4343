package port

import "photo-counter/internal/domain/entity"

// SessionNotifier получает уведомления после успешной записи сессии
type SessionNotifier interface {
	SessionChanged(session entity.Session)
	SessionDeleted(sessionID string)
}
