package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"photo-counter/internal/domain/entity"
)

// CSVHeader первая строка выгрузки
const CSVHeader = "Image ID,Count,Timestamp,Corrections"

// ExportService выгрузка сессий в CSV и JSON
type ExportService struct {
	sessions *SessionService
}

func NewExportService(sessions *SessionService) *ExportService {
	return &ExportService{sessions: sessions}
}

// ExportCSV возвращает CSV сессии.
func (s *ExportService) ExportCSV(ctx context.Context, sessionID string) (string, error) {
	session, ok := s.sessions.GetSession(ctx, sessionID)
	if !ok {
		return "", entity.NewNotFoundError("session", sessionID)
	}
	return RenderCSV(session), nil
}

// ExportJSON возвращает сессию в виде JSON с отступами
func (s *ExportService) ExportJSON(ctx context.Context, sessionID string) ([]byte, error) {
	session, ok := s.sessions.GetSession(ctx, sessionID)
	if !ok {
		return nil, entity.NewNotFoundError("session", sessionID)
	}
	return json.MarshalIndent(session, "", "  ")
}

// RenderCSV строит CSV: заголовок, строка на каждое фото в порядке съёмки,
// пустая строка и итог. Поля не экранируются: ID и время формирует само
// приложение и запятых в них нет.
func RenderCSV(session entity.Session) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteByte('\n')
	for _, img := range session.Images {
		b.WriteString(img.ID)
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(img.Count))
		b.WriteByte(',')
		b.WriteString(img.FormatTimestamp())
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(img.Corrections))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString("Total Count:,")
	b.WriteString(strconv.Itoa(session.TotalCount))
	return b.String()
}
