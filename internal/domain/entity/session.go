package entity

import (
	"strings"
	"time"
)

// DefaultObjectLabel подпись по умолчанию, если тип объектов не задан
const DefaultObjectLabel = "objects"

// TimestampLayout каноническая строковая форма времени (UTC, миллисекунды)
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ImageCount одно проверенное фото внутри сессии
type ImageCount struct {
	ID          string      `json:"id"`
	Path        string      `json:"path"`        // путь к фото, выдан внешним модулем камеры
	Count       int         `json:"count"`       // принятое значение, участвует в сумме
	Timestamp   time.Time   `json:"timestamp"`   // время создания, не меняется
	Corrections int         `json:"corrections"` // правки пользователя до сохранения
	Detections  []Detection `json:"detections"`
}

// FormatTimestamp возвращает время фото в канонической форме.
func (i ImageCount) FormatTimestamp() string {
	return FormatTimestamp(i.Timestamp)
}

// NewImage данные для добавления фото в сессию
type NewImage struct {
	Path        string
	Count       int
	Corrections int
	Detections  []Detection
}

// Session именованный проект подсчёта
type Session struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	ObjectType string       `json:"objectType,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	Images     []ImageCount `json:"images"`
	TotalCount int          `json:"totalCount"` // всегда сумма Images[i].Count
}

// RecalculateTotal восстанавливает инвариант TotalCount.
func (s *Session) RecalculateTotal() {
	total := 0
	for _, img := range s.Images {
		total += img.Count
	}
	s.TotalCount = total
}

// ObjectLabel возвращает тип объектов или подпись по умолчанию
func (s Session) ObjectLabel() string {
	if label := strings.TrimSpace(s.ObjectType); label != "" {
		return label
	}
	return DefaultObjectLabel
}

// ImageIndex возвращает позицию фото по ID или -1
func (s Session) ImageIndex(imageID string) int {
	for i, img := range s.Images {
		if img.ID == imageID {
			return i
		}
	}
	return -1
}

// Clone возвращает глубокую копию сессии.
func (s Session) Clone() Session {
	out := s
	out.Images = make([]ImageCount, len(s.Images))
	for i, img := range s.Images {
		img.Detections = CloneDetections(img.Detections)
		out.Images[i] = img
	}
	return out
}

// Stats сводка по всем сессиям
type Stats struct {
	Sessions   int `json:"sessions"`
	Images     int `json:"images"`
	TotalCount int `json:"totalCount"`
}

// FormatTimestamp приводит время к TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
