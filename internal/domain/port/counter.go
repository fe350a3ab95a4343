package port

import "context"

// CountRequest запрос на подсчёт объектов на фото
type CountRequest struct {
	Image         []byte // байты изображения
	ObjectType    string // что считаем, свободный текст
	APIKey        string // ключ удалённого детектора из настроек
	Sensitivity   float64
	MinObjectSize int
}

// ObjectCounter интерфейс детектора, возвращающего только число объектов
type ObjectCounter interface {
	// CountObjects возвращает неотрицательное число найденных объектов
	CountObjects(ctx context.Context, req CountRequest) (int, error)

	// RequiresCredential сообщает, нужен ли детектору ключ API
	RequiresCredential() bool
}
