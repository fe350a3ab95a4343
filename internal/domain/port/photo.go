package port

import "context"

// PhotoStore выдаёт фото постоянный путь и читает его обратно.
// Путь для ядра непрозрачен и не меняется.
type PhotoStore interface {
	Save(ctx context.Context, data []byte, ext string) (path string, err error)
	Load(ctx context.Context, path string) ([]byte, error)
}
