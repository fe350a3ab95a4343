package photo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"photo-counter/internal/domain/port"
)

// DirStore складывает фото в каталог под уникальными именами.
type DirStore struct {
	dir string
}

// NewDirStore создаёт хранилище фото, каталог создаётся при необходимости
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Save пишет фото один раз и возвращает его постоянный путь.
func (s *DirStore) Save(ctx context.Context, data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("save photo: empty image")
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	path := filepath.Join(s.dir, uuid.NewString()+strings.ToLower(ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return path, nil
}

// Load читает фото по пути, выданному Save или любым другим источником.
func (s *DirStore) Load(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load photo: %w", err)
	}
	return data, nil
}

var _ port.PhotoStore = (*DirStore)(nil)
