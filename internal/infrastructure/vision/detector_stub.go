//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"photo-counter/internal/domain/port"
)

// LocalCounter заглушка для сборки без OpenCV.
type LocalCounter struct {
	MaxSide        int
	MinAspectRatio float64
	MaxAspectRatio float64
}

// NewLocalCounter создаёт счётчик-заглушку (без OpenCV).
func NewLocalCounter() *LocalCounter {
	return &LocalCounter{MaxSide: 1024, MinAspectRatio: 0.1, MaxAspectRatio: 10.0}
}

func (d *LocalCounter) RequiresCredential() bool { return false }

// CountObjects возвращает ошибку, если сборка без тега gocv.
func (d *LocalCounter) CountObjects(ctx context.Context, req port.CountRequest) (int, error) {
	_ = ctx
	_ = req
	return 0, errors.New("gocv build tag is not enabled")
}

var _ port.ObjectCounter = (*LocalCounter)(nil)
