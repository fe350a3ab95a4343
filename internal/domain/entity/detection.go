package entity

import (
	"fmt"
	"math"
)

const (
	ClassManual = "manual" // объект, отмеченный пользователем вручную
	ClassObject = "object" // объект из автоматического подсчёта

	// ManualBoxSize сторона рамки, которую рисуем вокруг точки касания
	ManualBoxSize = 30.0

	PlaceholderSize    = 40.0 // сторона рамки-заглушки
	PlaceholderSpacing = 60.0 // шаг сетки заглушек
	PlaceholderOrigin  = 20.0 // отступ сетки от левого верхнего угла
)

// BoundingBox прямоугольник в координатах отображения (без нормализации)
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center возвращает координаты центра рамки
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Detection один посчитанный объект
type Detection struct {
	ID         string      `json:"id"`
	BBox       BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
	Class      string      `json:"class,omitempty"`
	Manual     bool        `json:"manual"`
}

// NewManualDetection создаёт отметку пользователя с центром в точке касания.
func NewManualDetection(id string, x, y float64) Detection {
	return Detection{
		ID: id,
		BBox: BoundingBox{
			X:      x - ManualBoxSize/2,
			Y:      y - ManualBoxSize/2,
			Width:  ManualBoxSize,
			Height: ManualBoxSize,
		},
		Confidence: 1.0,
		Class:      ClassManual,
		Manual:     true,
	}
}

// GridShape возвращает размер почти квадратной сетки для count элементов.
func GridShape(count int) (columns, rows int) {
	if count <= 0 {
		return 0, 0
	}
	columns = int(math.Ceil(math.Sqrt(float64(count))))
	rows = (count + columns - 1) / columns
	return columns, rows
}

// PlaceholderDetections раскладывает count заглушек по сетке.
//
// Удалённый детектор возвращает только число, без координат, поэтому
// положение заглушек ничего не говорит о реальном расположении объектов:
// это маркеры для отображения, по одному на каждый посчитанный объект.
func PlaceholderDetections(count int) []Detection {
	columns, _ := GridShape(count)
	out := make([]Detection, 0, max(count, 0))
	for i := 0; i < count; i++ {
		row, col := i/columns, i%columns
		out = append(out, Detection{
			ID: fmt.Sprintf("auto-%d", i),
			BBox: BoundingBox{
				X:      PlaceholderOrigin + float64(col)*PlaceholderSpacing,
				Y:      PlaceholderOrigin + float64(row)*PlaceholderSpacing,
				Width:  PlaceholderSize,
				Height: PlaceholderSize,
			},
			Confidence: 1.0,
			Class:      ClassObject,
			Manual:     false,
		})
	}
	return out
}

// CloneDetections копирует список, чтобы у владельцев не было общих срезов
func CloneDetections(in []Detection) []Detection {
	if in == nil {
		return []Detection{}
	}
	out := make([]Detection, len(in))
	copy(out, in)
	return out
}
