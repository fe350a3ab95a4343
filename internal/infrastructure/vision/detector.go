//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"image"

	"gocv.io/x/gocv"

	"photo-counter/internal/domain/port"
)

// LocalCounter считает объекты по внешним контурам без сетевых запросов.
type LocalCounter struct {
	MaxSide        int
	MinAspectRatio float64
	MaxAspectRatio float64
}

// NewLocalCounter создаёт счётчик на OpenCV.
func NewLocalCounter() *LocalCounter {
	return &LocalCounter{
		MaxSide:        1024,
		MinAspectRatio: 0.1,
		MaxAspectRatio: 10.0,
	}
}

// RequiresCredential локальному счётчику ключ не нужен
func (d *LocalCounter) RequiresCredential() bool { return false }

// CountObjects возвращает число контуров площадью не меньше minObjectSize².
func (d *LocalCounter) CountObjects(ctx context.Context, req port.CountRequest) (int, error) {
	mat, err := decodeToMat(req.Image)
	if err != nil {
		return 0, err
	}
	defer mat.Close()

	// Приводим изображение к стандартному размеру для стабильных порогов.
	if mat.Cols() > d.MaxSide || mat.Rows() > d.MaxSide {
		scale := float64(d.MaxSide) / float64(max(mat.Cols(), mat.Rows()))
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(int(float64(mat.Cols())*scale), int(float64(mat.Rows())*scale)), 0, 0, gocv.InterpolationArea)
		mat.Close()
		mat = resized
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	low, high := CannyThresholds(req.Sensitivity)
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blur, &edges, low, high)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := req.MinObjectSize * req.MinObjectSize
	count := 0
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		if rect.Dy() == 0 || rect.Dx()*rect.Dy() < minArea {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect < d.MinAspectRatio || aspect > d.MaxAspectRatio {
			continue
		}
		count++
	}
	return count, nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

var _ port.ObjectCounter = (*LocalCounter)(nil)
