package pipeline

import (
	"fmt"
	"image"

	pigo "github.com/esimov/pigo/core"
)

// Locator finds the most prominent face-like region of a raster. A miss is
// reported through the boolean, never through an error: downstream stages
// degrade to center-anchored behavior.
type Locator interface {
	Locate(img image.Image) (image.Rectangle, bool)
}

const (
	detectMinSize     = 20
	detectShiftFactor = 0.1
	detectScaleFactor = 1.1
	detectClusterIoU  = 0.2
	detectMinQuality  = 5.0
)

// PigoLocator runs the pigo frontal-face cascade.
type PigoLocator struct {
	classifier *pigo.Pigo
}

// NewPigoLocator unpacks a facefinder cascade model.
func NewPigoLocator(cascade []byte) (*PigoLocator, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return &PigoLocator{classifier: classifier}, nil
}

// Locate returns the largest detection above the quality floor, or ok=false
// when the raster holds no usable face.
func (l *PigoLocator) Locate(img image.Image) (image.Rectangle, bool) {
	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols < detectMinSize || rows < detectMinSize {
		return image.Rectangle{}, false
	}

	src := pigo.ImgToNRGBA(img)
	params := pigo.CascadeParams{
		MinSize:     detectMinSize,
		MaxSize:     min(cols, rows),
		ShiftFactor: detectShiftFactor,
		ScaleFactor: detectScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := l.classifier.RunCascade(params, 0.0)
	dets = l.classifier.ClusterDetections(dets, detectClusterIoU)

	var best pigo.Detection
	bestArea := 0
	for _, det := range dets {
		if det.Q < detectMinQuality {
			continue
		}
		if area := det.Scale * det.Scale; area > bestArea {
			bestArea = area
			best = det
		}
	}
	if bestArea == 0 {
		return image.Rectangle{}, false
	}

	half := best.Scale / 2
	box := image.Rect(
		best.Col-half,
		best.Row-half,
		best.Col-half+best.Scale,
		best.Row-half+best.Scale,
	).Intersect(bounds)
	if box.Empty() {
		return image.Rectangle{}, false
	}
	return box, true
}
