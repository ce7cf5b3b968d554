package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// cropToRatio cuts the raster down to the target aspect ratio without
// resizing it. The window is clamped to the raster bounds, so extreme aspect
// mismatches may leave the crop slightly off-ratio rather than failing.
func cropToRatio(img image.Image, face *image.Rectangle, cfg Config) *image.NRGBA {
	if cfg.Crop == CropFaceAnchored {
		return faceAnchoredCrop(img, face, cfg)
	}
	return passportCrop(img, cfg)
}

// faceAnchoredCrop trims the longer axis symmetrically around the face
// center (raster center when no face is available), keeping the other axis
// untouched.
func faceAnchoredCrop(img image.Image, face *image.Rectangle, cfg Config) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	target := cfg.TargetRatio()
	ratio := float64(w) / float64(h)

	var window image.Rectangle
	if ratio > target {
		// Too wide: crop left/right.
		newW := max(1, int(float64(h)*target))
		cx := w / 2
		if face != nil {
			cx = face.Min.X + face.Dx()/2
		}
		x1 := clamp(cx-newW/2, 0, w-newW)
		window = image.Rect(x1, 0, x1+newW, h)
	} else {
		// Too tall: crop top/bottom.
		newH := max(1, int(float64(w)/target))
		cy := h / 2
		if face != nil {
			cy = face.Min.Y + face.Dy()/2
		}
		y1 := clamp(cy-newH/2, 0, h-newH)
		window = image.Rect(0, y1, w, y1+newH)
	}
	return imaging.Crop(img, window.Add(bounds.Min))
}

// passportCrop zooms in by a fixed height fraction when the raster is taller
// than the target ratio, falling back to a width-limited window when the
// derived width would overflow. Horizontal placement is always centered;
// vertical placement is centered or biased toward the top edge.
func passportCrop(img image.Image, cfg Config) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	target := cfg.TargetRatio()
	ratio := float64(w) / float64(h)

	if ratio >= target {
		// Wide enough already: plain centered width crop.
		newW := max(1, int(float64(h)*target))
		x1 := clamp((w-newW)/2, 0, w-newW)
		return imaging.Crop(img, image.Rect(x1, 0, x1+newW, h).Add(bounds.Min))
	}

	newH := max(1, int(float64(h)*cfg.ZoomHeightFraction))
	newW := max(1, int(float64(newH)*target))
	if newW > w {
		newW = w
		newH = max(1, int(float64(w)/target))
	}

	x1 := clamp((w-newW)/2, 0, w-newW)
	slack := h - newH
	y1 := slack / 2
	if cfg.Crop == CropPassportTop {
		y1 = clamp(slack/2-int(float64(slack)*cfg.TopBias), 0, slack)
	}
	return imaging.Crop(img, image.Rect(x1, y1, x1+newW, y1+newH).Add(bounds.Min))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
