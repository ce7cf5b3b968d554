package pipeline

import (
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// backgroundResult carries the whiteness verdict plus the raster to encode:
// the Lab model repaints near-background pixels, the luminance model passes
// the input through untouched.
type backgroundResult struct {
	Fraction float64
	OK       bool
	Image    *image.NRGBA
}

func classifyBackground(img *image.NRGBA, cfg Config) backgroundResult {
	bounds := img.Bounds()
	band := borderBand(cfg.BorderPx, bounds.Dx(), bounds.Dy())

	var res backgroundResult
	if cfg.Background == BackgroundLuminance {
		res.Fraction = luminanceWhiteFraction(img, band, cfg.LuminanceMin)
		res.Image = img
	} else {
		res.Fraction, res.Image = labWhiten(img, band, cfg)
	}
	res.OK = res.Fraction >= cfg.WhiteFractionMin
	return res
}

// borderBand caps the configured strip thickness at a quarter of the smaller
// dimension so tiny crops still leave a foreground.
func borderBand(px, w, h int) int {
	band := px
	if q := w / 4; q < band {
		band = q
	}
	if q := h / 4; q < band {
		band = q
	}
	if band < 1 {
		band = 1
	}
	return band
}

// luminanceWhiteFraction averages, over the four border strips, each strip's
// fraction of pixels at or above the luminance threshold. No correction is
// applied; this model is a gate only.
func luminanceWhiteFraction(img *image.NRGBA, band int, threshold uint8) float64 {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	strips := []image.Rectangle{
		image.Rect(0, 0, w, band),   // top
		image.Rect(0, h-band, w, h), // bottom
		image.Rect(0, 0, band, h),   // left
		image.Rect(w-band, 0, w, h), // right
	}

	var sum float64
	for _, strip := range strips {
		white, total := 0, 0
		for y := strip.Min.Y; y < strip.Max.Y; y++ {
			row := y * gray.Stride
			for x := strip.Min.X; x < strip.Max.X; x++ {
				if gray.Pix[row+x*4] >= threshold {
					white++
				}
				total++
			}
		}
		if total > 0 {
			sum += float64(white) / float64(total)
		}
	}
	return sum / float64(len(strips))
}

// labWhiten estimates the background as the median border color in Lab space,
// repaints every pixel within the distance threshold to pure white, and
// returns the fraction of border samples that were already bright. The
// pre-correction fraction is what gates acceptability.
func labWhiten(img *image.NRGBA, band int, cfg Config) (float64, *image.NRGBA) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var ls, as, bs []float64
	bright := 0
	sample := func(x, y int) {
		l, a, b := pixelLab(img, x, y)
		ls = append(ls, l)
		as = append(as, a)
		bs = append(bs, b)
		if l >= cfg.BrightnessMin {
			bright++
		}
	}
	for y := 0; y < band; y++ {
		for x := 0; x < w; x++ {
			sample(x, y)
			sample(x, h-1-y)
		}
	}
	for x := 0; x < band; x++ {
		for y := 0; y < h; y++ {
			sample(x, y)
			sample(w-1-x, y)
		}
	}
	if len(ls) == 0 {
		return 0, img
	}

	refL, refA, refB := median(ls), median(as), median(bs)
	fraction := float64(bright) / float64(len(ls))

	out := imaging.Clone(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l, a, b := pixelLab(out, x, y)
			dl, da, db := l-refL, a-refA, b-refB
			if dl*dl+da*da+db*db < cfg.LabDistanceMax*cfg.LabDistanceMax {
				out.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return fraction, out
}

func pixelLab(img *image.NRGBA, x, y int) (float64, float64, float64) {
	i := (y-img.Rect.Min.Y)*img.Stride + (x-img.Rect.Min.X)*4
	c := colorful.Color{
		R: float64(img.Pix[i]) / 255,
		G: float64(img.Pix[i+1]) / 255,
		B: float64(img.Pix[i+2]) / 255,
	}
	return c.Lab()
}

func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
