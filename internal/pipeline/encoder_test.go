package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
)

// noisyImage produces an incompressible raster so JPEG sizes vary with
// quality.
func noisyImage(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func TestEncodeUnderGenerousBudgetUsesTopQuality(t *testing.T) {
	cfg := PassportCenterPreset()
	cfg.MaxBytes = 10 << 20

	res, err := encodeUnderBudget(noisyImage(600, 720), cfg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !res.Fits {
		t.Fatal("expected result to fit a huge budget")
	}
	if res.Quality != cfg.QualityMax {
		t.Fatalf("expected quality %d, got %d", cfg.QualityMax, res.Quality)
	}
	if len(res.Data) > cfg.MaxBytes {
		t.Fatalf("result exceeds budget: %d", len(res.Data))
	}
}

func TestEncodeUnattainableBudgetFallsBack(t *testing.T) {
	cfg := PassportCenterPreset()
	cfg.MaxBytes = 100

	res, err := encodeUnderBudget(noisyImage(600, 720), cfg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if res.Fits {
		t.Fatal("a 100-byte budget must not be attainable")
	}
	if res.Quality != cfg.QualityMin {
		t.Fatalf("expected fallback quality %d, got %d", cfg.QualityMin, res.Quality)
	}
	if len(res.Data) == 0 {
		t.Fatal("fallback must still return encoded bytes")
	}
}

func TestEncodeOutputHasTargetDimensions(t *testing.T) {
	cfg := PassportCenterPreset()
	cfg.MaxBytes = 10 << 20

	res, err := encodeUnderBudget(noisyImage(601, 733), cfg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Bounds().Dx() != cfg.TargetWidth || decoded.Bounds().Dy() != cfg.TargetHeight {
		t.Fatalf("unexpected output size %v", decoded.Bounds())
	}
}

func TestEncodedSizeMonotonicInQuality(t *testing.T) {
	img := noisyImage(240, 288)
	qualities := []int{35, 55, 75, 95}
	prev := 0
	for _, q := range qualities {
		data, err := encodeJPEG(img, q)
		if err != nil {
			t.Fatalf("encode q=%d: %v", q, err)
		}
		if len(data) < prev {
			t.Fatalf("size decreased from %d to %d at q=%d", prev, len(data), q)
		}
		prev = len(data)
	}
}

func TestEncodeFindsLargestFittingQuality(t *testing.T) {
	img := noisyImage(600, 720)
	cfg := PassportCenterPreset()

	// Reference sizes are computed on the same resized raster the encoder
	// works on. A budget of exactly size(q=60) has a unique correct answer
	// when size(q=61) is strictly larger.
	resized := imaging.Resize(img, cfg.TargetWidth, cfg.TargetHeight, imaging.Lanczos)
	at60, err := encodeJPEG(resized, 60)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	at61, err := encodeJPEG(resized, 61)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(at61) <= len(at60) {
		t.Skip("encoder not strictly monotonic at this boundary")
	}
	cfg.MaxBytes = len(at60)

	res, err := encodeUnderBudget(img, cfg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !res.Fits {
		t.Fatal("expected a fitting quality")
	}
	if res.Quality != 60 {
		t.Fatalf("expected quality 60, got %d", res.Quality)
	}
}
