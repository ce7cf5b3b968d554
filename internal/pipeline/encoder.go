package pipeline

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

type encodeResult struct {
	Data    []byte
	Quality int
	Fits    bool
}

// encodeUnderBudget resizes to the exact target dimensions and binary
// searches the JPEG quality range for the largest quality whose output fits
// the byte budget. When nothing fits it falls back to the lowest quality;
// the rule engine re-checks the final size, so an over-budget fallback is
// reported rather than hidden.
func encodeUnderBudget(img image.Image, cfg Config) (encodeResult, error) {
	resized := imaging.Resize(img, cfg.TargetWidth, cfg.TargetHeight, imaging.Lanczos)

	lo, hi := cfg.QualityMin, cfg.QualityMax
	var best []byte
	bestQuality := 0
	for lo <= hi {
		quality := (lo + hi) / 2
		data, err := encodeJPEG(resized, quality)
		if err != nil {
			return encodeResult{}, err
		}
		if len(data) <= cfg.MaxBytes {
			best = data
			bestQuality = quality
			lo = quality + 1
		} else {
			hi = quality - 1
		}
	}
	if best != nil {
		return encodeResult{Data: best, Quality: bestQuality, Fits: true}, nil
	}

	data, err := encodeJPEG(resized, cfg.QualityMin)
	if err != nil {
		return encodeResult{}, err
	}
	return encodeResult{Data: data, Quality: cfg.QualityMin}, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg q=%d: %w", quality, err)
	}
	return buf.Bytes(), nil
}
