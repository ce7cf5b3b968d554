package pipeline

import "fmt"

// The three presets reflect the deployments this service has run with. They
// disagree on crop bias and background strictness on purpose; treat them as
// product tuning, not as alternatives to reconcile.

// FaceAnchoredPreset crops around the detected face, cleans the background
// in Lab space, and enforces face-placement rules.
func FaceAnchoredPreset() Config {
	return Config{
		TargetWidth:      240,
		TargetHeight:     288,
		MaxBytes:         50 * 1024,
		Crop:             CropFaceAnchored,
		Background:       BackgroundLab,
		BorderPx:         10,
		BrightnessMin:    0.30,
		LabDistanceMax:   0.08,
		WhiteFractionMin: 0.60,
		FaceRules:        true,
		FaceCenterXMin:   0.28,
		FaceCenterXMax:   0.72,
		FaceCenterYMin:   0.26,
		FaceCenterYMax:   0.72,
		FaceHeightMin:    0.18,
		FaceHeightMax:    0.72,
		QualityMin:       35,
		QualityMax:       95,
	}
}

// PassportCenterPreset zoom-crops around the raster center and gates on a
// plain luminance threshold without correcting pixels.
func PassportCenterPreset() Config {
	return Config{
		TargetWidth:        240,
		TargetHeight:       288,
		MaxBytes:           50 * 1024,
		Crop:               CropPassportCenter,
		ZoomHeightFraction: 0.86,
		Background:         BackgroundLuminance,
		BorderPx:           10,
		LuminanceMin:       220,
		WhiteFractionMin:   0.60,
		QualityMin:         35,
		QualityMax:         95,
	}
}

// PassportTopPreset shifts the zoom window toward the top edge, leaving more
// margin below the subject, and applies the strictest background gate.
func PassportTopPreset() Config {
	return Config{
		TargetWidth:        240,
		TargetHeight:       288,
		MaxBytes:           50 * 1024,
		Crop:               CropPassportTop,
		ZoomHeightFraction: 0.86,
		TopBias:            1.0 / 3,
		Background:         BackgroundLuminance,
		BorderPx:           10,
		LuminanceMin:       230,
		WhiteFractionMin:   0.80,
		QualityMin:         35,
		QualityMax:         95,
	}
}

// PresetByName resolves a deployment preset from configuration.
func PresetByName(name string) (Config, error) {
	switch name {
	case "face":
		return FaceAnchoredPreset(), nil
	case "passport":
		return PassportCenterPreset(), nil
	case "passport-top":
		return PassportTopPreset(), nil
	}
	return Config{}, fmt.Errorf("unknown pipeline preset %q", name)
}
