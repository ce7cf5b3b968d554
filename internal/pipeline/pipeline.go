// Package pipeline normalizes a user-submitted headshot into a fixed-size,
// byte-budgeted, white-background portrait and reports which document rules
// the submission violates.
//
// Every stage is a pure function over its input raster; a Pipeline value is
// safe for concurrent use.
package pipeline

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropPolicy selects how the ratio crop window is anchored.
type CropPolicy int

const (
	// CropFaceAnchored centers the crop window on the detected face.
	CropFaceAnchored CropPolicy = iota
	// CropPassportCenter zooms in on the raster center.
	CropPassportCenter
	// CropPassportTop zooms in with the window shifted toward the top edge.
	CropPassportTop
)

// BackgroundModel selects how border whiteness is judged.
type BackgroundModel int

const (
	// BackgroundLab repaints near-background pixels to white and gates on
	// the fraction of bright border samples.
	BackgroundLab BackgroundModel = iota
	// BackgroundLuminance is a pass/fail gate on grayscale border strips.
	BackgroundLuminance
)

// Config is the immutable tunable set for one pipeline deployment.
type Config struct {
	TargetWidth  int
	TargetHeight int
	MaxBytes     int

	Crop               CropPolicy
	ZoomHeightFraction float64
	TopBias            float64

	Background       BackgroundModel
	BorderPx         int
	LuminanceMin     uint8
	BrightnessMin    float64
	LabDistanceMax   float64
	WhiteFractionMin float64

	FaceRules      bool
	FaceCenterXMin float64
	FaceCenterXMax float64
	FaceCenterYMin float64
	FaceCenterYMax float64
	FaceHeightMin  float64
	FaceHeightMax  float64

	QualityMin int
	QualityMax int

	// MaxOriginalBytes caps the size of the uploaded file itself.
	// Zero disables the check.
	MaxOriginalBytes int
}

// TargetRatio returns the width/height ratio of the output photo.
func (c Config) TargetRatio() float64 {
	return float64(c.TargetWidth) / float64(c.TargetHeight)
}

// IssueCode identifies one failed validation rule.
type IssueCode string

const (
	IssueInvalidImage     IssueCode = "invalid_image"
	IssueOriginalTooLarge IssueCode = "original_too_large"
	IssueNoFace           IssueCode = "no_face"
	IssueFaceOffCenterX   IssueCode = "face_off_center_x"
	IssueFaceOffCenterY   IssueCode = "face_off_center_y"
	IssueFaceScale        IssueCode = "face_scale"
	IssueBackground       IssueCode = "background_not_white"
	IssueOversize         IssueCode = "oversize"
	IssueNotCompliant     IssueCode = "not_compliant"
)

// Issue is one structured validation failure. Byte fields are only set for
// size-related codes; rendering to user-facing text happens in the catalog
// package so the core stays locale-agnostic.
type Issue struct {
	Code        IssueCode
	ActualBytes int
	LimitBytes  int
}

// Result is the outcome of one pipeline invocation.
type Result struct {
	Encoded       []byte
	Width         int
	Height        int
	ByteCount     int
	Quality       int
	Issues        []Issue
	WhiteFraction float64
	Face          *image.Rectangle
	Approved      bool
}

// DecodeError reports input that is not a decodable image. It is the only
// error that aborts a run before the pipeline produces a Result.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Pipeline binds a configuration and an optional subject locator.
type Pipeline struct {
	cfg     Config
	locator Locator
}

// New builds a pipeline. locator may be nil; every crop then anchors on the
// raster center and the face-rule variant reports a missing face.
func New(cfg Config, locator Locator) *Pipeline {
	return &Pipeline{cfg: cfg, locator: locator}
}

// Config returns the active tunable set.
func (p *Pipeline) Config() Config { return p.cfg }

// Run validates and normalizes raw image bytes. It returns a *DecodeError
// when the input is not an image; every other rule violation is reported
// inside the Result instead of failing the run.
func (p *Pipeline) Run(raw []byte) (*Result, error) {
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if src.Bounds().Dx() == 0 || src.Bounds().Dy() == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("zero-size image")}
	}

	var issues []Issue
	if p.cfg.MaxOriginalBytes > 0 && len(raw) > p.cfg.MaxOriginalBytes {
		issues = append(issues, Issue{
			Code:        IssueOriginalTooLarge,
			ActualBytes: len(raw),
			LimitBytes:  p.cfg.MaxOriginalBytes,
		})
	}

	var face *image.Rectangle
	if p.cfg.Crop == CropFaceAnchored && p.locator != nil {
		if box, ok := p.locator.Locate(src); ok {
			face = &box
		}
	}
	issues = append(issues, faceIssues(src.Bounds(), face, p.cfg)...)

	cropped := cropToRatio(src, face, p.cfg)

	bg := classifyBackground(cropped, p.cfg)
	if !bg.OK {
		issues = append(issues, Issue{Code: IssueBackground})
	}

	enc, err := encodeUnderBudget(bg.Image, p.cfg)
	if err != nil {
		return nil, err
	}
	if len(enc.Data) > p.cfg.MaxBytes {
		issues = append(issues, Issue{
			Code:        IssueOversize,
			ActualBytes: len(enc.Data),
			LimitBytes:  p.cfg.MaxBytes,
		})
	}

	approved := len(issues) == 0 && len(enc.Data) <= p.cfg.MaxBytes
	if !approved && len(issues) == 0 {
		issues = append(issues, Issue{Code: IssueNotCompliant})
	}

	return &Result{
		Encoded:       enc.Data,
		Width:         p.cfg.TargetWidth,
		Height:        p.cfg.TargetHeight,
		ByteCount:     len(enc.Data),
		Quality:       enc.Quality,
		Issues:        issues,
		WhiteFraction: bg.Fraction,
		Face:          face,
		Approved:      approved,
	}, nil
}
