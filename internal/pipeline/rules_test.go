package pipeline

import (
	"image"
	"testing"
)

func TestFaceIssuesCenteredFacePasses(t *testing.T) {
	cfg := FaceAnchoredPreset()
	bounds := image.Rect(0, 0, 1000, 1000)
	face := image.Rect(400, 300, 600, 500)

	if issues := faceIssues(bounds, &face, cfg); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestFaceIssuesMissingFace(t *testing.T) {
	cfg := FaceAnchoredPreset()
	issues := faceIssues(image.Rect(0, 0, 1000, 1000), nil, cfg)
	if len(issues) != 1 || issues[0].Code != IssueNoFace {
		t.Fatalf("expected no_face, got %v", issues)
	}
}

func TestFaceIssuesOffCenter(t *testing.T) {
	cfg := FaceAnchoredPreset()
	bounds := image.Rect(0, 0, 1000, 1000)

	left := image.Rect(0, 300, 200, 500)
	issues := faceIssues(bounds, &left, cfg)
	if len(issues) == 0 || issues[0].Code != IssueFaceOffCenterX {
		t.Fatalf("expected face_off_center_x, got %v", issues)
	}

	low := image.Rect(400, 700, 600, 900)
	issues = faceIssues(bounds, &low, cfg)
	found := false
	for _, issue := range issues {
		if issue.Code == IssueFaceOffCenterY {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected face_off_center_y, got %v", issues)
	}
}

func TestFaceIssuesBadScale(t *testing.T) {
	cfg := FaceAnchoredPreset()
	bounds := image.Rect(0, 0, 1000, 1000)

	tiny := image.Rect(480, 480, 520, 520)
	issues := faceIssues(bounds, &tiny, cfg)
	if len(issues) != 1 || issues[0].Code != IssueFaceScale {
		t.Fatalf("expected face_scale for tiny face, got %v", issues)
	}

	huge := image.Rect(100, 100, 900, 900)
	issues = faceIssues(bounds, &huge, cfg)
	if len(issues) != 1 || issues[0].Code != IssueFaceScale {
		t.Fatalf("expected face_scale for huge face, got %v", issues)
	}
}

func TestFaceIssuesDisabledForPassportPresets(t *testing.T) {
	for _, cfg := range []Config{PassportCenterPreset(), PassportTopPreset()} {
		if issues := faceIssues(image.Rect(0, 0, 100, 100), nil, cfg); issues != nil {
			t.Fatalf("expected no face rules, got %v", issues)
		}
	}
}
