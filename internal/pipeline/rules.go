package pipeline

import "image"

// faceIssues evaluates the face-placement rules on the pre-crop raster.
// Rules only apply to deployments that enable them; a missing face is itself
// a rule violation there, not an error.
func faceIssues(bounds image.Rectangle, face *image.Rectangle, cfg Config) []Issue {
	if !cfg.FaceRules {
		return nil
	}
	if face == nil {
		return []Issue{{Code: IssueNoFace}}
	}

	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	cx := float64(face.Min.X-bounds.Min.X) + float64(face.Dx())/2
	cy := float64(face.Min.Y-bounds.Min.Y) + float64(face.Dy())/2
	faceH := float64(face.Dy())

	var issues []Issue
	if cx < w*cfg.FaceCenterXMin || cx > w*cfg.FaceCenterXMax {
		issues = append(issues, Issue{Code: IssueFaceOffCenterX})
	}
	if cy < h*cfg.FaceCenterYMin || cy > h*cfg.FaceCenterYMax {
		issues = append(issues, Issue{Code: IssueFaceOffCenterY})
	}
	if faceH < h*cfg.FaceHeightMin || faceH > h*cfg.FaceHeightMax {
		issues = append(issues, Issue{Code: IssueFaceScale})
	}
	return issues
}
