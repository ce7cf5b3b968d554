// Package catalog renders structured pipeline issues into user-facing text.
// The pipeline itself stays locale-agnostic; the HTTP layer picks the locale
// from the Accept-Language header. Spanish is the default because that is
// the language of the student-facing frontend.
package catalog

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/example/photo-validator/internal/pipeline"
)

var supported = []language.Tag{
	language.Spanish, // default
	language.English,
}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[pipeline.IssueCode]string{
	language.Spanish: {
		pipeline.IssueInvalidImage:     "Archivo no es una imagen válida.",
		pipeline.IssueOriginalTooLarge: "El archivo subido supera el tamaño máximo de %d KB (actual: %.1f KB).",
		pipeline.IssueNoFace:           "No se detectó un rostro claro.",
		pipeline.IssueFaceOffCenterX:   "Rostro no está centrado horizontalmente.",
		pipeline.IssueFaceOffCenterY:   "Rostro no está centrado verticalmente.",
		pipeline.IssueFaceScale:        "Rostro demasiado pequeño o grande.",
		pipeline.IssueBackground:       "Fondo no es suficientemente claro/blanco.",
		pipeline.IssueOversize:         "La foto final debe pesar ≤ %d KB (actual: %.1f KB).",
		pipeline.IssueNotCompliant:     "La foto no cumple con los criterios requeridos.",
	},
	language.English: {
		pipeline.IssueInvalidImage:     "File is not a valid image.",
		pipeline.IssueOriginalTooLarge: "The uploaded file exceeds the maximum of %d KB (current: %.1f KB).",
		pipeline.IssueNoFace:           "No clear face was detected.",
		pipeline.IssueFaceOffCenterX:   "Face is not horizontally centered.",
		pipeline.IssueFaceOffCenterY:   "Face is not vertically centered.",
		pipeline.IssueFaceScale:        "Face is too small or too large.",
		pipeline.IssueBackground:       "Background is not white/clear enough.",
		pipeline.IssueOversize:         "The final photo must weigh ≤ %d KB (current: %.1f KB).",
		pipeline.IssueNotCompliant:     "The photo does not meet the required criteria.",
	},
}

// Match resolves an Accept-Language header value to a supported locale.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, _ := matcher.Match(tags...)
	return supported[index]
}

// Render translates one issue for the given locale.
func Render(tag language.Tag, issue pipeline.Issue) string {
	table, ok := messages[tag]
	if !ok {
		table = messages[supported[0]]
	}
	tmpl, ok := table[issue.Code]
	if !ok {
		tmpl = table[pipeline.IssueNotCompliant]
	}

	switch issue.Code {
	case pipeline.IssueOversize, pipeline.IssueOriginalTooLarge:
		return fmt.Sprintf(tmpl, issue.LimitBytes/1024, float64(issue.ActualBytes)/1024)
	default:
		return tmpl
	}
}

// RenderAll translates an ordered issue list, preserving order.
func RenderAll(tag language.Tag, issues []pipeline.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, Render(tag, issue))
	}
	return out
}
