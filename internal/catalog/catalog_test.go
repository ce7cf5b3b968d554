package catalog

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/example/photo-validator/internal/pipeline"
)

func TestMatchDefaultsToSpanish(t *testing.T) {
	if got := Match(""); got != language.Spanish {
		t.Fatalf("expected Spanish default, got %v", got)
	}
	if got := Match("garbage;;;"); got != language.Spanish {
		t.Fatalf("expected Spanish for unparseable header, got %v", got)
	}
	if got := Match("fr-FR"); got != language.Spanish {
		t.Fatalf("expected Spanish for unsupported locale, got %v", got)
	}
}

func TestMatchResolvesEnglish(t *testing.T) {
	if got := Match("en-US,en;q=0.9"); got != language.English {
		t.Fatalf("expected English, got %v", got)
	}
}

func TestRenderOversizeIncludesSizes(t *testing.T) {
	issue := pipeline.Issue{
		Code:        pipeline.IssueOversize,
		ActualBytes: 61440,
		LimitBytes:  51200,
	}
	got := Render(language.English, issue)
	if !strings.Contains(got, "50 KB") {
		t.Fatalf("expected limit in message, got %q", got)
	}
	if !strings.Contains(got, "60.0 KB") {
		t.Fatalf("expected actual size in message, got %q", got)
	}
}

func TestRenderUnknownCodeFallsBack(t *testing.T) {
	got := Render(language.Spanish, pipeline.Issue{Code: "bogus"})
	if got != Render(language.Spanish, pipeline.Issue{Code: pipeline.IssueNotCompliant}) {
		t.Fatalf("expected generic fallback, got %q", got)
	}
}

func TestRenderAllPreservesOrder(t *testing.T) {
	issues := []pipeline.Issue{
		{Code: pipeline.IssueNoFace},
		{Code: pipeline.IssueBackground},
	}
	got := RenderAll(language.English, issues)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0] != Render(language.English, issues[0]) || got[1] != Render(language.English, issues[1]) {
		t.Fatalf("order not preserved: %v", got)
	}
}
