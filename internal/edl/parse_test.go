package edl

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, doc string) *Timeline {
	t.Helper()
	tl, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return tl
}

func TestParseDefaults(t *testing.T) {
	tl := mustParse(t, `{"clips":[]}`)

	if tl.FPS != 30 {
		t.Errorf("expected default fps 30, got %v", tl.FPS)
	}
	if tl.Width != 1920 || tl.Height != 1080 {
		t.Errorf("expected default 1920x1080, got %dx%d", tl.Width, tl.Height)
	}
}

func TestParseSingleClip(t *testing.T) {
	doc := `{
		"fps": 30, "width": 1920, "height": 1080,
		"clips": [{
			"in": 0, "out": 3,
			"track": {"type": "video", "number": 1},
			"source": {"uri": "bars.mov", "track": "V1", "inSrc": 0, "outSrc": 3}
		}]
	}`
	tl := mustParse(t, doc)

	if len(tl.Clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(tl.Clips))
	}
	if !tl.Clips[0].Source.IsMedia() {
		t.Fatalf("expected media source")
	}
	if got, want := tl.TotalFrames(), int64(90); got != want {
		t.Errorf("TotalFrames() = %d, want %d", got, want)
	}
}

func TestParseRejectsOverlap(t *testing.T) {
	doc := `{"clips": [
		{"in": 0, "out": 2, "track": {"type":"video","number":1},
		 "source": {"uri": "a.mov", "track":"V1", "inSrc":0, "outSrc":2}},
		{"in": 1, "out": 3, "track": {"type":"video","number":1},
		 "source": {"uri": "b.mov", "track":"V1", "inSrc":0, "outSrc":2}}
	]}`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("expected overlap to be rejected")
	}
}

func TestParseRejectsFadeBudgetOverrun(t *testing.T) {
	doc := `{"clips": [
		{"in": 0, "out": 3, "topFade": 2, "tailFade": 2,
		 "track": {"type":"video","number":1},
		 "source": {"uri": "a.mov", "track":"V1", "inSrc":0, "outSrc":3}}
	]}`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("expected fade budget overrun to be rejected")
	}
}

func TestParseRejectsSourceDurationMismatch(t *testing.T) {
	doc := `{"clips": [
		{"in": 0, "out": 3,
		 "track": {"type":"video","number":1},
		 "source": {"uri": "a.mov", "track":"V1", "inSrc":0, "outSrc":5}}
	]}`
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("expected source/timeline duration mismatch to be rejected")
	}
}

func TestParseZeroLengthClipContributesNoFrames(t *testing.T) {
	doc := `{"clips": [
		{"in": 1, "out": 1,
		 "track": {"type":"video","number":1},
		 "source": {"uri": "a.mov", "track":"V1", "inSrc":0, "outSrc":0}}
	]}`
	tl := mustParse(t, doc)
	if tl.Clips[0].Duration() != 0 {
		t.Errorf("expected zero-length clip, got duration %v", tl.Clips[0].Duration())
	}
}

func TestParseEffectSourceAccepted(t *testing.T) {
	doc := `{"clips": [
		{"in": 0, "out": 2,
		 "track": {"type":"video","number":1},
		 "source": {"type": "effect", "effectType": "wipe", "in": 0, "out": 2}}
	]}`
	tl := mustParse(t, doc)
	if tl.Clips[0].Source.Kind != SourceEffect {
		t.Errorf("expected effect source, got %v", tl.Clips[0].Source.Kind)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{not json`)); err == nil {
		t.Fatal("expected parse error")
	}
}
