package compositor

import (
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

func TestFadeMultiplierRisesAndFalls(t *testing.T) {
	c := &edl.Clip{InTL: 0, OutTL: 3, TopFade: 1.0, TailFade: 1.5}

	if got := FadeMultiplier(c, 0); got != 0 {
		t.Errorf("at in_tl: got %v, want 0", got)
	}
	if got := FadeMultiplier(c, 0.5); got != 0.5 {
		t.Errorf("mid top fade: got %v, want 0.5", got)
	}
	if got := FadeMultiplier(c, 1.25); got != 1 {
		t.Errorf("between fades: got %v, want 1", got)
	}
	if got := FadeMultiplier(c, 2.99); !(got >= 0 && got < 0.01) {
		t.Errorf("near out_tl: got %v, want near 0", got)
	}
}

func TestFadeMultiplierFullBudgetNonNegativeEverywhere(t *testing.T) {
	c := &edl.Clip{InTL: 0, OutTL: 2.5, TopFade: 1.0, TailFade: 1.5}
	for _, t2 := range []float64{0, 0.3, 0.9, 1.0, 1.5, 2.0, 2.4999} {
		if m := FadeMultiplier(c, t2); m < 0 {
			t.Errorf("FadeMultiplier(%v) = %v, must be >= 0", t2, m)
		}
	}
}

func TestApplyFadeAtZeroProducesBlack(t *testing.T) {
	f := frame.NewStandalone(2, 2, frame.FormatYUV420P)
	for i := range f.Data[0] {
		f.Data[0][i] = 235
	}
	ApplyFade(f, 0)
	for i, v := range f.Data[0] {
		if v != 16 {
			t.Fatalf("luma[%d] = %d, want 16 (black level) at multiplier 0", i, v)
		}
	}
}

func TestApplyFadeAtOneIsNoOp(t *testing.T) {
	f := frame.NewStandalone(2, 2, frame.FormatYUV420P)
	f.Data[0][0] = 200
	ApplyFade(f, 1)
	if f.Data[0][0] != 200 {
		t.Fatalf("multiplier 1 must be a no-op, got %d", f.Data[0][0])
	}
}
