package testfixture

import (
	"math"
	"testing"
)

func TestPSNRIdenticalFramesIsInfinite(t *testing.T) {
	f := ToFrame(SMPTEBars(64, 64))
	if p := PSNR(f, f); !math.IsInf(p, 1) {
		t.Fatalf("expected +Inf PSNR for identical frames, got %v", p)
	}
}

func TestSMPTEBarsProducesSevenDistinctBars(t *testing.T) {
	img := SMPTEBars(140, 10)
	barWidth := 140 / 7
	seen := make(map[[3]byte]bool)
	for i := 0; i < 7; i++ {
		c := img.RGBAAt(i*barWidth+barWidth/2, 5)
		seen[[3]byte{c.R, c.G, c.B}] = true
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 distinct bar colors, got %d", len(seen))
	}
}

func TestScaleRGBADownsamplesToRequestedSize(t *testing.T) {
	img := SMPTEBars(1920, 1080)
	scaled := ScaleRGBA(img, 960, 540)
	if scaled.Bounds().Dx() != 960 || scaled.Bounds().Dy() != 540 {
		t.Fatalf("expected 960x540, got %dx%d", scaled.Bounds().Dx(), scaled.Bounds().Dy())
	}
}
