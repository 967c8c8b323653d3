package compositor

import (
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/testfixture"
)

// TestIdentityCompositeMatchesSourceWithinPSNRGate exercises the
// single_clip scenario at the compositor level: an identity transform, no
// effects, full fade over a SMPTE-bar source must reproduce the source
// within the >=40dB PSNR gate (here, bit-identical).
func TestIdentityCompositeMatchesSourceWithinPSNRGate(t *testing.T) {
	c := New(nil)
	src := testfixture.ToFrame(testfixture.SMPTEBars(64, 64))

	instr := Instruction{
		Clip:      &edl.Clip{InTL: 0, OutTL: 3},
		Transform: IdentityTransform(),
		Chain:     IdentityLUT(8),
		FadeMult:  1,
	}
	out, err := c.Composite(src, instr, acquireStandalone(64, 64, src.Format))
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	if p := testfixture.PSNR(out, src); p < 40 {
		t.Fatalf("expected PSNR >= 40dB for identity composite, got %v", p)
	}
}

// TestBrightness50PercentStaysWithinPSNRBand exercises the brightness_50pct
// scenario: a halved-brightness composite over the same source must differ
// visibly (PSNR < 40) but not catastrophically (PSNR >= 25).
func TestBrightness50PercentStaysWithinPSNRBand(t *testing.T) {
	c := New(nil)
	src := testfixture.ToFrame(testfixture.SMPTEBars(64, 64))

	instr := Instruction{
		Clip:      &edl.Clip{InTL: 0, OutTL: 3},
		Transform: IdentityTransform(),
		Chain:     CompileChain([]edl.SimpleEffect{{Type: edl.EffectBrightness, Strength: 0.5}}, 8),
		FadeMult:  1,
	}
	out, err := c.Composite(src, instr, acquireStandalone(64, 64, src.Format))
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	p := testfixture.PSNR(out, src)
	if p < 25 || p >= 40 {
		t.Fatalf("expected brightness_50pct PSNR in [25,40), got %v", p)
	}
}

// TestFullStrengthEffectIsNearVisuallyIdentical exercises the spec's
// strength=1.0 no-op guarantee: an effect applied at full strength with no
// actual adjustment must stay within the >=35dB equivalence gate.
func TestFullStrengthEffectIsNearVisuallyIdentical(t *testing.T) {
	c := New(nil)
	src := testfixture.ToFrame(testfixture.SMPTEBars(64, 64))

	instr := Instruction{
		Clip:      &edl.Clip{InTL: 0, OutTL: 3},
		Transform: IdentityTransform(),
		Chain:     CompileChain([]edl.SimpleEffect{{Type: edl.EffectBrightness, Strength: 1.0}}, 8),
		FadeMult:  1,
	}
	out, err := c.Composite(src, instr, acquireStandalone(64, 64, src.Format))
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	if p := testfixture.PSNR(out, src); p < 35 {
		t.Fatalf("expected PSNR >= 35dB at strength 1.0, got %v", p)
	}
}
