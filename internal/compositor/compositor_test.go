package compositor

import (
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

func acquireStandalone(w, h int, f frame.PixelFormat) func() (*frame.Frame, error) {
	return func() (*frame.Frame, error) {
		return frame.NewStandalone(w, h, f), nil
	}
}

func TestCompositeAppliesEffectsAndFade(t *testing.T) {
	c := New(nil)
	src := frame.NewStandalone(4, 4, frame.FormatYUV420P)
	for i := range src.Data[0] {
		src.Data[0][i] = 200
	}

	clip := &edl.Clip{InTL: 0, OutTL: 1}
	instr := Instruction{
		Clip:      clip,
		Transform: IdentityTransform(),
		Chain:     CompileChain([]edl.SimpleEffect{{Type: edl.EffectBrightness, Strength: 0.5}}, 8),
		FadeMult:  1.0,
		OutputPTS: 0.5,
	}

	out, err := c.Composite(src, instr, acquireStandalone(4, 4, frame.FormatYUV420P))
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if out.Data[0][0] != 100 {
		t.Errorf("expected brightness-halved luma 100, got %d", out.Data[0][0])
	}
	if out.PTS != 0.5 {
		t.Errorf("expected output PTS 0.5, got %v", out.PTS)
	}
}

func TestCompositeFadeZeroProducesBlackRegardlessOfEffects(t *testing.T) {
	c := New(nil)
	src := frame.NewStandalone(2, 2, frame.FormatYUV420P)
	for i := range src.Data[0] {
		src.Data[0][i] = 235
	}

	instr := Instruction{
		Transform: IdentityTransform(),
		Chain:     IdentityLUT(8),
		FadeMult:  0,
	}
	out, err := c.Composite(src, instr, acquireStandalone(2, 2, frame.FormatYUV420P))
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	for _, v := range out.Data[0] {
		if v != 16 {
			t.Fatalf("expected black level 16 at fade multiplier 0, got %d", v)
		}
	}
}

func TestCompositeLeavesSourceUnmodified(t *testing.T) {
	c := New(nil)
	src := frame.NewStandalone(2, 2, frame.FormatYUV420P)
	src.Data[0][0] = 77
	instr := Instruction{Transform: IdentityTransform(), Chain: CompileEffect(edl.SimpleEffect{Type: edl.EffectBrightness, Strength: 0.1}, 8), FadeMult: 1}

	if _, err := c.Composite(src, instr, acquireStandalone(2, 2, frame.FormatYUV420P)); err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if src.Data[0][0] != 77 {
		t.Errorf("source frame must not be mutated, got %d", src.Data[0][0])
	}
}
