package compositor

import (
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
)

func TestIdentityLUTPassesThrough(t *testing.T) {
	l := IdentityLUT(8)
	for _, v := range []uint16{0, 1, 128, 255} {
		if got := l.Apply(v); got != v {
			t.Errorf("identity LUT: Apply(%d) = %d", v, got)
		}
	}
}

func TestCompileEffectBrightnessFullStrengthIsIdentity(t *testing.T) {
	eff := edl.SimpleEffect{Type: edl.EffectBrightness, Strength: 1.0}
	l := CompileEffect(eff, 8)
	for _, v := range []uint16{0, 64, 128, 255} {
		if got := l.Apply(v); got != v {
			t.Errorf("brightness strength=1.0: Apply(%d) = %d, want %d", v, got, v)
		}
	}
}

func TestCompileEffectContrastMidpointInvariant(t *testing.T) {
	eff := edl.SimpleEffect{Type: edl.EffectContrast, Strength: 2.0}
	l := CompileEffect(eff, 8)
	if got := l.Apply(128); got != 128 {
		t.Errorf("contrast must fix the midpoint: Apply(128) = %d", got)
	}
}

func TestCompileEffectBrightnessHalvesMidGray(t *testing.T) {
	eff := edl.SimpleEffect{Type: edl.EffectBrightness, Strength: 0.5}
	l := CompileEffect(eff, 8)
	if got := l.Apply(128); got != 64 {
		t.Errorf("brightness 0.5: Apply(128) = %d, want 64", got)
	}
}

func TestCompileChainComposesInOrder(t *testing.T) {
	chain := CompileChain([]edl.SimpleEffect{
		{Type: edl.EffectBrightness, Strength: 0.5},
		{Type: edl.EffectBrightness, Strength: 0.5},
	}, 8)
	if got := chain.Apply(200); got != 50 {
		t.Errorf("compose(0.5, 0.5): Apply(200) = %d, want 50", got)
	}
}

func Test10BitLUTHasExtendedDomain(t *testing.T) {
	eff := edl.SimpleEffect{Type: edl.EffectBrightness, Strength: 1.0}
	l := CompileEffect(eff, 10)
	if got := l.Apply(1023); got != 1023 {
		t.Errorf("10-bit identity at ceiling: Apply(1023) = %d", got)
	}
}
