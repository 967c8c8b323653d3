package compositor

import (
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

func TestFillBlackSetsLimitedRangeLevels(t *testing.T) {
	f := frame.NewStandalone(4, 4, frame.FormatYUV420P)
	Fill(f, Black)

	for _, v := range f.Data[0] {
		if v != 16 {
			t.Fatalf("luma = %d, want 16", v)
		}
	}
	for _, v := range f.Data[1] {
		if v != 128 {
			t.Fatalf("U = %d, want 128", v)
		}
	}
	for _, v := range f.Data[2] {
		if v != 128 {
			t.Fatalf("V = %d, want 128", v)
		}
	}
}

func TestNamedColorUnknownDefaultsToBlack(t *testing.T) {
	c := NamedColor("not-a-real-color")
	if c != Black {
		t.Fatalf("expected unknown color name to default to black, got %+v", c)
	}
}

func TestFillNV12InterleavesChroma(t *testing.T) {
	f := frame.NewStandalone(4, 4, frame.FormatNV12)
	Fill(f, White)
	for i := 0; i+1 < len(f.Data[1]); i += 2 {
		if f.Data[1][i] != White.U || f.Data[1][i+1] != White.V {
			t.Fatalf("NV12 chroma not interleaved correctly at byte %d", i)
		}
	}
}
