package compositor

import (
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

func TestIdentityTransformCopiesPixelsUnchanged(t *testing.T) {
	src := frame.NewStandalone(4, 4, frame.FormatYUV420P)
	for i := range src.Data[0] {
		src.Data[0][i] = byte(i % 256)
	}
	dst := frame.NewStandalone(4, 4, frame.FormatYUV420P)

	IdentityTransform().Apply(dst, src)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if dst.Data[0][y*dst.Strides[0]+x] != src.Data[0][y*src.Strides[0]+x] {
				t.Fatalf("identity transform must preserve pixel at (%d,%d)", x, y)
			}
		}
	}
}

func TestCompileMotionIdentityWhenNoMotionOrIntrinsic(t *testing.T) {
	tr := CompileMotion(nil, nil, 16, 16)
	x, y := tr.mapBack(5, 7)
	if x != 5 || y != 7 {
		t.Fatalf("expected identity mapping, got (%v, %v)", x, y)
	}
}

func TestCompileMotionPanShiftsSampledOrigin(t *testing.T) {
	motion := &edl.Motion{ZoomX: 1, ZoomY: 1, PanX: 0.5, PanY: 0}
	tr := CompileMotion(nil, motion, 100, 100)
	// Output pixel (0,0) should sample from a source x shifted by +25
	// (panX 0.5 of half-width 50).
	x, _ := tr.mapBack(0, 0)
	if x < 24 || x > 26 {
		t.Fatalf("expected pan to shift sampled x near 25, got %v", x)
	}
}

func TestTransformFillsOutOfSourceRegionBlack(t *testing.T) {
	motion := &edl.Motion{ZoomX: 1, ZoomY: 1, PanX: 2.0, PanY: 0} // push far outside source
	tr := CompileMotion(nil, motion, 4, 4)
	src := frame.NewStandalone(4, 4, frame.FormatYUV420P)
	for i := range src.Data[0] {
		src.Data[0][i] = 200
	}
	dst := frame.NewStandalone(4, 4, frame.FormatYUV420P)
	tr.Apply(dst, src)

	if dst.Data[0][0] != 16 {
		t.Fatalf("expected black fill (Y=16) outside source, got %d", dst.Data[0][0])
	}
}
