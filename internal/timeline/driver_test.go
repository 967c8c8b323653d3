package timeline

import (
	"context"
	"log/slog"
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/codec"
	"github.com/linuxmatters/edl2ffmpeg/internal/compositor"
	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/metrics"
	"github.com/linuxmatters/edl2ffmpeg/internal/pool"
	"github.com/linuxmatters/edl2ffmpeg/internal/renderctx"
)

// fakeReader serves a fixed sequence of frames at 1/30s spacing, recording
// seeks for assertions.
type fakeReader struct {
	frames []*frame.Frame
	idx    int
	seeks  []float64
}

func newFakeReader(n int, fps float64) *fakeReader {
	fr := &fakeReader{}
	for i := 0; i < n; i++ {
		f := frame.NewStandalone(4, 4, frame.FormatYUV420P)
		f.PTS = float64(i) / fps
		fr.frames = append(fr.frames, f)
	}
	return fr
}

func (f *fakeReader) NextFrame() (*frame.Frame, error) {
	if f.idx >= len(f.frames) {
		return nil, nil
	}
	fr := f.frames[f.idx]
	f.idx++
	return fr, nil
}

func (f *fakeReader) SeekTo(tSrc float64) error {
	f.seeks = append(f.seeks, tSrc)
	for i, fr := range f.frames {
		if fr.PTS >= tSrc {
			f.idx = i
			return nil
		}
	}
	f.idx = len(f.frames)
	return nil
}

func (f *fakeReader) FrameDuration() float64 { return 1.0 / 30.0 }
func (f *fakeReader) URI() string            { return "fake.mov" }
func (f *fakeReader) Close()                 {}

func newTestDriver(t *testing.T, tl *edl.Timeline, fr *fakeReader) *Driver {
	t.Helper()
	orig := openReader
	openReader = func(uri, track string, rctx *renderctx.Context) (sourceReader, error) { return fr, nil }
	t.Cleanup(func() { openReader = orig })

	p := pool.New(tl.Width, tl.Height, frame.FormatYUV420P, 4, nil)
	scaler := codec.NewScaler(tl.Width, tl.Height, frame.FormatYUV420P)
	comp := compositor.New(slog.Default())
	rctx := renderctx.New(context.Background(), nil, metrics.New())

	return &Driver{
		tl:       tl,
		resolver: NewResolver(tl),
		pool:     p,
		scaler:   scaler,
		comp:     comp,
		rctx:     rctx,
		readers:  make(map[string]*readerState),
	}
}

func TestFrameForSourceAdvancesWithoutSeekingForward(t *testing.T) {
	fr := newFakeReader(90, 30)
	tl := &edl.Timeline{FPS: 30, Width: 4, Height: 4}
	d := newTestDriver(t, tl, fr)

	rs, err := d.readerFor(&edl.MediaSource{URI: "fake.mov", Track: "V1"})
	if err != nil {
		t.Fatalf("readerFor failed: %v", err)
	}

	f1, err := d.frameForSource(rs, 0)
	if err != nil || f1 == nil {
		t.Fatalf("frameForSource(0) failed: %v", err)
	}
	f2, err := d.frameForSource(rs, 1.0)
	if err != nil || f2 == nil {
		t.Fatalf("frameForSource(1.0) failed: %v", err)
	}
	if len(fr.seeks) != 0 {
		t.Fatalf("expected no seeks advancing forward, got %v", fr.seeks)
	}
}

func TestFrameForSourceSeeksBackward(t *testing.T) {
	fr := newFakeReader(90, 30)
	tl := &edl.Timeline{FPS: 30, Width: 4, Height: 4}
	d := newTestDriver(t, tl, fr)

	rs, _ := d.readerFor(&edl.MediaSource{URI: "fake.mov", Track: "V1"})
	if _, err := d.frameForSource(rs, 2.0); err != nil {
		t.Fatalf("frameForSource(2.0) failed: %v", err)
	}
	if _, err := d.frameForSource(rs, 0.5); err != nil {
		t.Fatalf("frameForSource(0.5) failed: %v", err)
	}
	if len(fr.seeks) != 1 {
		t.Fatalf("expected exactly one seek going backward, got %v", fr.seeks)
	}
}

func TestGapFrameFillsBlack(t *testing.T) {
	tl := &edl.Timeline{FPS: 30, Width: 2, Height: 2}
	d := newTestDriver(t, tl, newFakeReader(1, 30))

	f, err := d.gapFrame(5, 0.1666)
	if err != nil {
		t.Fatalf("gapFrame failed: %v", err)
	}
	if f.Data[0][0] != 16 {
		t.Fatalf("expected black level 16 in gap frame, got %d", f.Data[0][0])
	}
	if f.Seq != 5 {
		t.Fatalf("expected Seq 5, got %d", f.Seq)
	}
}
