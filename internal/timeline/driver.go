package timeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/linuxmatters/edl2ffmpeg/internal/codec"
	"github.com/linuxmatters/edl2ffmpeg/internal/compositor"
	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/pool"
	"github.com/linuxmatters/edl2ffmpeg/internal/renderctx"
	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
	"github.com/linuxmatters/edl2ffmpeg/internal/rlog"
)

// Progress is called once per output frame as it is handed to the encoder,
// for a caller-supplied progress display (e.g. the bubbletea TUI).
type Progress func(framesDone, framesTotal int64)

// sourceReader is the subset of *codec.SourceReader the driver depends on,
// declared here so tests can exercise the seek-vs-advance decision without
// a real media file.
type sourceReader interface {
	NextFrame() (*frame.Frame, error)
	SeekTo(tSrc float64) error
	FrameDuration() float64
	URI() string
	Close()
}

// openReader is swapped out in tests; production wiring is codec.OpenReader.
var openReader = func(uri, track string, rctx *renderctx.Context) (sourceReader, error) {
	return codec.OpenReader(uri, track, rctx)
}

// readerState tracks one open Source Reader's most recently decoded frame,
// so repeated requests for nearby source timestamps (the common case when
// output fps exceeds source fps) don't force a redundant decode.
type readerState struct {
	reader  sourceReader
	current *frame.Frame
}

// Driver is the Timeline Driver: it owns the per-URI Source Readers, the
// Scaler, the Compositor, and the Encoder Sink, and steps the output frame
// index from 0 to the timeline's total frame count.
type Driver struct {
	tl       *edl.Timeline
	resolver *Resolver
	pool     *pool.Pool
	scaler   *codec.Scaler
	comp     *compositor.Compositor
	enc      *codec.Encoder
	rctx     *renderctx.Context
	progress Progress

	readers   map[string]*readerState
	activeKey string // URI+track of the most recently logged active clip, for transition logging
}

// New builds a Driver wired to its collaborators. The pool's shape must
// already match the timeline's (width, height) and the canonical pixel
// format the scaler and compositor work in. progress may be nil.
func New(tl *edl.Timeline, p *pool.Pool, scaler *codec.Scaler, comp *compositor.Compositor, enc *codec.Encoder, rctx *renderctx.Context, progress Progress) *Driver {
	return &Driver{
		tl:       tl,
		resolver: NewResolver(tl),
		pool:     p,
		scaler:   scaler,
		comp:     comp,
		enc:      enc,
		rctx:     rctx,
		progress: progress,
		readers:  make(map[string]*readerState),
	}
}

// Run executes the full render: steps n = 0..totalFrames-1, resolving,
// fetching, compositing, and enqueuing one output frame per iteration, then
// closes the Source Readers. The encoder is not flushed here; the caller
// closes it. Cooperative cancellation is checked at each frame boundary.
func (d *Driver) Run(ctx context.Context) error {
	total := d.tl.TotalFrames()
	fps := d.tl.FPS
	rlog.Stage(d.rctx.Log, "render start", "frames", total, "fps", fps)

	for n := int64(0); n < total; n++ {
		if d.rctx.Cancelled() {
			d.closeReaders()
			return rendererr.Cancelled()
		}

		t := float64(n) / fps
		clip := d.resolver.Active(t)
		d.logActiveTransition(clip, t)

		var out *frame.Frame
		var err error
		if clip == nil {
			out, err = d.gapFrame(n, t)
		} else {
			out, err = d.clipFrame(clip, n, t)
		}
		if err != nil {
			d.closeReaders()
			return err
		}

		if err := d.enc.Enqueue(out); err != nil {
			d.closeReaders()
			return err
		}

		if d.rctx.Metrics != nil {
			d.rctx.Metrics.IncFramesComposited()
		}
		if d.progress != nil {
			d.progress(n+1, total)
		}
	}

	d.closeReaders()
	rlog.Stage(d.rctx.Log, "render complete", "frames", total)
	return nil
}

// logActiveTransition emits a stage log line whenever the active clip (or
// gap) changes, rather than once per frame, keeping verbose output
// proportional to the timeline's clip count instead of its frame count.
func (d *Driver) logActiveTransition(clip *edl.Clip, t float64) {
	key := "gap"
	if clip != nil && clip.Source.IsMedia() {
		key = clip.Source.Media.URI + "#" + clip.Source.Media.Track
	}
	if key == d.activeKey {
		return
	}
	d.activeKey = key
	rlog.Stage(d.rctx.Log, "active clip changed", "t", t, "source", key)
}

// gapFrame produces a black frame for an output instant no clip covers.
func (d *Driver) gapFrame(n int64, t float64) (*frame.Frame, error) {
	f, err := d.pool.Acquire(d.rctx.Ctx)
	if err != nil {
		return nil, rendererr.Allocation(err)
	}
	compositor.Fill(f, compositor.Black)
	f.PTS = t
	f.Seq = uint64(n)
	return f, nil
}

// clipFrame resolves the source frame for clip at output instant t, scales
// it to canonical shape, and runs it through the Compositor.
func (d *Driver) clipFrame(clip *edl.Clip, n int64, t float64) (*frame.Frame, error) {
	if !clip.Source.IsMedia() {
		return nil, rendererr.Config("effect sources are not rendered by this core (clip at %.3fs)", clip.InTL)
	}

	media := clip.Source.Media
	rs, err := d.readerFor(media)
	if err != nil {
		return nil, err
	}

	tsrc := SourceTime(clip, t)
	srcFrame, err := d.frameForSource(rs, tsrc)
	if err != nil {
		return nil, err
	}

	scaled, err := d.scaler.Convert(srcFrame, func() (*frame.Frame, error) {
		return d.pool.Acquire(d.rctx.Ctx)
	})
	if err != nil {
		return nil, rendererr.Convert(err)
	}

	instr := compositor.Instruction{
		Clip:       clip,
		Transform:  compositor.CompileMotion(media, clip.Motion, scaled.Width, scaled.Height),
		Chain:      compositor.CompileChain(clip.Effects, 8),
		FadeMult:   compositor.FadeMultiplier(clip, t),
		OutputPTS:  t,
		FrameIndex: n,
	}

	out, err := d.comp.Composite(scaled, instr, func() (*frame.Frame, error) {
		return d.pool.Acquire(d.rctx.Ctx)
	})
	scaled.Release()
	if err != nil {
		return nil, rendererr.Convert(err)
	}
	return out, nil
}

// readerFor returns the (possibly newly opened) reader state for a
// MediaSource, keyed by URI+track since a source file can supply more than
// one stream across different clips.
func (d *Driver) readerFor(media *edl.MediaSource) (*readerState, error) {
	key := media.URI + "#" + media.Track
	if rs, ok := d.readers[key]; ok {
		return rs, nil
	}

	reader, err := openReader(media.URI, media.Track, d.rctx)
	if err != nil {
		return nil, err
	}
	rs := &readerState{reader: reader}
	d.readers[key] = rs
	return rs, nil
}

// frameForSource returns the decoded frame covering tsrc, seeking backward
// when tsrc precedes the reader's current position and advancing forward
// (discarding intermediate frames) otherwise, per the reader's ordering
// guarantee.
func (d *Driver) frameForSource(rs *readerState, tsrc float64) (*frame.Frame, error) {
	tolerance := rs.reader.FrameDuration() / 2

	if rs.current != nil && tsrc < rs.current.PTS-tolerance {
		if err := rs.reader.SeekTo(tsrc); err != nil {
			return nil, err
		}
		rs.current = nil
	}

	for {
		if rs.current != nil && rs.current.PTS >= tsrc-tolerance {
			return rs.current, nil
		}
		next, err := rs.reader.NextFrame()
		if err != nil {
			return nil, err
		}
		if next == nil {
			if rs.current != nil {
				return rs.current, nil
			}
			return nil, rendererr.Source(rs.reader.URI(), errors.New("source exhausted before requested timestamp"))
		}
		rs.current = next
	}
}

// closeReaders tears down every open Source Reader concurrently: a reader's
// Close drains and frees its decoder context, which can block briefly, and
// readers are independent so there's no reason to serialize the wait.
func (d *Driver) closeReaders() {
	var g errgroup.Group
	for _, rs := range d.readers {
		rs := rs
		g.Go(func() error {
			rs.reader.Close()
			return nil
		})
	}
	_ = g.Wait()
}

