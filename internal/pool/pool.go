// Package pool implements the Frame Pool: a bounded multi-producer/
// multi-consumer free list of pre-shaped pixel buffers, parameterized by
// (width, height, format).
package pool

import (
	"context"
	"sync"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/metrics"
	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
)

// overflowWarnFactor is the recycled-allocation-count multiple of the
// configured pool size past which a diagnostic warning is recorded.
const overflowWarnFactor = 2

// Pool is a Frame Pool fixed to one (width, height, format) shape. Create
// one Pool per distinct working shape the pipeline needs — in practice one,
// the output's canonical (width, height, pixelFormat), since the Scaler
// stage normalizes every decoded frame to it before the Compositor runs.
//
// Acquire never blocks waiting for a peer to release: the pool never shrinks
// during a render, and falls back to allocation unconditionally rather than
// a bounded wait. The single genuine back-pressure point in the pipeline is
// the Encoder Sink's queue, not the pool.
type Pool struct {
	width, height int
	format        frame.PixelFormat
	size          int // expected steady-state population, for the overflow diagnostic only

	mu   sync.Mutex
	free []*frame.Frame

	totalAllocs int64
	metrics     *metrics.Collector
}

// New constructs a Pool for the given shape. size is the expected
// steady-state population used only for the overflow diagnostic; size <= 0
// disables the diagnostic.
func New(width, height int, format frame.PixelFormat, size int, m *metrics.Collector) *Pool {
	return &Pool{width: width, height: height, format: format, size: size, metrics: m}
}

// Acquire returns a frame matching the pool's shape, popping from the free
// queue if any, otherwise allocating. Allocation has no error path of its
// own: the only error Acquire returns is Cancelled. ctx is honored only as a
// pre-acquire cancellation check, not a blocking wait.
func (p *Pool) Acquire(ctx context.Context) (*frame.Frame, error) {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return nil, rendererr.Cancelled()
		default:
		}
	}

	p.mu.Lock()
	n := len(p.free)
	var f *frame.Frame
	if n > 0 {
		f = p.free[n-1]
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if f != nil {
		f.ResetForReuse()
		if p.metrics != nil {
			p.metrics.IncPoolAcquires()
		}
		return f, nil
	}

	f = p.allocate()
	if p.metrics != nil {
		p.metrics.IncPoolAcquires()
	}
	return f, nil
}

func (p *Pool) allocate() *frame.Frame {
	f := frame.NewStandalone(p.width, p.height, p.format)
	f.SetOwner(p)

	p.mu.Lock()
	p.totalAllocs++
	total := p.totalAllocs
	p.mu.Unlock()

	if p.size > 0 && total > int64(p.size*overflowWarnFactor) && p.metrics != nil {
		p.metrics.IncPoolOverflowWarn()
	}
	return f
}

// ReleaseFrame implements frame.Releaser. Frame.Release only invokes this
// once the frame's owner count has reached zero, so an aliased frame is
// never requeued while still held — the last owner recycles it.
func (p *Pool) ReleaseFrame(f *frame.Frame) {
	p.mu.Lock()
	p.free = append(p.free, f)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.IncPoolRecycles()
	}
}

// Len reports the current free-queue depth, for tests and diagnostics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// TotalAllocs reports the cumulative number of real allocations made, for
// tests verifying the overflow-warning threshold.
func (p *Pool) TotalAllocs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalAllocs
}
