// Package frame defines the pipeline's owned pixel buffer. A Frame is
// allocated exactly once by the Frame Pool, lent out for read/modify, and
// returned to the pool on last release. Ownership is modelled as an
// exclusive handle with an explicit Clone() that performs a pool-backed copy
// rather than reference-counted aliasing, keeping the single-writer
// invariant mechanically checkable.
package frame

import "sync/atomic"

// PixelFormat enumerates the planar/packed formats the pipeline handles.
// The canonical working format is whatever the output Timeline specifies;
// scaling/conversion adapts every decoded frame to it.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatYUV420P
	FormatYUV422P
	FormatYUV444P
	FormatNV12
	FormatRGBA
	FormatYUV420P10LE // 10-bit little-endian
)

// PlaneAlignment is the byte alignment planes are padded to, for vectorized
// inner loops.
const PlaneAlignment = 32

// NumPlanes returns how many data planes a format uses.
func (f PixelFormat) NumPlanes() int {
	switch f {
	case FormatYUV420P, FormatYUV422P, FormatYUV444P, FormatYUV420P10LE:
		return 3
	case FormatNV12:
		return 2
	case FormatRGBA:
		return 1
	default:
		return 0
	}
}

// BytesPerSample returns 1 for 8-bit formats and 2 for the 10-bit format
//.
func (f PixelFormat) BytesPerSample() int {
	if f == FormatYUV420P10LE {
		return 2
	}
	return 1
}

// IsYUV reports whether plane 0 is luma: effects then leave chroma alone and
// fades pull chroma toward 128, versus RGB where all channels are treated
// uniformly.
func (f PixelFormat) IsYUV() bool {
	switch f {
	case FormatYUV420P, FormatYUV422P, FormatYUV444P, FormatNV12, FormatYUV420P10LE:
		return true
	default:
		return false
	}
}

// ChromaSubsample returns the horizontal/vertical subsampling divisors for
// planes 1/2 relative to plane 0 (1,1 for 4:4:4, 2,1 for 4:2:2, 2,2 for
// 4:2:0). RGBA is unused/1,1.
func (f PixelFormat) ChromaSubsample() (dx, dy int) {
	switch f {
	case FormatYUV420P, FormatNV12, FormatYUV420P10LE:
		return 2, 2
	case FormatYUV422P:
		return 2, 1
	default:
		return 1, 1
	}
}

// Releaser is implemented by the pool so Frame can return itself without
// importing internal/pool (which would be a cycle: pool constructs frames).
type Releaser interface {
	ReleaseFrame(f *Frame)
}

// Frame is an owned pixel buffer. Zero value is not valid; obtain one via
// pool.Pool.Acquire.
type Frame struct {
	Width, Height int
	Format        PixelFormat
	Strides       [3]int
	Data          [3][]byte

	PTS float64 // output-timeline seconds
	Seq uint64

	refs  atomic.Int32
	owner Releaser
}

// NewStandalone builds a Frame not backed by a pool, for tests and for the
// color-frame generator's one-off allocations. Release is then a no-op.
func NewStandalone(width, height int, format PixelFormat) *Frame {
	f := &Frame{Width: width, Height: height, Format: format}
	f.refs.Store(1)
	allocPlanes(f)
	return f
}

func allocPlanes(f *Frame) {
	dx, dy := f.Format.ChromaSubsample()
	bps := f.Format.BytesPerSample()
	n := f.Format.NumPlanes()
	for p := 0; p < n; p++ {
		w, h := f.Width, f.Height
		if p > 0 && f.Format.IsYUV() {
			// NV12 plane 1 interleaves U and V: half-width sample pairs, two
			// channels each (channelsForPlane), so a full row width in bytes,
			// at half height.
			w, h = (f.Width+dx-1)/dx, (f.Height+dy-1)/dy
		}
		stride := alignUp(w*bps*channelsForPlane(f.Format, p), PlaneAlignment)
		f.Strides[p] = stride
		f.Data[p] = make([]byte, stride*h)
	}
}

func channelsForPlane(fmtID PixelFormat, plane int) int {
	if fmtID == FormatRGBA {
		return 4
	}
	if fmtID == FormatNV12 && plane == 1 {
		return 2
	}
	return 1
}

func alignUp(n, align int) int {
	if n <= 0 {
		return align
	}
	return (n + align - 1) / align * align
}

// refcount is exported read-only via IsAliased for the pool/compositor to
// decide whether a copy is needed before write.

// IsAliased reports whether more than one owner currently holds this Frame.
// The compositor's "ensure writable" step consults
// this before mutating in place.
func (f *Frame) IsAliased() bool { return f.refs.Load() > 1 }

// Retain increments the owner count, used when a frame is deliberately
// fanned out.
func (f *Frame) Retain() { f.refs.Add(1) }

// Release decrements the owner count; on last release the frame is handed
// back to its pool (or, for a standalone frame, simply discarded).
func (f *Frame) Release() {
	if f.refs.Add(-1) == 0 && f.owner != nil {
		f.owner.ReleaseFrame(f)
	}
}

// Clone performs a pool-backed copy-on-write: allocates a fresh frame of
// identical shape from the same pool (or a standalone one) and copies every
// plane, so an aliased frame can be safely written without being observed
// by its other owner.
func (f *Frame) Clone(acquire func() (*Frame, error)) (*Frame, error) {
	dst, err := acquire()
	if err != nil {
		return nil, err
	}
	dst.PTS = f.PTS
	dst.Seq = f.Seq
	for p := 0; p < f.Format.NumPlanes(); p++ {
		copy(dst.Data[p], f.Data[p])
	}
	return dst, nil
}

// SetOwner is called by the pool when handing out a freshly allocated or
// recycled frame.
func (f *Frame) SetOwner(r Releaser) { f.owner = r }

// ResetForReuse restores refcount to 1 and clears PTS/Seq/owner-visible
// state before a recycled frame is handed back out by the pool.
func (f *Frame) ResetForReuse() {
	f.refs.Store(1)
	f.PTS = 0
	f.Seq = 0
}
