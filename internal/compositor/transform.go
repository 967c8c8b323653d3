package compositor

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

// Transform is a precomputed affine mapping from output pixel coordinates
// back to source pixel coordinates, used to resample the source frame
// during the Compositor's transform step via a single backward-mapped
// matrix-vector multiply per pixel.
type Transform struct {
	inverse *mat.Dense // 3x3, maps output homogeneous coords -> source coords
}

// IdentityTransform returns a Transform equivalent to no transform at all.
func IdentityTransform() Transform {
	return Transform{inverse: mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})}
}

// CompileMotion builds the forward affine matrix for a clip's intrinsic
// source-space rotation/flip composed with its Motion (pan/zoom/rotation),
// then inverts it once so every output pixel can be mapped back to a source
// sample with a single matrix-vector multiply. Intrinsic rotation (the
// source-space orientation fix) is applied first, then Motion rotation
// (timeline-space).
func CompileMotion(media *edl.MediaSource, motion *edl.Motion, srcW, srcH int) Transform {
	forward := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})

	if media != nil {
		forward = compose(forward, flipMatrix(media.FlipH, media.FlipV))
		forward = compose(forward, rotateAboutCenter(media.Rotation, srcW, srcH))
	}

	if motion != nil && !motion.IsIdentity() {
		cx, cy := float64(srcW)/2, float64(srcH)/2
		// Forward maps source -> output; a positive panX should make the
		// output sample further along +x in source space, so the forward
		// translation is the negated pan (its inverse, used by mapBack, is
		// the pan itself).
		pan := translateMatrix(-motion.PanX*float64(srcW)/2, -motion.PanY*float64(srcH)/2)
		zoom := scaleAboutPoint(motion.ZoomX, motion.ZoomY, cx, cy)
		rotate := rotateAboutCenter(motion.Rotation, srcW, srcH)
		forward = compose(forward, zoom)
		forward = compose(forward, rotate)
		forward = compose(forward, pan)
	}

	var inv mat.Dense
	if err := inv.Inverse(forward); err != nil {
		return IdentityTransform()
	}
	return Transform{inverse: &inv}
}

func compose(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(b, a)
	return &out
}

func translateMatrix(tx, ty float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, tx,
		0, 1, ty,
		0, 0, 1,
	})
}

func flipMatrix(flipH, flipV bool) *mat.Dense {
	sx, sy := 1.0, 1.0
	if flipH {
		sx = -1
	}
	if flipV {
		sy = -1
	}
	return mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	})
}

func rotateAboutCenter(degrees float64, w, h int) *mat.Dense {
	if degrees == 0 {
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(w)/2, float64(h)/2

	toOrigin := translateMatrix(-cx, -cy)
	rotate := mat.NewDense(3, 3, []float64{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	})
	back := translateMatrix(cx, cy)
	return compose(compose(toOrigin, rotate), back)
}

func scaleAboutPoint(zx, zy, cx, cy float64) *mat.Dense {
	toOrigin := translateMatrix(-cx, -cy)
	scale := mat.NewDense(3, 3, []float64{
		zx, 0, 0,
		0, zy, 0,
		0, 0, 1,
	})
	back := translateMatrix(cx, cy)
	return compose(compose(toOrigin, scale), back)
}

// mapBack returns the source coordinate corresponding to output coordinate
// (x, y).
func (t Transform) mapBack(x, y float64) (float64, float64) {
	dst := mat.NewVecDense(3, []float64{x, y, 1})
	var src mat.VecDense
	src.MulVec(t.inverse, dst)
	return src.AtVec(0), src.AtVec(1)
}

// Apply resamples src into dst (same shape) using nearest-neighbor lookup
// through the transform's inverse mapping, filling out-of-source regions
// with limited-range black (Y=16, U=V=128). The pipeline assumes limited
// range throughout.
func (t Transform) Apply(dst, src *frame.Frame) {
	dx, dy := src.Format.ChromaSubsample()
	for p := 0; p < src.Format.NumPlanes(); p++ {
		planeDivX, planeDivY := 1, 1
		if p > 0 && src.Format.IsYUV() && src.Format != frame.FormatNV12 {
			planeDivX, planeDivY = dx, dy
		} else if p == 1 && src.Format == frame.FormatNV12 {
			planeDivX, planeDivY = dx, dy
		}
		black := blackValue(src.Format, p)
		planeW := (dst.Width + planeDivX - 1) / planeDivX
		planeH := (dst.Height + planeDivY - 1) / planeDivY

		for oy := 0; oy < planeH; oy++ {
			for ox := 0; ox < planeW; ox++ {
				fx, fy := t.mapBack(float64(ox*planeDivX), float64(oy*planeDivY))
				sx, sy := int(fx)/planeDivX, int(fy)/planeDivY
				srcPlaneW := (src.Width + planeDivX - 1) / planeDivX
				srcPlaneH := (src.Height + planeDivY - 1) / planeDivY
				idx := oy*dst.Strides[p] + ox
				if sx < 0 || sy < 0 || sx >= srcPlaneW || sy >= srcPlaneH {
					dst.Data[p][idx] = black
					continue
				}
				dst.Data[p][idx] = src.Data[p][sy*src.Strides[p]+sx]
			}
		}
	}
}

// blackValue returns the raw sample value representing "black" for the
// given plane under the limited-range convention.
func blackValue(fmtID frame.PixelFormat, plane int) byte {
	if !fmtID.IsYUV() {
		return 0
	}
	if plane == 0 {
		return 16
	}
	return 128
}
