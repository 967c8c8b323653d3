package testfixture

import (
	"math"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

// PSNR computes the peak signal-to-noise ratio between a and b's luma planes
// (plane 0 for every format this pipeline handles), the equivalence gate
// spec.md §8 measures rendered output against a reference render with.
// Identical frames report +Inf; mismatched shapes compare only the common
// prefix of each plane.
func PSNR(a, b *frame.Frame) float64 {
	mse := meanSquaredError(a.Data[0], b.Data[0])
	if mse == 0 {
		return math.Inf(1)
	}
	const maxSample = 255.0
	return 10 * math.Log10(maxSample*maxSample/mse)
}

func meanSquaredError(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum / float64(n)
}
