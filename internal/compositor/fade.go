package compositor

import (
	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
)

// FadeMultiplier computes f(t) in [0,1] for a clip at output-timeline
// instant t: 1 everywhere except a linear rise from 0 to 1 across
// [in_tl, in_tl+topFade) and a linear fall from 1 to 0 across
// [out_tl-tailFade, out_tl).
func FadeMultiplier(c *edl.Clip, t float64) float64 {
	if c.TopFade > 0 && t < c.InTL+c.TopFade {
		return clamp((t-c.InTL)/c.TopFade, 0, 1)
	}
	if c.TailFade > 0 && t >= c.OutTL-c.TailFade {
		return clamp((c.OutTL-t)/c.TailFade, 0, 1)
	}
	return 1
}

// ApplyFade scales a frame's samples toward black by multiplier: luma/RGB
// channels scale toward the format's black level, chroma is pulled toward
// 128. multiplier == 1 is a no-op fast path.
func ApplyFade(f *frame.Frame, multiplier float64) {
	if multiplier >= 1 {
		return
	}
	for p := 0; p < f.Format.NumPlanes(); p++ {
		pull := float64(blackValue(f.Format, p))
		data := f.Data[p]
		for i, v := range data {
			out := pull + (float64(v)-pull)*multiplier
			data[i] = byte(clamp(out, 0, 255))
		}
	}
}
