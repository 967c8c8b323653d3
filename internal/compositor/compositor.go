package compositor

import (
	"log/slog"

	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/rlog"
)

// Instruction bundles, per output frame, the fade multiplier, transform, and
// compiled effect chain to apply to a source frame already scaled to the
// canonical working shape.
type Instruction struct {
	Clip       *edl.Clip
	Transform  Transform
	Chain      LUT
	FadeMult   float64
	OutputPTS  float64 // n / fps_out
	FrameIndex int64
}

// Compositor applies transform, effects, and fade to a scaled source frame,
// producing an output frame acquired from the Frame Pool.
type Compositor struct {
	log *slog.Logger
}

// New builds a Compositor. log may be nil, in which case slog.Default is
// used for the rare diagnostic line this stage emits.
func New(log *slog.Logger) *Compositor {
	if log == nil {
		log = slog.Default()
	}
	return &Compositor{log: log}
}

// Composite runs the transform/effects/fade/timestamp pipeline against src
// (already scaled to canonical shape), writing into a frame obtained from
// acquire. src is never mutated.
func (c *Compositor) Composite(src *frame.Frame, instr Instruction, acquire func() (*frame.Frame, error)) (*frame.Frame, error) {
	// Step 1: ensure writable. The transform step always resamples from src
	// into a distinct destination, so the pool-backed copy and the transform
	// are naturally the same operation here.
	dst, err := acquire()
	if err != nil {
		return nil, err
	}

	// Step 2: transform.
	instr.Transform.Apply(dst, src)

	// Step 3: effects (LUT over luma / all RGB channels).
	applyChain(dst, instr.Chain)

	// Step 4: fade.
	if instr.FadeMult < 1 {
		rlog.Stage(c.log, "composite fade", "t", instr.OutputPTS, "mult", instr.FadeMult)
	}
	ApplyFade(dst, instr.FadeMult)

	// Step 5: timestamp.
	dst.PTS = instr.OutputPTS
	dst.Seq = uint64(instr.FrameIndex)

	return dst, nil
}

// applyChain maps every sample through the compiled LUT: luma only for YUV
// formats, by design leaving chroma unchanged; every channel for RGB.
func applyChain(f *frame.Frame, chain LUT) {
	applyLUTToPlane(f.Data[0], chain, f.Format.BytesPerSample())
}

func applyLUTToPlane(data []byte, chain LUT, bytesPerSample int) {
	if bytesPerSample == 2 {
		for i := 0; i+1 < len(data); i += 2 {
			v := uint16(data[i]) | uint16(data[i+1])<<8
			out := chain.Apply(v)
			data[i] = byte(out)
			data[i+1] = byte(out >> 8)
		}
		return
	}
	for i, v := range data {
		data[i] = byte(chain.Apply(uint16(v)))
	}
}
