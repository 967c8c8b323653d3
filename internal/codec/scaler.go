package codec

import (
	"fmt"

	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
)

// pixelFormatFromAV maps an ffmpeg pixel format id to the pipeline's own
// PixelFormat enum. Formats the pipeline does not understand natively are
// reported as FormatYUV420P, the canonical intermediate the Scaler always
// converts through.
func pixelFormatFromAV(f ffmpeg.AVPixelFormat) frame.PixelFormat {
	switch f {
	case ffmpeg.AVPixFmtYUV420P:
		return frame.FormatYUV420P
	case ffmpeg.AVPixFmtYUV422P:
		return frame.FormatYUV422P
	case ffmpeg.AVPixFmtYUV444P:
		return frame.FormatYUV444P
	case ffmpeg.AVPixFmtNV12:
		return frame.FormatNV12
	case ffmpeg.AVPixFmtRGBA:
		return frame.FormatRGBA
	case ffmpeg.AVPixFmtYUV420P10LE:
		return frame.FormatYUV420P10LE
	default:
		return frame.FormatYUV420P
	}
}

func avPixelFormatFrom(f frame.PixelFormat) ffmpeg.AVPixelFormat {
	switch f {
	case frame.FormatYUV420P:
		return ffmpeg.AVPixFmtYUV420P
	case frame.FormatYUV422P:
		return ffmpeg.AVPixFmtYUV422P
	case frame.FormatYUV444P:
		return ffmpeg.AVPixFmtYUV444P
	case frame.FormatNV12:
		return ffmpeg.AVPixFmtNV12
	case frame.FormatRGBA:
		return ffmpeg.AVPixFmtRGBA
	case frame.FormatYUV420P10LE:
		return ffmpeg.AVPixFmtYUV420P10LE
	default:
		return ffmpeg.AVPixFmtYUV420P
	}
}

// copyPlanes copies an ffmpeg.AVFrame's plane data into a pipeline frame.Frame
// of matching shape, row by row, since AVFrame linesize and frame.Frame
// Strides are independently aligned and may differ.
func copyPlanes(dst *frame.Frame, src *ffmpeg.AVFrame) {
	data := src.Data()
	linesize := src.Linesize()
	dx, dy := dst.Format.ChromaSubsample()

	for p := 0; p < dst.Format.NumPlanes(); p++ {
		h := dst.Height
		if p > 0 && dst.Format.IsYUV() && dst.Format != frame.FormatNV12 {
			h = (dst.Height + dy - 1) / dy
		} else if p == 1 && dst.Format == frame.FormatNV12 {
			h = (dst.Height + dy - 1) / dy
		}
		_ = dx

		srcStride := int(linesize.Get(p))
		dstStride := dst.Strides[p]
		rowBytes := dstStride
		if srcStride < rowBytes {
			rowBytes = srcStride
		}
		srcPlane := data.Get(p)
		for row := 0; row < h; row++ {
			copy(dst.Data[p][row*dstStride:row*dstStride+rowBytes], srcPlane[row*srcStride:row*srcStride+rowBytes])
		}
	}
}

// Scaler converts decoded frames of arbitrary source shape/format into the
// pipeline's canonical working shape: bicubic for downscaling, bilinear for
// upscaling, color range/matrix preserved, conversion contexts cached by
// (srcW, srcH, srcFmt, dstW, dstH, dstFmt).
type Scaler struct {
	dstWidth, dstHeight int
	dstFormat           frame.PixelFormat

	contexts map[scaleKey]*ffmpeg.SwsContext
}

type scaleKey struct {
	srcW, srcH int
	srcFmt     ffmpeg.AVPixelFormat
}

// NewScaler builds a Scaler targeting the given canonical output shape.
func NewScaler(dstWidth, dstHeight int, dstFormat frame.PixelFormat) *Scaler {
	return &Scaler{
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		dstFormat: dstFormat,
		contexts:  make(map[scaleKey]*ffmpeg.SwsContext),
	}
}

// Convert scales/converts src into a frame acquired via acquire, normalizing
// it to the Scaler's target shape and format. The source frame is not
// modified or retained.
func (s *Scaler) Convert(src *frame.Frame, acquire func() (*frame.Frame, error)) (*frame.Frame, error) {
	if src.Width == s.dstWidth && src.Height == s.dstHeight && src.Format == s.dstFormat {
		dst, err := acquire()
		if err != nil {
			return nil, err
		}
		dst.PTS = src.PTS
		dst.Seq = src.Seq
		for p := 0; p < src.Format.NumPlanes(); p++ {
			copy(dst.Data[p], src.Data[p])
		}
		return dst, nil
	}

	srcAVFmt := avPixelFormatFrom(src.Format)
	key := scaleKey{srcW: src.Width, srcH: src.Height, srcFmt: srcAVFmt}
	ctx, ok := s.contexts[key]
	if !ok {
		flags := ffmpeg.SwsBilinear
		if src.Width > s.dstWidth || src.Height > s.dstHeight {
			flags = ffmpeg.SwsBicubic
		}
		var err error
		ctx, err = ffmpeg.SwsGetContext(
			src.Width, src.Height, srcAVFmt,
			s.dstWidth, s.dstHeight, avPixelFormatFrom(s.dstFormat),
			flags, nil, nil, nil,
		)
		if err != nil || ctx == nil {
			return nil, rendererr.Convert(fmt.Errorf("build conversion context for %dx%d -> %dx%d: %w", src.Width, src.Height, s.dstWidth, s.dstHeight, err))
		}
		s.contexts[key] = ctx
	}

	dst, err := acquire()
	if err != nil {
		return nil, err
	}
	dst.PTS = src.PTS
	dst.Seq = src.Seq

	if err := ffmpeg.SwsScaleFrame(ctx, planePointers(dst), strideSlice(dst), planePointers(src), strideSlice(src), src.Height); err != nil {
		dst.Release()
		return nil, rendererr.Convert(fmt.Errorf("scale: %w", err))
	}
	return dst, nil
}

func planePointers(f *frame.Frame) [][]byte {
	n := f.Format.NumPlanes()
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = f.Data[i]
	}
	return out
}

func strideSlice(f *frame.Frame) []int {
	n := f.Format.NumPlanes()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = f.Strides[i]
	}
	return out
}

// Close releases every cached conversion context.
func (s *Scaler) Close() {
	for _, ctx := range s.contexts {
		ffmpeg.SwsFreeContext(ctx)
	}
	s.contexts = nil
}
