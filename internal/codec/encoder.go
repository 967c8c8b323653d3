package codec

import (
	"errors"
	"fmt"
	"os"

	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/renderctx"
	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
	"github.com/linuxmatters/edl2ffmpeg/internal/rlog"
)

// OutputSpec describes the container/codec/quality settings the Encoder
// opens with, defaulted by internal/render.OutputConfig via creasty/defaults.
type OutputSpec struct {
	Path     string
	Width    int
	Height   int
	Format   frame.PixelFormat
	FPSNum   int
	FPSDen   int
	CodecID  ffmpeg.AVCodecID
	CRF      int
	Preset   string
	QueueLen int // bounded queue depth, this stage's one back-pressure point
}

// Encoder is the Encoder Sink: the single consumer of composited frames,
// muxing and writing them to the final output. It owns the bounded-queue
// back-pressure point for the whole pipeline rather than the Frame Pool.
type Encoder struct {
	path      string
	fmtCtx    *ffmpeg.AVFormatContext
	encCtx    *ffmpeg.AVCodecContext
	stream    *ffmpeg.AVStream
	packet    *ffmpeg.AVPacket
	avFrame   *ffmpeg.AVFrame
	streamIdx int

	queue chan *frame.Frame
	errCh chan error
	done  chan struct{}

	rctx *renderctx.Context
}

// OpenEncoder creates the output container/stream/encoder described by spec
// and starts the writer goroutine that drains the bounded queue. Enqueue
// blocks once QueueLen frames are outstanding, the pipeline's one genuine
// back-pressure point. Frames encoded are counted against rctx.Metrics.
func OpenEncoder(spec OutputSpec, rctx *renderctx.Context) (*Encoder, error) {
	pathC := ffmpeg.ToCStr(spec.Path)
	defer pathC.Free()

	var fmtCtx *ffmpeg.AVFormatContext
	if _, err := ffmpeg.AVFormatAllocOutputContext2(&fmtCtx, nil, nil, pathC); err != nil {
		return nil, rendererr.Encode(fmt.Errorf("allocate output context: %w", err))
	}

	codec := ffmpeg.AVCodecFindEncoder(spec.CodecID)
	if codec == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, rendererr.Encode(fmt.Errorf("no encoder for codec id %d", spec.CodecID))
	}

	stream := ffmpeg.AVFormatNewStream(fmtCtx, nil)
	if stream == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, rendererr.Encode(errors.New("create output stream"))
	}

	encCtx := ffmpeg.AVCodecAllocContext3(codec)
	if encCtx == nil {
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, rendererr.Encode(errors.New("allocate encoder context"))
	}

	encCtx.SetWidth(spec.Width)
	encCtx.SetHeight(spec.Height)
	encCtx.SetPixFmt(avPixelFormatFrom(spec.Format))
	encCtx.SetTimeBase(ffmpeg.AVRational{NumVal: spec.FPSDen, DenVal: spec.FPSNum})
	encCtx.SetFramerate(ffmpeg.AVRational{NumVal: spec.FPSNum, DenVal: spec.FPSDen})

	if spec.CRF > 0 {
		ffmpeg.AVOptSetInt(encCtx.PrivData(), ffmpeg.GlobalCStr("crf"), int64(spec.CRF), 0)
	}
	if spec.Preset != "" {
		presetC := ffmpeg.ToCStr(spec.Preset)
		defer presetC.Free()
		ffmpeg.AVOptSet(encCtx.PrivData(), ffmpeg.GlobalCStr("preset"), presetC, 0)
	}

	if fmtCtx.Oformat().Flags()&ffmpeg.AVFmtGlobalheader != 0 {
		encCtx.SetFlags(encCtx.Flags() | ffmpeg.AVCodecFlagGlobalHeader)
	}

	if _, err := ffmpeg.AVCodecOpen2(encCtx, codec, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, rendererr.Encode(fmt.Errorf("open encoder: %w", err))
	}

	if _, err := ffmpeg.AVCodecParametersFromContext(stream.Codecpar(), encCtx); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, rendererr.Encode(fmt.Errorf("copy encoder parameters: %w", err))
	}
	stream.SetTimeBase(encCtx.TimeBase())

	if fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 {
		var pb *ffmpeg.AVIOContext
		if _, err := ffmpeg.AVIOOpen(&pb, pathC, ffmpeg.AVIOFlagWrite); err != nil {
			ffmpeg.AVCodecFreeContext(&encCtx)
			ffmpeg.AVFormatFreeContext(fmtCtx)
			return nil, rendererr.Encode(fmt.Errorf("open output file: %w", err))
		}
		fmtCtx.SetPb(pb)
	}

	if _, err := ffmpeg.AVFormatWriteHeader(fmtCtx, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&encCtx)
		ffmpeg.AVFormatFreeContext(fmtCtx)
		return nil, rendererr.Encode(fmt.Errorf("write header: %w", err))
	}

	queueLen := spec.QueueLen
	if queueLen <= 0 {
		queueLen = 8
	}

	e := &Encoder{
		path:    spec.Path,
		fmtCtx:  fmtCtx,
		encCtx:  encCtx,
		stream:  stream,
		packet:  ffmpeg.AVPacketAlloc(),
		avFrame: ffmpeg.AVFrameAlloc(),
		queue:   make(chan *frame.Frame, queueLen),
		errCh:   make(chan error, 1),
		done:    make(chan struct{}),
		rctx:    rctx,
	}
	rlog.Stage(rctx.Log, "encoder open", "path", spec.Path, "queue_len", queueLen)
	go e.run()
	return e, nil
}

// Enqueue hands a composited frame to the writer goroutine, blocking while
// the queue is full. The frame is released by
// the encoder once encoded.
func (e *Encoder) Enqueue(f *frame.Frame) error {
	select {
	case err := <-e.errCh:
		f.Release()
		return err
	case e.queue <- f:
		return nil
	}
}

// run drains the queue, encoding and writing each frame in order, until the
// queue is closed by Close.
func (e *Encoder) run() {
	defer close(e.done)
	for f := range e.queue {
		if err := e.encodeFrame(f); err != nil {
			f.Release()
			e.errCh <- err
			return
		}
		e.rctx.Metrics.IncFramesEncoded()
		f.Release()
	}
}

func (e *Encoder) encodeFrame(f *frame.Frame) error {
	ffmpeg.AVFrameUnref(e.avFrame)
	e.avFrame.SetWidth(f.Width)
	e.avFrame.SetHeight(f.Height)
	e.avFrame.SetFormat(int(avPixelFormatFrom(f.Format)))
	if _, err := ffmpeg.AVFrameGetBuffer(e.avFrame, 0); err != nil {
		return fmt.Errorf("allocate frame buffer: %w", err)
	}

	fillAVFrame(e.avFrame, f)
	pts := int64(f.PTS*float64(e.encCtx.TimeBase().DenVal)) / int64(e.encCtx.TimeBase().NumVal)
	e.avFrame.SetPts(pts)

	if _, err := ffmpeg.AVCodecSendFrame(e.encCtx, e.avFrame); err != nil {
		return fmt.Errorf("send frame to encoder: %w", err)
	}
	return e.receivePackets()
}

func fillAVFrame(dst *ffmpeg.AVFrame, src *frame.Frame) {
	data := dst.Data()
	linesize := dst.Linesize()
	for p := 0; p < src.Format.NumPlanes(); p++ {
		dstStride := int(linesize.Get(p))
		srcStride := src.Strides[p]
		rowBytes := dstStride
		if srcStride < rowBytes {
			rowBytes = srcStride
		}
		h := planeHeight(src, p)
		dstPlane := data.Get(p)
		for row := 0; row < h; row++ {
			copy(dstPlane[row*dstStride:row*dstStride+rowBytes], src.Data[p][row*srcStride:row*srcStride+rowBytes])
		}
	}
}

func planeHeight(f *frame.Frame, plane int) int {
	if plane == 0 || !f.Format.IsYUV() {
		return f.Height
	}
	_, dy := f.Format.ChromaSubsample()
	return (f.Height + dy - 1) / dy
}

func (e *Encoder) receivePackets() error {
	for {
		ffmpeg.AVPacketUnref(e.packet)
		if _, err := ffmpeg.AVCodecReceivePacket(e.encCtx, e.packet); err != nil {
			if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil
			}
			return fmt.Errorf("receive packet: %w", err)
		}
		e.packet.SetStreamIndex(e.streamIdx)
		ffmpeg.AVPacketRescaleTs(e.packet, e.encCtx.TimeBase(), e.stream.TimeBase())
		if _, err := ffmpeg.AVInterleavedWriteFrame(e.fmtCtx, e.packet); err != nil {
			return fmt.Errorf("write packet: %w", err)
		}
	}
}

// Close signals end of stream, flushes the encoder, writes the trailer, and
// releases resources. Safe to call once; a second call is a no-op.
func (e *Encoder) Close() error {
	if e.fmtCtx == nil {
		return nil
	}

	close(e.queue)
	<-e.done

	select {
	case err := <-e.errCh:
		e.cleanup()
		return rendererr.Encode(err)
	default:
	}

	if _, err := ffmpeg.AVCodecSendFrame(e.encCtx, nil); err != nil {
		e.cleanup()
		return rendererr.Encode(fmt.Errorf("flush encoder: %w", err))
	}
	if err := e.receivePackets(); err != nil {
		e.cleanup()
		return rendererr.Encode(fmt.Errorf("flush encoder: %w", err))
	}

	if _, err := ffmpeg.AVWriteTrailer(e.fmtCtx); err != nil {
		e.cleanup()
		return rendererr.Encode(fmt.Errorf("write trailer: %w", err))
	}

	e.cleanup()
	return nil
}

// Abort closes the queue, waits for the writer goroutine to finish the frames
// already queued, then releases resources and deletes the partial output
// file. Used when the render fails or is cancelled before Close.
func (e *Encoder) Abort() {
	if e.fmtCtx == nil {
		return
	}
	close(e.queue)
	<-e.done
	path := e.path
	e.cleanup()
	os.Remove(path)
}

func (e *Encoder) cleanup() {
	if e.fmtCtx == nil {
		return
	}
	ffmpeg.AVFrameFree(&e.avFrame)
	ffmpeg.AVPacketFree(&e.packet)
	ffmpeg.AVCodecFreeContext(&e.encCtx)
	if e.fmtCtx.Oformat().Flags()&ffmpeg.AVFmtNofile == 0 && e.fmtCtx.Pb() != nil {
		ffmpeg.AVIOClose(e.fmtCtx.Pb())
		e.fmtCtx.SetPb(nil)
	}
	ffmpeg.AVFormatFreeContext(e.fmtCtx)
	e.fmtCtx = nil
}
