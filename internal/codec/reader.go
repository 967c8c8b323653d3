// Package codec wraps the codec backend (github.com/csnewman/ffmpeg-go) with
// the three pipeline components built on top of it: the Source Reader
// (demux/decode/seek), the Scaler/Converter, and the Encoder Sink.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/renderctx"
	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
	"github.com/linuxmatters/edl2ffmpeg/internal/rlog"
)

// maxConsecutiveDecodeFailures caps transient decode errors: they are logged
// and skipped up to this many consecutive failures, after which the source
// is declared failed.
const maxConsecutiveDecodeFailures = 16

// SourceReader opens one media file and decodes one elementary stream from
// it: one per distinct source URI, owning its decoder state and seek
// position for the render's lifetime.
type SourceReader struct {
	uri       string
	fmtCtx    *ffmpeg.AVFormatContext
	decCtx    *ffmpeg.AVCodecContext
	streamIdx int
	isHW      bool

	frame  *ffmpeg.AVFrame
	packet *ffmpeg.AVPacket

	pending         *frame.Frame // a frame already decoded by SeekTo's tie-break scan, not yet returned
	lastFrameTS     float64      // source-timeline seconds of the most recently returned frame
	consecutiveFail int
	frameDuration   float64 // 1 / source fps, for the seek tie-break window

	rctx *renderctx.Context
}

// OpenReader opens uri and selects the elementary stream matching track
// (e.g. "V1" selects the first video stream, "V2" the second, "A1" the
// first audio stream). Decode retries and seeks are counted against
// rctx.Metrics and logged via rctx.Log in verbose mode.
func OpenReader(uri, track string, rctx *renderctx.Context) (*SourceReader, error) {
	mediaType, nth, err := parseTrackID(track)
	if err != nil {
		return nil, rendererr.Source(uri, err)
	}

	var fmtCtx *ffmpeg.AVFormatContext
	uriC := ffmpeg.ToCStr(uri)
	defer uriC.Free()

	if _, err := ffmpeg.AVFormatOpenInput(&fmtCtx, uriC, nil, nil); err != nil {
		return nil, rendererr.Source(uri, fmt.Errorf("open input: %w", err))
	}
	if _, err := ffmpeg.AVFormatFindStreamInfo(fmtCtx, nil); err != nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, rendererr.Source(uri, fmt.Errorf("find stream info: %w", err))
	}

	streamIdx, stream, err := selectStream(fmtCtx, mediaType, nth)
	if err != nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, rendererr.Source(uri, err)
	}

	codecPar := stream.Codecpar()
	decoder := ffmpeg.AVCodecFindDecoder(codecPar.CodecId())
	if decoder == nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, rendererr.Source(uri, fmt.Errorf("no decoder for codec id %d", codecPar.CodecId()))
	}

	decCtx := ffmpeg.AVCodecAllocContext3(decoder)
	if decCtx == nil {
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, rendererr.Source(uri, errors.New("allocate decoder context"))
	}
	if _, err := ffmpeg.AVCodecParametersToContext(decCtx, codecPar); err != nil {
		ffmpeg.AVCodecFreeContext(&decCtx)
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, rendererr.Source(uri, fmt.Errorf("copy codec parameters: %w", err))
	}
	if _, err := ffmpeg.AVCodecOpen2(decCtx, decoder, nil); err != nil {
		ffmpeg.AVCodecFreeContext(&decCtx)
		ffmpeg.AVFormatCloseInput(&fmtCtx)
		return nil, rendererr.Source(uri, fmt.Errorf("open decoder: %w", err))
	}

	frameDuration := 1.0 / 30.0
	if fr := stream.AvgFrameRate(); fr.Num() > 0 && fr.Den() > 0 {
		frameDuration = float64(fr.Den()) / float64(fr.Num())
	}

	r := &SourceReader{
		uri:           uri,
		fmtCtx:        fmtCtx,
		decCtx:        decCtx,
		streamIdx:     streamIdx,
		isHW:          isHardwarePixelFormat(decCtx.PixFmt()),
		frame:         ffmpeg.AVFrameAlloc(),
		packet:        ffmpeg.AVPacketAlloc(),
		frameDuration: frameDuration,
		lastFrameTS:   -1,
		rctx:          rctx,
	}
	rlog.Stage(rctx.Log, "reader open", "uri", uri, "track", track)
	return r, nil
}

// parseTrackID splits "V1"/"A2" into (AVMediaTypeVideo, 0)/(AVMediaTypeAudio, 1).
func parseTrackID(track string) (ffmpeg.AVMediaType, int, error) {
	if len(track) < 2 {
		return 0, 0, fmt.Errorf("invalid track id %q", track)
	}
	var mediaType ffmpeg.AVMediaType
	switch strings.ToUpper(track[:1]) {
	case "V":
		mediaType = ffmpeg.AVMediaTypeVideo
	case "A":
		mediaType = ffmpeg.AVMediaTypeAudio
	case "S":
		mediaType = ffmpeg.AVMediaTypeSubtitle
	default:
		return 0, 0, fmt.Errorf("invalid track id %q", track)
	}
	n, err := strconv.Atoi(track[1:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid track number in %q", track)
	}
	return mediaType, n - 1, nil
}

func selectStream(fmtCtx *ffmpeg.AVFormatContext, mediaType ffmpeg.AVMediaType, nth int) (int, *ffmpeg.AVStream, error) {
	streams := fmtCtx.Streams()
	seen := 0
	for i := 0; i < int(fmtCtx.NbStreams()); i++ {
		s := streams.Get(uintptr(i))
		if s.Codecpar().CodecType() != mediaType {
			continue
		}
		if seen == nth {
			return i, s, nil
		}
		seen++
	}
	return 0, nil, fmt.Errorf("stream not present: wanted index %d of media type %d, found %d", nth, mediaType, seen)
}

// SeekTo positions the decoder so that the next NextFrame returns a frame
// with timestamp >= tSrc: seek to the latest keyframe-decodable predecessor,
// then decode forward discarding frames until one lands at or past tSrc,
// with a half-frame-period tie-break window. The previous decode queue is
// flushed.
func (r *SourceReader) SeekTo(tSrc float64) error {
	ts := int64(tSrc * float64(ffmpeg.AVTimeBase))
	if _, err := ffmpeg.AVSeekFrame(r.fmtCtx, -1, ts, ffmpeg.AVSeekFlagBackward); err != nil {
		return rendererr.Source(r.uri, fmt.Errorf("seek to %.3fs: %w", tSrc, err))
	}
	ffmpeg.AVCodecFlushBuffers(r.decCtx)
	r.consecutiveFail = 0
	r.lastFrameTS = -1
	r.rctx.Metrics.IncSeeks()
	rlog.Stage(r.rctx.Log, "reader seek", "uri", r.uri, "target", tSrc)

	tolerance := r.frameDuration / 2
	for {
		f, err := r.decodeNext()
		if err != nil {
			return err
		}
		if f == nil {
			return rendererr.Source(r.uri, fmt.Errorf("seek to %.3fs: reached EOF before target", tSrc))
		}
		if f.PTS >= tSrc-tolerance {
			r.pending = f
			return nil
		}
	}
}

// NextFrame returns the next decoded frame in increasing timestamp order, or
// nil at end of stream. Hardware-decoded surfaces are transferred to
// software memory before being returned.
func (r *SourceReader) NextFrame() (*frame.Frame, error) {
	if r.pending != nil {
		f := r.pending
		r.pending = nil
		return f, nil
	}
	return r.decodeNext()
}

func (r *SourceReader) decodeNext() (*frame.Frame, error) {
	for {
		if _, err := ffmpeg.AVCodecReceiveFrame(r.decCtx, r.frame); err == nil {
			r.consecutiveFail = 0
			out, cerr := r.toFrame(r.frame)
			ffmpeg.AVFrameUnref(r.frame)
			if cerr != nil {
				return nil, rendererr.Source(r.uri, cerr)
			}
			r.lastFrameTS = out.PTS
			r.rctx.Metrics.IncFramesDecoded()
			return out, nil
		} else if !errors.Is(err, ffmpeg.EAgain) {
			if errors.Is(err, ffmpeg.AVErrorEOF) {
				return nil, nil
			}
			r.consecutiveFail++
			r.rctx.Metrics.IncDecodeRetries()
			rlog.Stage(r.rctx.Log, "decode retry", "uri", r.uri, "attempt", r.consecutiveFail, "error", err)
			if r.consecutiveFail > maxConsecutiveDecodeFailures {
				return nil, rendererr.Source(r.uri, fmt.Errorf("too many consecutive decode failures (%d)", r.consecutiveFail))
			}
			continue
		}

		if _, err := ffmpeg.AVReadFrame(r.fmtCtx, r.packet); err != nil {
			if errors.Is(err, ffmpeg.AVErrorEOF) {
				if _, err := ffmpeg.AVCodecSendPacket(r.decCtx, nil); err != nil {
					return nil, rendererr.Source(r.uri, fmt.Errorf("flush decoder: %w", err))
				}
				continue
			}
			return nil, rendererr.Source(r.uri, fmt.Errorf("read frame: %w", err))
		}

		if r.packet.StreamIndex() != r.streamIdx {
			ffmpeg.AVPacketUnref(r.packet)
			continue
		}

		if _, err := ffmpeg.AVCodecSendPacket(r.decCtx, r.packet); err != nil {
			ffmpeg.AVPacketUnref(r.packet)
			r.consecutiveFail++
			r.rctx.Metrics.IncDecodeRetries()
			rlog.Stage(r.rctx.Log, "decode retry", "uri", r.uri, "attempt", r.consecutiveFail, "error", err)
			if r.consecutiveFail > maxConsecutiveDecodeFailures {
				return nil, rendererr.Source(r.uri, fmt.Errorf("too many consecutive decode failures (%d)", r.consecutiveFail))
			}
			continue
		}
		ffmpeg.AVPacketUnref(r.packet)
	}
}

// toFrame converts a decoded ffmpeg.AVFrame into the pipeline's owned
// frame.Frame, transferring from hardware memory first when needed.
func (r *SourceReader) toFrame(avf *ffmpeg.AVFrame) (*frame.Frame, error) {
	src := avf
	if r.isHW {
		sw := ffmpeg.AVFrameAlloc()
		if _, err := ffmpeg.AVHWFrameTransferData(sw, avf, 0); err != nil {
			ffmpeg.AVFrameFree(&sw)
			return nil, fmt.Errorf("transfer hw frame: %w", err)
		}
		src = sw
		defer ffmpeg.AVFrameFree(&sw)
	}

	pixFmt := pixelFormatFromAV(ffmpeg.AVPixelFormat(src.Format()))
	out := frame.NewStandalone(int(src.Width()), int(src.Height()), pixFmt)

	stream := r.fmtCtx.Streams().Get(uintptr(r.streamIdx))
	tb := stream.TimeBase()
	pts := src.BestEffortTimestamp()
	out.PTS = float64(pts) * float64(tb.Num()) / float64(tb.Den())

	copyPlanes(out, src)
	return out, nil
}

// Close releases all resources held by the reader.
func (r *SourceReader) Close() {
	if r.frame != nil {
		ffmpeg.AVFrameFree(&r.frame)
	}
	if r.packet != nil {
		ffmpeg.AVPacketFree(&r.packet)
	}
	if r.decCtx != nil {
		ffmpeg.AVCodecFreeContext(&r.decCtx)
	}
	if r.fmtCtx != nil {
		ffmpeg.AVFormatCloseInput(&r.fmtCtx)
	}
}

// DecoderContext exposes the underlying decoder context. The Scaler does not
// use it; it sizes its conversion contexts from each frame's own fields.
func (r *SourceReader) DecoderContext() *ffmpeg.AVCodecContext { return r.decCtx }

// URI returns the source URI this reader was opened for.
func (r *SourceReader) URI() string { return r.uri }

// FrameDuration returns 1/fps for the selected stream, used by callers to
// size a seek-vs-advance tolerance window.
func (r *SourceReader) FrameDuration() float64 { return r.frameDuration }
