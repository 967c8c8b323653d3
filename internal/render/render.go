// Package render wires the five pipeline stages together into a single
// Render call: Frame Pool, Scaler, Compositor, Timeline Driver, and Encoder
// Sink, around a parsed Timeline, as a single-pass render with atomic
// output publication.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"github.com/google/uuid"

	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/linuxmatters/edl2ffmpeg/internal/codec"
	"github.com/linuxmatters/edl2ffmpeg/internal/compositor"
	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/pool"
	"github.com/linuxmatters/edl2ffmpeg/internal/renderctx"
	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
	"github.com/linuxmatters/edl2ffmpeg/internal/timeline"
)

// OutputConfig describes the encoder target, defaulted the way the EDL
// config is (creasty/defaults struct tags), then validated.
type OutputConfig struct {
	Path     string `validate:"empty=false"`
	Codec    string `default:"h264"`
	CRF      int    `default:"23"`
	Preset   string `default:"fast"`
	QueueLen int    `default:"8"`
}

// Progress is called once per output frame as the driver enqueues it to the
// encoder, for a caller-supplied progress display (e.g. the bubbletea TUI).
type Progress = timeline.Progress

// Render executes the full pipeline for tl, writing to cfg.Path. The output
// is written to a temporary file in the same directory and atomically
// renamed into place on success, so a crash or cancellation never leaves a
// half-written file at the requested path.
func Render(ctx context.Context, tl *edl.Timeline, cfg OutputConfig, rctx *renderctx.Context, progress Progress) error {
	if err := defaults.Set(&cfg); err != nil {
		return rendererr.Config("apply output defaults: %v", err)
	}
	if cfg.Path == "" {
		return rendererr.Config("output path must not be empty")
	}

	tmpPath, err := tempOutputPath(cfg.Path)
	if err != nil {
		return rendererr.Config("%v", err)
	}

	format := frame.FormatYUV420P
	p := pool.New(tl.Width, tl.Height, format, poolSteadyState(tl), rctx.Metrics)
	scaler := codec.NewScaler(tl.Width, tl.Height, format)
	defer scaler.Close()
	comp := compositor.New(rctx.Log)

	fpsNum, fpsDen := fpsRational(tl.FPS)
	enc, err := codec.OpenEncoder(codec.OutputSpec{
		Path:     tmpPath,
		Width:    tl.Width,
		Height:   tl.Height,
		Format:   format,
		FPSNum:   fpsNum,
		FPSDen:   fpsDen,
		CodecID:  codecIDFor(cfg.Codec),
		CRF:      cfg.CRF,
		Preset:   cfg.Preset,
		QueueLen: cfg.QueueLen,
	}, rctx)
	if err != nil {
		return err
	}

	driver := timeline.New(tl, p, scaler, comp, enc, rctx, progress)

	runErr := driver.Run(ctx)
	if runErr != nil {
		enc.Abort()
		return runErr
	}

	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, cfg.Path); err != nil {
		os.Remove(tmpPath)
		return rendererr.Encode(fmt.Errorf("publish output: %w", err))
	}

	return nil
}

// tempOutputPath builds a sibling temp path for atomic publish, named with
// a random suffix so concurrent renders to the same final path never
// collide on the temp file.
func tempOutputPath(finalPath string) (string, error) {
	dir := filepath.Dir(finalPath)
	if dir == "" {
		dir = "."
	}
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("output directory %q: %w", dir, err)
	}
	name := fmt.Sprintf(".%s.%s.tmp", filepath.Base(finalPath), uuid.NewString())
	return filepath.Join(dir, name), nil
}

// poolSteadyState estimates the Frame Pool's expected steady-state
// population for the overflow diagnostic: a small constant covering the
// frames in flight across scale/composite/encode at once.
func poolSteadyState(tl *edl.Timeline) int {
	_ = tl
	return 4
}

// fpsRational expresses a possibly-fractional output fps (29.97, 23.976) as
// an exact num/den pair, first-class rather than truncated to an integer:
// an EDL's fps is accepted as a double and carried through unchanged.
func fpsRational(fps float64) (num, den int) {
	if fps <= 0 {
		return 30, 1
	}
	if fps == float64(int(fps)) {
		return int(fps), 1
	}
	const den1001 = 1001
	if scaled := fps * den1001; scaled == float64(int64(scaled+0.5)) || nearInt(scaled) {
		return int(fps*den1001 + 0.5), den1001
	}
	return int(fps*1000 + 0.5), 1000
}

func nearInt(v float64) bool {
	r := v - float64(int64(v))
	return r < 1e-6 || r > 1-1e-6
}

func codecIDFor(name string) ffmpeg.AVCodecID {
	switch name {
	case "h264":
		return ffmpeg.AVCodecIdH264
	case "hevc", "h265":
		return ffmpeg.AVCodecIdHevc
	case "vp9":
		return ffmpeg.AVCodecIdVp9
	case "av1":
		return ffmpeg.AVCodecIdAv1
	default:
		return ffmpeg.AVCodecIdH264
	}
}
