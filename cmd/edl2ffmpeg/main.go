package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/linuxmatters/edl2ffmpeg/internal/cli"
	"github.com/linuxmatters/edl2ffmpeg/internal/edl"
	"github.com/linuxmatters/edl2ffmpeg/internal/metrics"
	"github.com/linuxmatters/edl2ffmpeg/internal/render"
	"github.com/linuxmatters/edl2ffmpeg/internal/renderctx"
	"github.com/linuxmatters/edl2ffmpeg/internal/rendererr"
	"github.com/linuxmatters/edl2ffmpeg/internal/report"
	"github.com/linuxmatters/edl2ffmpeg/internal/rlog"
	"github.com/linuxmatters/edl2ffmpeg/internal/ui"
)

// version is set via ldflags at build time.
// Local dev builds: "dev"
// Release builds: git tag (e.g. "0.1.0")
var version = "dev"

// CLI defines the command-line interface.
type CLI struct {
	Version  bool   `short:"v" help:"Show version information"`
	Verbose  bool   `short:"V" help:"Enable verbose stage-by-stage logging"`
	Debug    bool   `short:"d" help:"Write a plain-text debug log to edl2ffmpeg-debug.log in the working directory"`
	Validate bool   `help:"Parse and validate the EDL, then exit without rendering"`
	Report   bool   `help:"Write a render report (<output>.log) summarising pipeline counters"`
	Codec    string `help:"Output video codec" enum:"h264,hevc,vp9,av1" default:"h264"`
	CRF      int    `help:"Constant rate factor passed to the encoder" default:"23"`
	Preset   string `help:"Encoder speed/quality preset" default:"fast"`

	EDL    string `arg:"" name:"edl" help:"Edit Decision List JSON document" type:"existingfile"`
	Output string `arg:"" name:"output" help:"Output video path" optional:""`
}

func main() {
	ffmpeg.AVLogSetLevel(ffmpeg.AVLogError)

	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("edl2ffmpeg"),
		kong.Description("Renders an Edit Decision List into a single video file"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if !cliArgs.Validate && cliArgs.Output == "" {
		cli.PrintError("output path required unless --validate is given")
		kctx.PrintUsage(false)
		os.Exit(1)
	}

	var debugFile *os.File
	if cliArgs.Debug {
		var err error
		debugFile, err = os.Create("edl2ffmpeg-debug.log")
		if err != nil {
			cli.PrintError(fmt.Sprintf("open debug log: %v", err))
			os.Exit(1)
		}
		defer debugFile.Close()
	}

	log := rlog.New(rlog.Options{Verbose: cliArgs.Verbose, DebugFile: debugFile})

	f, err := os.Open(cliArgs.EDL)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(rendererr.KindConfig.ExitCode())
	}
	tl, err := edl.Parse(f)
	f.Close()
	if err != nil {
		exitWithError(err)
	}

	if cliArgs.Validate {
		cli.PrintSuccess(fmt.Sprintf("EDL valid: %dx%d @ %.3ffps, %d frames, %d clip(s)",
			tl.Width, tl.Height, tl.FPS, tl.TotalFrames(), len(tl.VideoClips())))
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	rctx := renderctx.New(ctx, log, m)

	cfg := render.OutputConfig{
		Path:   cliArgs.Output,
		Codec:  cliArgs.Codec,
		CRF:    cliArgs.CRF,
		Preset: cliArgs.Preset,
	}

	model := ui.NewModel(cliArgs.Output, tl.TotalFrames())
	p := tea.NewProgram(model, tea.WithAltScreen())

	startTime := time.Now()
	go runRender(ctx, model.ProgressChan, tl, cfg, rctx, cliArgs, startTime)

	finalModel, err := p.Run()
	if err != nil {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
		os.Exit(1)
	}

	if m, ok := finalModel.(ui.Model); ok && m.Err != nil {
		exitWithError(m.Err)
	}
}

func runRender(ctx context.Context, msgs chan tea.Msg, tl *edl.Timeline, cfg render.OutputConfig, rctx *renderctx.Context, cliArgs *CLI, startTime time.Time) {
	total := tl.TotalFrames()
	progress := func(framesDone, framesTotal int64) {
		msgs <- ui.RenderProgressMsg{FramesDone: framesDone, FramesTotal: framesTotal, Stage: "encoding"}
	}

	err := render.Render(ctx, tl, cfg, rctx, progress)

	if err == nil && cliArgs.Report {
		reportErr := report.Generate(report.Data{
			InputPath:  cliArgs.EDL,
			OutputPath: cliArgs.Output,
			StartTime:  startTime,
			EndTime:    time.Now(),
			Frames:     total,
			Width:      tl.Width,
			Height:     tl.Height,
			FPS:        tl.FPS,
			Metrics:    rctx.Metrics.Snapshot(),
		})
		if reportErr != nil {
			rctx.Log.Warn("write render report failed", "error", reportErr)
		}
	}

	msgs <- ui.RenderCompleteMsg{Err: err, OutputPath: cliArgs.Output}
}

func exitWithError(err error) {
	cli.PrintError(err.Error())
	kind, _ := rendererr.As(err)
	os.Exit(kind.ExitCode())
}
