// Package report generates the end-of-run render report: pipeline counters
// and timing written alongside the output file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/edl2ffmpeg/internal/metrics"
)

// Data carries everything needed to render a report for one run.
type Data struct {
	InputPath  string
	OutputPath string
	StartTime  time.Time
	EndTime    time.Time
	Frames     int64
	Width      int
	Height     int
	FPS        float64
	Metrics    metrics.Snapshot
}

// Generate writes a report alongside OutputPath, named
// <output-without-ext>.log.
func Generate(data Data) error {
	logPath := strings.TrimSuffix(data.OutputPath, filepath.Ext(data.OutputPath)) + ".log"

	f, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	writeHeader(f, data)
	writeTiming(f, data)
	writeCounters(f, data)

	return nil
}

func writeHeader(f *os.File, data Data) {
	fmt.Fprintln(f, "edl2ffmpeg Render Report")
	fmt.Fprintln(f, "========================")
	fmt.Fprintf(f, "Input:  %s\n", data.InputPath)
	fmt.Fprintf(f, "Output: %s\n", data.OutputPath)
	fmt.Fprintf(f, "Rendered: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(f, "Geometry: %dx%d @ %.3ffps\n", data.Width, data.Height, data.FPS)
	fmt.Fprintln(f)
}

func writeTiming(f *os.File, data Data) {
	writeSection(f, "Timing")
	elapsed := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(f, "Frames:  %d\n", data.Frames)
	fmt.Fprintf(f, "Elapsed: %s\n", formatDuration(elapsed))
	if elapsed > 0 {
		fps := float64(data.Frames) / elapsed.Seconds()
		fmt.Fprintf(f, "Throughput: %.1f fps\n", fps)
	}
	fmt.Fprintln(f)
}

func writeCounters(f *os.File, data Data) {
	writeSection(f, "Pipeline Counters")
	s := data.Metrics
	table := NewTable()
	table.AddRow("Frames decoded", s.FramesDecoded)
	table.AddRow("Frames composited", s.FramesComposited)
	table.AddRow("Frames encoded", s.FramesEncoded)
	table.AddRow("Source seeks", s.Seeks)
	table.AddRow("Decode retries", s.DecodeRetries)
	table.AddRow("Pool acquires", s.PoolAcquires)
	table.AddRow("Pool recycles", s.PoolRecycles)
	table.AddRow("Pool overflow warnings", s.PoolOverflowWarn)
	fmt.Fprint(f, table.String())
}

func writeSection(f *os.File, title string) {
	fmt.Fprintln(f, title)
	fmt.Fprintln(f, strings.Repeat("-", len(title)))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
