// Package ui provides the Bubbletea terminal user interface for edl2ffmpeg.
package ui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var debugLog *os.File

func init() {
	debugLog, _ = os.OpenFile("edl2ffmpeg-ui-debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func log(format string, args ...interface{}) {
	if debugLog != nil {
		fmt.Fprintf(debugLog, format+"\n", args...)
	}
}

// Model is the Bubbletea model for the render progress UI. A render is a
// single timeline driven to completion, so there is no file queue: one
// progress bar, one stage label, one outcome.
type Model struct {
	OutputPath  string
	FramesDone  int64
	FramesTotal int64
	Stage       string

	StartTime time.Time
	Done      bool
	Err       error

	// ProgressChan carries RenderProgressMsg/RenderCompleteMsg from the
	// render goroutine into the Bubbletea event loop.
	ProgressChan chan tea.Msg

	Width  int
	Height int
}

// NewModel creates a render progress model for a timeline with the given
// total frame count, writing to outputPath.
func NewModel(outputPath string, framesTotal int64) Model {
	return Model{
		OutputPath:   outputPath,
		FramesTotal:  framesTotal,
		Stage:        "starting",
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 100),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForProgress(m.ProgressChan)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		log("[DEBUG] Window size: %dx%d", m.Width, m.Height)

	case RenderProgressMsg:
		log("[DEBUG] RenderProgressMsg: %d/%d (%s)", msg.FramesDone, msg.FramesTotal, msg.Stage)
		m.FramesDone = msg.FramesDone
		if msg.FramesTotal > 0 {
			m.FramesTotal = msg.FramesTotal
		}
		m.Stage = msg.Stage
		return m, waitForProgress(m.ProgressChan)

	case RenderCompleteMsg:
		log("[DEBUG] RenderCompleteMsg: err=%v", msg.Err)
		m.Done = true
		m.Err = msg.Err
		if msg.OutputPath != "" {
			m.OutputPath = msg.OutputPath
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFrames: %d/%d\n", m.FramesDone, m.FramesTotal)
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
