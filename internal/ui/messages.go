package ui

// RenderProgressMsg reports encoder queue throughput for the single render
// in flight. Stage is the phase label the view shows beside the progress
// bar; the CLI's render goroutine sends "encoding" with every frame.
type RenderProgressMsg struct {
	FramesDone  int64
	FramesTotal int64
	Stage       string
}

// RenderCompleteMsg is sent once, when Render returns. Err is nil on
// success.
type RenderCompleteMsg struct {
	Err        error
	OutputPath string
}
