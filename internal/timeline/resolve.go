// Package timeline implements the Timeline Driver: the top-level clock that
// steps a monotonic output-frame index, resolves the active clip, pulls the
// matching source frame, and hands composited frames to the encoder.
// The loop runs once per output frame, floor(duration * fps) times, with
// each frame's work chosen by clip resolution.
package timeline

import "github.com/linuxmatters/edl2ffmpeg/internal/edl"

// Resolver finds the active clip on the primary video track for a given
// output-timeline instant, and converts that instant to the corresponding
// source-timeline timestamp.
type Resolver struct {
	clips []*edl.Clip // sorted by InTL ascending
}

// NewResolver builds a Resolver over a timeline's video clips.
func NewResolver(tl *edl.Timeline) *Resolver {
	return &Resolver{clips: tl.VideoClips()}
}

// Active returns the clip covering output instant t, or nil if no clip
// covers it (a gap, filled with a black frame by the driver).
func (r *Resolver) Active(t float64) *edl.Clip {
	// Clips are sorted and non-overlapping on a track, so a linear scan from
	// the front is correct; output indices only move forward in practice, so
	// this stays cheap without needing a binary search or cursor.
	for _, c := range r.clips {
		if c.Contains(t) {
			return c
		}
	}
	return nil
}

// SourceTime maps output instant t, known to fall within clip c, to the
// corresponding source-timeline timestamp: t_src = in_src + (t - in_tl),
// identity time remap when clip and source range lengths match.
func SourceTime(c *edl.Clip, t float64) float64 {
	if !c.Source.IsMedia() {
		return t - c.InTL
	}
	return c.Source.Media.InSrc + (t - c.InTL)
}
