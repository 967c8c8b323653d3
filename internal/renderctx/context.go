// Package renderctx carries the per-render context object: a logging sink, a
// metrics collector, and the cancellation signal, in place of globals. It is
// passed to the Source Reader, Encoder Sink and Timeline Driver
// constructors; the Frame Pool and Compositor receive only its collector and
// logger respectively.
package renderctx

import (
	"context"
	"log/slog"

	"github.com/linuxmatters/edl2ffmpeg/internal/metrics"
)

// Context bundles the cross-cutting collaborators every stage needs.
// It is not a context.Context itself (to avoid the lint-frowned practice of
// stuffing values into one); it carries one instead for cancellation.
type Context struct {
	Ctx     context.Context
	Log     *slog.Logger
	Metrics *metrics.Collector
}

// New builds a render Context from a parent context, logger and collector.
func New(ctx context.Context, log *slog.Logger, m *metrics.Collector) *Context {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Context{Ctx: ctx, Log: log, Metrics: m}
}

// Cancelled reports whether the parent context has been cancelled, checked
// cooperatively at frame boundaries.
func (c *Context) Cancelled() bool {
	select {
	case <-c.Ctx.Done():
		return true
	default:
		return false
	}
}
