package pool

import (
	"context"
	"testing"

	"github.com/linuxmatters/edl2ffmpeg/internal/frame"
	"github.com/linuxmatters/edl2ffmpeg/internal/metrics"
)

func TestAcquireAllocatesThenRecycles(t *testing.T) {
	p := New(8, 8, frame.FormatYUV420P, 0, nil)

	f1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if p.TotalAllocs() != 1 {
		t.Fatalf("expected 1 allocation, got %d", p.TotalAllocs())
	}

	f1.Release()
	if p.Len() != 1 {
		t.Fatalf("expected 1 frame in free queue after release, got %d", p.Len())
	}

	f2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if p.TotalAllocs() != 1 {
		t.Fatalf("expected recycled frame, no new allocation; got %d total allocs", p.TotalAllocs())
	}
	f2.Release()
}

func TestAliasedFrameNotRequeuedUntilLastOwner(t *testing.T) {
	p := New(4, 4, frame.FormatYUV420P, 0, nil)

	f, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	f.Retain() // two owners now

	f.Release() // first owner drops
	if p.Len() != 0 {
		t.Fatalf("aliased frame must not be requeued while still held, got free queue len %d", p.Len())
	}

	f.Release() // last owner drops
	if p.Len() != 1 {
		t.Fatalf("expected frame requeued after last release, got free queue len %d", p.Len())
	}
}

func TestOverflowWarningRecordedPastThreshold(t *testing.T) {
	m := metrics.New()
	p := New(2, 2, frame.FormatYUV420P, 1, m)

	// Allocate well past 2x the configured size of 1 without ever releasing,
	// forcing fresh allocations each time.
	for i := 0; i < 5; i++ {
		if _, err := p.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	if m.Snapshot().PoolOverflowWarn == 0 {
		t.Error("expected overflow warning to be recorded")
	}
}
