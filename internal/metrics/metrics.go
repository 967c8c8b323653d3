// Package metrics collects render-pipeline counters for the verbose
// end-of-run report, gathered incrementally from every stage instead of
// computed after the fact.
package metrics

import "sync/atomic"

// Collector accumulates counters across the Frame Pool, Source Readers,
// Compositor and Timeline Driver. Safe for concurrent use.
type Collector struct {
	framesDecoded    atomic.Int64
	framesComposited atomic.Int64
	framesEncoded    atomic.Int64
	seeks            atomic.Int64
	decodeRetries    atomic.Int64
	poolAcquires     atomic.Int64
	poolRecycles     atomic.Int64
	poolOverflowWarn atomic.Int64
}

// New returns a zeroed Collector.
func New() *Collector { return &Collector{} }

func (c *Collector) IncFramesDecoded()    { c.framesDecoded.Add(1) }
func (c *Collector) IncFramesComposited() { c.framesComposited.Add(1) }
func (c *Collector) IncFramesEncoded()    { c.framesEncoded.Add(1) }
func (c *Collector) IncSeeks()            { c.seeks.Add(1) }
func (c *Collector) IncDecodeRetries()    { c.decodeRetries.Add(1) }
func (c *Collector) IncPoolAcquires()     { c.poolAcquires.Add(1) }
func (c *Collector) IncPoolRecycles()     { c.poolRecycles.Add(1) }
func (c *Collector) IncPoolOverflowWarn() { c.poolOverflowWarn.Add(1) }

// Snapshot is a point-in-time, race-free copy of all counters.
type Snapshot struct {
	FramesDecoded    int64
	FramesComposited int64
	FramesEncoded    int64
	Seeks            int64
	DecodeRetries    int64
	PoolAcquires     int64
	PoolRecycles     int64
	PoolOverflowWarn int64
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FramesDecoded:    c.framesDecoded.Load(),
		FramesComposited: c.framesComposited.Load(),
		FramesEncoded:    c.framesEncoded.Load(),
		Seeks:            c.seeks.Load(),
		DecodeRetries:    c.decodeRetries.Load(),
		PoolAcquires:     c.poolAcquires.Load(),
		PoolRecycles:     c.poolRecycles.Load(),
		PoolOverflowWarn: c.poolOverflowWarn.Load(),
	}
}
