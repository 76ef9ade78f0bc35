package ptl

import (
	"context"
	"sync/atomic"
)

// calibration holds the shared "loops per tick" counter populated by
// calibrate and read by Burn. The counter is a plain atomic, not because
// the write races the read (calibration always
// completes before any Burn call can observe a meaningful value), but so
// that Burn never observes a torn write on platforms where a bare uint64
// write isn't atomic.
type calibration struct {
	loopsPerTick atomic.Uint64
}

// calibrate runs a one-shot busy-loop calibration: wait for a tick edge,
// then count a busy counter over a fixed number of ticks, then divide to
// get loops-per-tick.
func (c *calibration) calibrate(ctx context.Context, clock Clock, ticks Tick) error {
	start := clock.Now()
	if err := clock.SleepUntil(ctx, start+1); err != nil {
		return err
	}

	begin := clock.Now()
	var loops uint64
	target := begin + ticks
	for clock.Now() < target {
		loops++
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if ticks == 0 {
		ticks = 1
	}
	c.loopsPerTick.Store(loops / uint64(ticks))
	return nil
}

// burn busies the CPU for approximately the given number of ticks, using
// the calibrated loops-per-tick counter. If calibration has not yet run,
// loopsPerTick is 0 and burn returns immediately.
func (c *calibration) burn(ticks Tick) {
	loops := c.loopsPerTick.Load() * uint64(ticks)
	var sink uint64
	for i := uint64(0); i < loops; i++ {
		sink += i
	}
	_ = sink
}
