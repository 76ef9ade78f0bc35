package ptl

import "context"

// runWrapper is one instance of the per-task execution body, run as the
// body of a GoroutineKernel task. It never self-schedules: the next job
// only arrives when the supervisor delivers a notification.
func runWrapper(ctx context.Context, eng *Engine, k Kernel, s *taskState, h *TaskHandle) {
	for {
		if err := k.NotifyTake(ctx, h); err != nil {
			return
		}

		s.mu.Lock()
		s.isActive = true
		currentRelease := s.currentRelease
		s.mu.Unlock()

		tStart := eng.clock.Now()
		eng.logEvent(s.config.Name, EventStart, tStart)

		// The job body is the only point at which a KILL can leave this
		// goroutine running past its wrapper's teardown: Go has no
		// primitive to forcibly stop a running goroutine the way FreeRTOS's
		// vTaskDelete stops a task's stack outright, so ctx is the
		// caller's only cancellation signal. A well-behaved job checks ctx;
		// one that doesn't simply keeps running, abandoned: KILL gives no
		// chance for the killed job to run cleanup, and here also no forced
		// stop of its CPU use.
		s.config.Entry(ctx, s.config.Argument)

		if ctx.Err() != nil {
			return
		}

		tEnd := eng.clock.Now()
		eng.logEvent(s.config.Name, EventComplete, tEnd)

		dEff := s.effectiveDeadline()
		absDeadline := currentRelease + dEff

		s.mu.Lock()
		missed := tEnd > absDeadline && !s.deadlineMissed
		if missed {
			s.deadlineMissed = true
		}
		s.isActive = false
		s.mu.Unlock()

		if missed {
			s.deadlineMisses.Add(1)
			eng.logEvent(s.config.Name, EventDeadlineMiss, tEnd)
		}

		s.jobsCompleted.Add(1)
	}
}
