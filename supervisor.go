package ptl

import "context"

// runSupervisor is the highest-priority state machine: it owns every
// release decision and deadline check. It wakes on an absolute one-tick
// cadence, computed via the Clock's SleepUntil, so a briefly-delayed
// supervisor catches up without drift.
func runSupervisor(ctx context.Context, eng *Engine, k Kernel) {
	reg := eng.registry

	t0 := eng.clock.Now()
	for _, s := range reg.tasks {
		s.mu.Lock()
		s.nextRelease = t0
		s.mu.Unlock()
	}

	target := t0
	for {
		if ctx.Err() != nil {
			return
		}

		now := eng.clock.Now()

		// Phase A must complete, for every task, before any task's Phase B
		// runs: no task's release decision may be made before every task's
		// deadline has been checked for this tick.
		for _, s := range reg.tasks {
			supervisorPhaseA(eng, s, now)
		}
		for _, s := range reg.tasks {
			if !supervisorPhaseB(ctx, eng, k, s, now) {
				return
			}
		}

		target++
		if err := eng.clock.SleepUntil(ctx, target); err != nil {
			return
		}
	}
}

// supervisorPhaseA is the per-tick deadline-surveillance pass.
func supervisorPhaseA(eng *Engine, s *taskState, now Tick) {
	s.mu.Lock()
	absDeadline := s.currentRelease + s.effectiveDeadline()
	missed := now >= absDeadline && s.isActive && !s.deadlineMissed
	if missed {
		s.deadlineMissed = true
	}
	s.mu.Unlock()

	if missed {
		s.deadlineMisses.Add(1)
		eng.logEvent(s.config.Name, EventDeadlineMiss, now)
	}
}

// supervisorPhaseB is the per-tick release-decision pass, including
// overrun policy application. It returns true on every path that returns.
// On a fatal condition (kernel task creation failure on a KILL recreate) it
// calls Engine.fatal, which blocks forever, so the false return after that
// call is never reached.
func supervisorPhaseB(ctx context.Context, eng *Engine, k Kernel, s *taskState, now Tick) bool {
	s.mu.Lock()
	if now < s.nextRelease {
		s.mu.Unlock()
		return true
	}

	running := s.isActive
	s.deadlineMissed = false

	if !running {
		s.currentRelease = s.nextRelease
		s.nextRelease += s.config.Period
		handle := s.handle
		s.mu.Unlock()

		eng.logEvent(s.config.Name, EventRelease, now)
		k.NotifyGive(handle)
		return true
	}

	policy := s.effectivePolicy(eng.global.DefaultPolicy)

	switch policy {
	case PolicySkip:
		s.nextRelease += s.config.Period
		s.mu.Unlock()

		s.overrunSkips.Add(1)
		eng.logEvent(s.config.Name, EventOverrunSkip, now)
		eng.logOverrun(s.config.Name, PolicySkip, now)
		return true

	case PolicyCatchUp:
		s.isActive = false
		s.currentRelease = s.nextRelease
		s.nextRelease += s.config.Period
		handle := s.handle
		s.mu.Unlock()

		s.overrunCatchups.Add(1)
		eng.logEvent(s.config.Name, EventOverrunCatchup, now)
		eng.logOverrun(s.config.Name, PolicyCatchUp, now)
		eng.logEvent(s.config.Name, EventRelease, now)
		k.NotifyGive(handle)
		return true

	case PolicyKill:
		oldHandle := s.handle
		s.currentRelease = s.nextRelease
		s.nextRelease += s.config.Period
		s.mu.Unlock()

		s.overrunKills.Add(1)
		eng.logEvent(s.config.Name, EventOverrunKill, now)
		eng.logOverrun(s.config.Name, PolicyKill, now)

		// DeleteTask only cancels oldHandle's context and returns; it does
		// not wait for the abandoned job body to exit (see GoroutineKernel.
		// DeleteTask). A KILL-policy job is not required to observe ctx, so
		// waiting here would let one uncooperative job body stall every
		// other registered task's release.
		k.DeleteTask(oldHandle)
		newHandle, err := k.CreateTask(s.config.Priority, func(wctx context.Context, h *TaskHandle) {
			runWrapper(wctx, eng, k, s, h)
		})
		if err != nil {
			eng.fatal("kernel task creation failed (KILL recreate)", err)
			return false
		}

		s.mu.Lock()
		s.handle = newHandle
		s.isActive = false
		s.deadlineMissed = false
		s.mu.Unlock()

		eng.logEvent(s.config.Name, EventRelease, now)
		k.NotifyGive(newHandle)
		return true

	default:
		s.mu.Unlock()
		return true
	}
}
