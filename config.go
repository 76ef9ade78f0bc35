package ptl

import (
	"context"
	"fmt"
)

// Tick is an absolute or relative count of supervisor ticks. It is the only
// unit of time the scheduling engine deals in; callers translate to/from
// wall-clock time via the Clock implementation they choose.
type Tick uint64

// Policy is a per-task (or global) overrun-recovery policy.
type Policy uint8

const (
	// PolicyUseGlobal defers to GlobalConfig.DefaultPolicy. Only valid on
	// TaskConfig.Policy, never as the resolved/effective policy.
	PolicyUseGlobal Policy = iota
	// PolicySkip drops the late release; the running job continues.
	PolicySkip
	// PolicyKill destroys and recreates the wrapper, discarding the
	// running job's remaining work.
	PolicyKill
	// PolicyCatchUp releases immediately, force-marking the previous job
	// displaced without stopping its execution.
	PolicyCatchUp
)

func (p Policy) String() string {
	switch p {
	case PolicyUseGlobal:
		return "USE_GLOBAL"
	case PolicySkip:
		return "SKIP"
	case PolicyKill:
		return "KILL"
	case PolicyCatchUp:
		return "CATCH_UP"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// JobFunc is a user job body. It is invoked with the configured Argument on
// every release. Implementations are responsible for being idempotent with
// respect to CATCH_UP and KILL: the layer gives no guarantee a prior
// invocation has stopped running (CATCH_UP) or had a chance to clean up
// (KILL).
type JobFunc func(ctx context.Context, argument any)

// TaskConfig is immutable, application-provided configuration for one
// periodic task.
type TaskConfig struct {
	// Name is a short, printable display identifier. It is not required to
	// be unique, but trace output and TaskStatsByName lookups are easier to
	// use if it is.
	Name string

	// Period is the number of ticks between successive releases. Must be > 0.
	Period Tick

	// Deadline is the relative deadline from each release. Zero means "use
	// Period"; otherwise must satisfy 0 < Deadline <= Period.
	Deadline Tick

	// Priority is the wrapper's scheduling priority, strictly less than the
	// supervisor's. It is advisory in this Go rendition: it is recorded and
	// exposed, and higher values are never scheduled with less regard than
	// lower ones by GoroutineKernel, but the Go runtime is not given true
	// priority preemption over it.
	Priority int

	// StackSize is carried for fidelity with the source configuration
	// surface; the Go runtime manages goroutine stacks itself and this
	// field is otherwise unused.
	StackSize int

	// Entry is the user job body. Must be non-nil.
	Entry JobFunc

	// Argument is an opaque value passed to Entry on every release.
	Argument any

	// Policy is this task's overrun-recovery policy, or PolicyUseGlobal to
	// defer to GlobalConfig.DefaultPolicy.
	Policy Policy
}

// GlobalConfig is engine-wide configuration supplied to Init.
type GlobalConfig struct {
	// DefaultPolicy is applied to any task whose Policy is PolicyUseGlobal.
	// Must be one of PolicySkip, PolicyKill, PolicyCatchUp.
	DefaultPolicy Policy

	// TracingEnabled gates whether the trace ring records events at all.
	TracingEnabled bool

	// MaxTasks further restricts the number of tasks Init will accept,
	// below the compile-time MaxTasks constant. Zero means "use the
	// compile-time maximum".
	MaxTasks int
}

// validateTasks checks global and tasks up front, mirroring the
// validate-before-construct shape of catrate's parseRates: reject anything
// invalid up front, and return a single sentinel identifying the violation,
// so the caller never observes a partially-applied configuration.
func validateTasks(global GlobalConfig, tasks []TaskConfig) error {
	switch global.DefaultPolicy {
	case PolicySkip, PolicyKill, PolicyCatchUp:
	default:
		return fmt.Errorf("%w: GlobalConfig.DefaultPolicy %v", ErrNilConfig, global.DefaultPolicy)
	}

	limit := MaxTasks
	if global.MaxTasks > 0 && global.MaxTasks < limit {
		limit = global.MaxTasks
	}

	if len(tasks) == 0 || len(tasks) > limit {
		return fmt.Errorf("%w: got %d tasks, limit %d", ErrInvalidTaskCount, len(tasks), limit)
	}

	for i := range tasks {
		t := &tasks[i]
		if t.Entry == nil {
			return fmt.Errorf("%w: task %d (%q)", ErrNilEntry, i, t.Name)
		}
		if t.Period == 0 {
			return fmt.Errorf("%w: task %d (%q): period must be > 0", ErrInvalidTaskCount, i, t.Name)
		}
		if t.Deadline != 0 && t.Deadline > t.Period {
			return fmt.Errorf("%w: task %d (%q): deadline %d exceeds period %d", ErrInvalidTaskCount, i, t.Name, t.Deadline, t.Period)
		}
		switch t.Policy {
		case PolicyUseGlobal, PolicySkip, PolicyKill, PolicyCatchUp:
		default:
			return fmt.Errorf("%w: task %d (%q): policy %v", ErrInvalidTaskCount, i, t.Name, t.Policy)
		}
	}

	return nil
}

// effectiveDeadline normalizes D == 0 to D == T.
func effectiveDeadline(t TaskConfig) Tick {
	if t.Deadline == 0 {
		return t.Period
	}
	return t.Deadline
}

// effectivePolicy resolves PolicyUseGlobal against the global default.
func effectivePolicy(taskPolicy, globalDefault Policy) Policy {
	if taskPolicy == PolicyUseGlobal {
		return globalDefault
	}
	return taskPolicy
}
