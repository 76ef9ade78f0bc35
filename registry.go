package ptl

import (
	"sync"
	"sync/atomic"
)

// taskState is the mutable per-task runtime state. The split between
// mu-guarded structural fields (handle,
// nextRelease, currentRelease, isActive, deadlineMissed) and atomic counters
// is grounded directly on catrate's categoryData: categoryData.mu guards
// the structural ring/events state while categoryData.atomic holds the
// fast-path fields read without blocking the Allow hot path. Here, the five
// job counters are the fast-path fields (read by TaskStats/TaskList without
// contending with the supervisor or wrapper), and mu guards everything the
// supervisor and wrapper must observe or mutate as a single atomic step
// (e.g. Phase B's "atomically read is_active, clear deadline_missed, set
// current/next release").
type taskState struct {
	config TaskConfig

	mu             sync.Mutex
	handle         *TaskHandle
	nextRelease    Tick
	currentRelease Tick
	isActive       bool
	deadlineMissed bool

	jobsCompleted   atomic.Uint64
	deadlineMisses  atomic.Uint64
	overrunSkips    atomic.Uint64
	overrunKills    atomic.Uint64
	overrunCatchups atomic.Uint64
}

func newTaskState(cfg TaskConfig) *taskState {
	return &taskState{config: cfg}
}

// effectiveDeadline returns this task's resolved deadline (D == 0 -> T).
func (s *taskState) effectiveDeadline() Tick {
	return effectiveDeadline(s.config)
}

// effectivePolicy returns this task's resolved overrun policy.
func (s *taskState) effectivePolicy(globalDefault Policy) Policy {
	return effectivePolicy(s.config.Policy, globalDefault)
}

// TaskSnapshot is a point-in-time, race-free copy of a task's state and
// counters, returned by Engine.TaskList.
type TaskSnapshot struct {
	Name            string
	Period          Tick
	Deadline        Tick
	NextRelease     Tick
	CurrentRelease  Tick
	IsActive        bool
	DeadlineMissed  bool
	JobsCompleted   uint64
	DeadlineMisses  uint64
	OverrunSkips    uint64
	OverrunKills    uint64
	OverrunCatchups uint64
}

func (s *taskState) snapshot() TaskSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TaskSnapshot{
		Name:            s.config.Name,
		Period:          s.config.Period,
		Deadline:        s.effectiveDeadline(),
		NextRelease:     s.nextRelease,
		CurrentRelease:  s.currentRelease,
		IsActive:        s.isActive,
		DeadlineMissed:  s.deadlineMissed,
		JobsCompleted:   s.jobsCompleted.Load(),
		DeadlineMisses:  s.deadlineMisses.Load(),
		OverrunSkips:    s.overrunSkips.Load(),
		OverrunKills:    s.overrunKills.Load(),
		OverrunCatchups: s.overrunCatchups.Load(),
	}
}

// registry is the fixed-size pool of task descriptors: built once by Init,
// never resized.
type registry struct {
	tasks []*taskState
}

func newRegistry(configs []TaskConfig) *registry {
	tasks := make([]*taskState, len(configs))
	for i, cfg := range configs {
		tasks[i] = newTaskState(cfg)
	}
	return &registry{tasks: tasks}
}
