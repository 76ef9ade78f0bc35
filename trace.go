package ptl

import (
	"fmt"
	"io"
	"sync"
)

// EventTag is one of the closed set of trace events the engine emits.
type EventTag uint8

const (
	EventRelease EventTag = iota
	EventStart
	EventComplete
	EventDeadlineMiss
	EventOverrunSkip
	EventOverrunKill
	EventOverrunCatchup
	EventSwitchIn
	EventSwitchOut
	EventIdleStart
	EventIdleEnd
)

func (e EventTag) String() string {
	switch e {
	case EventRelease:
		return "RELEASE"
	case EventStart:
		return "START"
	case EventComplete:
		return "COMPLETE"
	case EventDeadlineMiss:
		return "DEADLINE_MISS"
	case EventOverrunSkip:
		return "OVERRUN_SKIP"
	case EventOverrunKill:
		return "OVERRUN_KILL"
	case EventOverrunCatchup:
		return "OVERRUN_CATCHUP"
	case EventSwitchIn:
		return "SWITCH_IN"
	case EventSwitchOut:
		return "SWITCH_OUT"
	case EventIdleStart:
		return "IDLE_START"
	case EventIdleEnd:
		return "IDLE_END"
	default:
		return fmt.Sprintf("EVENT(%d)", uint8(e))
	}
}

// TraceRecord is one entry in the trace ring.
type TraceRecord struct {
	TaskName  string
	Event     EventTag
	Timestamp Tick
}

// supervisorTaskName is the task name, with the reserved "PTL" prefix, under
// which the idle hook writes its IDLE_START/IDLE_END records. printTrace
// filters out any "PTL"-prefixed record tagged SWITCH_IN/SWITCH_OUT.
const supervisorTaskName = "PTL-IDLE"

// Statistics is the reduced summary computed once per walk of a ring
// snapshot. Re-reducing the same snapshot always yields an identical
// Statistics value.
type Statistics struct {
	Releases        uint64
	Completions     uint64
	DeadlineMisses  uint64
	Overruns        uint64
	TotalTime       Tick
	IdleTime        Tick
	CPUUtilization  float64 // 0..1; 0 if TotalTime == 0
}

// traceState owns the ring plus idle-accounting fields, all behind one
// mutex, so idle-entry/exit updates observe the same critical-section
// discipline as ring writes.
type traceState struct {
	mu            sync.Mutex
	enabled       bool
	ring          *ring
	lastIdleEntry Tick
	idleTotal     Tick
}

func newTraceState(capacity int, enabled bool) *traceState {
	return &traceState{enabled: enabled, ring: newRing(capacity)}
}

func (t *traceState) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ring.reset()
	t.lastIdleEntry = 0
	t.idleTotal = 0
}

// logEvent is the producer-side critical section: store {name, event, now}
// at the write index, then advance the write index modulo capacity.
func (t *traceState) logEvent(name string, tag EventTag, now Tick) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.ring.push(TraceRecord{TaskName: name, Event: tag, Timestamp: now})
}

// trackIdleEntry and trackIdleExit implement idle-time accounting,
// intended to be wired to the kernel's context-switch hook.
func (t *traceState) trackIdleEntry(now Tick) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastIdleEntry = now
	if t.enabled {
		t.ring.push(TraceRecord{TaskName: supervisorTaskName, Event: EventIdleStart, Timestamp: now})
	}
}

func (t *traceState) trackIdleExit(now Tick) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now >= t.lastIdleEntry {
		t.idleTotal += now - t.lastIdleEntry
	}
	if t.enabled {
		t.ring.push(TraceRecord{TaskName: supervisorTaskName, Event: EventIdleEnd, Timestamp: now})
	}
}

// statistics walks the readable window once.
func (t *traceState) statistics() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, count := t.ring.snapshotBounds()

	var stats Statistics
	for i := 0; i < count; i++ {
		rec := t.ring.at(start, i)
		switch rec.Event {
		case EventRelease:
			stats.Releases++
		case EventComplete:
			stats.Completions++
		case EventDeadlineMiss:
			stats.DeadlineMisses++
		case EventOverrunSkip, EventOverrunKill, EventOverrunCatchup:
			stats.Overruns++
		}
		if i == count-1 {
			stats.TotalTime = rec.Timestamp
		}
	}

	stats.IdleTime = t.idleTotal
	if stats.TotalTime != 0 {
		stats.CPUUtilization = float64(stats.TotalTime-stats.IdleTime) / float64(stats.TotalTime)
	}
	return stats
}

// printTrace writes one line per readable record, chronological, filtering
// out PTL-prefixed SWITCH_IN/SWITCH_OUT records.
func (t *traceState) printTrace(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, count := t.ring.snapshotBounds()
	for i := 0; i < count; i++ {
		rec := t.ring.at(start, i)
		if len(rec.TaskName) >= 3 && rec.TaskName[:3] == "PTL" &&
			(rec.Event == EventSwitchIn || rec.Event == EventSwitchOut) {
			continue
		}
		fmt.Fprintf(w, "[%05d ms] %10s %s\n", rec.Timestamp, rec.TaskName, rec.Event)
	}
}

// printStatistics writes the fixed-order statistics block.
func printStatistics(w io.Writer, stats Statistics) {
	fmt.Fprintf(w, "Total releases: %d\n", stats.Releases)
	fmt.Fprintf(w, "Total completions: %d\n", stats.Completions)
	fmt.Fprintf(w, "Deadline misses: %d\n", stats.DeadlineMisses)
	fmt.Fprintf(w, "Overruns: %d\n", stats.Overruns)
	fmt.Fprintf(w, "Total time (ms): %d\n", stats.TotalTime)
	fmt.Fprintf(w, "Idle time (ms): %d\n", stats.IdleTime)

	cpuPct := stats.CPUUtilization * 100
	fmt.Fprintf(w, "CPU utilization: %05.2f%%\n", cpuPct)

	overheadPct := (1 - stats.CPUUtilization) * 100
	switch {
	case cpuPct < 50:
		fmt.Fprintf(w, "System overhead: %05.2f%% N/A (low CPU load)\n", overheadPct)
	case overheadPct <= 10.00:
		fmt.Fprintf(w, "System overhead: %05.2f%% [OK]\n", overheadPct)
	default:
		fmt.Fprintf(w, "System overhead: %05.2f%% [FAIL - Required <=10%%]\n", overheadPct)
	}
}
