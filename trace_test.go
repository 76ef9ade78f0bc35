package ptl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceState_LogEventNoopWhenDisabled(t *testing.T) {
	ts := newTraceState(4, false)
	ts.logEvent("a", EventRelease, 1)
	start, count := ts.ring.snapshotBounds()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, count)
}

func TestTraceState_LogEventRecordsWhenEnabled(t *testing.T) {
	ts := newTraceState(4, true)
	ts.logEvent("a", EventRelease, 1)
	_, count := ts.ring.snapshotBounds()
	assert.Equal(t, 1, count)
}

func TestTraceState_IdleAccounting(t *testing.T) {
	ts := newTraceState(4, true)
	ts.trackIdleEntry(10)
	ts.trackIdleExit(15)
	assert.Equal(t, Tick(5), ts.idleTotal)
}

func TestTraceState_StatisticsReducesCountersAndCPUUtilization(t *testing.T) {
	ts := newTraceState(16, true)
	ts.logEvent("a", EventRelease, 0)
	ts.logEvent("a", EventStart, 0)
	ts.logEvent("a", EventComplete, 5)
	ts.logEvent("a", EventOverrunSkip, 10)
	ts.trackIdleEntry(10)
	ts.trackIdleExit(12)

	stats := ts.statistics()
	assert.Equal(t, uint64(1), stats.Releases)
	assert.Equal(t, uint64(1), stats.Completions)
	assert.Equal(t, uint64(1), stats.Overruns)
	assert.Equal(t, Tick(2), stats.IdleTime)
	assert.Greater(t, stats.CPUUtilization, 0.0)
}

func TestTraceState_StatisticsIsIdempotent(t *testing.T) {
	ts := newTraceState(16, true)
	ts.logEvent("a", EventRelease, 0)
	ts.logEvent("a", EventComplete, 5)

	first := ts.statistics()
	second := ts.statistics()
	assert.Equal(t, first, second)
}

func TestTraceState_PrintTraceFiltersSupervisorSwitchRecords(t *testing.T) {
	ts := newTraceState(16, true)
	ts.logEvent("worker", EventRelease, 1)
	ts.logEvent(supervisorTaskName, EventSwitchIn, 1)
	ts.logEvent(supervisorTaskName, EventSwitchOut, 2)

	var buf bytes.Buffer
	ts.printTrace(&buf)
	out := buf.String()
	assert.Contains(t, out, "worker")
	assert.NotContains(t, out, "SWITCH_IN")
	assert.NotContains(t, out, "SWITCH_OUT")
}

func TestPrintStatistics_AnnotatesOverheadByLoad(t *testing.T) {
	var buf bytes.Buffer
	printStatistics(&buf, Statistics{TotalTime: 100, IdleTime: 5, CPUUtilization: 0.95})
	assert.Contains(t, buf.String(), "[OK]")

	buf.Reset()
	printStatistics(&buf, Statistics{TotalTime: 100, IdleTime: 40, CPUUtilization: 0.60})
	assert.Contains(t, buf.String(), "[FAIL")

	buf.Reset()
	printStatistics(&buf, Statistics{TotalTime: 100, IdleTime: 90, CPUUtilization: 0.10})
	assert.Contains(t, buf.String(), "N/A (low CPU load)")
}

func TestEventTag_String(t *testing.T) {
	assert.Equal(t, "RELEASE", EventRelease.String())
	assert.Equal(t, "DEADLINE_MISS", EventDeadlineMiss.String())
	assert.Contains(t, EventTag(255).String(), "EVENT(")
}
