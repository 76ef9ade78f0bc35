package ptl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noopEntry(context.Context, any) {}

func TestValidateTasks_RejectsNilGlobal(t *testing.T) {
	err := validateTasks(GlobalConfig{}, []TaskConfig{{Name: "a", Period: 1, Entry: noopEntry}})
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestValidateTasks_RejectsZeroTasks(t *testing.T) {
	global := GlobalConfig{DefaultPolicy: PolicySkip}
	err := validateTasks(global, nil)
	assert.ErrorIs(t, err, ErrInvalidTaskCount)
}

func TestValidateTasks_RejectsTooManyTasks(t *testing.T) {
	global := GlobalConfig{DefaultPolicy: PolicySkip}
	tasks := make([]TaskConfig, MaxTasks+1)
	for i := range tasks {
		tasks[i] = TaskConfig{Name: "a", Period: 1, Entry: noopEntry}
	}
	err := validateTasks(global, tasks)
	assert.ErrorIs(t, err, ErrInvalidTaskCount)
}

func TestValidateTasks_RejectsNilEntry(t *testing.T) {
	global := GlobalConfig{DefaultPolicy: PolicySkip}
	err := validateTasks(global, []TaskConfig{{Name: "a", Period: 1}})
	assert.ErrorIs(t, err, ErrNilEntry)
}

func TestValidateTasks_RejectsZeroPeriod(t *testing.T) {
	global := GlobalConfig{DefaultPolicy: PolicySkip}
	err := validateTasks(global, []TaskConfig{{Name: "a", Period: 0, Entry: noopEntry}})
	assert.Error(t, err)
}

func TestValidateTasks_RejectsDeadlineExceedingPeriod(t *testing.T) {
	global := GlobalConfig{DefaultPolicy: PolicySkip}
	err := validateTasks(global, []TaskConfig{{Name: "a", Period: 10, Deadline: 20, Entry: noopEntry}})
	assert.Error(t, err)
}

func TestValidateTasks_AcceptsMinimalValidConfig(t *testing.T) {
	global := GlobalConfig{DefaultPolicy: PolicySkip}
	err := validateTasks(global, []TaskConfig{{Name: "a", Period: 10, Entry: noopEntry}})
	assert.NoError(t, err)
}

func TestValidateTasks_GlobalMaxTasksTightensLimit(t *testing.T) {
	global := GlobalConfig{DefaultPolicy: PolicySkip, MaxTasks: 1}
	tasks := []TaskConfig{
		{Name: "a", Period: 1, Entry: noopEntry},
		{Name: "b", Period: 1, Entry: noopEntry},
	}
	err := validateTasks(global, tasks)
	assert.True(t, errors.Is(err, ErrInvalidTaskCount))
}

func TestEffectiveDeadline_ZeroNormalizesToPeriod(t *testing.T) {
	assert.Equal(t, Tick(50), effectiveDeadline(TaskConfig{Period: 50, Deadline: 0}))
	assert.Equal(t, Tick(30), effectiveDeadline(TaskConfig{Period: 50, Deadline: 30}))
}

func TestEffectivePolicy_ResolvesUseGlobal(t *testing.T) {
	assert.Equal(t, PolicyKill, effectivePolicy(PolicyUseGlobal, PolicyKill))
	assert.Equal(t, PolicySkip, effectivePolicy(PolicySkip, PolicyKill))
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "SKIP", PolicySkip.String())
	assert.Equal(t, "KILL", PolicyKill.String())
	assert.Equal(t, "CATCH_UP", PolicyCatchUp.String())
	assert.Equal(t, "USE_GLOBAL", PolicyUseGlobal.String())
	assert.Contains(t, Policy(99).String(), "Policy(")
}
