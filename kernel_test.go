package ptl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGoroutineKernel_CreateTaskRunsBody(t *testing.T) {
	k := NewGoroutineKernel()
	started := make(chan struct{})
	h, err := k.CreateTask(1, func(ctx context.Context, h *TaskHandle) {
		close(started)
		<-ctx.Done()
	})
	assert.NoError(t, err)
	assert.NotNil(t, h)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task body never started")
	}
	assert.Equal(t, 1, k.TaskCount())

	k.DeleteTask(h)
	assert.Eventually(t, func() bool {
		return k.TaskCount() == 0
	}, time.Second, time.Millisecond)
}

// TestGoroutineKernel_DeleteTaskDecrementsCountOnceBodyExits checks the
// cooperative case: once body actually observes ctx and returns, the
// count eventually reflects that (asynchronously, not synchronously with
// DeleteTask's return).
func TestGoroutineKernel_DeleteTaskDecrementsCountOnceBodyExits(t *testing.T) {
	k := NewGoroutineKernel()
	returned := make(chan struct{})
	h, err := k.CreateTask(1, func(ctx context.Context, h *TaskHandle) {
		<-ctx.Done()
		close(returned)
	})
	assert.NoError(t, err)

	k.DeleteTask(h)

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("body never observed cancellation")
	}
	assert.Eventually(t, func() bool {
		return k.TaskCount() == 0
	}, time.Second, time.Millisecond)
}

// TestGoroutineKernel_DeleteTaskReturnsPromptlyEvenIfBodyIgnoresContext is
// the regression test for the case where a task body never observes ctx
// at all (e.g. a KILL-policy job with no cancellation check, which the
// spec explicitly permits — resource cleanup on KILL is the
// application's responsibility, not a guarantee this layer makes).
// DeleteTask must still return right away.
func TestGoroutineKernel_DeleteTaskReturnsPromptlyEvenIfBodyIgnoresContext(t *testing.T) {
	k := NewGoroutineKernel()
	started := make(chan struct{})
	h, err := k.CreateTask(1, func(ctx context.Context, h *TaskHandle) {
		close(started)
		select {} // deliberately never returns, ignoring ctx entirely
	})
	assert.NoError(t, err)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task body never started")
	}

	done := make(chan struct{})
	go func() {
		k.DeleteTask(h)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("DeleteTask blocked on an uncooperative task body")
	}
}

func TestGoroutineKernel_NotifyGiveTakeRoundTrip(t *testing.T) {
	k := NewGoroutineKernel()
	h, err := k.CreateTask(1, func(ctx context.Context, h *TaskHandle) { <-ctx.Done() })
	assert.NoError(t, err)
	defer k.DeleteTask(h)

	k.NotifyGive(h)
	assert.NoError(t, k.NotifyTake(context.Background(), h))
}

func TestGoroutineKernel_NotifyGiveIsNonBlockingWhenFull(t *testing.T) {
	k := NewGoroutineKernel()
	h, err := k.CreateTask(1, func(ctx context.Context, h *TaskHandle) { <-ctx.Done() })
	assert.NoError(t, err)
	defer k.DeleteTask(h)

	done := make(chan struct{})
	go func() {
		k.NotifyGive(h)
		k.NotifyGive(h)
		k.NotifyGive(h)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyGive blocked when the notify slot was already full")
	}
}

func TestGoroutineKernel_NotifyTakeRespectsCancellation(t *testing.T) {
	k := NewGoroutineKernel()
	h, err := k.CreateTask(1, func(ctx context.Context, h *TaskHandle) { <-ctx.Done() })
	assert.NoError(t, err)
	defer k.DeleteTask(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, k.NotifyTake(ctx, h), context.Canceled)
}
