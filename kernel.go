package ptl

import (
	"context"
	"sync"
)

// TaskHandle is the kernel's reference to a created task, stored as
// taskState.handle. It is opaque to callers outside this package.
type TaskHandle struct {
	cancel context.CancelFunc
	notify chan struct{}
	done   chan struct{}
}

// Kernel abstracts the priority-preemptive RTOS kernel primitives the
// engine treats as external collaborators: task create/delete, a
// single-slot wake notification per task, and an absolute-deadline sleep
// (via Clock).
//
// GoroutineKernel, the default implementation, realizes "tasks" as
// goroutines and "notify give/take" as a depth-1 channel, the direct Go
// analogue of a binary semaphore — grounded on the worker-goroutine
// lifecycle in catrate's Limiter.worker (atomic running flag guarding a
// single background goroutine, started and stopped without a race).
type Kernel interface {
	// CreateTask starts body running in a new task at the given priority,
	// returning a handle usable with DeleteTask/NotifyGive/NotifyTake. body
	// is expected to return once its context is canceled, but DeleteTask
	// does not wait for it to (see DeleteTask). priority is advisory (see
	// TaskConfig.Priority).
	CreateTask(priority int, body func(ctx context.Context, h *TaskHandle)) (*TaskHandle, error)

	// DeleteTask cancels the task's context and returns immediately,
	// without waiting for body to return: body is not required to observe
	// ctx (see KILL's destroy-and-recreate semantics), so a caller that
	// blocked here could be stalled forever by a single uncooperative
	// task. Resources associated with h are reclaimed asynchronously once
	// body does exit.
	DeleteTask(h *TaskHandle)

	// NotifyGive delivers a single wake notification to h. A pending count
	// greater than one is impossible because every release path consumes
	// the flag first, so a non-blocking send that drops when the slot is
	// already full is correct, not lossy.
	NotifyGive(h *TaskHandle)

	// NotifyTake blocks until a notification is available or ctx is
	// canceled, consuming exactly one notification.
	NotifyTake(ctx context.Context, h *TaskHandle) error
}

// GoroutineKernel is the default Kernel, built on goroutines and channels.
type GoroutineKernel struct {
	mu    sync.Mutex
	count int
}

// NewGoroutineKernel returns a ready-to-use GoroutineKernel.
func NewGoroutineKernel() *GoroutineKernel {
	return &GoroutineKernel{}
}

func (k *GoroutineKernel) CreateTask(priority int, body func(ctx context.Context, h *TaskHandle)) (*TaskHandle, error) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &TaskHandle{
		cancel: cancel,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	k.mu.Lock()
	k.count++
	k.mu.Unlock()

	go func() {
		defer close(h.done)
		body(ctx, h)
	}()

	return h, nil
}

// DeleteTask cancels h's context and returns without waiting for its body
// to return. The wait for h.done and the resulting count decrement happen
// on a detached goroutine, so a body that ignores ctx (the supervisor's
// KILL path makes no assumption that it won't) cannot block the caller —
// the single supervisor goroutine that calls this once per tick per
// overrun, and Engine.Start's shutdown path, would otherwise stall every
// other registered task along with the uncooperative one.
func (k *GoroutineKernel) DeleteTask(h *TaskHandle) {
	h.cancel()

	go func() {
		<-h.done
		k.mu.Lock()
		k.count--
		k.mu.Unlock()
	}()
}

func (k *GoroutineKernel) NotifyGive(h *TaskHandle) {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (k *GoroutineKernel) NotifyTake(ctx context.Context, h *TaskHandle) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.notify:
		return nil
	}
}

// TaskCount returns the number of currently-live tasks; exposed for tests
// and diagnostics, not part of the Kernel interface.
func (k *GoroutineKernel) TaskCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.count
}
