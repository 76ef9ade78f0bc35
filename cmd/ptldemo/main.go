// Command ptldemo runs a handful of periodic task scenarios through the
// engine against a real SystemClock, and prints the trace and statistics
// block on exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/go-ptl"
)

func main() {
	scenario := flag.String("scenario", "mixed", "one of: normal, preempt, skip, catchup, kill, mixed, wrap")
	duration := flag.Duration("duration", 500*time.Millisecond, "how long to run before printing the trace and stopping")
	flag.Parse()

	global, tasks := buildScenario(*scenario)

	clock := ptl.NewSystemClock(time.Millisecond)
	kernel := ptl.NewGoroutineKernel()
	eng, err := ptl.NewEngine(global, tasks, clock, kernel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ptldemo: init failed:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	if err := eng.Start(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "ptldemo: start failed:", err)
		os.Exit(1)
	}

	eng.PrintTrace(os.Stdout)
	eng.PrintStatistics(os.Stdout, eng.TraceStatistics())
}

// busyWork occupies roughly d of wall-clock time; demo job bodies use real
// sleeps (not Burn) since ptldemo drives a real SystemClock, not a
// FakeClock.
func busyWork(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func buildScenario(name string) (ptl.GlobalConfig, []ptl.TaskConfig) {
	global := ptl.GlobalConfig{DefaultPolicy: ptl.PolicySkip, TracingEnabled: true}

	switch name {
	case "normal":
		// scenario 1: one task, T=D=50ms, 10ms of work.
		return global, []ptl.TaskConfig{
			{Name: "normal", Period: 50, Deadline: 50, Priority: 2, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 10*time.Millisecond)
			}},
		}

	case "preempt":
		// scenario 2: Low (prio 1, T=100ms, 50ms work), High
		// (prio 3, T=150ms, 20ms work), and a referee at prio 4 with a
		// 300ms period and an empty job body.
		return global, []ptl.TaskConfig{
			{Name: "low", Period: 100, Priority: 1, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 50*time.Millisecond)
			}},
			{Name: "high", Period: 150, Priority: 3, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 20*time.Millisecond)
			}},
			{Name: "referee", Period: 300, Priority: 4, Entry: func(ctx context.Context, _ any) {}},
		}

	case "skip":
		// scenario 3: T=100ms, job=250ms, SKIP.
		return global, []ptl.TaskConfig{
			{Name: "skip-worker", Period: 100, Policy: ptl.PolicySkip, Priority: 2, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 250*time.Millisecond)
			}},
		}

	case "catchup":
		// scenario 4: T=100ms, job=120ms, CATCH_UP.
		return global, []ptl.TaskConfig{
			{Name: "catchup-worker", Period: 100, Policy: ptl.PolicyCatchUp, Priority: 2, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 120*time.Millisecond)
			}},
		}

	case "kill":
		// scenario 5: T=D=100ms, job=200ms, KILL. The job prints
		// a failure marker if it ever completes normally, which a correct
		// KILL must prevent by tearing the goroutine's wrapper down first.
		return global, []ptl.TaskConfig{
			{Name: "kill-worker", Period: 100, Deadline: 100, Policy: ptl.PolicyKill, Priority: 2, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 200*time.Millisecond)
				if ctx.Err() == nil {
					fmt.Fprintln(os.Stderr, "FAIL: killed job completed")
				}
			}},
		}

	case "wrap":
		// scenario 7: two fast tasks at T=5ms, to drive the trace
		// ring past its capacity.
		return global, []ptl.TaskConfig{
			{Name: "fast-a", Period: 5, Priority: 2, Entry: func(ctx context.Context, _ any) {}},
			{Name: "fast-b", Period: 5, Priority: 2, Entry: func(ctx context.Context, _ any) {}},
		}

	case "mixed":
		fallthrough
	default:
		// scenario 6: KILL / SKIP / SKIP workers at T=100ms with
		// 150ms, 150ms, 20ms jobs, plus a referee.
		return global, []ptl.TaskConfig{
			{Name: "worker-kill", Period: 100, Policy: ptl.PolicyKill, Priority: 2, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 150*time.Millisecond)
			}},
			{Name: "worker-skip-a", Period: 100, Policy: ptl.PolicySkip, Priority: 2, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 150*time.Millisecond)
			}},
			{Name: "worker-skip-b", Period: 100, Policy: ptl.PolicySkip, Priority: 2, Entry: func(ctx context.Context, _ any) {
				busyWork(ctx, 20*time.Millisecond)
			}},
			{Name: "referee", Period: 800, Priority: 4, Entry: func(ctx context.Context, _ any) {}},
		}
	}
}
