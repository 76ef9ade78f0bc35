// Package ptl implements a periodic task layer for a single-CPU,
// priority-preemptive environment: it adds periods, relative deadlines,
// automatic job releases, deadline-miss detection, and three configurable
// overrun-recovery policies (SKIP, KILL, CATCH_UP) on top of a small
// goroutine/channel scheduling substrate.
//
// It is not a general-purpose job queue: tasks are fixed at Init time, there
// is no dynamic add/remove, and recovery of job-owned resources after a KILL
// is the caller's responsibility.
package ptl
