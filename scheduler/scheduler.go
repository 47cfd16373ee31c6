// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package scheduler implements the single-producer/single-consumer delay
// queue that drives deferred and periodic work across the engines: one
// worker goroutine pops the task nearest its schedule time and runs it.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marrasen/go-iecp5/clog"
)

// TaskDelayThreshold is the dequeue-latency bound past which a task firing
// late is logged as an observability warning rather than silently absorbed.
const TaskDelayThreshold = 100 * time.Millisecond

// ErrBadInterval is returned by SchedulePeriodic when interval is not a
// positive multiple of tickRate, or is smaller than tickRate.
var ErrBadInterval = errors.New("scheduler: interval must be a positive multiple of the tick rate")

// Task is a unit of deferred work.
type Task func()

type item struct {
	at       time.Time
	fn       Task
	index    int
	periodMs uint // 0 for one-shot tasks
}

// taskQueue implements container/heap.Interface, ordered by schedule_time
// ascending (earliest due first).
type taskQueue []*item

func (q taskQueue) Len() int            { return len(q) }
func (q taskQueue) Less(i, j int) bool  { return q[i].at.Before(q[j].at) }
func (q taskQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *taskQueue) Push(x interface{}) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}
func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}

// Scheduler is a single-producer/single-consumer delay queue: callers
// enqueue from any goroutine, a single worker goroutine dequeues and runs.
type Scheduler struct {
	clog.Clog

	mu    sync.Mutex
	queue taskQueue

	wake chan struct{} // buffered(1); signals the worker to re-examine the queue
}

// New builds an idle Scheduler. Call Run to start its worker.
func New() *Scheduler {
	return &Scheduler{
		Clog: clog.NewLogger("scheduler => "),
		wake: make(chan struct{}, 1),
	}
}

// ScheduleTask enqueues fn to run after delayMs. A negative delay runs fn at
// the front of the queue (immediate priority) ahead of anything already due.
func (s *Scheduler) ScheduleTask(fn Task, delayMs int) {
	at := time.Now()
	if delayMs < 0 {
		at = at.Add(-(24 * time.Hour))
	} else {
		at = at.Add(time.Duration(delayMs) * time.Millisecond)
	}
	s.push(&item{at: at, fn: fn})
}

// SchedulePeriodic enqueues fn to run every intervalMs, validated against
// tickRateMs: intervalMs must be a positive multiple of tickRateMs and at
// least tickRateMs.
func (s *Scheduler) SchedulePeriodic(fn Task, intervalMs, tickRateMs uint) error {
	if tickRateMs == 0 || intervalMs == 0 || intervalMs < tickRateMs || intervalMs%tickRateMs != 0 {
		return ErrBadInterval
	}
	s.push(&item{
		at:       time.Now().Add(time.Duration(intervalMs) * time.Millisecond),
		fn:       fn,
		periodMs: intervalMs,
	})
	return nil
}

func (s *Scheduler) push(it *item) {
	s.mu.Lock()
	heap.Push(&s.queue, it)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the worker loop until ctx is cancelled. Run is itself meant to
// be called from exactly one goroutine; ScheduleTask/SchedulePeriodic may be
// called concurrently from any number of producers.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		empty := s.queue.Len() == 0
		s.mu.Unlock()

		if empty {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		s.mu.Lock()
		wait := time.Until(s.queue[0].at)
		s.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			case <-s.wake:
				timer.Stop()
				continue
			}
		}

		s.mu.Lock()
		if s.queue.Len() == 0 {
			s.mu.Unlock()
			continue
		}
		it := heap.Pop(&s.queue).(*item)
		firedAt := it.at
		if it.periodMs > 0 {
			it.at = time.Now().Add(time.Duration(it.periodMs) * time.Millisecond)
			heap.Push(&s.queue, it)
		}
		s.mu.Unlock()

		latency := time.Since(firedAt)
		if latency > TaskDelayThreshold {
			s.Warn("task dequeue latency %v exceeds threshold %v", latency, TaskDelayThreshold)
		}
		it.fn()
	}
}

// Len reports the number of tasks currently queued.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
