/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package scheduler runs fixed-interval background tasks, one goroutine per
// task, so a slow task never delays another task's timer.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/carverauto/threatmesh/pkg/logger"
)

var (
	errTaskName     = errors.New("task name is required")
	errTaskInterval = errors.New("task interval must be positive")
	errTaskFunc     = errors.New("task function is required")
	errAlreadyRun   = errors.New("scheduler already started")
	errTaskPanicked = errors.New("task panicked")
)

// TaskFunc is one execution of a periodic task.
type TaskFunc func(ctx context.Context) error

type Task struct {
	Name     string
	Interval time.Duration
	// Immediate runs the task once as soon as the scheduler starts.
	Immediate bool
	Run       TaskFunc
}

// Observer receives the outcome of every task execution.
type Observer func(task string, duration time.Duration, err error)

type Scheduler struct {
	clock    Clock
	logger   logger.Logger
	observer Observer

	mu      sync.Mutex
	tasks   []Task
	started bool
	wg      sync.WaitGroup
}

func New(clock Clock, log logger.Logger) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Scheduler{clock: clock, logger: log}
}

// SetObserver installs a callback invoked after every task execution.
func (s *Scheduler) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observer = o
}

// Add registers a task. Tasks must be added before Start.
func (s *Scheduler) Add(task Task) error {
	if task.Name == "" {
		return errTaskName
	}

	if task.Interval <= 0 {
		return fmt.Errorf("%w: %s", errTaskInterval, task.Name)
	}

	if task.Run == nil {
		return fmt.Errorf("%w: %s", errTaskFunc, task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyRun
	}

	s.tasks = append(s.tasks, task)

	return nil
}

// Start launches every registered task. Tasks stop when ctx is cancelled;
// Wait blocks until they have all returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyRun
	}

	s.started = true

	for _, task := range s.tasks {
		s.wg.Add(1)

		go s.loop(ctx, task)
	}

	return nil
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(task.Interval)
	defer ticker.Stop()

	s.logger.Info().
		Str("task", task.Name).
		Dur("interval", task.Interval).
		Msg("Task scheduled")

	if task.Immediate {
		s.execute(ctx, task)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Str("task", task.Name).Msg("Task stopped")

			return
		case <-ticker.Chan():
			s.execute(ctx, task)
		}
	}
}

// execute runs a single iteration. Errors are logged and panics recovered;
// the next tick runs regardless.
func (s *Scheduler) execute(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}

	start := s.clock.Now()
	err := runSafely(ctx, task.Run)
	elapsed := s.clock.Now().Sub(start)

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().
			Err(err).
			Str("task", task.Name).
			Dur("duration", elapsed).
			Msg("Task iteration failed")
	}

	s.mu.Lock()
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(task.Name, elapsed, err)
	}
}

func runSafely(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", errTaskPanicked, r, debug.Stack())
		}
	}()

	return fn(ctx)
}
