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

//go:generate mockgen -destination=mock_runner.go -package=supervisor github.com/carverauto/crchist/pkg/supervisor Runner

// Package supervisor starts a fixed set of workers, watches them terminate and
// stops the survivors as soon as any of them fails.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/crchist/pkg/logger"
	"github.com/carverauto/crchist/pkg/partition"
)

var (
	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("worker count must be positive")
	// ErrSpawn wraps the reason a worker could not be started.
	ErrSpawn = errors.New("failed to spawn worker")
	// ErrWorkerPanic is recorded for a worker that terminated by panicking.
	ErrWorkerPanic = errors.New("worker panicked")
	// ErrRunFailed is returned when any worker failed or was never started.
	ErrRunFailed = errors.New("histogram run failed")
)

// Runner is the unit of work executed by each worker.
type Runner interface {
	Run(ctx context.Context, a partition.Assignment) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, a partition.Assignment) error

// Run calls f(ctx, a).
func (f RunnerFunc) Run(ctx context.Context, a partition.Assignment) error {
	return f(ctx, a)
}

// SpawnHook is consulted before each worker starts; an error is a spawn failure.
type SpawnHook func(index int) error

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log logger.Logger) Option {
	return func(s *Supervisor) {
		s.logger = log
	}
}

// WithSpawnHook installs a hook that runs before every worker is started.
func WithSpawnHook(hook SpawnHook) Option {
	return func(s *Supervisor) {
		s.spawnHook = hook
	}
}

// Supervisor owns the worker handles of one run.
type Supervisor struct {
	runner    Runner
	workers   int
	logger    logger.Logger
	spawnHook SpawnHook
	telemetry *telemetry
}

// New creates a Supervisor that will run workers copies of runner.
func New(runner Runner, workers int, opts ...Option) (*Supervisor, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}

	s := &Supervisor{
		runner:  runner,
		workers: workers,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.NewTestLogger()
	}

	s.telemetry = newTelemetry(s.logger)

	return s, nil
}

type exitEvent struct {
	index int
	err   error
}

// Run starts every worker, waits until each handle reaches a terminal state
// and reports the outcome. The first failure cancels the context shared by
// the workers and stops further spawning; Run still waits for every started
// worker. There is no timeout.
func (s *Supervisor) Run(ctx context.Context) (*Report, error) {
	started := time.Now()

	ctx, span := s.telemetry.tracer.Start(ctx, "supervisor.Run")
	defer span.End()

	span.SetAttributes(attribute.Int("crchist.workers", s.workers))

	workerCtx, terminate := context.WithCancel(ctx)
	defer terminate()

	// groupCtx is cancelled as soon as any worker returns an error.
	group, groupCtx := errgroup.WithContext(workerCtx)

	handles := make([]Handle, s.workers)
	events := make(chan exitEvent, s.workers)

	var (
		outstanding int
		terminated  bool
	)

	stopSurvivors := func(reason string, err error) {
		if terminated {
			return
		}

		terminated = true

		s.logger.Warn().Err(err).Msg(reason + ", terminating remaining workers")
		terminate()
	}

	for i := range handles {
		handles[i].Index = i
	}

	for i := range handles {
		if err := s.spawn(ctx, i); err != nil {
			handles[i].Err = fmt.Errorf("%w %d: %w", ErrSpawn, i, err)
			s.telemetry.spawnFailures.Add(ctx, 1)
			stopSurvivors("failed to spawn worker", handles[i].Err)

			break
		}

		if groupCtx.Err() != nil {
			s.logger.Debug().Int("worker", i).Msg("worker failed during startup, not starting the rest")

			break
		}

		handles[i].State = Running
		outstanding++

		index := i

		group.Go(func() error {
			err := s.invoke(groupCtx, index)
			events <- exitEvent{index: index, err: err}

			return err
		})
	}

	s.logger.Debug().Int("started", outstanding).Int("workers", s.workers).Msg("workers running")

	for ; outstanding > 0; outstanding-- {
		ev := <-events
		h := &handles[ev.index]

		if ev.err == nil {
			h.State = ExitedOK

			continue
		}

		h.State = ExitedFailed
		h.Err = ev.err

		s.telemetry.workerFailures.Add(ctx, 1, metric.WithAttributes(attribute.Int("crchist.worker", ev.index)))
		stopSurvivors("worker terminated unexpectedly", ev.err)
	}

	firstFailure := group.Wait()

	report := newReport(handles, time.Since(started))

	if err := report.Err(); err != nil {
		if firstFailure == nil {
			firstFailure = err
		}

		span.RecordError(firstFailure)
		span.SetStatus(codes.Error, "run failed")

		return report, err
	}

	s.logger.Debug().Dur("elapsed", report.Elapsed).Msg("all workers finished")

	return report, nil
}

func (s *Supervisor) spawn(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.spawnHook != nil {
		return s.spawnHook(index)
	}

	return nil
}

// invoke runs one worker and converts a panic into an abnormal termination.
func (s *Supervisor) invoke(ctx context.Context, index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: worker %d: %v\n%s", ErrWorkerPanic, index, r, debug.Stack())
		}
	}()

	return s.runner.Run(ctx, partition.Assignment{Index: index, Count: s.workers})
}
