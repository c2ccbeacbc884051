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

// Package pipeline wires configuration, shared mappings, workers and the
// supervisor into one histogram run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/carverauto/crchist/pkg/checksum"
	"github.com/carverauto/crchist/pkg/config"
	"github.com/carverauto/crchist/pkg/logger"
	"github.com/carverauto/crchist/pkg/partition"
	"github.com/carverauto/crchist/pkg/shmem"
	"github.com/carverauto/crchist/pkg/supervisor"
	"github.com/carverauto/crchist/pkg/worker"
)

const instrumentationName = "github.com/carverauto/crchist/pkg/pipeline"

var errNilConfig = errors.New("pipeline: nil config")

// Result describes a finished run. It is returned alongside the error of a
// failed run as long as workers were started.
type Result struct {
	RunID     uuid.UUID
	Input     string
	Output    string
	Algorithm string
	InputSize int64
	Workers   int
	// Blocks is the number of blocks actually hashed into the table.
	Blocks int64
	Report *supervisor.Report
}

// Option customizes a run.
type Option func(*options)

type options struct {
	wrap      func(supervisor.Runner) supervisor.Runner
	spawnHook supervisor.SpawnHook
}

// WithRunnerWrapper decorates the runner every worker executes.
func WithRunnerWrapper(wrap func(supervisor.Runner) supervisor.Runner) Option {
	return func(o *options) {
		o.wrap = wrap
	}
}

// WithSpawnHook is passed through to the supervisor.
func WithSpawnHook(hook supervisor.SpawnHook) Option {
	return func(o *options) {
		o.spawnHook = hook
	}
}

// Run validates cfg, maps the input and output files and computes the
// histogram with the configured number of workers. The output file holds
// the counting table whether or not the run succeeded.
func Run(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Result, error) {
	if cfg == nil {
		return nil, errNilConfig
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fn, err := checksum.Lookup(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	workers, err := cfg.ResolveWorkers(ctx)
	if err != nil {
		return nil, err
	}

	size, err := cfg.InputSize()
	if err != nil {
		return nil, err
	}

	input, err := shmem.OpenInput(cfg.Input, size)
	if err != nil {
		return nil, err
	}
	defer closeLogged(log, "input", input.Close)

	output, err := shmem.CreateOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	defer closeLogged(log, "output", output.Close)

	result := &Result{
		RunID:     uuid.New(),
		Input:     cfg.Input,
		Output:    cfg.Output,
		Algorithm: algorithmName(cfg.Algorithm),
		InputSize: input.Size(),
		Workers:   workers,
	}

	runLog := logger.New(log.With().Str("run_id", result.RunID.String()).Logger())

	runLog.Info().
		Str("input", result.Input).
		Int64("size", result.InputSize).
		Int("workers", workers).
		Int64("blocks", partition.TotalBlocks(partition.DefaultBlockSize, result.InputSize)).
		Str("algorithm", result.Algorithm).
		Msg("Starting histogram run")

	w := worker.New(input.Bytes(), input.Size(), fn, output.Table())
	blocks := newBlockCounter(runLog)

	var runner supervisor.Runner = supervisor.RunnerFunc(func(ctx context.Context, a partition.Assignment) error {
		stats, err := w.RunStats(ctx, a)
		blocks.add(ctx, stats.Blocks)

		return err
	})

	if o.wrap != nil {
		runner = o.wrap(runner)
	}

	sup, err := supervisor.New(runner, workers,
		supervisor.WithLogger(runLog),
		supervisor.WithSpawnHook(o.spawnHook))
	if err != nil {
		return nil, err
	}

	report, runErr := sup.Run(ctx)

	result.Report = report
	result.Blocks = blocks.total.Load()

	if err := output.Sync(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		runLog.Error().Err(runErr).
			Int("failed", report.Failed).
			Int("not_started", report.NotStarted).
			Msg("Histogram run failed")

		return result, runErr
	}

	runLog.Info().
		Int64("blocks", result.Blocks).
		Dur("elapsed", report.Elapsed).
		Str("output", result.Output).
		Msg("Histogram run complete")

	return result, nil
}

func algorithmName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return checksum.DefaultAlgorithm
	}

	return name
}

func closeLogged(log logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn().Err(err).Str("mapping", what).Msg("Failed to release mapping")
	}
}

type blockCounter struct {
	total   atomic.Int64
	counter metric.Int64Counter
}

func newBlockCounter(log logger.Logger) *blockCounter {
	c, err := otel.Meter(instrumentationName).Int64Counter("crchist.blocks",
		metric.WithDescription("Blocks hashed into the counting table"),
		metric.WithUnit("{block}"))
	if err != nil {
		log.Debug().Err(err).Msg("block counter unavailable")

		c, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("crchist.blocks")
	}

	return &blockCounter{counter: c}
}

func (b *blockCounter) add(ctx context.Context, n int64) {
	if n == 0 {
		return
	}

	b.total.Add(n)
	b.counter.Add(context.WithoutCancel(ctx), n, metric.WithAttributes(attribute.String("crchist.component", "worker")))
}

// String renders a one-line summary for logs and the CLI.
func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}

	state := "ok"
	if r.Report != nil && !r.Report.OK() {
		state = "failed"
	}

	return fmt.Sprintf("run %s: %s %d bytes, %d workers, %d blocks, %s",
		r.RunID, r.Algorithm, r.InputSize, r.Workers, r.Blocks, state)
}
