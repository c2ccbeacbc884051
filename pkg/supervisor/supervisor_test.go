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

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/crchist/pkg/logger"
	"github.com/carverauto/crchist/pkg/partition"
)

var errBoom = errors.New("boom")

func blockUntilCancelled(ctx context.Context, _ partition.Assignment) error {
	<-ctx.Done()

	return ctx.Err()
}

func newSupervisor(t *testing.T, runner Runner, workers int, opts ...Option) *Supervisor {
	t.Helper()

	opts = append([]Option{WithLogger(logger.NewTestLogger())}, opts...)

	s, err := New(runner, workers, opts...)
	require.NoError(t, err)

	return s
}

func runWithDeadline(t *testing.T, s *Supervisor) (*Report, error) {
	t.Helper()

	type result struct {
		report *Report
		err    error
	}

	done := make(chan result, 1)

	go func() {
		report, err := s.Run(context.Background())
		done <- result{report, err}
	}()

	select {
	case r := <-done:
		return r.report, r.err
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not drain its workers")
		return nil, nil
	}
}

func assertAllTerminal(t *testing.T, report *Report) {
	t.Helper()

	for _, h := range report.Handles {
		assert.Truef(t, h.State.Terminal(), "worker %d left in state %s", h.Index, h.State)
	}
}

func TestRunAllWorkersSucceed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := NewMockRunner(ctrl)
	for i := 0; i < 4; i++ {
		runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: i, Count: 4}).Return(nil)
	}

	report, err := runWithDeadline(t, newSupervisor(t, runner, 4))
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Equal(t, 4, report.Succeeded)
	assertAllTerminal(t, report)

	for _, h := range report.Handles {
		assert.Equal(t, ExitedOK, h.State)
		assert.NoError(t, h.Err)
	}
}

func TestRunWorkerFailureTerminatesOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := NewMockRunner(ctrl)

	var running sync.WaitGroup
	running.Add(4)

	for i := 0; i < 4; i++ {
		call := runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: i, Count: 4})
		if i == 2 {
			call.DoAndReturn(func(context.Context, partition.Assignment) error {
				running.Done()
				running.Wait()

				return errBoom
			})
		} else {
			call.DoAndReturn(func(ctx context.Context, a partition.Assignment) error {
				running.Done()

				return blockUntilCancelled(ctx, a)
			})
		}
	}

	report, err := runWithDeadline(t, newSupervisor(t, runner, 4))
	require.ErrorIs(t, err, ErrRunFailed)
	require.ErrorIs(t, err, errBoom)

	assertAllTerminal(t, report)
	assert.Equal(t, 4, report.Failed)
	assert.ErrorIs(t, report.Handles[2].Err, errBoom)

	for _, i := range []int{0, 1, 3} {
		assert.Equal(t, ExitedFailed, report.Handles[i].State)
		assert.ErrorIs(t, report.Handles[i].Err, context.Canceled)
	}
}

func TestRunFastWorkersMayStillSucceedAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: 0, Count: 2}).Return(nil)
	runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: 1, Count: 2}).Return(errBoom)

	report, err := runWithDeadline(t, newSupervisor(t, runner, 2))
	require.ErrorIs(t, err, ErrRunFailed)

	assert.Equal(t, ExitedOK, report.Handles[0].State)
	assert.Equal(t, ExitedFailed, report.Handles[1].State)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
}

func TestRunSpawnFailureStopsSpawningAndDrains(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: 0, Count: 4}).DoAndReturn(blockUntilCancelled)
	runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: 1, Count: 4}).DoAndReturn(blockUntilCancelled)

	var attempts atomic.Int32

	hook := func(index int) error {
		attempts.Add(1)
		if index == 2 {
			return errBoom
		}

		return nil
	}

	report, err := runWithDeadline(t, newSupervisor(t, runner, 4, WithSpawnHook(hook)))
	require.ErrorIs(t, err, ErrRunFailed)
	require.ErrorIs(t, err, ErrSpawn)

	assert.Equal(t, int32(3), attempts.Load(), "no spawn attempts after the first failure")
	assertAllTerminal(t, report)

	assert.Equal(t, ExitedFailed, report.Handles[0].State)
	assert.Equal(t, ExitedFailed, report.Handles[1].State)
	assert.Equal(t, NotStarted, report.Handles[2].State)
	assert.ErrorIs(t, report.Handles[2].Err, errBoom)
	assert.Equal(t, NotStarted, report.Handles[3].State)
	assert.Equal(t, 3, report.Handles[3].Index)
	assert.NoError(t, report.Handles[3].Err)
	assert.Equal(t, 2, report.NotStarted)
}

func TestRunSpawnFailureOnFirstWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := NewMockRunner(ctrl)

	s := newSupervisor(t, runner, 3, WithSpawnHook(func(int) error { return errBoom }))

	report, err := runWithDeadline(t, s)
	require.ErrorIs(t, err, ErrSpawn)
	assert.Equal(t, 3, report.NotStarted)
}

func TestRunPanickingWorkerIsAbnormalTermination(t *testing.T) {
	var running sync.WaitGroup
	running.Add(3)

	runner := RunnerFunc(func(ctx context.Context, a partition.Assignment) error {
		running.Done()

		if a.Index == 1 {
			running.Wait()
			panic("worker crashed")
		}

		return blockUntilCancelled(ctx, a)
	})

	report, err := runWithDeadline(t, newSupervisor(t, runner, 3))
	require.ErrorIs(t, err, ErrWorkerPanic)

	assertAllTerminal(t, report)
	assert.Equal(t, 3, report.Failed)
	assert.Contains(t, report.Handles[1].Err.Error(), "worker crashed")
}

func TestRunWorkerFailureDuringStartupStopsSpawning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	observedCancel := make(chan struct{})

	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: 0, Count: 4}).Return(errBoom)
	runner.EXPECT().Run(gomock.Any(), partition.Assignment{Index: 1, Count: 4}).DoAndReturn(
		func(ctx context.Context, a partition.Assignment) error {
			err := blockUntilCancelled(ctx, a)
			close(observedCancel)

			return err
		})

	var attempts atomic.Int32

	hook := func(index int) error {
		attempts.Add(1)

		if index == 2 {
			<-observedCancel
		}

		return nil
	}

	report, err := runWithDeadline(t, newSupervisor(t, runner, 4, WithSpawnHook(hook)))
	require.ErrorIs(t, err, ErrRunFailed)
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrSpawn)

	assert.Equal(t, int32(3), attempts.Load())
	assertAllTerminal(t, report)

	assert.Equal(t, ExitedFailed, report.Handles[0].State)
	assert.Equal(t, ExitedFailed, report.Handles[1].State)
	assert.ErrorIs(t, report.Handles[1].Err, context.Canceled)

	for _, i := range []int{2, 3} {
		assert.Equal(t, NotStarted, report.Handles[i].State)
		assert.NoError(t, report.Handles[i].Err)
	}

	assert.Equal(t, 2, report.NotStarted)
}

func TestRunParentCancellationFailsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var running atomic.Int32

	runner := RunnerFunc(func(ctx context.Context, a partition.Assignment) error {
		if running.Add(1) == 2 {
			cancel()
		}

		return blockUntilCancelled(ctx, a)
	})

	s := newSupervisor(t, runner, 2)

	report, err := s.Run(ctx)
	require.ErrorIs(t, err, ErrRunFailed)
	require.ErrorIs(t, err, context.Canceled)
	assertAllTerminal(t, report)
}

func TestNewRejectsNonPositiveWorkers(t *testing.T) {
	_, err := New(RunnerFunc(blockUntilCancelled), 0)
	require.ErrorIs(t, err, ErrInvalidWorkers)

	_, err = New(RunnerFunc(blockUntilCancelled), -3)
	require.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "exited_ok", ExitedOK.String())
	assert.Equal(t, "exited_failed", ExitedFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
	assert.False(t, Running.Terminal())
}
