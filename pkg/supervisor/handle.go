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
	"errors"
	"fmt"
	"time"
)

// State is the lifecycle state of one worker handle.
type State int

const (
	// NotStarted is the initial state; it is terminal when spawning failed or stopped.
	NotStarted State = iota
	// Running means the worker was started and has not been observed to exit.
	Running
	// ExitedOK means the worker processed all of its blocks.
	ExitedOK
	// ExitedFailed means the worker returned an error, panicked or was cancelled.
	ExitedFailed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case ExitedOK:
		return "exited_ok"
	case ExitedFailed:
		return "exited_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen from s once the
// supervisor has finished spawning.
func (s State) Terminal() bool {
	return s != Running
}

// Handle is the supervisor's record of one worker.
type Handle struct {
	Index int
	State State
	Err   error
}

// Report is the outcome of a supervised run.
type Report struct {
	Handles    []Handle
	Succeeded  int
	Failed     int
	NotStarted int
	Elapsed    time.Duration
}

func newReport(handles []Handle, elapsed time.Duration) *Report {
	r := &Report{Handles: handles, Elapsed: elapsed}

	for _, h := range handles {
		switch h.State {
		case ExitedOK:
			r.Succeeded++
		case ExitedFailed:
			r.Failed++
		case NotStarted:
			r.NotStarted++
		case Running:
		}
	}

	return r
}

// OK reports whether every worker exited cleanly.
func (r *Report) OK() bool {
	return r.Failed == 0 && r.NotStarted == 0
}

// Err returns nil for a clean run, otherwise ErrRunFailed joined with the
// errors recorded on individual handles.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}

	var errs []error

	for _, h := range r.Handles {
		if h.Err != nil {
			errs = append(errs, h.Err)
		}
	}

	return fmt.Errorf("%w: %d failed, %d not started: %w", ErrRunFailed, r.Failed, r.NotStarted, errors.Join(errs...))
}
