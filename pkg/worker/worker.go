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

// Package worker checksums a worker's share of the input into the counting table.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/carverauto/crchist/pkg/checksum"
	"github.com/carverauto/crchist/pkg/histogram"
	"github.com/carverauto/crchist/pkg/partition"
)

var (
	// ErrInputFault is returned when the mapped input cannot be read, for
	// example because the backing file shrank after it was mapped.
	ErrInputFault = errors.New("input memory fault")
	// ErrInputTooShort is returned when the input buffer is smaller than the declared size.
	ErrInputTooShort = errors.New("input buffer shorter than declared size")
	errMissingTable  = errors.New("worker has no counting table")
	errMissingFunc   = errors.New("worker has no checksum function")
)

// Stats summarizes what one Run processed.
type Stats struct {
	Blocks int64
	Bytes  int64
}

// Worker processes blocks of a shared, read-only input. A single Worker value
// may be used by many goroutines concurrently: Run only reads its fields.
type Worker struct {
	Input     []byte
	Size      int64
	BlockSize int64
	Checksum  checksum.Func
	Table     *histogram.Table
}

// New returns a Worker over the first size bytes of input.
func New(input []byte, size int64, fn checksum.Func, table *histogram.Table) *Worker {
	return &Worker{
		Input:     input,
		Size:      size,
		BlockSize: partition.DefaultBlockSize,
		Checksum:  fn,
		Table:     table,
	}
}

// Run processes every block owned by a. It checks ctx between blocks and
// returns ctx.Err() if asked to stop early.
func (w *Worker) Run(ctx context.Context, a partition.Assignment) error {
	_, err := w.RunStats(ctx, a)

	return err
}

// RunStats is Run but also reports how much was processed before returning.
func (w *Worker) RunStats(ctx context.Context, a partition.Assignment) (stats Stats, err error) {
	if err := w.validate(a); err != nil {
		return stats, err
	}

	// A truncated backing file raises SIGBUS on access; surface it as an error.
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		fault, ok := r.(interface{ Addr() uintptr })
		if !ok {
			panic(r)
		}

		err = fmt.Errorf("%w: worker %d at block %d (addr %#x): %v", ErrInputFault, a.Index, stats.Blocks, fault.Addr(), r)
	}()

	for b := range partition.Blocks(a, w.BlockSize, w.Size) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		w.Table.Inc(w.Checksum(w.Input[b.Offset:b.End()]))

		stats.Blocks++
		stats.Bytes += b.Length
	}

	return stats, nil
}

func (w *Worker) validate(a partition.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if w.BlockSize <= 0 {
		return partition.ErrInvalidBlockSize
	}

	if w.Table == nil {
		return errMissingTable
	}

	if w.Checksum == nil {
		return errMissingFunc
	}

	if int64(len(w.Input)) < w.Size {
		return fmt.Errorf("%w: have %d bytes, size %d", ErrInputTooShort, len(w.Input), w.Size)
	}

	return nil
}
