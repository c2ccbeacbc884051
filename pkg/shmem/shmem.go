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

// Package shmem maps the histogram input read-only and the counting table
// read-write so every worker shares the same pages.
package shmem

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/carverauto/crchist/pkg/histogram"
)

const outputFileMode = 0o644

var (
	// ErrZeroSize is returned when the input size cannot be determined from
	// the file. Block devices report zero and need an explicit size.
	ErrZeroSize = errors.New("input reports zero size; pass an explicit size")
	// ErrNegativeSize is returned for a negative explicit size.
	ErrNegativeSize = errors.New("input size must not be negative")
	// ErrTooLarge is returned when the input cannot be addressed in one mapping.
	ErrTooLarge = errors.New("input too large to map")
	// ErrUnsupported is returned on platforms without mmap support.
	ErrUnsupported = errors.New("shared memory mapping not supported on this platform")
)

// Input is a read-only shared mapping of the file being checksummed.
type Input struct {
	path string
	file *os.File
	data []byte
}

// Path returns the mapped file name.
func (in *Input) Path() string { return in.path }

// Bytes returns the mapped region. It must not be written to.
func (in *Input) Bytes() []byte { return in.data }

// Size returns the mapped length in bytes.
func (in *Input) Size() int64 { return int64(len(in.data)) }

// Output is a read-write shared mapping of the counting table file.
type Output struct {
	path  string
	file  *os.File
	data  []byte
	table *histogram.Table
}

// Path returns the mapped file name.
func (o *Output) Path() string { return o.path }

// Table returns the counting table view over the mapping.
func (o *Output) Table() *histogram.Table { return o.table }

// OpenInput opens path read-only and maps size bytes of it. A size of zero
// means "use the size reported by fstat".
func OpenInput(path string, size int64) (*Input, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSize, size)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open(%s): %w", path, err)
	}

	if size == 0 {
		size, err = statSize(file)
		if err != nil {
			file.Close()

			return nil, err
		}
	}

	if size > math.MaxInt {
		file.Close()

		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, size)
	}

	data, err := mapInput(file, int(size))
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("mmap(%s, %d): %w", path, size, err)
	}

	return &Input{path: path, file: file, data: data}, nil
}

func statSize(file *os.File) (int64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat(%s): %w", file.Name(), err)
	}

	if info.Size() == 0 {
		return 0, fmt.Errorf("stat(%s): %w", file.Name(), ErrZeroSize)
	}

	return info.Size(), nil
}

// CreateOutput creates or opens path, sizes it to exactly one counting table,
// maps it shared read-write and zeroes it.
func CreateOutput(path string) (*Output, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, outputFileMode)
	if err != nil {
		return nil, fmt.Errorf("open(%s): %w", path, err)
	}

	if err := file.Truncate(histogram.TableBytes); err != nil {
		file.Close()

		return nil, fmt.Errorf("truncate(%s): %w", path, err)
	}

	data, err := mapOutput(file, histogram.TableBytes)
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("mmap(%s, %d): %w", path, histogram.TableBytes, err)
	}

	clear(data)

	table, err := histogram.FromBytes(data)
	if err != nil {
		_ = unmap(data)
		file.Close()

		return nil, err
	}

	return &Output{path: path, file: file, data: data, table: table}, nil
}

// Close unmaps the input and closes its file.
func (in *Input) Close() error {
	if in == nil || in.file == nil {
		return nil
	}

	err := errors.Join(unmap(in.data), in.file.Close())
	in.data, in.file = nil, nil

	return err
}

// Sync flushes the mapped table to the file.
func (o *Output) Sync() error {
	if o == nil || o.data == nil {
		return nil
	}

	if err := syncMapping(o.data); err != nil {
		return fmt.Errorf("msync(%s): %w", o.path, err)
	}

	return nil
}

// Close flushes, unmaps and closes the output. The table must not be used afterwards.
func (o *Output) Close() error {
	if o == nil || o.file == nil {
		return nil
	}

	err := errors.Join(o.Sync(), unmap(o.data), o.file.Close())
	o.data, o.file, o.table = nil, nil, nil

	return err
}
