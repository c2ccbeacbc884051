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

// Package histogram holds the shared counting table of 16-bit checksum values.
package histogram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

const (
	// Slots is the number of distinct 16-bit values.
	Slots = 1 << 16
	// CounterSize is the width in bytes of one counter.
	CounterSize = 8
	// TableBytes is the serialized size of a table.
	TableBytes = Slots * CounterSize
)

var (
	// ErrTableSize is returned when a backing region is not exactly TableBytes long.
	ErrTableSize = errors.New("counting table region has wrong size")
	// ErrTableAlignment is returned when a backing region is not 8-byte aligned.
	ErrTableAlignment = errors.New("counting table region is not 8-byte aligned")
)

// Table is a fixed array of Slots counters. The only mutation allowed while
// workers run is Inc; reads are meaningful once every writer has finished.
type Table struct {
	counts []uint64
}

// New allocates a zeroed table on the heap.
func New() *Table {
	return &Table{counts: make([]uint64, Slots)}
}

// FromBytes returns a table that aliases mem, typically a shared memory
// mapping. Counters are stored in host byte order, slot v at byte v*CounterSize.
// The contents of mem are left untouched.
func FromBytes(mem []byte) (*Table, error) {
	if len(mem) != TableBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrTableSize, len(mem), TableBytes)
	}

	base := unsafe.Pointer(unsafe.SliceData(mem))
	if uintptr(base)%CounterSize != 0 {
		return nil, ErrTableAlignment
	}

	return &Table{counts: unsafe.Slice((*uint64)(base), Slots)}, nil
}

// Inc atomically adds one to slot v.
func (t *Table) Inc(v uint16) {
	atomic.AddUint64(&t.counts[v], 1)
}

// Load atomically reads slot v.
func (t *Table) Load(v uint16) uint64 {
	return atomic.LoadUint64(&t.counts[v])
}

// Snapshot copies every slot into a new slice.
func (t *Table) Snapshot() []uint64 {
	out := make([]uint64, Slots)
	for i := range out {
		out[i] = atomic.LoadUint64(&t.counts[i])
	}

	return out
}

// Sum returns the total of all slots.
func (t *Table) Sum() uint64 {
	var total uint64
	for i := range t.counts {
		total += atomic.LoadUint64(&t.counts[i])
	}

	return total
}

// Distinct returns how many slots are non-zero.
func (t *Table) Distinct() int {
	n := 0

	for i := range t.counts {
		if atomic.LoadUint64(&t.counts[i]) != 0 {
			n++
		}
	}

	return n
}

// Reset zeroes every slot. It must not be called while workers are running.
func (t *Table) Reset() {
	clear(t.counts)
}

// Decode parses a serialized table written by a mapped Table on this host.
func Decode(b []byte) ([]uint64, error) {
	if len(b) != TableBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrTableSize, len(b), TableBytes)
	}

	out := make([]uint64, Slots)
	for i := range out {
		out[i] = binary.NativeEndian.Uint64(b[i*CounterSize:])
	}

	return out, nil
}
