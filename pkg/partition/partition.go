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

// Package partition stripes an input of fixed-size blocks across workers.
//
// Worker i of n owns blocks i, i+n, i+2n, ... so every byte of the input is
// covered by exactly one block and no two workers share a block.
package partition

import (
	"errors"
	"fmt"
	"iter"
)

// DefaultBlockSize is the number of bytes checksummed as one unit.
const DefaultBlockSize int64 = 4096

var (
	// ErrInvalidAssignment is returned for an out-of-range worker index or count.
	ErrInvalidAssignment = errors.New("invalid work assignment")
	// ErrInvalidBlockSize is returned for a non-positive block size.
	ErrInvalidBlockSize = errors.New("block size must be positive")
)

// Assignment identifies one worker's share of the input.
type Assignment struct {
	Index int // zero-based worker index
	Count int // total number of workers
}

// Validate reports whether the assignment is usable.
func (a Assignment) Validate() error {
	if a.Count <= 0 || a.Index < 0 || a.Index >= a.Count {
		return fmt.Errorf("%w: index=%d count=%d", ErrInvalidAssignment, a.Index, a.Count)
	}

	return nil
}

// Block is a contiguous byte range [Offset, Offset+Length) of the input.
type Block struct {
	Offset int64
	Length int64
}

// End returns the exclusive end offset of the block.
func (b Block) End() int64 {
	return b.Offset + b.Length
}

// Blocks yields the blocks owned by a in increasing offset order. The final
// block of the input may be shorter than blockSize. Callers are expected to
// have validated a and blockSize; invalid values yield nothing.
func Blocks(a Assignment, blockSize, inputSize int64) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		if a.Validate() != nil || blockSize <= 0 {
			return
		}

		stride := int64(a.Count) * blockSize

		for off := int64(a.Index) * blockSize; off < inputSize; off += stride {
			if !yield(Block{Offset: off, Length: min(blockSize, inputSize-off)}) {
				return
			}

			// guard against wrap-around for inputs close to MaxInt64
			if off > inputSize-stride {
				return
			}
		}
	}
}

// TotalBlocks returns ceil(inputSize / blockSize).
func TotalBlocks(blockSize, inputSize int64) int64 {
	if blockSize <= 0 || inputSize <= 0 {
		return 0
	}

	return (inputSize + blockSize - 1) / blockSize
}

// BlocksFor returns how many blocks a owns.
func BlocksFor(a Assignment, blockSize, inputSize int64) int64 {
	if a.Validate() != nil {
		return 0
	}

	total := TotalBlocks(blockSize, inputSize)
	idx := int64(a.Index)

	if idx >= total {
		return 0
	}

	return (total-idx-1)/int64(a.Count) + 1
}
