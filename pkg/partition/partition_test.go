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

package partition

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(a Assignment, blockSize, inputSize int64) []Block {
	return slices.Collect(Blocks(a, blockSize, inputSize))
}

func TestBlocksCoverInputExactlyOnce(t *testing.T) {
	sizes := []int64{1, 7, 4095, 4096, 4097, 8192, 3*4096 + 1, 64*4096 - 3, 100 * 4096}
	blockSizes := []int64{1, 512, 4096}

	for _, blockSize := range blockSizes {
		for _, size := range sizes {
			if TotalBlocks(blockSize, size) > 4096 {
				continue
			}

			for workers := 1; workers <= 9; workers++ {
				owner := make([]int8, size)
				for i := range owner {
					owner[i] = -1
				}

				var blocks int64

				for w := 0; w < workers; w++ {
					prev := int64(-1)

					for b := range Blocks(Assignment{Index: w, Count: workers}, blockSize, size) {
						require.Greater(t, b.Offset, prev, "blocks must be in increasing offset order")
						require.Positive(t, b.Length)
						require.LessOrEqual(t, b.Length, blockSize)
						require.Zero(t, b.Offset%blockSize)
						require.Equal(t, int64(w), (b.Offset/blockSize)%int64(workers))

						prev = b.Offset
						blocks++

						for off := b.Offset; off < b.End(); off++ {
							if owner[off] != -1 {
								t.Fatalf("byte %d covered twice (size=%d workers=%d block=%d)", off, size, workers, blockSize)
							}

							owner[off] = int8(w)
						}
					}
				}

				for off, w := range owner {
					if w == -1 {
						t.Fatalf("byte %d not covered (size=%d workers=%d block=%d)", off, size, workers, blockSize)
					}
				}

				assert.Equal(t, TotalBlocks(blockSize, size), blocks)
			}
		}
	}
}

func TestBlocksShortInputGoesToFirstWorker(t *testing.T) {
	assert.Equal(t, []Block{{Offset: 0, Length: 100}}, collect(Assignment{Index: 0, Count: 4}, 4096, 100))

	for w := 1; w < 4; w++ {
		assert.Empty(t, collect(Assignment{Index: w, Count: 4}, 4096, 100))
	}
}

func TestBlocksInterleaving(t *testing.T) {
	got := collect(Assignment{Index: 1, Count: 3}, 10, 75)

	assert.Equal(t, []Block{
		{Offset: 10, Length: 10},
		{Offset: 40, Length: 10},
		{Offset: 70, Length: 5},
	}, got)
}

func TestBlocksStopsEarly(t *testing.T) {
	var seen int

	for range Blocks(Assignment{Index: 0, Count: 1}, 1, 1000) {
		seen++
		if seen == 3 {
			break
		}
	}

	assert.Equal(t, 3, seen)
}

func TestBlocksInvalidInputsYieldNothing(t *testing.T) {
	assert.Empty(t, collect(Assignment{Index: 0, Count: 0}, 4096, 4096))
	assert.Empty(t, collect(Assignment{Index: 2, Count: 2}, 4096, 4096))
	assert.Empty(t, collect(Assignment{Index: 0, Count: 1}, 0, 4096))
	assert.Empty(t, collect(Assignment{Index: 0, Count: 1}, 4096, 0))
}

func TestBlocksFor(t *testing.T) {
	for _, size := range []int64{1, 4096, 4097, 40960, 40961} {
		for workers := 1; workers <= 12; workers++ {
			var total int64

			for w := 0; w < workers; w++ {
				a := Assignment{Index: w, Count: workers}
				n := BlocksFor(a, 4096, size)
				assert.Equal(t, int64(len(collect(a, 4096, size))), n)
				total += n
			}

			assert.Equal(t, TotalBlocks(4096, size), total)
		}
	}
}

func TestAssignmentValidate(t *testing.T) {
	require.NoError(t, Assignment{Index: 0, Count: 1}.Validate())
	require.ErrorIs(t, Assignment{Index: -1, Count: 1}.Validate(), ErrInvalidAssignment)
	require.ErrorIs(t, Assignment{Index: 1, Count: 1}.Validate(), ErrInvalidAssignment)
	require.ErrorIs(t, Assignment{Index: 0, Count: 0}.Validate(), ErrInvalidAssignment)
}

func TestTotalBlocks(t *testing.T) {
	assert.Equal(t, int64(0), TotalBlocks(4096, 0))
	assert.Equal(t, int64(1), TotalBlocks(4096, 1))
	assert.Equal(t, int64(1), TotalBlocks(4096, 4096))
	assert.Equal(t, int64(2), TotalBlocks(4096, 4097))
	assert.Equal(t, int64(256), TotalBlocks(4096, 1<<20))
}
