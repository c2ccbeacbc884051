//go:build linux

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

package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/carverauto/crchist/pkg/checksum"
	"github.com/carverauto/crchist/pkg/histogram"
	"github.com/carverauto/crchist/pkg/partition"
)

func TestRunReportsFaultOnTruncatedMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.bin")

	const size = 8 * 4096

	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)

	defer f.Close()

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	require.NoError(t, err)

	defer func() { _ = unix.Munmap(mem) }()

	require.NoError(t, os.Truncate(path, 0))

	w := New(mem, size, checksum.CRC16ARC, histogram.New())
	err = w.Run(context.Background(), partition.Assignment{Count: 1})
	require.ErrorIs(t, err, ErrInputFault)
}
