//go:build linux || darwin

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

package shmem

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapInput(file *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	// advisory only
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return data, nil
}

func mapOutput(file *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func syncMapping(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

func unmap(data []byte) error {
	if data == nil {
		return nil
	}

	return unix.Munmap(data)
}
