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

// Package checksum provides the 16-bit block checksums used to build histograms.
package checksum

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Func maps a block of bytes to a 16-bit checksum. Implementations must be
// pure: the same input always yields the same value and no state is shared.
type Func func(b []byte) uint16

const (
	// AlgorithmCRC16ARC is CRC-16/ARC (a.k.a. CRC-16/IBM), reflected poly 0x8005.
	AlgorithmCRC16ARC = "crc16-arc"
	// AlgorithmCRC16CCITT is CRC-16/CCITT-FALSE, poly 0x1021, init 0xFFFF.
	AlgorithmCRC16CCITT = "crc16-ccitt"
	// AlgorithmInternet is the RFC 1071 one's-complement Internet checksum.
	AlgorithmInternet = "inet"

	// DefaultAlgorithm is used when no algorithm is configured.
	DefaultAlgorithm = AlgorithmCRC16ARC
)

// ErrUnknownAlgorithm is returned by Lookup for unregistered names.
var ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

//nolint:gochecknoglobals // immutable registry built at init
var registry = map[string]Func{
	AlgorithmCRC16ARC:   CRC16ARC,
	AlgorithmCRC16CCITT: CRC16CCITT,
	AlgorithmInternet:   Internet,
}

// Lookup resolves an algorithm name. The empty name selects DefaultAlgorithm.
func Lookup(name string) (Func, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultAlgorithm
	}

	fn, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownAlgorithm, name, strings.Join(Names(), ", "))
	}

	return fn, nil
}

// Names returns the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
