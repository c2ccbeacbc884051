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

package checksum

const (
	polyARC   = 0xA001 // 0x8005 bit-reversed
	polyCCITT = 0x1021
)

type table [256]uint16

//nolint:gochecknoglobals // lookup tables are computed once and never mutated
var (
	arcTable   = makeReflectedTable(polyARC)
	ccittTable = makeTable(polyCCITT)
)

func makeReflectedTable(poly uint16) *table {
	t := new(table)

	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}

		t[i] = crc
	}

	return t
}

func makeTable(poly uint16) *table {
	t := new(table)

	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}

		t[i] = crc
	}

	return t
}

// CRC16ARC computes CRC-16/ARC over b (init 0, no final xor).
func CRC16ARC(b []byte) uint16 {
	var crc uint16

	for _, v := range b {
		crc = arcTable[byte(crc)^v] ^ (crc >> 8)
	}

	return crc
}

// CRC16CCITT computes CRC-16/CCITT-FALSE over b.
func CRC16CCITT(b []byte) uint16 {
	crc := uint16(0xFFFF)

	for _, v := range b {
		crc = ccittTable[byte(crc>>8)^v] ^ (crc << 8)
	}

	return crc
}
