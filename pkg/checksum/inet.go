package checksum

// fold32 folds a 32-bit partial sum to 16 bits and returns the 1's complement.
func fold32(sum uint32) uint16 {
	s := sum
	s = (s & 0xFFFF) + (s >> 16)
	s = (s & 0xFFFF) + (s >> 16)
	// #nosec G115 - Truncation is intentional for checksum calculation
	return ^uint16(s)
}

// sumBE16 returns the (unfolded) one's-complement sum of 16-bit big-endian
// words over b. An odd last byte is treated as the high-order byte.
func sumBE16(b []byte) uint32 {
	var sum uint32

	i := 0
	n := len(b)

	// Fold early so inputs of any length stay within the accumulator.
	for n >= 8 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
		sum += uint32(b[i+2])<<8 | uint32(b[i+3])
		sum += uint32(b[i+4])<<8 | uint32(b[i+5])
		sum += uint32(b[i+6])<<8 | uint32(b[i+7])
		i += 8
		n -= 8

		if sum >= 0x80000000 {
			sum = (sum & 0xFFFF) + (sum >> 16)
		}
	}

	for n >= 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
		i += 2
		n -= 2
	}

	if n == 1 {
		sum += uint32(b[i]) << 8
	}

	return sum
}

// Internet computes the RFC 1071 Internet checksum over b.
func Internet(b []byte) uint16 {
	return fold32(sumBE16(b))
}
