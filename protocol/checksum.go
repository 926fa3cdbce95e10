package protocol

// Checksum computes the XOR checksum the ROM verifies for FlashData and
// MemData payloads. It is placed in the header value field of the request.
func Checksum(data []byte) uint32 {
	sum := byte(ChecksumSeed)
	for _, b := range data {
		sum ^= b
	}
	return uint32(sum)
}
