package websocket

// maskBytes XORs data in place with the repeating 4-byte maskKey,
// starting the key rotation at offset. offset lets a caller mask a
// payload that is delivered across several reads (spec.md §4.3's
// ReadCursor): each chunk continues the rotation where the previous
// chunk left off, rather than always starting at maskKey[0].
//
// Adapted from the teacher's maskBytesScalar: same 8-bytes-at-a-time
// uint64 XOR loop, generalized to start mid-rotation. The teacher also
// carries an AVX2 fast path (mask_amd64.go / mask_amd64.s) dispatched
// through golang.org/x/sys/cpu; no corresponding .s file exists in the
// retrieved pack, so only the portable scalar path is carried over here
// (see DESIGN.md).
func maskBytes(data []byte, maskKey [4]byte, offset int) {
	if len(data) == 0 {
		return
	}

	// Rotate the 4-byte key so data[0] lines up with maskKey[offset%4].
	var key [4]byte
	for i := range key {
		key[i] = maskKey[(offset+i)%4]
	}

	n := len(data)
	if n >= 8 {
		mask64 := uint64(key[0]) |
			uint64(key[1])<<8 |
			uint64(key[2])<<16 |
			uint64(key[3])<<24 |
			uint64(key[0])<<32 |
			uint64(key[1])<<40 |
			uint64(key[2])<<48 |
			uint64(key[3])<<56

		i := 0
		for ; i+8 <= n; i += 8 {
			val := uint64(data[i]) |
				uint64(data[i+1])<<8 |
				uint64(data[i+2])<<16 |
				uint64(data[i+3])<<24 |
				uint64(data[i+4])<<32 |
				uint64(data[i+5])<<40 |
				uint64(data[i+6])<<48 |
				uint64(data[i+7])<<56
			val ^= mask64

			data[i] = byte(val)
			data[i+1] = byte(val >> 8)
			data[i+2] = byte(val >> 16)
			data[i+3] = byte(val >> 24)
			data[i+4] = byte(val >> 32)
			data[i+5] = byte(val >> 40)
			data[i+6] = byte(val >> 48)
			data[i+7] = byte(val >> 56)
		}
		for ; i < n; i++ {
			data[i] ^= key[i%4]
		}
		return
	}

	for i := 0; i < n; i++ {
		data[i] ^= key[i%4]
	}
}
