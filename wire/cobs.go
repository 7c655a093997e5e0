package wire

import "fmt"

// Delimiter terminates every frame.
const Delimiter byte = 0x00

// MaxEncodedLen returns the worst-case COBS body length for n input bytes,
// without the delimiter.
func MaxEncodedLen(n int) int {
	return n + n/254 + 1
}

// cobsEncode writes the COBS encoding of src to dst and returns the number
// of bytes written. dst must hold MaxEncodedLen(len(src)) bytes.
func cobsEncode(dst, src []byte) int {
	codeIdx, n := 0, 1
	code := byte(1)

	for _, b := range src {
		if b == 0 {
			dst[codeIdx] = code
			codeIdx, n, code = n, n+1, 1
			continue
		}

		dst[n] = b
		n++
		code++
		if code == 0xFF {
			dst[codeIdx] = code
			codeIdx, n, code = n, n+1, 1
		}
	}
	dst[codeIdx] = code

	return n
}

// cobsDecode writes the decoding of the COBS body src (without delimiter)
// to dst and returns the number of bytes written. It never writes past
// len(dst).
func cobsDecode(dst, src []byte) (int, error) {
	n := 0
	for i := 0; i < len(src); {
		code := int(src[i])
		if code == 0 {
			return 0, fmt.Errorf("%w: zero byte at offset %d", ErrCOBS, i)
		}
		i++

		end := i + code - 1
		if end > len(src) {
			return 0, fmt.Errorf("%w: group at offset %d overruns body", ErrCOBS, i-1)
		}

		for ; i < end; i++ {
			if src[i] == 0 {
				return 0, fmt.Errorf("%w: zero byte at offset %d", ErrCOBS, i)
			}
			if n >= len(dst) {
				return 0, ErrFrameTooLarge
			}
			dst[n] = src[i]
			n++
		}

		if code < 0xFF && i < len(src) {
			if n >= len(dst) {
				return 0, ErrFrameTooLarge
			}
			dst[n] = 0
			n++
		}
	}

	return n, nil
}
