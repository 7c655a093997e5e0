package wire

// Accumulator rebuilds delimited frames from a byte stream using a fixed
// buffer. It never grows.
//
// When more than Cap bytes arrive before a delimiter, Feed reports
// ErrFrameOverflow once, then drops every byte up to and including the next
// delimiter so the stream resynchronizes on the following frame.
type Accumulator struct {
	buf       []byte
	n         int
	resyncing bool
}

// NewAccumulator creates an accumulator holding up to capacity body bytes.
// A non-positive capacity selects MaxFrameSize.
func NewAccumulator(capacity int) *Accumulator {
	if capacity <= 0 {
		capacity = MaxFrameSize
	}

	return &Accumulator{buf: make([]byte, capacity)}
}

// Cap returns the accumulator capacity.
func (a *Accumulator) Cap() int {
	return len(a.buf)
}

// Len returns the number of bytes of the frame in progress.
func (a *Accumulator) Len() int {
	return a.n
}

// Resyncing reports whether bytes are being dropped after an overflow.
func (a *Accumulator) Resyncing() bool {
	return a.resyncing
}

// Feed consumes one byte. It returns a non-nil frame body (without the
// delimiter) when b completes a frame; the slice is only valid until the next
// call to Feed. The buffer is cleared after every delimiter.
func (a *Accumulator) Feed(b byte) ([]byte, error) {
	if b == Delimiter {
		if a.resyncing {
			a.resyncing = false
			return nil, nil
		}
		frame := a.buf[:a.n:a.n]
		a.n = 0

		return frame, nil
	}

	if a.resyncing {
		return nil, nil
	}

	if a.n == len(a.buf) {
		a.n = 0
		a.resyncing = true

		return nil, ErrFrameOverflow
	}

	a.buf[a.n] = b
	a.n++

	return nil, nil
}

// Reset discards the frame in progress and any resync state.
func (a *Accumulator) Reset() {
	a.n = 0
	a.resyncing = false
}
