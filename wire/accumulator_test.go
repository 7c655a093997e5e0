package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, a *Accumulator, data []byte) (frames [][]byte, overflows int) {
	t.Helper()

	for _, b := range data {
		frame, err := a.Feed(b)
		if err != nil {
			require.ErrorIs(t, err, ErrFrameOverflow)
			overflows++
			continue
		}
		if frame != nil {
			frames = append(frames, bytes.Clone(frame))
		}
	}

	return frames, overflows
}

func TestAccumulator_SplitsFrames(t *testing.T) {
	a := NewAccumulator(0)
	assert.Equal(t, MaxFrameSize, a.Cap())

	frames, overflows := feedAll(t, a, []byte{0x01, 0x01, 0x00, 0x02, 0x05, 0x00, 0x00})
	assert.Zero(t, overflows)
	assert.Equal(t, [][]byte{{0x01, 0x01}, {0x02, 0x05}, {}}, frames)
	assert.Zero(t, a.Len())
}

func TestAccumulator_OverflowResyncs(t *testing.T) {
	a := NewAccumulator(4)

	input := []byte{1, 2, 3, 4, 5, 6, 7, 0, 0x01, 0x01, 0x00}
	frames, overflows := feedAll(t, a, input)

	assert.Equal(t, 1, overflows, "overflow reported once per oversized frame")
	assert.Equal(t, [][]byte{{0x01, 0x01}}, frames, "the next frame is delivered intact")
	assert.False(t, a.Resyncing())
}

func TestAccumulator_ExactCapacity(t *testing.T) {
	a := NewAccumulator(3)
	frames, overflows := feedAll(t, a, []byte{1, 2, 3, 0})
	assert.Zero(t, overflows)
	assert.Equal(t, [][]byte{{1, 2, 3}}, frames)
}

func TestAccumulator_Reset(t *testing.T) {
	a := NewAccumulator(2)
	_, _ = feedAll(t, a, []byte{1, 2, 3})
	require.True(t, a.Resyncing())

	a.Reset()
	frames, _ := feedAll(t, a, []byte{9, 0})
	assert.Equal(t, [][]byte{{9}}, frames)
}
