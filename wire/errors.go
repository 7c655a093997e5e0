package wire

import (
	"errors"
	"fmt"
)

// ErrDecode is matched by every decoding failure.
var ErrDecode = errors.New("wire: decode error")

var (
	// ErrTruncated indicates a message body ended before all fields were read.
	ErrTruncated = fmt.Errorf("%w: truncated message", ErrDecode)

	// ErrUnknownTag indicates an enum tag outside the message catalogue.
	ErrUnknownTag = fmt.Errorf("%w: unknown tag", ErrDecode)

	// ErrTrailingBytes indicates bytes left over after a complete message.
	ErrTrailingBytes = fmt.Errorf("%w: trailing bytes", ErrDecode)

	// ErrVarint indicates an overlong or out of range varint.
	ErrVarint = fmt.Errorf("%w: invalid varint", ErrDecode)

	// ErrCOBS indicates a body that is not valid COBS.
	ErrCOBS = fmt.Errorf("%w: invalid cobs encoding", ErrDecode)
)

var (
	// ErrFrameTooLarge indicates a frame that does not fit the frame budget.
	ErrFrameTooLarge = errors.New("wire: frame exceeds size limit")

	// ErrFrameOverflow indicates that more bytes than the accumulator capacity
	// arrived before a delimiter. The partial frame is dropped.
	ErrFrameOverflow = errors.New("wire: frame accumulation overflow")
)
