package scd30

import (
	"errors"
	"fmt"
)

var (
	// ErrBusIO matches every *BusError via errors.Is.
	ErrBusIO = errors.New("scd30: bus i/o error")

	// ErrInvalidChecksum indicates that a response word failed CRC validation.
	ErrInvalidChecksum = errors.New("scd30: invalid checksum")
)

// BusError reports a failed bus transfer. Err is the error returned by the Bus.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("scd30: %s: bus i/o: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrBusIO.
func (e *BusError) Is(target error) bool {
	return target == ErrBusIO
}
