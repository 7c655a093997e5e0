package scd30

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoAck is returned by SimBus when a transfer targets another address or a
// read does not follow a query command.
var ErrNoAck = errors.New("scd30: simulated bus: no acknowledge")

// SimBus is a software SCD30 answering on a Bus. It backs tests and the
// simulation mode of the device daemon.
//
// By default the data ready flag is only raised through SetReading. With
// WithSimInterval the flag is raised automatically once the interval has
// elapsed since the previous measurement read, and Generate (when set)
// produces the next reading.
type SimBus struct {
	mu sync.Mutex

	firmware [2]byte
	reading  SensorData
	ready    bool
	running  bool
	pressure uint16

	interval time.Duration
	lastRead time.Time
	generate func() SensorData
	now      func() time.Time

	pending   []byte
	failNext  error
	corruptAt int // index into the next response to flip, -1 when disabled

	writes int
	reads  int
}

var _ Bus = (*SimBus)(nil)

// SimOption configures a SimBus.
type SimOption func(*SimBus)

// WithSimInterval makes the sensor raise data ready every interval.
func WithSimInterval(d time.Duration) SimOption {
	return func(b *SimBus) { b.interval = d }
}

// WithSimGenerator sets the function producing readings in interval mode.
func WithSimGenerator(fn func() SensorData) SimOption {
	return func(b *SimBus) { b.generate = fn }
}

// WithSimFirmware sets the reported firmware version.
func WithSimFirmware(major, minor byte) SimOption {
	return func(b *SimBus) { b.firmware = [2]byte{major, minor} }
}

// NewSimBus creates a simulated sensor reporting firmware 3.66.
func NewSimBus(opts ...SimOption) *SimBus {
	b := &SimBus{
		firmware:  [2]byte{3, 66},
		now:       time.Now,
		corruptAt: -1,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastRead = b.now()

	return b
}

// SetReading stores a reading and raises the data ready flag.
func (b *SimBus) SetReading(d SensorData) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reading = d
	b.ready = true
}

// FailNext makes the next transfer (write or read) fail with err.
func (b *SimBus) FailNext(err error) {
	b.mu.Lock()
	b.failNext = err
	b.mu.Unlock()
}

// CorruptNext flips every bit of byte idx in the next response.
func (b *SimBus) CorruptNext(idx int) {
	b.mu.Lock()
	b.corruptAt = idx
	b.mu.Unlock()
}

// Running reports whether continuous measurement is active.
func (b *SimBus) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.running
}

// AmbientPressure returns the last pressure sent with the start command.
func (b *SimBus) AmbientPressure() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pressure
}

// Transfers returns the number of writes and reads served.
func (b *SimBus) Transfers() (writes, reads int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.writes, b.reads
}

func (b *SimBus) Write(addr uint16, w []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writes++
	b.pending = nil
	if err := b.takeFailure(addr); err != nil {
		return err
	}
	if len(w) < 2 {
		return fmt.Errorf("%w: short command %X", ErrNoAck, w)
	}

	switch [2]byte{w[0], w[1]} {
	case cmdFirmwareVersion:
		b.pending = b.word(b.firmware[0], b.firmware[1])

	case cmdStartContinuous:
		if len(w) != 5 || CRC8(w[2:4]) != w[4] {
			return fmt.Errorf("%w: bad start argument %X", ErrNoAck, w)
		}
		b.pressure = binary.BigEndian.Uint16(w[2:4])
		b.running = true

	case cmdStopContinuous:
		b.running = false

	case cmdDataReady:
		b.pollInterval()
		var flag byte
		if b.ready {
			flag = 1
		}
		b.pending = b.word(0, flag)

	case cmdReadMeasurement:
		b.pending = make([]byte, measurementLen)
		encodeFloat(b.pending[0:6], b.reading.CO2)
		encodeFloat(b.pending[6:12], b.reading.Temperature)
		encodeFloat(b.pending[12:18], b.reading.Humidity)
		b.ready = false
		b.lastRead = b.now()

	default:
		return fmt.Errorf("%w: unknown command %X", ErrNoAck, w[:2])
	}

	return nil
}

func (b *SimBus) Read(addr uint16, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reads++
	if err := b.takeFailure(addr); err != nil {
		return err
	}
	if len(b.pending) != len(r) {
		return fmt.Errorf("%w: read of %d bytes, %d pending", ErrNoAck, len(r), len(b.pending))
	}

	copy(r, b.pending)
	if b.corruptAt >= 0 && b.corruptAt < len(r) {
		r[b.corruptAt] = ^r[b.corruptAt]
		b.corruptAt = -1
	}
	b.pending = nil

	return nil
}

func (b *SimBus) takeFailure(addr uint16) error {
	if addr != Address {
		return fmt.Errorf("%w: address 0x%02X", ErrNoAck, addr)
	}
	if err := b.failNext; err != nil {
		b.failNext = nil
		b.pending = nil
		return err
	}

	return nil
}

func (b *SimBus) pollInterval() {
	if b.interval <= 0 || !b.running || b.ready {
		return
	}
	if b.now().Sub(b.lastRead) < b.interval {
		return
	}
	if b.generate != nil {
		b.reading = b.generate()
	}
	b.ready = true
}

func (b *SimBus) word(hi, lo byte) []byte {
	return []byte{hi, lo, CRC8([]byte{hi, lo})}
}
