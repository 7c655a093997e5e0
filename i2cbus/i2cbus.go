// Package i2cbus adapts periph.io I2C buses to scd30.Bus.
package i2cbus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/arloliu/go-co2mon/scd30"
)

// DefaultSpeed is the bus clock used with the SCD30 (standard mode).
const DefaultSpeed = 100 * physic.KiloHertz

// Bus implements scd30.Bus on a periph.io i2c.Bus. Writes and reads are
// issued as separate transactions since the SCD30 needs a stop condition
// between the command and the response.
type Bus struct {
	bus i2c.Bus
}

var _ scd30.Bus = (*Bus)(nil)

// New wraps an already opened periph.io bus.
func New(bus i2c.Bus) *Bus {
	return &Bus{bus: bus}
}

// Open initializes the host drivers and opens the named bus ("" selects the
// first available one), configured at DefaultSpeed.
func Open(name string) (*Bus, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("i2cbus: host init: %w", err)
	}

	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("i2cbus: open %q: %w", name, err)
	}

	if err := bc.SetSpeed(DefaultSpeed); err != nil {
		_ = bc.Close()
		return nil, nil, fmt.Errorf("i2cbus: set speed on %s: %w", bc, err)
	}

	return New(bc), bc.Close, nil
}

func (b *Bus) Write(addr uint16, w []byte) error {
	return b.bus.Tx(addr, w, nil)
}

func (b *Bus) Read(addr uint16, r []byte) error {
	return b.bus.Tx(addr, nil, r)
}

// String returns the name of the underlying bus.
func (b *Bus) String() string {
	return b.bus.String()
}
