package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-co2mon/clock"
	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/sampler"
	"github.com/arloliu/go-co2mon/scd30"
	"github.com/arloliu/go-co2mon/wire"
)

// ErrConfigNil is returned when an option is applied to a nil Config.
var ErrConfigNil = errors.New("device: config is nil")

const (
	// MinSamplePeriod and MaxSamplePeriod bound the sensor polling period.
	// The sensor produces a measurement every 2 s at most.
	MinSamplePeriod = time.Millisecond
	MaxSamplePeriod = 2 * time.Second

	// MinFrameSize is the smallest receive buffer holding a framed request.
	MinFrameSize = 2
	// DefaultFrameSize is the largest frame body, the delimiter excluded.
	DefaultFrameSize = wire.MaxFrameSize - 1
)

// Config holds the device parameters.
type Config struct {
	// samplePeriod is the sensor polling period.
	// Defaults to 20 milliseconds.
	samplePeriod time.Duration

	// ambientPressure is the pressure in mbar sent with the start command,
	// in [700, 1400]. Zero disables pressure compensation.
	// Defaults to 1020 mbar.
	ambientPressure uint16

	// cycleFrequencyMHz is the frequency of the counter that timestamps
	// measurements. Defaults to 64 MHz.
	cycleFrequencyMHz uint32

	// frameSize bounds the body of a received request frame.
	// Defaults to 63 bytes.
	frameSize int

	// clock timestamps measurements. Defaults to a cycle counter running at
	// cycleFrequencyMHz.
	clock clock.Clock

	logger logger.Logger
}

// NewConfig creates a device configuration with defaults, then applies opts.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		samplePeriod:      sampler.DefaultPeriod,
		ambientPressure:   scd30.DefaultAmbientPressure,
		cycleFrequencyMHz: clock.DefaultFrequencyMHz,
		frameSize:         DefaultFrameSize,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.clock == nil {
		cfg.clock = clock.NewCycleCounter(cfg.cycleFrequencyMHz)
	}

	return cfg, nil
}

func (cfg *Config) SamplePeriod() time.Duration {
	return cfg.samplePeriod
}

func (cfg *Config) AmbientPressure() uint16 {
	return cfg.ambientPressure
}

func (cfg *Config) CycleFrequencyMHz() uint32 {
	return cfg.cycleFrequencyMHz
}

func (cfg *Config) FrameSize() int {
	return cfg.frameSize
}

func (cfg *Config) Clock() clock.Clock {
	return cfg.clock
}

func (cfg *Config) Logger() logger.Logger {
	return cfg.logger
}

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}

	return f(cfg)
}

// WithSamplePeriod sets the sensor polling period, between 1 ms and 2 s.
func WithSamplePeriod(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinSamplePeriod || d > MaxSamplePeriod {
			return fmt.Errorf("sample period %s out of range [%s, %s]", d, MinSamplePeriod, MaxSamplePeriod)
		}
		cfg.samplePeriod = d

		return nil
	})
}

// WithAmbientPressure sets the ambient pressure compensation in mbar.
// Zero disables compensation, other values must lie in [700, 1400].
func WithAmbientPressure(mbar uint16) Option {
	return optFunc(func(cfg *Config) error {
		if mbar != 0 && (mbar < scd30.MinAmbientPressure || mbar > scd30.MaxAmbientPressure) {
			return fmt.Errorf("ambient pressure %d out of range [%d, %d]",
				mbar, scd30.MinAmbientPressure, scd30.MaxAmbientPressure)
		}
		cfg.ambientPressure = mbar

		return nil
	})
}

// WithCycleFrequency sets the timestamp counter frequency in MHz, between
// 1 and 1000. It has no effect together with WithClock.
func WithCycleFrequency(mhz uint32) Option {
	return optFunc(func(cfg *Config) error {
		if mhz < 1 || mhz > 1000 {
			return fmt.Errorf("cycle frequency %d MHz out of range [1, 1000]", mhz)
		}
		cfg.cycleFrequencyMHz = mhz

		return nil
	})
}

// WithFrameSize sets the receive buffer size for request frames.
func WithFrameSize(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < MinFrameSize || n > DefaultFrameSize {
			return fmt.Errorf("frame size %d out of range [%d, %d]", n, MinFrameSize, DefaultFrameSize)
		}
		cfg.frameSize = n

		return nil
	})
}

// WithClock sets the clock timestamping measurements.
func WithClock(c clock.Clock) Option {
	return optFunc(func(cfg *Config) error {
		if c == nil {
			return errors.New("clock is nil")
		}
		cfg.clock = c

		return nil
	})
}

// WithLogger sets the logger of the device and its tasks.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
