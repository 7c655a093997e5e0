// Package sampler implements the periodic task that polls the CO2 sensor and
// publishes new measurements into the shared store.
//
// Each activation walks Scheduled -> Polling -> {Idle | Updated | Errored}
// and back to Scheduled. Bus and checksum errors are logged and absorbed;
// the next activation is the retry.
//
// The sensor's data ready flag is polled, so a timestamp lags the actual
// measurement by at most one period.
package sampler

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-co2mon/clock"
	"github.com/arloliu/go-co2mon/internal/task"
	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/scd30"
	"github.com/arloliu/go-co2mon/store"
	"github.com/arloliu/go-co2mon/wire"
)

// DefaultPeriod is the polling period: 1_280_000 cycles of the 64 MHz
// reference counter.
const DefaultPeriod = 20 * time.Millisecond

// Sensor is the part of the SCD30 driver the sampler needs.
type Sensor interface {
	DataReady() (bool, error)
	ReadMeasurement() (scd30.SensorData, error)
}

var _ Sensor = (*scd30.Sensor)(nil)

// Outcome is the result of one activation.
type Outcome int

const (
	// Idle means the sensor had no new data.
	Idle Outcome = iota
	// Updated means a new measurement was written to the store.
	Updated
	// Errored means a bus or checksum error aborted the activation.
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Updated:
		return "updated"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Sampler is the sampling task and the only writer of the store. Each new
// measurement carries the id of the stored one plus one, so the first
// published measurement carries id 1.
type Sampler struct {
	sensor Sensor
	store  store.Writer
	clock  clock.Clock
	period time.Duration
	logger logger.Logger

	metrics Metrics
}

// New creates a sampler polling sensor every period and writing to w.
// A zero period selects DefaultPeriod; a nil logger the package default.
func New(sensor Sensor, w store.Writer, clk clock.Clock, period time.Duration, l logger.Logger) *Sampler {
	if period <= 0 {
		period = DefaultPeriod
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Sampler{
		sensor: sensor,
		store:  w,
		clock:  clk,
		period: period,
		logger: l.With("task", "sampler"),
	}
}

// Period returns the polling period.
func (s *Sampler) Period() time.Duration {
	return s.period
}

// LastID returns the id of the last published measurement, 0 before the first.
func (s *Sampler) LastID() uint32 {
	return s.store.LastID()
}

// Metrics returns the sampler counters.
func (s *Sampler) Metrics() *Metrics {
	return &s.metrics
}

// Start schedules the sampler on mgr.
func (s *Sampler) Start(mgr *task.Manager) error {
	return mgr.StartPeriodic("sampler", s.period, func(time.Time) bool {
		s.Poll()
		return true
	})
}

// Poll runs one activation and reports its outcome. Only Updated writes to
// the store and advances the id.
func (s *Sampler) Poll() Outcome {
	s.metrics.incPollCount()

	ready, err := s.sensor.DataReady()
	if err != nil {
		s.recordError(err)
		s.logger.Error("couldn't check sensor's data ready flag", "error", err)

		return Errored
	}

	if !ready {
		s.metrics.incNotReadyCount()
		return Idle
	}

	data, err := s.sensor.ReadMeasurement()
	if err != nil {
		s.recordError(err)
		s.logger.Error("couldn't read sensor data", "error", err)

		return Errored
	}
	timestamp := s.clock.Now()

	m := wire.Measurement{
		ID:        s.store.LastID() + 1,
		Timestamp: timestamp.Cycles(),
		CO2:       data.CO2,
	}
	s.store.Write(m)
	s.metrics.incUpdateCount()

	s.logger.Debug("measurement updated",
		"id", m.ID,
		"timestamp", m.Timestamp,
		"co2", data.CO2,
		"temperature", data.Temperature,
		"humidity", data.Humidity,
	)

	return Updated
}

func (s *Sampler) recordError(err error) {
	switch {
	case errors.Is(err, scd30.ErrInvalidChecksum):
		s.metrics.incChecksumErrCount()
	default:
		s.metrics.incBusErrCount()
	}
}
