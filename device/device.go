// Package device wires the CO2 monitor together: the sampling task polling
// an SCD30 on a two-wire bus, the shared measurement store and the command
// server answering the host on a serial link.
//
//	cfg, _ := device.NewConfig(device.WithSamplePeriod(20 * time.Millisecond))
//	dev := device.New(bus, port, cfg)
//	go dev.Run(ctx)
//	...
//	dev.Close()
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/arloliu/go-co2mon/internal/task"
	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/sampler"
	"github.com/arloliu/go-co2mon/scd30"
	"github.com/arloliu/go-co2mon/server"
	"github.com/arloliu/go-co2mon/store"
	"github.com/arloliu/go-co2mon/wire"
)

// ErrClosed is returned by Run on a closed device.
var ErrClosed = errors.New("device: closed")

// Device runs the sampling task and the command server.
type Device struct {
	cfg       *Config
	sensor    *scd30.Sensor
	transport io.ReadWriteCloser
	store     *store.Store
	sampler   *sampler.Sampler
	server    *server.Server
	logger    logger.Logger

	mu     sync.Mutex
	mgr    *task.Manager
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// New creates a device with the sensor on bus and the host on transport.
// A nil cfg selects the defaults of NewConfig.
func New(bus scd30.Bus, transport io.ReadWriteCloser, cfg *Config) *Device {
	if cfg == nil {
		cfg, _ = NewConfig()
	}

	sensor := scd30.New(bus)
	st := store.New()

	return &Device{
		cfg:       cfg,
		sensor:    sensor,
		transport: transport,
		store:     st,
		sampler:   sampler.New(sensor, st, cfg.clock, cfg.samplePeriod, cfg.logger),
		server:    server.New(transport, st, cfg.frameSize, cfg.logger),
		logger:    cfg.logger,
	}
}

// Store returns the measurement store shared by both tasks.
func (d *Device) Store() store.Reader {
	return d.store
}

// SamplerMetrics returns the sampling task counters.
func (d *Device) SamplerMetrics() *sampler.Metrics {
	return d.sampler.Metrics()
}

// ServerMetrics returns the command server counters.
func (d *Device) ServerMetrics() *server.Metrics {
	return d.server.Metrics()
}

// LastMeasurement returns the latest measurement, false before the first.
func (d *Device) LastMeasurement() (wire.Measurement, bool) {
	return d.store.Snapshot()
}

// Run reads the sensor firmware version, starts continuous measurement and
// runs both tasks until ctx is done, Close is called, the host link reaches
// EOF or a task fails. Measurement is stopped before Run returns.
//
// Run returns nil on a clean shutdown.
func (d *Device) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	mgr := task.NewManager(ctx, d.logger)
	d.mgr = mgr
	d.mu.Unlock()
	defer mgr.Stop()

	fw, err := d.sensor.FirmwareVersion()
	if err != nil {
		return fmt.Errorf("read sensor firmware version: %w", err)
	}
	d.logger.Info("sensor found", "firmware", fmt.Sprintf("%d.%d", fw[0], fw[1]))

	if err := d.sensor.StartContinuousMeasurement(d.cfg.ambientPressure); err != nil {
		return fmt.Errorf("start continuous measurement: %w", err)
	}
	d.logger.Info("continuous measurement started",
		"ambient_pressure", d.cfg.ambientPressure,
		"sample_period", d.cfg.samplePeriod,
		"cycle_frequency_mhz", d.cfg.cycleFrequencyMHz,
	)

	// a blocked serial read only returns once the link is closed
	context.AfterFunc(mgr.Context(), func() { _ = d.closeTransport() })

	if err := d.sampler.Start(mgr); err != nil {
		d.stopMeasurement()
		return err
	}

	err = mgr.Go("server", func(ctx context.Context) error {
		err := d.server.Serve(ctx)
		if err == nil {
			// the host link is gone, nothing left to serve
			mgr.Stop()
		}

		return err
	})
	if err != nil {
		mgr.Stop()
		_ = mgr.Wait()
		d.stopMeasurement()

		return err
	}

	err = mgr.Wait()
	d.stopMeasurement()

	if err != nil {
		return err
	}
	d.logger.Info("device stopped", "last_id", d.sampler.LastID())

	return nil
}

// Close stops the tasks and closes the host transport, which unblocks a
// pending read of the command server. It is safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	mgr := d.mgr
	d.mu.Unlock()

	if mgr != nil {
		mgr.Stop()
	}

	return d.closeTransport()
}

func (d *Device) closeTransport() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.transport.Close()
	})

	return d.closeErr
}

func (d *Device) stopMeasurement() {
	if err := d.sensor.StopContinuousMeasurement(); err != nil {
		d.logger.Warn("failed to stop continuous measurement", "error", err)
	}
}
