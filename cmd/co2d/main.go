// co2d samples an SCD30 CO2 sensor on an I2C bus and answers measurement
// queries from a host on a serial port.
//
//	co2d -i2c /dev/i2c-1 -serial /dev/ttyS0 -baud 115200 -period 20ms
//
// With -simulate the sensor is replaced by a software model producing a
// reading every 2 s, which is useful to exercise a host against a real serial
// link without the hardware.
//
// Setting ENV=development switches logging to a colored console output.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/go-co2mon/clock"
	"github.com/arloliu/go-co2mon/device"
	"github.com/arloliu/go-co2mon/i2cbus"
	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/sampler"
	"github.com/arloliu/go-co2mon/scd30"
	"github.com/arloliu/go-co2mon/serialport"
)

var log logger.Logger

func main() {
	i2cName := flag.String("i2c", "", "I2C bus name, e.g. /dev/i2c-1 or 1 (empty selects the first bus)")
	serialPath := flag.String("serial", "", "serial port of the host link, e.g. /dev/ttyS0")
	baud := flag.Int("baud", serialport.DefaultBaudRate, "serial baud rate")
	period := flag.Duration("period", sampler.DefaultPeriod, "sensor polling period")
	pressure := flag.Uint("pressure", uint(scd30.DefaultAmbientPressure), "ambient pressure in mbar, 0 disables compensation")
	cycleMHz := flag.Uint("cycle-mhz", clock.DefaultFrequencyMHz, "timestamp counter frequency in MHz")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	simulate := flag.Bool("simulate", false, "use a simulated sensor instead of the I2C bus")
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log = logger.NewSlog(level, false)
	logger.SetLogger(log)

	if *serialPath == "" {
		log.Error("missing -serial")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*i2cName, *serialPath, *baud, *period, *pressure, *cycleMHz, *simulate); err != nil {
		log.Error("co2d failed", "error", err)
		os.Exit(1)
	}
}

func run(i2cName, serialPath string, baud int, period time.Duration, pressure, cycleMHz uint, simulate bool) error {
	if pressure > 0xFFFF {
		return fmt.Errorf("ambient pressure %d out of range", pressure)
	}
	if cycleMHz > 1000 {
		return fmt.Errorf("cycle frequency %d MHz out of range", cycleMHz)
	}

	cfg, err := device.NewConfig(
		device.WithSamplePeriod(period),
		device.WithAmbientPressure(uint16(pressure)),
		device.WithCycleFrequency(uint32(cycleMHz)),
		device.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var bus scd30.Bus
	if simulate {
		bus = newSimulatedSensor()
		log.Info("using simulated sensor")
	} else {
		b, closeBus, err := i2cbus.Open(i2cName)
		if err != nil {
			return err
		}
		defer closeBus()

		bus = b
		log.Info("i2c bus opened", "bus", b.String())
	}

	port, err := serialport.Open(serialPath, serialport.PortOptions{BaudRate: baud})
	if err != nil {
		return err
	}
	log.Info("serial port opened", "port", serialPath, "baud", baud)

	dev := device.New(bus, port, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- dev.Run(ctx) }()

	exitSig := make(chan os.Signal, 1)
	signal.Notify(exitSig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-exitSig:
		log.Info("exit signal received", "signal", sig.String())
	case err := <-runErr:
		_ = dev.Close()
		return err
	}

	_ = dev.Close()
	cancel()
	err = <-runErr

	m := dev.SamplerMetrics()
	log.Info("shutdown finished",
		"polls", m.PollCount.Load(),
		"updates", m.UpdateCount.Load(),
		"bus_errors", m.BusErrCount.Load(),
		"checksum_errors", m.ChecksumErrCount.Load(),
		"responses", dev.ServerMetrics().ResponseSendCount.Load(),
	)

	return err
}

// newSimulatedSensor returns a sensor drifting around outdoor CO2 levels.
func newSimulatedSensor() *scd30.SimBus {
	co2 := float32(420)

	return scd30.NewSimBus(
		scd30.WithSimInterval(2*time.Second),
		scd30.WithSimGenerator(func() scd30.SensorData {
			co2 += float32(rand.NormFloat64() * 5)
			co2 = max(co2, 380)

			return scd30.SensorData{
				CO2:         co2,
				Temperature: 21 + float32(rand.NormFloat64()*0.2),
				Humidity:    45 + float32(rand.NormFloat64()),
			}
		}),
	)
}
