// co2ctl queries a co2d device over a serial port.
//
//	co2ctl -serial /dev/ttyUSB0           interactive shell
//	co2ctl -serial /dev/ttyUSB0 get       single command
//
// Commands:
//
//	get                       print the last measurement
//	watch [COUNT] [INTERVAL]  poll COUNT times (default 10) every INTERVAL (default 2s)
//	elapsed                   time between the last two distinct measurements
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/arloliu/go-co2mon/client"
	"github.com/arloliu/go-co2mon/clock"
	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/serialport"
	"github.com/arloliu/go-co2mon/wire"
)

type session struct {
	client   *client.Client
	timeout  time.Duration
	cycleMHz uint32

	prev, last wire.Measurement
	seen       int
}

func main() {
	serialPath := flag.String("serial", "", "serial port of the device, e.g. /dev/ttyUSB0")
	baud := flag.Int("baud", serialport.DefaultBaudRate, "serial baud rate")
	timeout := flag.Duration("timeout", time.Second, "response timeout")
	cycleMHz := flag.Uint("cycle-mhz", clock.DefaultFrequencyMHz, "timestamp counter frequency of the device in MHz")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.NewSlog(level, false)

	if *serialPath == "" {
		fmt.Fprintln(os.Stderr, "missing -serial")
		flag.Usage()
		os.Exit(2)
	}
	if *cycleMHz == 0 || *cycleMHz > 1000 {
		fmt.Fprintln(os.Stderr, "-cycle-mhz out of range [1, 1000]")
		os.Exit(2)
	}

	// a read timeout lets the client observe the context between reads
	port, err := serialport.Open(*serialPath, serialport.PortOptions{
		BaudRate:    *baud,
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		log.Error("failed to open serial port", "error", err)
		os.Exit(1)
	}
	defer port.Close()

	s := &session{
		client:   client.New(port, log),
		timeout:  *timeout,
		cycleMHz: uint32(*cycleMHz),
	}

	shell := ishell.New()
	shell.SetPrompt("co2 > ")
	for _, cmd := range s.commands() {
		shell.AddCmd(cmd)
	}

	if flag.NArg() > 0 {
		if err := shell.Process(flag.Args()...); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		return
	}

	shell.Println("connected to", *serialPath)
	shell.Run()
}

func (s *session) commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name: "get",
			Help: "print the last measurement",
			Func: func(c *ishell.Context) {
				if err := s.get(c); err != nil {
					c.Err(err)
				}
			},
		},
		{
			Name:    "watch",
			Aliases: []string{"w"},
			Help:    "[COUNT] [INTERVAL] poll COUNT times every INTERVAL",
			Func: func(c *ishell.Context) {
				count, interval, err := parseWatchArgs(c.Args)
				if err != nil {
					c.Err(err)
					return
				}

				for i := range count {
					if i > 0 {
						time.Sleep(interval)
					}
					if err := s.get(c); err != nil {
						c.Err(err)
						return
					}
				}
			},
		},
		{
			Name: "elapsed",
			Help: "time between the last two distinct measurements",
			Func: func(c *ishell.Context) {
				if err := s.elapsed(c); err != nil {
					c.Err(err)
				}
			},
		},
	}
}

func (s *session) get(c *ishell.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	m, ok, err := s.client.GetLastMeasurement(ctx)
	if err != nil {
		return err
	}
	if !ok {
		c.Println("not ready")
		return nil
	}

	s.record(m)
	c.Printf("#%d  %.1f ppm  t=%s\n", m.ID, m.CO2, clock.Duration(m.Timestamp, s.cycleMHz).Round(time.Millisecond))

	return nil
}

func (s *session) elapsed(c *ishell.Context) error {
	if s.seen < 2 {
		return errors.New("need two distinct measurements, run get or watch first")
	}

	cycles := clock.Instant(s.last.Timestamp).CyclesSince(clock.Instant(s.prev.Timestamp))
	c.Printf("#%d -> #%d: %s (%d cycles)\n",
		s.prev.ID, s.last.ID, clock.Duration(cycles, s.cycleMHz).Round(time.Millisecond), cycles)

	return nil
}

func (s *session) record(m wire.Measurement) {
	if s.seen > 0 && m.ID == s.last.ID {
		return
	}
	s.prev, s.last = s.last, m
	s.seen++
}

func parseWatchArgs(args []string) (int, time.Duration, error) {
	count, interval := 10, 2*time.Second

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("invalid COUNT %q", args[0])
		}
		count = n
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return 0, 0, fmt.Errorf("invalid INTERVAL %q", args[1])
		}
		interval = d
	}

	return count, interval, nil
}
