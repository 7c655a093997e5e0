package scd30

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Address is the fixed 7-bit I2C address of the SCD30.
const Address uint16 = 0x61

// DefaultAmbientPressure is the ambient pressure compensation, in mbar, sent
// with StartContinuousMeasurement when none is configured.
const DefaultAmbientPressure uint16 = 1020

// Ambient pressure range accepted by the sensor, in mbar. Zero disables
// compensation.
const (
	MinAmbientPressure uint16 = 700
	MaxAmbientPressure uint16 = 1400
)

// Command words.
var (
	cmdFirmwareVersion = [2]byte{0xD1, 0x00}
	cmdStartContinuous = [2]byte{0x00, 0x10}
	cmdStopContinuous  = [2]byte{0x01, 0x04}
	cmdDataReady       = [2]byte{0x02, 0x02}
	cmdReadMeasurement = [2]byte{0x03, 0x00}
)

const measurementLen = 18

// Bus is a two-wire bus able to address a peripheral.
//
// Implementations bound every transfer with their own timeout and report
// failures as errors; Read fills r completely or fails.
type Bus interface {
	Write(addr uint16, w []byte) error
	Read(addr uint16, r []byte) error
}

// SensorData is one decoded measurement of the sensor.
type SensorData struct {
	// CO2 concentration in ppm.
	CO2 float32
	// Temperature in degrees Celsius.
	Temperature float32
	// Humidity in % relative humidity.
	Humidity float32
}

// Sensor drives an SCD30 on a Bus. It is not goroutine-safe; a single task
// must own it.
type Sensor struct {
	bus  Bus
	addr uint16
}

// New creates a Sensor on bus at Address.
func New(bus Bus) *Sensor {
	return &Sensor{bus: bus, addr: Address}
}

// Bus returns the underlying bus.
func (s *Sensor) Bus() Bus {
	return s.bus
}

// FirmwareVersion returns the [major, minor] firmware version.
func (s *Sensor) FirmwareVersion() ([2]byte, error) {
	var rd [3]byte
	if err := s.query("firmware version", cmdFirmwareVersion[:], rd[:]); err != nil {
		return [2]byte{}, err
	}

	if !checkWord(rd[:]) {
		return [2]byte{}, fmt.Errorf("%w: firmware version", ErrInvalidChecksum)
	}

	return [2]byte{rd[0], rd[1]}, nil
}

// StartContinuousMeasurement starts periodic measurement with the given
// ambient pressure compensation in mbar. The argument is sent big-endian
// followed by its CRC.
func (s *Sensor) StartContinuousMeasurement(ambientPressure uint16) error {
	var cmd [5]byte
	copy(cmd[:2], cmdStartContinuous[:])
	binary.BigEndian.PutUint16(cmd[2:4], ambientPressure)
	cmd[4] = CRC8(cmd[2:4])

	if err := s.bus.Write(s.addr, cmd[:]); err != nil {
		return &BusError{Op: "start continuous measurement", Err: err}
	}

	return nil
}

// StopContinuousMeasurement stops periodic measurement.
func (s *Sensor) StopContinuousMeasurement() error {
	if err := s.bus.Write(s.addr, cmdStopContinuous[:]); err != nil {
		return &BusError{Op: "stop continuous measurement", Err: err}
	}

	return nil
}

// DataReady reports whether a new measurement can be read.
func (s *Sensor) DataReady() (bool, error) {
	var rd [3]byte
	if err := s.query("data ready", cmdDataReady[:], rd[:]); err != nil {
		return false, err
	}

	if !checkWord(rd[:]) {
		return false, fmt.Errorf("%w: data ready", ErrInvalidChecksum)
	}

	return binary.BigEndian.Uint16(rd[:2]) == 1, nil
}

// ReadMeasurement reads and decodes the latest measurement. All six CRC
// bytes are validated before any value is returned.
func (s *Sensor) ReadMeasurement() (SensorData, error) {
	var rd [measurementLen]byte
	if err := s.query("read measurement", cmdReadMeasurement[:], rd[:]); err != nil {
		return SensorData{}, err
	}

	for off := 0; off < measurementLen; off += 3 {
		if !checkWord(rd[off : off+3]) {
			return SensorData{}, fmt.Errorf("%w: read measurement at offset %d", ErrInvalidChecksum, off+2)
		}
	}

	return SensorData{
		CO2:         decodeFloat(rd[0:6]),
		Temperature: decodeFloat(rd[6:12]),
		Humidity:    decodeFloat(rd[12:18]),
	}, nil
}

func (s *Sensor) query(op string, cmd []byte, rd []byte) error {
	if err := s.bus.Write(s.addr, cmd); err != nil {
		return &BusError{Op: op, Err: err}
	}
	if err := s.bus.Read(s.addr, rd); err != nil {
		return &BusError{Op: op, Err: err}
	}

	return nil
}

// decodeFloat builds a float from a 6-byte group, skipping CRC bytes 2 and 5.
func decodeFloat(group []byte) float32 {
	bits := uint32(group[0])<<24 | uint32(group[1])<<16 | uint32(group[3])<<8 | uint32(group[4])
	return math.Float32frombits(bits)
}

// encodeFloat is the inverse of decodeFloat, used by the simulated sensor.
func encodeFloat(dst []byte, v float32) {
	bits := math.Float32bits(v)
	dst[0], dst[1] = byte(bits>>24), byte(bits>>16)
	dst[2] = CRC8(dst[0:2])
	dst[3], dst[4] = byte(bits>>8), byte(bits)
	dst[5] = CRC8(dst[3:5])
}
