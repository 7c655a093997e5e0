package scd30

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBus struct {
	mock.Mock
}

var _ Bus = (*mockBus)(nil)

func (m *mockBus) Write(addr uint16, w []byte) error {
	args := m.Called(addr, w)
	return args.Error(0)
}

func (m *mockBus) Read(addr uint16, r []byte) error {
	args := m.Called(addr, r)
	return args.Error(0)
}

func (m *mockBus) expectWrite(cmd ...byte) {
	m.On("Write", Address, cmd).Return(nil).Once()
}

func (m *mockBus) expectRead(resp ...byte) {
	m.On("Read", Address, mock.AnythingOfType("[]uint8")).
		Run(func(args mock.Arguments) {
			copy(args.Get(1).([]byte), resp)
		}).
		Return(nil).Once()
}

// datasheetMeasurement is the example read-measurement response of the SCD30
// interface description: 439.1 ppm, 27.2 °C, 48.8 %RH.
var datasheetMeasurement = []byte{
	0x43, 0xDB, 0xCB, 0x8C, 0x2E, 0x8F,
	0x41, 0xD9, 0x70, 0xE7, 0xFF, 0xF5,
	0x42, 0x43, 0xBF, 0x3A, 0x1B, 0x74,
}

func TestSensor_FirmwareVersion(t *testing.T) {
	bus := &mockBus{}
	bus.expectWrite(0xD1, 0x00)
	bus.expectRead(0x03, 0x42, 0xF3)

	version, err := New(bus).FirmwareVersion()
	require.NoError(t, err)
	assert.Equal(t, [2]byte{3, 66}, version)
	bus.AssertExpectations(t)
}

func TestSensor_FirmwareVersion_BadCRC(t *testing.T) {
	bus := &mockBus{}
	bus.expectWrite(0xD1, 0x00)
	bus.expectRead(0x03, 0x42, ^byte(0xF3))

	_, err := New(bus).FirmwareVersion()
	require.ErrorIs(t, err, ErrInvalidChecksum)
	bus.AssertExpectations(t)
}

func TestSensor_StartContinuousMeasurement(t *testing.T) {
	bus := &mockBus{}
	bus.expectWrite(0x00, 0x10, 0x03, 0xFC, 0x53)

	require.NoError(t, New(bus).StartContinuousMeasurement(DefaultAmbientPressure))
	bus.AssertExpectations(t)
	bus.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
}

func TestSensor_StopContinuousMeasurement(t *testing.T) {
	bus := &mockBus{}
	bus.expectWrite(0x01, 0x04)

	require.NoError(t, New(bus).StopContinuousMeasurement())
	bus.AssertExpectations(t)
}

func TestSensor_DataReady(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want bool
	}{
		{"ready", []byte{0x00, 0x01, 0xB0}, true},
		{"not ready", []byte{0x00, 0x00, 0x81}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &mockBus{}
			bus.expectWrite(0x02, 0x02)
			bus.expectRead(tt.resp...)

			ready, err := New(bus).DataReady()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ready)
			bus.AssertExpectations(t)
		})
	}
}

func TestSensor_ReadMeasurement(t *testing.T) {
	bus := &mockBus{}
	bus.expectWrite(0x03, 0x00)
	bus.expectRead(datasheetMeasurement...)

	data, err := New(bus).ReadMeasurement()
	require.NoError(t, err)
	assert.InDelta(t, 439.095, data.CO2, 0.001)
	assert.InDelta(t, 27.238, data.Temperature, 0.001)
	assert.InDelta(t, 48.807, data.Humidity, 0.001)
	bus.AssertExpectations(t)
}

func TestSensor_ReadMeasurement_AnyCorruptCRC(t *testing.T) {
	for _, off := range []int{2, 5, 8, 11, 14, 17} {
		resp := append([]byte(nil), datasheetMeasurement...)
		resp[off] ^= 0x01

		bus := &mockBus{}
		bus.expectWrite(0x03, 0x00)
		bus.expectRead(resp...)

		data, err := New(bus).ReadMeasurement()
		require.ErrorIs(t, err, ErrInvalidChecksum, "offset %d", off)
		assert.Zero(t, data, "no partially validated data")
	}
}

func TestSensor_BusErrors(t *testing.T) {
	ioErr := errors.New("nack")

	t.Run("write fails", func(t *testing.T) {
		bus := &mockBus{}
		bus.On("Write", Address, mock.Anything).Return(ioErr).Once()

		_, err := New(bus).DataReady()
		require.ErrorIs(t, err, ErrBusIO)
		require.ErrorIs(t, err, ioErr)

		var busErr *BusError
		require.ErrorAs(t, err, &busErr)
		assert.Equal(t, "data ready", busErr.Op)
		bus.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
	})

	t.Run("read fails", func(t *testing.T) {
		bus := &mockBus{}
		bus.expectWrite(0x03, 0x00)
		bus.On("Read", Address, mock.Anything).Return(ioErr).Once()

		_, err := New(bus).ReadMeasurement()
		require.ErrorIs(t, err, ErrBusIO)
		assert.NotErrorIs(t, err, ErrInvalidChecksum)
	})

	t.Run("start fails", func(t *testing.T) {
		bus := &mockBus{}
		bus.On("Write", Address, mock.Anything).Return(ioErr).Once()

		require.ErrorIs(t, New(bus).StartContinuousMeasurement(1000), ErrBusIO)
	})
}

func TestEncodeFloat_MatchesDatasheetLayout(t *testing.T) {
	buf := make([]byte, 6)
	encodeFloat(buf, decodeFloat(datasheetMeasurement[0:6]))
	assert.Equal(t, datasheetMeasurement[0:6], buf)
}
