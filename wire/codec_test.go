package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendResponse_Layout(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want []byte
	}{
		{"not ready", NewNotReady(), []byte{0x00}},
		{
			"small measurement",
			NewMeasurement(Measurement{ID: 1, Timestamp: 2, CO2: 1.0}),
			[]byte{0x01, 0x01, 0x02, 0x00, 0x00, 0x80, 0x3F},
		},
		{
			"varint boundaries",
			NewMeasurement(Measurement{ID: 128, Timestamp: math.MaxUint32, CO2: 0}),
			[]byte{0x01, 0x80, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F, 0x00, 0x00, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AppendResponse(nil, tt.resp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxResponseSize)
		})
	}
}

func TestAppendRequest_Layout(t *testing.T) {
	got, err := AppendRequest(nil, Request{Kind: GetLastMeasurement})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, got)

	_, err = AppendRequest(nil, Request{Kind: 9})
	require.Error(t, err)
}

func TestUnmarshalResponse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"unknown tag", []byte{0x02}, ErrUnknownTag},
		{"tag above u8", []byte{0x80, 0x02}, ErrUnknownTag},
		{"missing fields", []byte{0x01, 0x01}, ErrTruncated},
		{"short float", []byte{0x01, 0x01, 0x02, 0x00, 0x00}, ErrTruncated},
		{"trailing", []byte{0x00, 0x00}, ErrTrailingBytes},
		{"unterminated varint", []byte{0x01, 0x80}, ErrTruncated},
		{"varint above u32", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x1F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, ErrVarint},
		{"overlong varint", []byte{0x01, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, ErrVarint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalResponse(tt.data)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestUnmarshalRequest_Errors(t *testing.T) {
	_, err := UnmarshalRequest([]byte{0x01})
	require.ErrorIs(t, err, ErrUnknownTag)

	_, err = UnmarshalRequest([]byte{0x00, 0x00})
	require.ErrorIs(t, err, ErrTrailingBytes)

	req, err := UnmarshalRequest([]byte{0x00})
	require.NoError(t, err)
	assert.Equal(t, GetLastMeasurement, req.Kind)
}
