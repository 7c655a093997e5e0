package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maxVarintLen32 is the longest LEB128 encoding of a uint32.
const maxVarintLen32 = 5

// MaxRequestSize and MaxResponseSize bound the serialized (pre-COBS) bodies.
const (
	MaxRequestSize  = 1
	MaxResponseSize = 1 + 2*maxVarintLen32 + 4
)

// AppendRequest appends the serialized form of req to dst.
func AppendRequest(dst []byte, req Request) ([]byte, error) {
	if req.Kind != GetLastMeasurement {
		return dst, fmt.Errorf("wire: cannot encode %s", req.Kind)
	}

	return binary.AppendUvarint(dst, uint64(req.Kind)), nil
}

// AppendResponse appends the serialized form of resp to dst.
func AppendResponse(dst []byte, resp Response) ([]byte, error) {
	switch resp.Kind {
	case NotReady:
		return binary.AppendUvarint(dst, uint64(NotReady)), nil

	case MeasurementReady:
		m := resp.Measurement
		dst = binary.AppendUvarint(dst, uint64(MeasurementReady))
		dst = binary.AppendUvarint(dst, uint64(m.ID))
		dst = binary.AppendUvarint(dst, uint64(m.Timestamp))

		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(m.CO2)), nil

	default:
		return dst, fmt.Errorf("wire: cannot encode %s", resp.Kind)
	}
}

// UnmarshalRequest parses a serialized request. The whole of data must be
// consumed.
func UnmarshalRequest(data []byte) (Request, error) {
	d := decoder{data: data}

	tag, err := d.uvarint32()
	if err != nil {
		return Request{}, err
	}
	if tag != uint32(GetLastMeasurement) {
		return Request{}, fmt.Errorf("%w: request tag %d", ErrUnknownTag, tag)
	}

	if err := d.finish(); err != nil {
		return Request{}, err
	}

	return Request{Kind: GetLastMeasurement}, nil
}

// UnmarshalResponse parses a serialized response. The whole of data must be
// consumed.
func UnmarshalResponse(data []byte) (Response, error) {
	d := decoder{data: data}

	tag, err := d.uvarint32()
	if err != nil {
		return Response{}, err
	}

	var resp Response
	switch tag {
	case uint32(NotReady):
		resp = NewNotReady()

	case uint32(MeasurementReady):
		var m Measurement
		if m.ID, err = d.uvarint32(); err != nil {
			return Response{}, err
		}
		if m.Timestamp, err = d.uvarint32(); err != nil {
			return Response{}, err
		}
		if m.CO2, err = d.float32(); err != nil {
			return Response{}, err
		}
		resp = NewMeasurement(m)

	default:
		return Response{}, fmt.Errorf("%w: response tag %d", ErrUnknownTag, tag)
	}

	if err := d.finish(); err != nil {
		return Response{}, err
	}

	return resp, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) uvarint32() (uint32, error) {
	if d.pos >= len(d.data) {
		return 0, ErrTruncated
	}

	v, n := binary.Uvarint(d.data[d.pos:])
	switch {
	case n == 0:
		return 0, ErrTruncated
	case n < 0 || n > maxVarintLen32 || v > math.MaxUint32:
		return 0, fmt.Errorf("%w at offset %d", ErrVarint, d.pos)
	}
	d.pos += n

	return uint32(v), nil
}

func (d *decoder) float32() (float32, error) {
	if len(d.data)-d.pos < 4 {
		return 0, ErrTruncated
	}
	bits := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4

	return math.Float32frombits(bits), nil
}

func (d *decoder) finish() error {
	if d.pos != len(d.data) {
		return fmt.Errorf("%w: %d byte(s)", ErrTrailingBytes, len(d.data)-d.pos)
	}

	return nil
}
