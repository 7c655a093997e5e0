package wire

import (
	"bytes"
	"fmt"
)

// MaxFrameSize is the largest frame, delimiter included, either side may send.
const MaxFrameSize = 64

// EncodeRequest frames req into dst and returns the frame, delimiter
// included. dst must have room for the frame (MaxFrameSize always suffices).
func EncodeRequest(dst []byte, req Request) ([]byte, error) {
	var body [MaxRequestSize]byte
	raw, err := AppendRequest(body[:0], req)
	if err != nil {
		return nil, err
	}

	return frame(dst, raw)
}

// EncodeResponse frames resp into dst and returns the frame, delimiter
// included. dst must have room for the frame (MaxFrameSize always suffices).
func EncodeResponse(dst []byte, resp Response) ([]byte, error) {
	var body [MaxResponseSize]byte
	raw, err := AppendResponse(body[:0], resp)
	if err != nil {
		return nil, err
	}

	return frame(dst, raw)
}

// DecodeRequest parses a frame received from the host. The trailing
// delimiter is optional. frame is never modified.
func DecodeRequest(frame []byte) (Request, error) {
	var buf [MaxFrameSize]byte
	raw, err := unframe(buf[:], frame)
	if err != nil {
		return Request{}, err
	}

	return UnmarshalRequest(raw)
}

// DecodeResponse parses a frame received from the device. The trailing
// delimiter is optional. frame is never modified.
func DecodeResponse(frame []byte) (Response, error) {
	var buf [MaxFrameSize]byte
	raw, err := unframe(buf[:], frame)
	if err != nil {
		return Response{}, err
	}

	return UnmarshalResponse(raw)
}

func frame(dst, raw []byte) ([]byte, error) {
	size := MaxEncodedLen(len(raw)) + 1
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, size, MaxFrameSize)
	}
	if cap(dst) < size {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, need %d", ErrFrameTooLarge, cap(dst), size)
	}

	dst = dst[:size]
	n := cobsEncode(dst, raw)
	dst[n] = Delimiter

	return dst[:n+1], nil
}

func unframe(dst, frame []byte) ([]byte, error) {
	body := bytes.TrimSuffix(frame, []byte{Delimiter})
	if len(body) == 0 {
		return nil, ErrTruncated
	}
	if len(body) >= MaxFrameSize {
		return nil, fmt.Errorf("%w: %d byte body", ErrFrameTooLarge, len(body))
	}

	n, err := cobsDecode(dst, body)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}
