// Package server implements the command server that answers host requests
// arriving on the serial link.
//
// The server reads the link one byte at a time and rebuilds COBS frames with
// a fixed size wire.Accumulator. Each complete frame is decoded into a
// request and answered with a single response frame:
//
//	GetLastMeasurement -> Measurement (after the first sample)
//	GetLastMeasurement -> NotReady    (before the first sample)
//
// Malformed frames are logged and counted; they never produce a response.
// Empty frames (two consecutive delimiters) are ignored so a host can flush
// the link by sending a lone delimiter. A frame longer than the accumulator
// is dropped together with every byte up to the next delimiter, after which
// the server resumes with the following frame.
package server
