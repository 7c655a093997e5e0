package server

import "sync/atomic"

// Metrics contains atomic counters of the command server.
// Each can back a prometheus CounterFunc.
type Metrics struct {
	// FrameRecvCount is the number of non-empty frames received.
	FrameRecvCount atomic.Uint64
	// ResponseSendCount is the number of responses written.
	ResponseSendCount atomic.Uint64
	// DecodeErrCount is the number of frames that failed to decode.
	DecodeErrCount atomic.Uint64
	// OverflowCount is the number of frames dropped for exceeding the buffer.
	OverflowCount atomic.Uint64
}

func (m *Metrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *Metrics) incResponseSendCount() {
	m.ResponseSendCount.Add(1)
}

func (m *Metrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}

func (m *Metrics) incOverflowCount() {
	m.OverflowCount.Add(1)
}
