package sampler

import "sync/atomic"

// Metrics contains atomic counters of the sampling task.
// Each can back a prometheus CounterFunc.
type Metrics struct {
	// PollCount is the number of activations.
	PollCount atomic.Uint64
	// UpdateCount is the number of measurements published.
	UpdateCount atomic.Uint64
	// NotReadyCount is the number of activations without new data.
	NotReadyCount atomic.Uint64
	// BusErrCount is the number of bus transfer failures.
	BusErrCount atomic.Uint64
	// ChecksumErrCount is the number of responses rejected by CRC.
	ChecksumErrCount atomic.Uint64
}

func (m *Metrics) incPollCount() {
	m.PollCount.Add(1)
}

func (m *Metrics) incUpdateCount() {
	m.UpdateCount.Add(1)
}

func (m *Metrics) incNotReadyCount() {
	m.NotReadyCount.Add(1)
}

func (m *Metrics) incBusErrCount() {
	m.BusErrCount.Add(1)
}

func (m *Metrics) incChecksumErrCount() {
	m.ChecksumErrCount.Add(1)
}
