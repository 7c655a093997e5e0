// Package store holds the latest measurement shared between the sampling
// task (the only writer) and the command server (the reader).
package store

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-co2mon/wire"
)

// Store is a single-slot cell holding the most recent measurement or nothing.
//
// Writes overwrite, never queue. Snapshot copies the value out inside the
// critical section, so a reader observes either the previous or the new
// measurement in full, never a mix of fields from two writes. Readers use
// the reader-biased side of an xsync.RBMutex and do not contend with each
// other; the writer holds the lock only for a struct copy.
type Store struct {
	mu    *xsync.RBMutex
	value wire.Measurement
	valid bool
}

// New creates an empty store.
func New() *Store {
	return &Store{mu: xsync.NewRBMutex()}
}

// Write replaces the stored measurement. Only the sampling task calls it.
func (s *Store) Write(m wire.Measurement) {
	s.mu.Lock()
	s.value = m
	s.valid = true
	s.mu.Unlock()
}

// Snapshot returns a copy of the stored measurement and whether one exists.
func (s *Store) Snapshot() (wire.Measurement, bool) {
	t := s.mu.RLock()
	m, ok := s.value, s.valid
	s.mu.RUnlock(t)

	return m, ok
}

// LastID returns the id of the stored measurement, or 0 when empty.
func (s *Store) LastID() uint32 {
	m, ok := s.Snapshot()
	if !ok {
		return 0
	}

	return m.ID
}

// Reader is the read-only view of the store handed to the command server.
type Reader interface {
	Snapshot() (wire.Measurement, bool)
}

// Writer is the write view of the store handed to the sampling task.
type Writer interface {
	Write(m wire.Measurement)
	LastID() uint32
}

var (
	_ Reader = (*Store)(nil)
	_ Writer = (*Store)(nil)
)
