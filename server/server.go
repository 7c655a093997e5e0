package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/store"
	"github.com/arloliu/go-co2mon/wire"
)

// Server answers requests read from a serial link with the latest
// measurement of a store. It is not goroutine-safe: one Serve call at a time.
type Server struct {
	rw     io.ReadWriter
	reader *bufio.Reader
	store  store.Reader
	acc    *wire.Accumulator
	txBuf  [wire.MaxFrameSize]byte
	logger logger.Logger

	metrics Metrics
}

// New creates a server on rw. frameSize bounds the body of a received frame;
// a non-positive value selects wire.MaxFrameSize. A nil logger selects the
// package default.
func New(rw io.ReadWriter, r store.Reader, frameSize int, l logger.Logger) *Server {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Server{
		rw:     rw,
		reader: bufio.NewReaderSize(rw, wire.MaxFrameSize),
		store:  r,
		acc:    wire.NewAccumulator(frameSize),
		logger: l.With("task", "server"),
	}
}

// Metrics returns the server counters.
func (s *Server) Metrics() *Metrics {
	return &s.metrics
}

// Serve processes requests until the link reports io.EOF, a read fails or
// ctx is done. A blocked read is only interrupted by closing the link.
//
// It returns nil on io.EOF, ctx.Err() when ctx is done and an error wrapping
// ErrTransport otherwise.
func (s *Server) Serve(ctx context.Context) error {
	s.acc.Reset()
	s.logger.Debug("command server started", "frame_size", s.acc.Cap())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := s.reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				s.logger.Info("serial link closed by peer")
				return nil
			}

			return fmt.Errorf("%w: read: %w", ErrTransport, err)
		}

		frame, err := s.acc.Feed(b)
		if err != nil {
			s.metrics.incOverflowCount()
			s.logger.Warn("frame exceeds receive buffer, dropping until next delimiter",
				"limit", s.acc.Cap(), "error", err)

			continue
		}
		if len(frame) == 0 {
			continue
		}

		if err := s.handleFrame(frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return err
		}
	}
}

// handleFrame decodes one frame and writes the response. Only write errors
// are returned.
func (s *Server) handleFrame(frame []byte) error {
	s.metrics.incFrameRecvCount()

	req, err := wire.DecodeRequest(frame)
	if err != nil {
		s.metrics.incDecodeErrCount()
		s.logger.Warn("failed to decode request", "frame", fmt.Sprintf("% X", frame), "error", err)

		return nil
	}

	resp := s.dispatch(req)

	out, err := wire.EncodeResponse(s.txBuf[:], resp)
	if err != nil {
		// responses are bounded by wire.MaxResponseSize, this is a bug
		s.logger.Error("failed to encode response", "response", resp, "error", err)
		return nil
	}

	if _, err := s.rw.Write(out); err != nil {
		return fmt.Errorf("%w: write: %w", ErrTransport, err)
	}
	s.metrics.incResponseSendCount()
	s.logger.Debug("response sent", "request", req.Kind, "response", resp)

	return nil
}

func (s *Server) dispatch(req wire.Request) wire.Response {
	switch req.Kind {
	case wire.GetLastMeasurement:
		if m, ok := s.store.Snapshot(); ok {
			return wire.NewMeasurement(m)
		}
	}

	return wire.NewNotReady()
}
