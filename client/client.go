// Package client implements the host side of the serial link: it sends
// requests to the device and waits for the matching response frame.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/wire"
)

// ErrUnexpectedResponse is returned when the device answers with a frame the
// client cannot use.
var ErrUnexpectedResponse = errors.New("client: unexpected response")

// drainWindow is how long the link is read for late replies after a query
// that got no response.
const drainWindow = 20 * time.Millisecond

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Client talks to a device over rw. Requests are serialized: it is safe for
// concurrent use, one request is on the link at a time.
type Client struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	acc     *wire.Accumulator
	rxBuf   [wire.MaxFrameSize]byte
	pending []byte
	txBuf   [wire.MaxFrameSize]byte
	stale   bool
	logger  logger.Logger
}

// New creates a client on rw. A nil logger selects the package default.
//
// When rw has a SetReadDeadline method it is used to bound reads by the
// context deadline. A reader returning (0, nil), such as a serial port with
// a read timeout, lets the client check the context between reads.
func New(rw io.ReadWriter, l logger.Logger) *Client {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Client{
		rw:     rw,
		acc:    wire.NewAccumulator(wire.MaxFrameSize),
		logger: l,
	}
}

// GetLastMeasurement asks the device for its latest measurement. ok is false
// when the device has no measurement yet.
func (c *Client) GetLastMeasurement(ctx context.Context) (m wire.Measurement, ok bool, err error) {
	resp, err := c.Query(ctx, wire.Request{Kind: wire.GetLastMeasurement})
	if err != nil {
		return wire.Measurement{}, false, err
	}

	switch resp.Kind {
	case wire.NotReady:
		return wire.Measurement{}, false, nil
	case wire.MeasurementReady:
		return resp.Measurement, true, nil
	default:
		return wire.Measurement{}, false, fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Kind)
	}
}

// Query sends req and returns the next response frame.
//
// Bytes left over from the previous query are discarded first. After a
// query that failed, such as a timeout, the link is also read for
// drainWindow so a late reply is not taken as the answer to req.
func (c *Client) Query(ctx context.Context, req wire.Request) (wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return wire.Response{}, err
	}

	out, err := wire.EncodeRequest(c.txBuf[:], req)
	if err != nil {
		return wire.Response{}, err
	}

	if err := c.discardStale(); err != nil {
		return wire.Response{}, err
	}

	if _, err := c.rw.Write(out); err != nil {
		c.stale = true
		return wire.Response{}, fmt.Errorf("write request: %w", err)
	}

	resp, err := c.readResponse(ctx)
	if err != nil {
		c.stale = true
	}

	return resp, err
}

// discardStale drops buffered bytes and, after a failed query, whatever the
// link delivers within drainWindow. The read stops at the first timeout, at
// the first empty read or at an error.
func (c *Client) discardStale() error {
	c.pending = nil
	c.acc.Reset()

	if !c.stale {
		return nil
	}
	c.stale = false

	deadline := time.Now().Add(drainWindow)
	if d, ok := c.rw.(readDeadliner); ok {
		if err := d.SetReadDeadline(deadline); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	dropped := 0
	for time.Now().Before(deadline) {
		n, err := c.rw.Read(c.rxBuf[:])
		dropped += n
		if n == 0 || err != nil {
			break
		}
	}
	if dropped > 0 {
		c.logger.Debug("discarded late reply bytes", "count", dropped)
	}

	return nil
}

func (c *Client) readResponse(ctx context.Context) (wire.Response, error) {
	if d, ok := c.rw.(readDeadliner); ok {
		deadline, _ := ctx.Deadline()
		if err := d.SetReadDeadline(deadline); err != nil {
			return wire.Response{}, fmt.Errorf("set read deadline: %w", err)
		}
	}

	for {
		for len(c.pending) > 0 {
			b := c.pending[0]
			c.pending = c.pending[1:]

			frame, err := c.acc.Feed(b)
			if err != nil {
				c.logger.Warn("response exceeds receive buffer, resyncing", "error", err)
				continue
			}
			if len(frame) == 0 {
				continue
			}

			resp, err := wire.DecodeResponse(frame)
			if err != nil {
				return wire.Response{}, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
			}

			return resp, nil
		}

		if err := ctx.Err(); err != nil {
			return wire.Response{}, err
		}

		n, err := c.rw.Read(c.rxBuf[:])
		c.pending = c.rxBuf[:n]
		if err != nil && n == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return wire.Response{}, ctxErr
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return wire.Response{}, context.DeadlineExceeded
			}

			return wire.Response{}, fmt.Errorf("read response: %w", err)
		}
	}
}
