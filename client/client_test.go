package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-co2mon/logger"
	"github.com/arloliu/go-co2mon/wire"
)

// fakeDevice answers every request read from conn with the frames returned
// by respond, written in one call.
func fakeDevice(t *testing.T, conn net.Conn, respond func(req []byte) []byte) {
	t.Helper()

	go func() {
		acc := wire.NewAccumulator(0)
		buf := make([]byte, 1)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
			frame, _ := acc.Feed(buf[0])
			if len(frame) == 0 {
				continue
			}
			out := respond(bytes.Clone(frame))
			if len(out) == 0 {
				continue
			}
			if _, err := conn.Write(out); err != nil {
				return
			}
		}
	}()
}

func encode(t *testing.T, resp wire.Response) []byte {
	t.Helper()

	out, err := wire.EncodeResponse(make([]byte, wire.MaxFrameSize), resp)
	require.NoError(t, err)

	return out
}

func newPipeClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()

	host, device := net.Pipe()
	t.Cleanup(func() {
		host.Close()
		device.Close()
	})

	return New(host, logger.NewPermissiveMockLogger()), device
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestClient_NotReady(t *testing.T) {
	c, device := newPipeClient(t)

	var got []byte
	fakeDevice(t, device, func(req []byte) []byte {
		got = req
		return encode(t, wire.NewNotReady())
	})

	_, ok, err := c.GetLastMeasurement(testContext(t))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []byte{0x01, 0x01}, got)
}

func TestClient_Measurement(t *testing.T) {
	c, device := newPipeClient(t)

	want := wire.Measurement{ID: 1, Timestamp: 12_800_000, CO2: 415.2}
	fakeDevice(t, device, func([]byte) []byte {
		return encode(t, wire.NewMeasurement(want))
	})

	m, ok, err := c.GetLastMeasurement(testContext(t))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, m)
}

func TestClient_SkipsEmptyFramesAndDropsExtraFrames(t *testing.T) {
	c, device := newPipeClient(t)

	first := wire.Measurement{ID: 1, Timestamp: 10, CO2: 400}
	extra := wire.Measurement{ID: 99, Timestamp: 15, CO2: 999}
	second := wire.Measurement{ID: 2, Timestamp: 20, CO2: 401}

	// the first reply carries an unsolicited frame in the same write
	calls := 0
	fakeDevice(t, device, func([]byte) []byte {
		calls++
		if calls > 1 {
			return encode(t, wire.NewMeasurement(second))
		}
		out := []byte{wire.Delimiter}
		out = append(out, encode(t, wire.NewMeasurement(first))...)
		return append(out, encode(t, wire.NewMeasurement(extra))...)
	})

	ctx := testContext(t)
	m, ok, err := c.GetLastMeasurement(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, m)

	m, ok, err = c.GetLastMeasurement(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, m)
}

// bufferedLink is a serial-like link: device writes are buffered and Read
// returns (0, nil) after a short wait when nothing is buffered.
type bufferedLink struct {
	mu      sync.Mutex
	rx      bytes.Buffer
	respond func() []byte
}

func (l *bufferedLink) Read(p []byte) (int, error) {
	l.mu.Lock()
	if l.rx.Len() == 0 {
		l.mu.Unlock()
		time.Sleep(time.Millisecond)

		return 0, nil
	}
	defer l.mu.Unlock()

	return l.rx.Read(p)
}

func (l *bufferedLink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.respond != nil {
		l.rx.Write(l.respond())
	}

	return len(p), nil
}

func (l *bufferedLink) deliver(b []byte) {
	l.mu.Lock()
	l.rx.Write(b)
	l.mu.Unlock()
}

func TestClient_LateReplyIsNotTakenForNextAnswer(t *testing.T) {
	link := &bufferedLink{}
	c := New(link, logger.NewPermissiveMockLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := c.GetLastMeasurement(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the device answers the timed out query after all
	late := wire.Measurement{ID: 1, Timestamp: 100, CO2: 410}
	link.deliver(encode(t, wire.NewMeasurement(late)))

	fresh := wire.Measurement{ID: 2, Timestamp: 200, CO2: 420}
	link.mu.Lock()
	link.respond = func() []byte { return encode(t, wire.NewMeasurement(fresh)) }
	link.mu.Unlock()

	m, ok, err := c.GetLastMeasurement(testContext(t))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fresh, m)

	// no failure in between: nothing is drained and the link is in step
	m, ok, err = c.GetLastMeasurement(testContext(t))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fresh, m)
}

func TestClient_PartialLeftoverDiscarded(t *testing.T) {
	link := &bufferedLink{}
	c := New(link, logger.NewPermissiveMockLogger())

	want := wire.Measurement{ID: 5, Timestamp: 500, CO2: 450}
	frame := encode(t, wire.NewMeasurement(want))

	// a reply followed by the first half of another frame
	link.deliver(append(bytes.Clone(frame), frame[:4]...))
	m, ok, err := c.GetLastMeasurement(testContext(t))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, m)

	next := wire.Measurement{ID: 6, Timestamp: 600, CO2: 451}
	link.mu.Lock()
	link.respond = func() []byte { return encode(t, wire.NewMeasurement(next)) }
	link.mu.Unlock()

	m, ok, err = c.GetLastMeasurement(testContext(t))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, next, m)
}

func TestClient_MalformedResponse(t *testing.T) {
	c, device := newPipeClient(t)

	fakeDevice(t, device, func([]byte) []byte {
		return []byte{0x02, 0x09, 0x00}
	})

	_, _, err := c.GetLastMeasurement(testContext(t))
	require.ErrorIs(t, err, ErrUnexpectedResponse)
	require.ErrorIs(t, err, wire.ErrDecode)
}

func TestClient_Timeout(t *testing.T) {
	c, device := newPipeClient(t)

	fakeDevice(t, device, func([]byte) []byte { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := c.GetLastMeasurement(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CancelledBeforeSend(t *testing.T) {
	var buf bytes.Buffer
	c := New(struct {
		io.Reader
		io.Writer
	}{&buf, &buf}, logger.NewPermissiveMockLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.GetLastMeasurement(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestClient_LinkClosed(t *testing.T) {
	c, device := newPipeClient(t)

	go func() {
		b := make([]byte, 8)
		_, _ = device.Read(b)
		device.Close()
	}()

	_, _, err := c.GetLastMeasurement(testContext(t))
	require.ErrorIs(t, err, io.EOF)
}
