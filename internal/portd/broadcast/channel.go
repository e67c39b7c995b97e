package broadcast

import (
	"fmt"
	"sync"
	"sync/atomic"

	"portd/pkg/logger"
)

// At most one live context/socket pair per process. A second Open before
// Close is a caller bug and is rejected loudly rather than ignored.
var (
	liveMu sync.Mutex
	live   bool
)

// Channel is the process-wide broadcast channel: one messaging context and
// one publish socket bound to a configured endpoint. Publish is non-blocking
// by construction; Close is guarded against double calls. Concurrent
// publishers must serialize externally, the channel takes no internal lock
// around sends.
type Channel struct {
	ctx     Context
	sock    Socket
	dropped atomic.Uint64
	logger  *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open creates the context and publish socket, applies the fixed socket
// options (bounded send buffer, zero linger, zero send timeout) and binds to
// endpoint. Any failure releases what was created and is fatal to the
// component: a broadcaster that cannot bind indicates a misconfigured
// environment.
func Open(t Transport, endpoint string, sendHWM int) (*Channel, error) {
	liveMu.Lock()
	if live {
		liveMu.Unlock()
		return nil, ErrChannelOpen
	}
	live = true
	liveMu.Unlock()

	release := func() {
		liveMu.Lock()
		live = false
		liveMu.Unlock()
	}

	ctx, err := t.NewContext()
	if err != nil {
		release()
		return nil, fmt.Errorf("create messaging context: %w", err)
	}

	sock, err := ctx.NewPubSocket()
	if err != nil {
		_ = ctx.Terminate()
		release()
		return nil, fmt.Errorf("create publish socket: %w", err)
	}

	log := logger.WithField("component", "broadcast")

	if err := applyOptions(sock, sendHWM); err != nil {
		_ = sock.Close()
		_ = ctx.Terminate()
		release()
		return nil, fmt.Errorf("apply socket options: %w", err)
	}

	if err := sock.Bind(endpoint); err != nil {
		_ = sock.Close()
		_ = ctx.Terminate()
		release()
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}

	log.Info("broadcast channel bound", "endpoint", endpoint, "sendHWM", sendHWM)

	return &Channel{ctx: ctx, sock: sock, logger: log}, nil
}

func applyOptions(sock Socket, sendHWM int) error {
	if err := sock.SetSendHighWaterMark(sendHWM); err != nil {
		return err
	}
	// Zero linger: shutdown discards buffered messages instead of flushing.
	if err := sock.SetLinger(0); err != nil {
		return err
	}
	// Zero send timeout: every send is immediately non-blocking.
	return sock.SetSendTimeout(0)
}

// Publish sends one logical event as a two-frame message [topic][payload].
// If the topic frame cannot be sent the payload is never sent. A full
// outbound buffer drops the message silently; Publish never blocks and never
// reports delivery failure to the producer.
func (c *Channel) Publish(topic string, payload []byte) {
	if err := c.sock.Send([]byte(topic), true); err != nil {
		c.dropped.Add(1)
		if err != ErrWouldBlock {
			c.logger.Debug("topic frame rejected", "topic", topic, "error", err)
		}
		return
	}
	if err := c.sock.Send(payload, false); err != nil {
		c.dropped.Add(1)
		if err != ErrWouldBlock {
			c.logger.Debug("payload frame rejected", "topic", topic, "error", err)
		}
	}
}

// Dropped reports how many messages were discarded under backpressure.
// Diagnostic only; drops are the designed behavior.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// Close releases the socket, discarding still-buffered outbound messages,
// then terminates the context. Safe to call more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		if err := c.sock.Close(); err != nil {
			c.closeErr = fmt.Errorf("close publish socket: %w", err)
		}
		if err := c.ctx.Terminate(); err != nil && c.closeErr == nil {
			c.closeErr = fmt.Errorf("terminate messaging context: %w", err)
		}
		liveMu.Lock()
		live = false
		liveMu.Unlock()
		c.logger.Info("broadcast channel closed", "dropped", c.dropped.Load())
	})
	return c.closeErr
}
