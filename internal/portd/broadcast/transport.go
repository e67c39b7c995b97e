// Package broadcast publishes telemetry events on a single outbound channel
// with drop-on-backpressure semantics: a publish never blocks the producer
// and a slow or absent subscriber is indistinguishable from a fast one.
package broadcast

import (
	"errors"
	"time"
)

// ErrWouldBlock is returned by Socket.Send when the outbound buffer sits at
// its high-water mark. The channel swallows it: dropping is the designed
// behavior, not an error.
var ErrWouldBlock = errors.New("send would block")

// ErrChannelOpen rejects a second Open before the live channel is closed.
var ErrChannelOpen = errors.New("broadcast channel already open in this process")

// Transport creates messaging contexts. Implementations: ZMQTransport for
// the wire, MemTransport for tests and in-process loopback.
type Transport interface {
	NewContext() (Context, error)
}

// Context owns every socket created from it and is terminated exactly once.
type Context interface {
	NewPubSocket() (Socket, error)
	Terminate() error
}

// Socket is a publish-capable socket. It is not safe for concurrent use;
// concurrent publishers must serialize externally.
type Socket interface {
	SetSendHighWaterMark(count int) error
	SetLinger(d time.Duration) error
	SetSendTimeout(d time.Duration) error
	Bind(endpoint string) error
	// Send writes one frame. more marks the frame as part of a multi-frame
	// message. Send never blocks once a zero send timeout is applied; a full
	// outbound buffer yields ErrWouldBlock.
	Send(frame []byte, more bool) error
	Close() error
}
