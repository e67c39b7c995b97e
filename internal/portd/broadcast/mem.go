package broadcast

import (
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// MemTransport is an in-process transport. Its sockets buffer whole messages
// in a bounded FIFO and drop at the high-water mark like a real PUB socket
// with a zero send timeout. Tests read delivered messages back out.
type MemTransport struct {
	mu   sync.Mutex
	last *MemSocket
}

// NewMemTransport returns an empty in-process transport.
func NewMemTransport() *MemTransport { return &MemTransport{} }

func (t *MemTransport) NewContext() (Context, error) {
	return &memContext{transport: t}, nil
}

// Socket returns the most recently created socket, for test inspection.
func (t *MemTransport) Socket() *MemSocket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *MemTransport) adopt(s *MemSocket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = s
}

type memContext struct {
	transport  *MemTransport
	terminated bool
}

func (c *memContext) NewPubSocket() (Socket, error) {
	if c.terminated {
		return nil, errors.New("context terminated")
	}
	s := &MemSocket{hwm: 1000, outbound: queue.New()}
	c.transport.adopt(s)
	return s, nil
}

func (c *memContext) Terminate() error {
	c.terminated = true
	return nil
}

// MemSocket is the socket handle MemTransport hands out.
type MemSocket struct {
	mu       sync.Mutex
	hwm      int
	endpoint string
	closed   bool
	pending  [][]byte     // frames of the in-progress multi-frame message
	outbound *queue.Queue // completed messages awaiting a reader
	sent     [][][]byte   // every accepted message, kept for test inspection
}

func (s *MemSocket) SetSendHighWaterMark(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hwm = count
	return nil
}

func (s *MemSocket) SetLinger(time.Duration) error { return nil }

func (s *MemSocket) SetSendTimeout(time.Duration) error { return nil }

func (s *MemSocket) Bind(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if endpoint == "" {
		return errors.New("empty endpoint")
	}
	s.endpoint = endpoint
	return nil
}

func (s *MemSocket) Send(frame []byte, more bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("socket closed")
	}
	if s.outbound.Length() >= s.hwm {
		// Buffer at capacity: the whole message is dropped, so discard any
		// frames already accumulated for it.
		s.pending = nil
		return ErrWouldBlock
	}
	f := make([]byte, len(frame))
	copy(f, frame)
	s.pending = append(s.pending, f)
	if !more {
		s.outbound.Add(s.pending)
		s.sent = append(s.sent, s.pending)
		s.pending = nil
	}
	return nil
}

func (s *MemSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Buffered messages are discarded, zero-linger style.
	s.outbound = queue.New()
	s.closed = true
	return nil
}

// Receive pops the oldest complete message, one slice per frame. ok is false
// when the buffer is empty.
func (s *MemSocket) Receive() (frames [][]byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outbound.Length() == 0 {
		return nil, false
	}
	return s.outbound.Remove().([][]byte), true
}

// Buffered returns the number of complete messages awaiting a reader.
func (s *MemSocket) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outbound.Length()
}

// Sent returns every message the socket ever accepted, in order, regardless
// of whether a reader consumed it or Close discarded it.
func (s *MemSocket) Sent() [][][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// Endpoint returns the bound endpoint.
func (s *MemSocket) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

var (
	_ Transport = (*MemTransport)(nil)
	_ Context   = (*memContext)(nil)
	_ Socket    = (*MemSocket)(nil)
)
