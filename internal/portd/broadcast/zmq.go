package broadcast

import (
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ZMQTransport carries the broadcast channel over ZeroMQ PUB sockets.
type ZMQTransport struct{}

// NewZMQTransport returns the production transport.
func NewZMQTransport() *ZMQTransport { return &ZMQTransport{} }

func (t *ZMQTransport) NewContext() (Context, error) {
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, err
	}
	return &zmqContext{ctx: ctx}, nil
}

type zmqContext struct {
	ctx *zmq.Context
}

func (c *zmqContext) NewPubSocket() (Socket, error) {
	sock, err := c.ctx.NewSocket(zmq.PUB)
	if err != nil {
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}

func (c *zmqContext) Terminate() error {
	return c.ctx.Term()
}

type zmqSocket struct {
	sock *zmq.Socket
}

func (s *zmqSocket) SetSendHighWaterMark(count int) error {
	return s.sock.SetSndhwm(count)
}

func (s *zmqSocket) SetLinger(d time.Duration) error {
	return s.sock.SetLinger(d)
}

func (s *zmqSocket) SetSendTimeout(d time.Duration) error {
	return s.sock.SetSndtimeo(d)
}

func (s *zmqSocket) Bind(endpoint string) error {
	return s.sock.Bind(endpoint)
}

func (s *zmqSocket) Send(frame []byte, more bool) error {
	flags := zmq.DONTWAIT
	if more {
		flags |= zmq.SNDMORE
	}
	if _, err := s.sock.SendBytes(frame, flags); err != nil {
		if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
			return ErrWouldBlock
		}
		return err
	}
	return nil
}

func (s *zmqSocket) Close() error {
	return s.sock.Close()
}

var (
	_ Transport = (*ZMQTransport)(nil)
	_ Context   = (*zmqContext)(nil)
	_ Socket    = (*zmqSocket)(nil)
)
