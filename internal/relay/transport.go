package relay

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"

	"github.com/nerrad567/aerion-control/internal/infrastructure/config"
)

// Transport is one strict request/reply session. Recv and Send must
// alternate; Close unblocks a pending Recv and may be called repeatedly.
type Transport interface {
	Recv(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, msg []byte) error
	Close() error
}

// ZMQTransport is a ZeroMQ REP socket.
type ZMQTransport struct {
	sock     zmq4.Socket
	endpoint string

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewZMQTransport opens a REP socket on endpoint. In dial mode it
// connects to the server's bound REQ socket; in bind mode it listens.
// Cancelling ctx closes the socket.
func NewZMQTransport(ctx context.Context, endpoint, mode string) (*ZMQTransport, error) {
	sock := zmq4.NewRep(ctx)

	var err error
	switch mode {
	case config.RelayModeDial, "":
		err = sock.Dial(endpoint)
	case config.RelayModeBind:
		err = sock.Listen(endpoint)
	default:
		sock.Close()
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("relay: %s %s: %w", mode, endpoint, err)
	}

	return &ZMQTransport{sock: sock, endpoint: endpoint}, nil
}

// Recv blocks until a request arrives. Multi-frame requests are joined.
func (t *ZMQTransport) Recv(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	msg, err := t.sock.Recv()
	if err != nil {
		if t.closed.Load() {
			return nil, ErrTransportClosed
		}
		return nil, err
	}
	return bytes.Join(msg.Frames, nil), nil
}

// Send replies to the last request.
func (t *ZMQTransport) Send(ctx context.Context, reply []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.closed.Load() {
		return ErrTransportClosed
	}
	return t.sock.Send(zmq4.NewMsg(reply))
}

// Close closes the socket once. Later Recv and Send calls return
// ErrTransportClosed.
func (t *ZMQTransport) Close() error {
	t.closed.Store(true)
	t.closeOnce.Do(func() {
		t.closeErr = t.sock.Close()
	})
	return t.closeErr
}

// Endpoint returns the socket address.
func (t *ZMQTransport) Endpoint() string {
	return t.endpoint
}

// ZMQFactory returns a TransportFactory for the relay configuration.
func ZMQFactory(cfg config.RelayConfig) TransportFactory {
	return func(ctx context.Context) (Transport, error) {
		return NewZMQTransport(ctx, cfg.Endpoint, cfg.Mode)
	}
}
