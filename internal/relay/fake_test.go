package relay

import (
	"context"
	"io"
	"sync"
)

// fakeTransport feeds requests from a channel and records replies.
// Closing in makes Recv fail as a broken socket would.
type fakeTransport struct {
	in      chan []byte
	replies chan string
	sendErr error

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:      make(chan []byte, 16),
		replies: make(chan string, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case <-f.closed:
		return nil, ErrTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) Send(_ context.Context, msg []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.replies <- string(msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// failingSubscriber rejects every event.
type failingSubscriber struct{}

func (failingSubscriber) Name() string { return "failing" }

func (failingSubscriber) Deliver(context.Context, Event) error { return ErrSubscriberFull }
