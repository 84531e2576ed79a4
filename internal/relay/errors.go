package relay

import "errors"

// Domain errors for the relay package.
var (
	// ErrReceive wraps a transport failure while waiting for a request.
	ErrReceive = errors.New("relay: receive failed")

	// ErrReply wraps a transport failure while sending the acknowledgement.
	ErrReply = errors.New("relay: reply failed")

	// ErrTransportClosed is returned by a transport used after Close.
	ErrTransportClosed = errors.New("relay: transport closed")

	// ErrSubscriberFull is returned when a subscriber's queue is full and
	// the event was dropped.
	ErrSubscriberFull = errors.New("relay: subscriber queue full")

	// ErrInvalidMode is returned for socket modes other than dial and bind.
	ErrInvalidMode = errors.New("relay: invalid transport mode")
)
