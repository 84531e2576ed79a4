package slmp

import "errors"

// Domain errors for the SLMP codec.
var (
	// ErrInvalidLength is returned when a frame is not the exact size the
	// message type requires.
	ErrInvalidLength = errors.New("slmp: invalid frame length")

	// ErrInvalidSubheader is returned when a request frame does not start
	// with the 3E request subheader.
	ErrInvalidSubheader = errors.New("slmp: invalid subheader")

	// ErrInvalidCommand is returned when a request frame is not a loopback.
	ErrInvalidCommand = errors.New("slmp: not a loopback command")

	// ErrNonZeroEndCode is returned when the PLC reports an error end code.
	ErrNonZeroEndCode = errors.New("slmp: non-zero end code")

	// ErrInvalidDataLength is returned when the echoed loopback length is not 2.
	ErrInvalidDataLength = errors.New("slmp: invalid loopback data length")

	// ErrEchoMismatch is returned when the echoed bytes differ from the sent bytes.
	ErrEchoMismatch = errors.New("slmp: loopback data mismatch")
)
