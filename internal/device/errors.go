package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when no device has the given name.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when adding a device whose name is taken.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrReservedName is returned for names the server uses internally.
	ErrReservedName = errors.New("device: reserved name")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidAddress is returned when the host or port is unusable.
	ErrInvalidAddress = errors.New("device: invalid address")

	// ErrUserNodeExists is returned when a device already has a user node
	// with the same name and parent.
	ErrUserNodeExists = errors.New("device: user node already exists")

	// ErrUserNodeNotFound is returned when removing an unknown user node.
	ErrUserNodeNotFound = errors.New("device: user node not found")

	// ErrInvalidUserNode is returned when a user node has no name or parent.
	ErrInvalidUserNode = errors.New("device: invalid user node")

	// ErrCorruptRegistry is returned when clients.json cannot be decoded.
	ErrCorruptRegistry = errors.New("device: corrupt registry document")
)
