package device

import (
	"fmt"
	"net/netip"
	"strings"
	"unicode/utf8"
)

// Validation constants.
const (
	maxNameLength = 100

	// ReservedName is used by the OPC-UA server for its own status node.
	ReservedName = "running"
)

// ValidateRecord checks a record before it is added or probed ad hoc.
// Records already stored in the document are not re-validated on load.
func ValidateRecord(r *Record) error {
	if r == nil {
		return ErrInvalidDevice
	}
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceType, r.Type)
	}
	if err := ValidateAddress(r.IP, r.Port); err != nil {
		return err
	}
	for _, n := range r.UserNodes {
		if err := ValidateUserNode(n); err != nil {
			return err
		}
	}
	return nil
}

// ValidateName checks that a device name is usable.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if trimmed != name {
		return fmt.Errorf("%w: leading or trailing whitespace", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxNameLength)
	}
	if name == ReservedName {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	return nil
}

// ValidateAddress checks the host and port of a device. The host may be
// an IP literal or a DNS name; resolution is left to the probe.
func ValidateAddress(host string, port int) error {
	if host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidAddress)
	}
	if _, err := netip.ParseAddr(host); err != nil && strings.ContainsAny(host, " /:") {
		return fmt.Errorf("%w: %q is neither an IP address nor a host name", ErrInvalidAddress, host)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
	}
	return nil
}

// ValidateUserNode checks that a user node names both itself and its parent.
func ValidateUserNode(n UserNode) error {
	if strings.TrimSpace(n.Name) == "" || strings.TrimSpace(n.Parent) == "" {
		return fmt.Errorf("%w: name and parent are required", ErrInvalidUserNode)
	}
	return nil
}
