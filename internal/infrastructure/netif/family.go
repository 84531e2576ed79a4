package netif

import (
	"errors"
	"fmt"
	"net/netip"
)

// Family restricts which IP address family is chosen when a host has several.
type Family string

// Supported families.
const (
	FamilyAny  Family = "any"
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// ErrNoAddress is returned when no address satisfies the policy.
var ErrNoAddress = errors.New("netif: no address of the requested family")

// ParseFamily converts a configuration value to a Family.
func ParseFamily(s string) (Family, error) {
	switch f := Family(s); f {
	case FamilyAny, FamilyIPv4, FamilyIPv6:
		return f, nil
	case "":
		return FamilyAny, nil
	default:
		return "", fmt.Errorf("netif: unknown address family %q", s)
	}
}

// Matches reports whether addr belongs to the family.
func (f Family) Matches(addr netip.Addr) bool {
	switch f {
	case FamilyIPv4:
		return addr.Unmap().Is4()
	case FamilyIPv6:
		return addr.Is6() && !addr.Is4In6()
	default:
		return addr.IsValid()
	}
}

// Policy picks one address from a list.
type Policy struct {
	Family Family

	// Fallback returns the first address when none matches Family.
	Fallback bool
}

// Select returns the index of the first address matching the policy.
// With Fallback set, a non-empty list always yields index 0 when nothing
// matches. It returns ErrNoAddress otherwise.
func (p Policy) Select(addrs []netip.Addr) (int, error) {
	for i, a := range addrs {
		if p.Family.Matches(a) {
			return i, nil
		}
	}
	if p.Fallback && len(addrs) > 0 {
		return 0, nil
	}
	return -1, fmt.Errorf("%w: %s among %d addresses", ErrNoAddress, p.Family, len(addrs))
}
