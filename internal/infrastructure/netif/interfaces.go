package netif

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	gnet "github.com/shirou/gopsutil/v3/net"
)

// AddrInfo is one address of an interface.
type AddrInfo struct {
	Address string `json:"address"`
	Netmask string `json:"netmask"`
}

// Interface describes a network interface the OPC-UA server can bind to.
// JSON keys match what the settings page expects.
type Interface struct {
	Name string    `json:"name"`
	MAC  string    `json:"mac-addr"`
	IPv4 *AddrInfo `json:"ipv4-addr"`
	IPv6 *AddrInfo `json:"ipv6-addr"`
}

// Lister enumerates host interfaces.
type Lister struct {
	// Fallback fills a missing family with the interface's first address.
	Fallback bool

	source func(ctx context.Context) (gnet.InterfaceStatList, error)
}

// NewLister returns a Lister backed by gopsutil.
func NewLister(fallback bool) *Lister {
	return &Lister{Fallback: fallback, source: gnet.InterfacesWithContext}
}

// List returns every interface that has at least one IP address. Each
// entry carries the first IPv4 and first IPv6 address; when a family is
// missing the slot is nil, or holds the first address if Fallback is set.
func (l *Lister) List(ctx context.Context) ([]Interface, error) {
	stats, err := l.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	out := make([]Interface, 0, len(stats))
	for _, st := range stats {
		prefixes := parsePrefixes(st.Addrs)
		if len(prefixes) == 0 {
			continue
		}

		addrs := make([]netip.Addr, len(prefixes))
		for i, p := range prefixes {
			addrs[i] = p.Addr()
		}

		iface := Interface{Name: st.Name, MAC: st.HardwareAddr}
		if i, err := (Policy{Family: FamilyIPv4, Fallback: l.Fallback}).Select(addrs); err == nil {
			iface.IPv4 = toAddrInfo(prefixes[i])
		}
		if i, err := (Policy{Family: FamilyIPv6, Fallback: l.Fallback}).Select(addrs); err == nil {
			iface.IPv6 = toAddrInfo(prefixes[i])
		}
		out = append(out, iface)
	}
	return out, nil
}

func parsePrefixes(list gnet.InterfaceAddrList) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(list))
	for _, a := range list {
		p, err := netip.ParsePrefix(a.Addr)
		if err != nil {
			addr, aerr := netip.ParseAddr(a.Addr)
			if aerr != nil {
				continue
			}
			p = netip.PrefixFrom(addr, addr.BitLen())
		}
		prefixes = append(prefixes, p)
	}
	return prefixes
}

// toAddrInfo renders the address with a netmask of its own family.
func toAddrInfo(p netip.Prefix) *AddrInfo {
	addr := p.Addr()
	mask := net.CIDRMask(p.Bits(), addr.BitLen())
	return &AddrInfo{
		Address: addr.String(),
		Netmask: net.IP(mask).String(),
	}
}
