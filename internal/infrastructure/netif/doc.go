// Package netif lists host network interfaces and chooses between IPv4 and
// IPv6 addresses.
//
// The same Policy decides which resolved address the connectivity probe
// dials and which address is shown for each interface, so both follow the
// probe.address_family and probe.address_fallback settings.
package netif
