package device

import (
	"net"
	"slices"
	"strconv"
)

// Type selects the handshake used to check a device.
type Type string

// Device types understood by the OPC-UA server.
const (
	TypeRobot Type = "Robot"
	TypePLC   Type = "PLC"
)

// AllTypes returns every supported device type.
func AllTypes() []Type {
	return []Type{TypeRobot, TypePLC}
}

// Valid reports whether t is a supported device type.
func (t Type) Valid() bool {
	return slices.Contains(AllTypes(), t)
}

// UserNode is an additional OPC-UA variable the server exposes for a device.
// A device may not have two user nodes with the same Name and Parent.
type UserNode struct {
	Name   string `json:"Name"`
	Parent string `json:"Parent"`
}

// Record is one entry of the registry document. JSON keys match the
// document the OPC-UA server reads.
type Record struct {
	Name string `json:"Name"`
	Type Type   `json:"Type"`
	IP   string `json:"Ip"`
	Port int    `json:"Port"`

	// SLMP routing for PLCs. Nil for robots.
	DestinationNetwork   *uint8  `json:"Destination network No.,omitempty"`
	DestinationStation   *uint8  `json:"Destination station No.,omitempty"`
	DestinationModuleIO  *uint16 `json:"Destination Module I/O,omitempty"`
	DestinationMultidrop *uint8  `json:"Destination multidrop station No.,omitempty"`

	UserNodes []UserNode `json:"UserNodes,omitempty"`
}

// Address returns the host:port the device listens on.
func (r *Record) Address() string {
	return net.JoinHostPort(r.IP, strconv.Itoa(r.Port))
}

// DeepCopy returns a copy that shares no memory with r.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.DestinationNetwork = copyPtr(r.DestinationNetwork)
	c.DestinationStation = copyPtr(r.DestinationStation)
	c.DestinationModuleIO = copyPtr(r.DestinationModuleIO)
	c.DestinationMultidrop = copyPtr(r.DestinationMultidrop)
	if r.UserNodes != nil {
		c.UserNodes = slices.Clone(r.UserNodes)
	}
	return &c
}

// HasUserNode reports whether the device has a user node with this name and parent.
func (r *Record) HasUserNode(name, parent string) bool {
	return r.userNodeIndex(name, parent) >= 0
}

func (r *Record) userNodeIndex(name, parent string) int {
	return slices.IndexFunc(r.UserNodes, func(n UserNode) bool {
		return n.Name == name && n.Parent == parent
	})
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Document is the top-level shape of clients.json.
type Document struct {
	Clients []Record `json:"Clients"`
}

func (d *Document) index(name string) int {
	return slices.IndexFunc(d.Clients, func(r Record) bool { return r.Name == name })
}
