package slmp

import (
	"encoding/binary"
	"fmt"
)

// Subheaders of 3E binary frames, as little-endian values
// (on the wire: 50 00 and D0 00).
const (
	SubheaderRequest  uint16 = 0x0050
	SubheaderResponse uint16 = 0x00D0
)

// CommandLoopback is the SLMP self-test command.
const CommandLoopback uint16 = 0x0619

// Frame sizes.
const (
	LoopbackDataSize     = 2
	LoopbackRequestSize  = 19
	LoopbackResponseSize = 15

	// requestDataLength counts the bytes after the length field:
	// timer(2) + command(2) + subcommand(2) + loopback length(2) + data(2).
	requestDataLength = 13

	// responseDataLength counts end code(2) + loopback length(2) + data(2).
	responseDataLength = 6
)

// Byte offsets shared by request and response frames.
const (
	offSubheader = 0
	offNetwork   = 2
	offStation   = 3
	offModuleIO  = 4
	offMultidrop = 6
	offDataLen   = 7
)

// Request-only offsets.
const (
	offReqTimer      = 9
	offReqCommand    = 11
	offReqSubcommand = 13
	offReqLoopLen    = 15
	offReqLoopData   = 17
)

// Response-only offsets.
const (
	offRespEndCode  = 9
	offRespLoopLen  = 11
	offRespLoopData = 13
)

// DefaultLoopbackData is the test pattern sent to PLCs ("AB").
var DefaultLoopbackData = [LoopbackDataSize]byte{'A', 'B'}

// Route addresses the target CPU through the network.
type Route struct {
	Network   uint8
	Station   uint8
	ModuleIO  uint16
	Multidrop uint8
}

// DefaultRoute targets the CPU directly connected to the Ethernet port.
var DefaultRoute = Route{Network: 0x00, Station: 0xFF, ModuleIO: 0x03FF, Multidrop: 0x00}

func (r Route) put(b []byte) {
	b[offNetwork] = r.Network
	b[offStation] = r.Station
	binary.LittleEndian.PutUint16(b[offModuleIO:], r.ModuleIO)
	b[offMultidrop] = r.Multidrop
}

func readRoute(b []byte) Route {
	return Route{
		Network:   b[offNetwork],
		Station:   b[offStation],
		ModuleIO:  binary.LittleEndian.Uint16(b[offModuleIO:]),
		Multidrop: b[offMultidrop],
	}
}

// LoopbackRequest is an outbound loopback test frame.
type LoopbackRequest struct {
	Route Route

	// Timer is the monitoring timer in 250 ms units; zero waits forever.
	Timer uint16

	Data [LoopbackDataSize]byte
}

// NewLoopbackRequest builds the request the probe sends: default route,
// no monitoring timer, and the given two bytes of test data.
func NewLoopbackRequest(data [LoopbackDataSize]byte) LoopbackRequest {
	return LoopbackRequest{Route: DefaultRoute, Data: data}
}

// Encode serialises the request into its 19-byte wire form.
//
// Layout (little-endian):
//
//	0-1   subheader 0x5000
//	2-6   route (network, station, module I/O, multidrop)
//	7-8   request data length (13)
//	9-10  monitoring timer
//	11-12 command 0x0619
//	13-14 subcommand 0x0000
//	15-16 loopback data length (2)
//	17-18 loopback data
func (r LoopbackRequest) Encode() []byte {
	b := make([]byte, LoopbackRequestSize)
	binary.LittleEndian.PutUint16(b[offSubheader:], SubheaderRequest)
	r.Route.put(b)
	binary.LittleEndian.PutUint16(b[offDataLen:], requestDataLength)
	binary.LittleEndian.PutUint16(b[offReqTimer:], r.Timer)
	binary.LittleEndian.PutUint16(b[offReqCommand:], CommandLoopback)
	binary.LittleEndian.PutUint16(b[offReqSubcommand:], 0)
	binary.LittleEndian.PutUint16(b[offReqLoopLen:], LoopbackDataSize)
	copy(b[offReqLoopData:], r.Data[:])
	return b
}

// ParseLoopbackRequest decodes a 19-byte loopback request. It is the
// inverse of Encode and is used by PLC simulators.
func ParseLoopbackRequest(b []byte) (LoopbackRequest, error) {
	if len(b) != LoopbackRequestSize {
		return LoopbackRequest{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), LoopbackRequestSize)
	}
	if binary.LittleEndian.Uint16(b[offSubheader:]) != SubheaderRequest {
		return LoopbackRequest{}, fmt.Errorf("%w: % x", ErrInvalidSubheader, b[0:2])
	}
	if cmd := binary.LittleEndian.Uint16(b[offReqCommand:]); cmd != CommandLoopback {
		return LoopbackRequest{}, fmt.Errorf("%w: 0x%04X", ErrInvalidCommand, cmd)
	}
	if n := binary.LittleEndian.Uint16(b[offReqLoopLen:]); n != LoopbackDataSize {
		return LoopbackRequest{}, fmt.Errorf("%w: %d", ErrInvalidDataLength, n)
	}

	req := LoopbackRequest{
		Route: readRoute(b),
		Timer: binary.LittleEndian.Uint16(b[offReqTimer:]),
	}
	copy(req.Data[:], b[offReqLoopData:])
	return req, nil
}

// LoopbackResponse is a decoded loopback answer.
type LoopbackResponse struct {
	Route      Route
	EndCode    EndCode
	DataLength uint16
	Data       [LoopbackDataSize]byte
}

// NewLoopbackResponse builds the answer a healthy PLC gives to req.
func NewLoopbackResponse(req LoopbackRequest) LoopbackResponse {
	return LoopbackResponse{
		Route:      req.Route,
		EndCode:    EndCodeSuccess,
		DataLength: LoopbackDataSize,
		Data:       req.Data,
	}
}

// ParseLoopbackResponse decodes a loopback answer. Any length other than
// 15 bytes returns ErrInvalidLength without reading a field; a response
// that parses may still fail Validate.
//
// Layout (little-endian):
//
//	0-1   subheader 0xD000
//	2-6   route echoed from the request
//	7-8   response data length
//	9-10  end code
//	11-12 loopback data length
//	13-14 loopback data
func ParseLoopbackResponse(b []byte) (LoopbackResponse, error) {
	if len(b) != LoopbackResponseSize {
		return LoopbackResponse{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), LoopbackResponseSize)
	}

	resp := LoopbackResponse{
		Route:      readRoute(b),
		EndCode:    EndCode(binary.LittleEndian.Uint16(b[offRespEndCode:])),
		DataLength: binary.LittleEndian.Uint16(b[offRespLoopLen:]),
	}
	copy(resp.Data[:], b[offRespLoopData:offRespLoopData+LoopbackDataSize])
	return resp, nil
}

// Validate checks the response against the data that was sent. Checks run
// in order: end code, echoed length, echoed bytes.
func (r LoopbackResponse) Validate(sent [LoopbackDataSize]byte) error {
	if r.EndCode != EndCodeSuccess {
		return fmt.Errorf("%w: %s", ErrNonZeroEndCode, r.EndCode)
	}
	if r.DataLength != LoopbackDataSize {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidDataLength, r.DataLength, LoopbackDataSize)
	}
	if r.Data != sent {
		return fmt.Errorf("%w: got % x, want % x", ErrEchoMismatch, r.Data[:], sent[:])
	}
	return nil
}

// Encode serialises the response into its 15-byte wire form.
func (r LoopbackResponse) Encode() []byte {
	b := make([]byte, LoopbackResponseSize)
	binary.LittleEndian.PutUint16(b[offSubheader:], SubheaderResponse)
	r.Route.put(b)
	binary.LittleEndian.PutUint16(b[offDataLen:], responseDataLength)
	binary.LittleEndian.PutUint16(b[offRespEndCode:], uint16(r.EndCode))
	binary.LittleEndian.PutUint16(b[offRespLoopLen:], r.DataLength)
	copy(b[offRespLoopData:], r.Data[:])
	return b
}
