package slmp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackRequest_Encode(t *testing.T) {
	want := []byte{
		0x50, 0x00, // subheader
		0x00,       // network
		0xFF,       // station
		0xFF, 0x03, // module I/O
		0x00,       // multidrop
		0x0D, 0x00, // request data length
		0x00, 0x00, // monitoring timer
		0x19, 0x06, // command
		0x00, 0x00, // subcommand
		0x02, 0x00, // loopback length
		0x41, 0x42, // "AB"
	}

	got := NewLoopbackRequest(DefaultLoopbackData).Encode()
	assert.Equal(t, want, got)
}

func TestLoopbackRequest_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  LoopbackRequest
	}{
		{name: "default", req: NewLoopbackRequest(DefaultLoopbackData)},
		{
			name: "routed",
			req: LoopbackRequest{
				Route: Route{Network: 2, Station: 7, ModuleIO: 0x03E0, Multidrop: 1},
				Timer: 16,
				Data:  [2]byte{0x00, 0xFF},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLoopbackRequest(tt.req.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.req, got)
		})
	}
}

func TestParseLoopbackRequest_Errors(t *testing.T) {
	valid := NewLoopbackRequest(DefaultLoopbackData).Encode()

	badSub := bytes.Clone(valid)
	badSub[0] = 0x54

	badCmd := bytes.Clone(valid)
	badCmd[11] = 0x01
	badCmd[12] = 0x04

	badLen := bytes.Clone(valid)
	badLen[15] = 0x03

	tests := []struct {
		name    string
		frame   []byte
		wantErr error
	}{
		{"short", valid[:18], ErrInvalidLength},
		{"long", append(bytes.Clone(valid), 0x00), ErrInvalidLength},
		{"bad subheader", badSub, ErrInvalidSubheader},
		{"read command", badCmd, ErrInvalidCommand},
		{"bad loopback length", badLen, ErrInvalidDataLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLoopbackRequest(tt.frame)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// plcAnswer builds a response frame with explicit end code, length and data.
func plcAnswer(endCode uint16, loopLen uint16, data [2]byte) []byte {
	return []byte{
		0xD0, 0x00,
		0x00, 0xFF, 0xFF, 0x03, 0x00,
		0x06, 0x00,
		byte(endCode), byte(endCode >> 8),
		byte(loopLen), byte(loopLen >> 8),
		data[0], data[1],
	}
}

func TestParseLoopbackResponse(t *testing.T) {
	resp, err := ParseLoopbackResponse(plcAnswer(0, 2, [2]byte{'A', 'B'}))
	require.NoError(t, err)

	assert.Equal(t, DefaultRoute, resp.Route)
	assert.Equal(t, EndCodeSuccess, resp.EndCode)
	assert.Equal(t, uint16(2), resp.DataLength)
	assert.Equal(t, [2]byte{'A', 'B'}, resp.Data)
	assert.NoError(t, resp.Validate(DefaultLoopbackData))
}

func TestParseLoopbackResponse_Length(t *testing.T) {
	for _, n := range []int{0, 1, 9, 11, 14, 16, 240} {
		_, err := ParseLoopbackResponse(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidLength, "length %d", n)
	}
}

func TestLoopbackResponse_Validate(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		wantErr error
	}{
		{"valid", plcAnswer(0x0000, 2, [2]byte{'A', 'B'}), nil},
		{"wrong command end code", plcAnswer(0xC059, 2, [2]byte{'A', 'B'}), ErrNonZeroEndCode},
		{"end code wins over length", plcAnswer(0xCEE0, 3, [2]byte{'X', 'Y'}), ErrNonZeroEndCode},
		{"length three", plcAnswer(0x0000, 3, [2]byte{'A', 'B'}), ErrInvalidDataLength},
		{"length wins over data", plcAnswer(0x0000, 0, [2]byte{'X', 'Y'}), ErrInvalidDataLength},
		{"swapped echo", plcAnswer(0x0000, 2, [2]byte{'B', 'A'}), ErrEchoMismatch},
		{"one byte wrong", plcAnswer(0x0000, 2, [2]byte{'A', 'C'}), ErrEchoMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseLoopbackResponse(tt.frame)
			require.NoError(t, err)

			err = resp.Validate(DefaultLoopbackData)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoopbackResponse_EncodeMatchesPLC(t *testing.T) {
	resp := NewLoopbackResponse(NewLoopbackRequest(DefaultLoopbackData))
	assert.Equal(t, plcAnswer(0, 2, DefaultLoopbackData), resp.Encode())

	parsed, err := ParseLoopbackResponse(resp.Encode())
	require.NoError(t, err)
	assert.Equal(t, resp, parsed)
}

func TestValidate_EndCodeInMessage(t *testing.T) {
	resp := LoopbackResponse{EndCode: EndCodeWrongCommand, DataLength: 2, Data: DefaultLoopbackData}

	err := resp.Validate(DefaultLoopbackData)
	require.True(t, errors.Is(err, ErrNonZeroEndCode))
	assert.Contains(t, err.Error(), "0xC059 (wrong command)")
}

func TestEndCode_String(t *testing.T) {
	tests := []struct {
		code EndCode
		want string
	}{
		{EndCodeSuccess, "0x0000 (success)"},
		{EndCodeBusy, "0xCEE0 (busy)"},
		{EndCodeTimeout, "0xCF71 (timeout)"},
		{EndCode(0x1234), "0x1234"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.String())
	}
}

func BenchmarkParseLoopbackResponse(b *testing.B) {
	frame := plcAnswer(0, 2, DefaultLoopbackData)
	for b.Loop() {
		resp, err := ParseLoopbackResponse(frame)
		if err != nil {
			b.Fatal(err)
		}
		if err := resp.Validate(DefaultLoopbackData); err != nil {
			b.Fatal(err)
		}
	}
}
