package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "arm1", nil},
		{"with spaces inside", "Line 3 PLC", nil},
		{"empty", "", ErrInvalidName},
		{"whitespace only", "   ", ErrInvalidName},
		{"leading space", " arm1", ErrInvalidName},
		{"too long", strings.Repeat("x", maxNameLength+1), ErrInvalidName},
		{"reserved", "running", ErrReservedName},
		{"reserved differs by case", "Running", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		port    int
		wantErr bool
	}{
		{"ipv4", "192.168.0.10", 10001, false},
		{"ipv6", "fe80::1", 5007, false},
		{"hostname", "plc-line3.local", 5007, false},
		{"empty host", "", 5007, true},
		{"host with space", "plc line", 5007, true},
		{"port zero", "10.0.0.1", 0, true},
		{"port too high", "10.0.0.1", 70000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.host, tt.port)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRecord(t *testing.T) {
	valid := func() *Record {
		return &Record{Name: "arm1", Type: TypeRobot, IP: "10.0.0.2", Port: 10001}
	}

	assert.NoError(t, ValidateRecord(valid()))
	assert.ErrorIs(t, ValidateRecord(nil), ErrInvalidDevice)

	badType := valid()
	badType.Type = "Camera"
	assert.ErrorIs(t, ValidateRecord(badType), ErrInvalidDeviceType)

	badNode := valid()
	badNode.UserNodes = []UserNode{{Name: "D100"}}
	assert.ErrorIs(t, ValidateRecord(badNode), ErrInvalidUserNode)
}

func TestType_Valid(t *testing.T) {
	assert.True(t, TypeRobot.Valid())
	assert.True(t, TypePLC.Valid())
	assert.False(t, Type("plc").Valid())
	assert.False(t, Type("").Valid())
}

func TestRecord_Address(t *testing.T) {
	assert.Equal(t, "10.0.0.2:10001", (&Record{IP: "10.0.0.2", Port: 10001}).Address())
	assert.Equal(t, "[fe80::1]:5007", (&Record{IP: "fe80::1", Port: 5007}).Address())
}

func TestRecord_DeepCopy(t *testing.T) {
	station := uint8(255)
	orig := &Record{
		Name:               "line",
		Type:               TypePLC,
		DestinationStation: &station,
		UserNodes:          []UserNode{{Name: "D100", Parent: "Data"}},
	}

	cp := orig.DeepCopy()
	*cp.DestinationStation = 1
	cp.UserNodes[0].Name = "changed"

	assert.Equal(t, uint8(255), *orig.DestinationStation)
	assert.Equal(t, "D100", orig.UserNodes[0].Name)
	assert.Nil(t, (*Record)(nil).DeepCopy())
}
