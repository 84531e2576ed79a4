package relay

import (
	"bytes"
	"time"
	"unicode/utf8"
)

// Category is the kind of notification, derived from its leading bytes.
// Known categories double as the published event names.
type Category string

// Categories.
const (
	CategoryDeviceUpdate Category = "device_update"
	CategoryServerUpdate Category = "server_update"
	CategoryClearDevices Category = "clear_devices"
	CategoryUnknown      Category = "unknown"
)

// Ack is the reply sent for every request.
const Ack = "OK"

var discriminators = []struct {
	prefix   []byte
	category Category
}{
	{[]byte(`{"device_update"`), CategoryDeviceUpdate},
	{[]byte(`{"server_update"`), CategoryServerUpdate},
	{[]byte(`{"clear_devices"`), CategoryClearDevices},
}

// Classify returns the category of a raw message. Invalid UTF-8 and
// unrecognised prefixes are CategoryUnknown.
func Classify(msg []byte) Category {
	if !utf8.Valid(msg) {
		return CategoryUnknown
	}
	for _, d := range discriminators {
		if bytes.HasPrefix(msg, d.prefix) {
			return d.category
		}
	}
	return CategoryUnknown
}

// Known reports whether messages of this category are republished.
func (c Category) Known() bool {
	return c != CategoryUnknown && c != ""
}

// EventNames lists the names subscribers can receive.
func EventNames() []string {
	return []string{string(CategoryDeviceUpdate), string(CategoryServerUpdate), string(CategoryClearDevices)}
}

// Event is a republished notification.
type Event struct {
	Name       string
	Message    string
	ReceivedAt time.Time
}

// Payload is the body subscribers serialise: the verbatim message text.
type Payload struct {
	Message string `json:"message"`
}

// Payload returns the event body.
func (e Event) Payload() Payload {
	return Payload{Message: e.Message}
}
