package probe

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/aerion-control/internal/device"
)

// FailureReason names why a probe did not succeed. The empty reason means
// success.
type FailureReason string

// Failure reasons, in the order the probe can produce them.
const (
	ReasonAddressError          FailureReason = "address_error"
	ReasonConnectionFailed      FailureReason = "connection_failed"
	ReasonTimeoutConfigFailed   FailureReason = "timeout_config_failed"
	ReasonSendFailed            FailureReason = "send_failed"
	ReasonReceiveFailed         FailureReason = "receive_failed"
	ReasonInvalidResponse       FailureReason = "invalid_response"
	ReasonInvalidResponseLength FailureReason = "invalid_response_length"
	ReasonNonZeroEndCode        FailureReason = "non_zero_end_code"
	ReasonInvalidDataLength     FailureReason = "invalid_data_length"
	ReasonEchoMismatch          FailureReason = "echo_mismatch"
	ReasonUnsupportedDeviceType FailureReason = "unsupported_device_type"
	ReasonShutdownFailed        FailureReason = "shutdown_failed"
)

var reasonMessages = map[FailureReason]string{
	ReasonAddressError:          "Invalid device address",
	ReasonConnectionFailed:      "Couldn't connect to device",
	ReasonTimeoutConfigFailed:   "Couldn't set write/read timeout",
	ReasonSendFailed:            "Couldn't send message to device",
	ReasonReceiveFailed:         "Couldn't receive answer from device",
	ReasonInvalidResponse:       "Invalid answer from device",
	ReasonInvalidResponseLength: "Invalid answer from device",
	ReasonNonZeroEndCode:        "Endcode != 0",
	ReasonInvalidDataLength:     "Loopback data length invalid",
	ReasonEchoMismatch:          "Loopback data invalid",
	ReasonUnsupportedDeviceType: "Unsupported device type",
	ReasonShutdownFailed:        "Couldn't shutdown device",
}

// Message returns the operator-facing text for the reason.
func (r FailureReason) Message() string {
	if r == "" {
		return "OK"
	}
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// Outcome is the verdict of one probe.
type Outcome struct {
	Reason FailureReason

	// Detail carries the underlying error text, if any.
	Detail string

	// ShutdownFailed is set when closing the connection reported an error.
	// It does not change Reason unless strict shutdown is enabled.
	ShutdownFailed bool
}

// OK reports whether the device answered correctly.
func (o Outcome) OK() bool {
	return o.Reason == ""
}

// Message returns the short diagnostic for the outcome.
func (o Outcome) Message() string {
	return o.Reason.Message()
}

func fail(reason FailureReason, err error) Outcome {
	o := Outcome{Reason: reason}
	if err != nil {
		o.Detail = err.Error()
	}
	return o
}

// MarshalJSON renders the outcome with its derived fields.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OK             bool          `json:"ok"`
		Reason         FailureReason `json:"reason,omitempty"`
		Message        string        `json:"message"`
		Detail         string        `json:"detail,omitempty"`
		ShutdownFailed bool          `json:"shutdown_failed,omitempty"`
	}{o.OK(), o.Reason, o.Message(), o.Detail, o.ShutdownFailed})
}

// Result is one probe as seen by observers and API clients.
type Result struct {
	ID        string
	Device    string
	Type      device.Type
	Address   string
	Outcome   Outcome
	StartedAt time.Time
	Duration  time.Duration
}

// MarshalJSON renders the duration in milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string      `json:"id,omitempty"`
		Device     string      `json:"device"`
		Type       device.Type `json:"type"`
		Address    string      `json:"address"`
		Outcome    Outcome     `json:"outcome"`
		StartedAt  time.Time   `json:"started_at"`
		DurationMS int64       `json:"duration_ms"`
	}{r.ID, r.Device, r.Type, r.Address, r.Outcome, r.StartedAt, r.Duration.Milliseconds()})
}

// Label returns "ok" or the failure reason, for metrics and tags.
func (r Result) Label() string {
	if r.Outcome.OK() {
		return "ok"
	}
	return string(r.Outcome.Reason)
}
