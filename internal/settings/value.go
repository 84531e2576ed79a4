package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueType names the JSON type a setting is stored as.
type ValueType string

// Value types.
const (
	Number  ValueType = "Number"
	Boolean ValueType = "Boolean"
	Array   ValueType = "Array"
	String  ValueType = "String"
)

// ParseValueType converts s to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	switch t := ValueType(s); t {
	case Number, Boolean, Array, String:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownValueType, s)
	}
}

// encode converts submitted text into the JSON stored for the key.
func encode(value string, t ValueType) (json.RawMessage, error) {
	switch t {
	case Number:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
		}
		var n json.Number
		if err := json.Unmarshal([]byte(value), &n); err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
		}
		return json.RawMessage(n.String()), nil

	case Boolean:
		// Only the JSON literals, not strconv.ParseBool's wider set.
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
		}
		return json.RawMessage(value), nil

	case Array:
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(value), &arr); err != nil || arr == nil {
			return nil, fmt.Errorf("%w: %q is not an array", ErrInvalidValue, value)
		}
		return compact([]byte(value))

	case String:
		return json.Marshal(value)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownValueType, t)
	}
}

// decode renders a stored value as text of type t.
func decode(raw json.RawMessage, t ValueType) (string, error) {
	switch t {
	case Number:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return "", ErrTypeMismatch
		}
		i, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s is not an integer", ErrTypeMismatch, raw)
		}
		return strconv.FormatInt(i, 10), nil

	case Boolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", ErrTypeMismatch
		}
		return strconv.FormatBool(b), nil

	case Array:
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil || arr == nil {
			return "", ErrTypeMismatch
		}
		out, err := compact(raw)
		return string(out), err

	case String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", ErrTypeMismatch
		}
		return s, nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownValueType, t)
	}
}

func compact(data []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return buf.Bytes(), nil
}
