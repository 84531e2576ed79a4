package settings

import "errors"

var (
	// ErrKeyNotFound is returned when reading a key the document lacks.
	ErrKeyNotFound = errors.New("settings: key not found")

	// ErrInvalidValue is returned when a value cannot be parsed as its type.
	ErrInvalidValue = errors.New("settings: invalid value")

	// ErrTypeMismatch is returned when a stored value is not of the
	// requested type.
	ErrTypeMismatch = errors.New("settings: stored value has a different type")

	// ErrUnknownValueType is returned for value types other than Number,
	// Boolean, Array and String.
	ErrUnknownValueType = errors.New("settings: unknown value type")

	// ErrCorruptDocument is returned when server.json is not a JSON object.
	ErrCorruptDocument = errors.New("settings: corrupt document")
)
