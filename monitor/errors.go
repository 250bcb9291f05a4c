package monitor

import "errors"

// Errors returned when a caller supplied value cannot be turned into a wire value.
var (
	ErrInvalidValue         = errors.New("monitor: invalid value")
	ErrUnknownName          = errors.New("monitor: unknown name")
	ErrUnsupportedValueType = errors.New("monitor: unsupported value type")
)
