package vcp

import "errors"

// Errors returned by the registry and by sessions.
// Check them with errors.Is; transport failures are wrapped.
var (
	ErrNotFound       = errors.New("vcp: feature code not found")
	ErrInvalidKeyType = errors.New("vcp: key must be a name or an integer value")
	ErrDuplicateName  = errors.New("vcp: feature code name already registered")
	ErrDuplicateValue = errors.New("vcp: feature code value already registered")
	ErrRegistryFrozen = errors.New("vcp: registry is frozen")

	ErrNotOpen     = errors.New("vcp: session is not open")
	ErrAlreadyOpen = errors.New("vcp: session is already open")
	ErrNotReadable = errors.New("vcp: feature code is not readable")
	ErrNotWritable = errors.New("vcp: feature code is not writable")

	// ErrIO is a communication failure on the control channel.
	ErrIO = errors.New("vcp: i/o error")
	// ErrPermission means the control channel could not be accessed,
	// usually missing device permissions or another process holding it.
	ErrPermission = errors.New("vcp: permission denied")
)
