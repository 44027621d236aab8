package model

import "errors"

var (
	// ErrInvalidArgument is a local validation failure. It never
	// results in a device call.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedOperation means the hardware lacks the capability.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrDeviceUnreachable wraps transport failures and timeouts.
	ErrDeviceUnreachable = errors.New("device unreachable")
	// ErrAuthenticationFailed means the device rejected the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrBusy means the command queue is full.
	ErrBusy = errors.New("command queue full")
	// ErrUnavailable means consecutive polls failed entirely and the
	// device should be treated as offline.
	ErrUnavailable = errors.New("device unavailable")
)
