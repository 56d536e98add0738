package lxpmodbus

import "errors"

var (
	// ErrInvalidRequestParameters marks malformed caller input. It is
	// returned before anything touches the wire.
	ErrInvalidRequestParameters = errors.New("lxpmodbus: invalid request parameters")

	// ErrFrameRecoveryExhausted means the byte stream never yielded a
	// valid frame within the recovery bounds.
	ErrFrameRecoveryExhausted = errors.New("lxpmodbus: frame recovery exhausted")

	// ErrProtocolError marks a well-framed response that does not match
	// the request, or a device-reported exception.
	ErrProtocolError = errors.New("lxpmodbus: protocol error")

	// ErrDeviceUnreachable is surfaced after the connection retry budget
	// is spent.
	ErrDeviceUnreachable = errors.New("lxpmodbus: device unreachable")

	// ErrReadOnly is returned for write attempts on a read-only client.
	ErrReadOnly = errors.New("lxpmodbus: client is read-only")
)
