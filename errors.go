package vhkb

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnreachable matches any request that ran out of attempts.
	ErrDeviceUnreachable = errors.New("ventilation: device unreachable")

	// ErrNoAddress is returned when the device address is neither configured nor discovered.
	ErrNoAddress = errors.New("ventilation: no device address")
)

// TransportError is a single failed attempt against the device.
type TransportError struct {
	Op       string // read or write
	Register int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Op, e.Register, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnreachableError is returned once every attempt failed; it wraps the last TransportError.
type UnreachableError struct {
	Attempts int
	Last     *TransportError
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %s", ErrDeviceUnreachable.Error(), e.Attempts, e.Last.Error())
}

func (e *UnreachableError) Unwrap() error {
	return e.Last
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrDeviceUnreachable
}
