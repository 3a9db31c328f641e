package domain

import (
	"errors"
	"fmt"
)

// DeviceErrorCode classifies a local media acquisition failure.
type DeviceErrorCode string

const (
	DevicePermissionDenied DeviceErrorCode = "permission_denied"
	DeviceNotFound         DeviceErrorCode = "no_device"
	DeviceBusy             DeviceErrorCode = "device_busy"
	DeviceUnknown          DeviceErrorCode = "unknown"
)

// DeviceError is returned when every rung of the acquisition ladder failed,
// or immediately on a permission refusal.
type DeviceError struct {
	Code DeviceErrorCode
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error (%s): %v", e.Code, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// AsDeviceError extracts a DeviceError from an error chain.
func AsDeviceError(err error) (*DeviceError, bool) {
	var de *DeviceError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// NegotiationErrorCode classifies an offer/answer failure.
type NegotiationErrorCode string

const (
	NegotiationMalformed NegotiationErrorCode = "malformed_description"
	NegotiationRejected  NegotiationErrorCode = "rejected_by_remote"
)

// NegotiationError transitions the session to the failed state. It is
// surfaced with a retry action (recreate the manager), never repaired.
type NegotiationError struct {
	Code NegotiationErrorCode
	Err  error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation error (%s): %v", e.Code, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// TransportErrorCode classifies a signaling channel failure.
type TransportErrorCode string

const (
	TransportUnreachable  TransportErrorCode = "relay_unreachable"
	TransportDisconnected TransportErrorCode = "channel_disconnected"
)

// TransportError is reported by the signaling channel. The core never
// auto-reconnects; the room controller decides what to do with it.
type TransportError struct {
	Code TransportErrorCode
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %v", e.Code, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrNotOfferer is returned when CreateOffer is called on a manager whose
// role only answers.
var ErrNotOfferer = errors.New("session role is not the offerer")

// ErrOfferInFlight is returned when CreateOffer is called while a previous
// negotiation round is still unanswered.
var ErrOfferInFlight = errors.New("offer already in flight")

// ErrSessionClosed is returned by operations invoked after Close.
var ErrSessionClosed = errors.New("session closed")
