package domain

import "errors"

// ErrUnknownField is returned when a field name or value is not recognised.
var ErrUnknownField = errors.New("unknown field")

// ErrUnknownIntent is returned when a wire intent cannot be mapped to an Intent.
var ErrUnknownIntent = errors.New("unknown intent")

// ErrHardwareNotReady is reported when a session start is attempted before the
// hardware gateway signals readiness.
var ErrHardwareNotReady = errors.New("hardware not ready")

// ErrInvalidParameters is reported when a session start is attempted with
// committed values outside their allowed range.
var ErrInvalidParameters = errors.New("session parameters out of range")

// ErrSessionClosed is returned when an intent is sent to a closed session.
var ErrSessionClosed = errors.New("session closed")

// ErrDeviceNotFound is returned when a device ID is not registered.
var ErrDeviceNotFound = errors.New("device not found")

// ErrSnapshotNotFound is returned when a snapshot store has no entry for a device.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrOperationNotFound is returned when a ledger has no operation with the given ID.
var ErrOperationNotFound = errors.New("operation not found")
