package domain

import "time"

// StopReason is recorded in the session ledger when a session ends.
type StopReason string

const (
	StopManual        StopReason = "manual"
	StopTimeout       StopReason = "timeout"
	StopSoftReduction StopReason = "soft_reduction_stop"
	StopHardwareError StopReason = "hardware_error"
	StopShutdown      StopReason = "shutdown"
)

// OperationEventType classifies an in-session ledger event.
type OperationEventType string

const (
	OpAdjustFrequency     OperationEventType = "adjust_frequency"
	OpAdjustIntensity     OperationEventType = "adjust_intensity"
	OpAdjustTime          OperationEventType = "adjust_time"
	OpPause               OperationEventType = "pause"
	OpResume              OperationEventType = "resume"
	OpSoftReductionStart  OperationEventType = "soft_reduction_start"
	OpSoftReductionResume OperationEventType = "soft_reduction_resume"
)

// OperationEvent is an audit record logged against a running operation.
type OperationEvent struct {
	Type          OperationEventType `json:"event_type"`
	Frequency     int                `json:"frequency"`
	Intensity     int                `json:"intensity"`
	TimeRemaining int                `json:"time_remaining"`
	Detail        *string            `json:"extra_detail,omitempty"`
}

// Operation is a ledger record of one session, as returned by inspectable ledgers.
type Operation struct {
	ID         int64            `json:"id"`
	Customer   *Customer        `json:"customer,omitempty"`
	Frequency  int              `json:"frequency"`
	Intensity  int              `json:"intensity"`
	Minutes    int              `json:"minutes"`
	StartedAt  time.Time        `json:"started_at"`
	StoppedAt  *time.Time       `json:"stopped_at,omitempty"`
	StopReason StopReason       `json:"stop_reason,omitempty"`
	StopDetail *string          `json:"stop_detail,omitempty"`
	Events     []OperationEvent `json:"events,omitempty"`
}
