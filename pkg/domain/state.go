package domain

// RunState is the lifecycle mode of a stimulation session.
type RunState string

const (
	RunIdle        RunState = "idle"         // No session; output stopped
	RunRunning     RunState = "running"      // Output active, countdown ticking
	RunPaused      RunState = "paused"       // Countdown frozen, output left active
	RunSoftReduced RunState = "soft_reduced" // Running with intensity attenuated
)

// Active reports whether a session is in progress (anything but Idle).
func (s RunState) Active() bool {
	return s == RunRunning || s == RunPaused || s == RunSoftReduced
}

// FieldView is the presentation of a single field inside a snapshot.
type FieldView struct {
	// Raw is the digit string currently being typed (may be empty).
	Raw string `json:"raw"`
	// Display is the formatted value shown to the user.
	Display string `json:"display"`
	// Committed is the last committed value (0 when unset).
	Committed int `json:"committed"`
}

// UiState is the immutable snapshot of a device session.
// A fresh value is built after every transition; holders may keep it freely.
type UiState struct {
	ActiveField FieldType `json:"active_field"`
	Frequency   FieldView `json:"frequency"`
	Intensity   FieldView `json:"intensity"`
	Duration    FieldView `json:"duration"`

	// CountdownSeconds is the remaining session time while a session is active.
	CountdownSeconds int `json:"countdown_seconds"`

	RunState    RunState `json:"run_state"`
	OperationID int64    `json:"operation_id,omitempty"`

	IsRunning           bool `json:"is_running"`
	IsPaused            bool `json:"is_paused"`
	IsHardwareReady     bool `json:"is_hardware_ready"`
	SoftReductionActive bool `json:"soft_reduction_active"`
	SoftPanelExpanded   bool `json:"soft_panel_expanded"`
	StartButtonEnabled  bool `json:"start_button_enabled"`
	TonePlaying         bool `json:"tone_playing"`
}

// Field returns the view of the given field.
func (s UiState) Field(f FieldType) FieldView {
	switch f {
	case FieldIntensity:
		return s.Intensity
	case FieldDuration:
		return s.Duration
	default:
		return s.Frequency
	}
}

// Params returns the committed values held by the snapshot.
func (s UiState) Params() Params {
	return Params{
		FrequencyHz: s.Frequency.Committed,
		Intensity:   s.Intensity.Committed,
		Minutes:     s.Duration.Committed,
	}
}

// ToggleMode selects what ToggleStartStop does while a session is active.
type ToggleMode string

const (
	// ToggleStop ends the session with reason "manual".
	ToggleStop ToggleMode = "stop"
	// TogglePauseResume alternates between Running and Paused.
	TogglePauseResume ToggleMode = "pause"
)

// Valid reports whether m is a known mode.
func (m ToggleMode) Valid() bool {
	return m == ToggleStop || m == TogglePauseResume
}
