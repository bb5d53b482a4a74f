package domain

// IntentKind is the wire name of an intent.
type IntentKind string

const (
	KindSelectInput                IntentKind = "select_input"
	KindAppendDigit                IntentKind = "append_digit"
	KindDeleteDigit                IntentKind = "delete_digit"
	KindClearCurrent               IntentKind = "clear_current"
	KindCommitAndCycle             IntentKind = "commit_and_cycle"
	KindAdjustFrequency            IntentKind = "adjust_frequency"
	KindAdjustIntensity            IntentKind = "adjust_intensity"
	KindAdjustTime                 IntentKind = "adjust_time"
	KindToggleStartStop            IntentKind = "toggle_start_stop"
	KindClearAll                   IntentKind = "clear_all"
	KindSoftReduceFromTap          IntentKind = "soft_reduce_from_tap"
	KindSoftReductionStopClicked   IntentKind = "soft_reduction_stop_clicked"
	KindSoftReductionResumeClicked IntentKind = "soft_reduction_resume_clicked"
	KindSoftReductionCollapsePanel IntentKind = "soft_reduction_collapse_panel"
	KindTogglePause                IntentKind = "toggle_pause"
	KindStop                       IntentKind = "stop"
	KindPreviewTone                IntentKind = "preview_tone"
)

// Intent is a discrete user action. The set of intents is closed: only the
// types declared in this file implement it.
type Intent interface {
	Kind() IntentKind
	isIntent()
}

// SelectInput makes a field the active one.
type SelectInput struct{ Field FieldType }

// AppendDigit types a single digit into the active field.
type AppendDigit struct{ Digit string }

// DeleteDigit removes the last typed digit of the active field.
type DeleteDigit struct{}

// ClearCurrent empties the raw string of the active field.
type ClearCurrent struct{}

// CommitAndCycle commits the active field and moves focus to the next one.
type CommitAndCycle struct{}

// AdjustFrequency nudges the committed frequency by Delta.
type AdjustFrequency struct{ Delta int }

// AdjustIntensity nudges the committed intensity by Delta.
type AdjustIntensity struct{ Delta int }

// AdjustTime nudges the committed duration (minutes) by Delta.
type AdjustTime struct{ Delta int }

// ToggleStartStop starts a session when idle, otherwise stops or pauses it
// depending on the configured toggle mode.
type ToggleStartStop struct{ Customer *Customer }

// ClearAll stops any active session and resets every field.
type ClearAll struct{}

// SoftReduceFromTap attenuates intensity without ending the session.
type SoftReduceFromTap struct{}

// SoftReductionStopClicked ends a soft-reduced session.
type SoftReductionStopClicked struct{}

// SoftReductionResumeClicked restores the pre-reduction intensity.
type SoftReductionResumeClicked struct{}

// SoftReductionCollapsePanel hides the soft reduction panel.
type SoftReductionCollapsePanel struct{}

// TogglePause alternates between Running and Paused.
type TogglePause struct{}

// Stop ends the active session through the explicit stop path.
type Stop struct{}

// PreviewTone plays (Enabled) or stops a standalone tone at the committed
// frequency and intensity while no session is active.
type PreviewTone struct{ Enabled bool }

func (SelectInput) Kind() IntentKind                { return KindSelectInput }
func (AppendDigit) Kind() IntentKind                { return KindAppendDigit }
func (DeleteDigit) Kind() IntentKind                { return KindDeleteDigit }
func (ClearCurrent) Kind() IntentKind               { return KindClearCurrent }
func (CommitAndCycle) Kind() IntentKind             { return KindCommitAndCycle }
func (AdjustFrequency) Kind() IntentKind            { return KindAdjustFrequency }
func (AdjustIntensity) Kind() IntentKind            { return KindAdjustIntensity }
func (AdjustTime) Kind() IntentKind                 { return KindAdjustTime }
func (ToggleStartStop) Kind() IntentKind            { return KindToggleStartStop }
func (ClearAll) Kind() IntentKind                   { return KindClearAll }
func (SoftReduceFromTap) Kind() IntentKind          { return KindSoftReduceFromTap }
func (SoftReductionStopClicked) Kind() IntentKind   { return KindSoftReductionStopClicked }
func (SoftReductionResumeClicked) Kind() IntentKind { return KindSoftReductionResumeClicked }
func (SoftReductionCollapsePanel) Kind() IntentKind { return KindSoftReductionCollapsePanel }
func (TogglePause) Kind() IntentKind                { return KindTogglePause }
func (Stop) Kind() IntentKind                       { return KindStop }
func (PreviewTone) Kind() IntentKind                { return KindPreviewTone }

func (SelectInput) isIntent()                {}
func (AppendDigit) isIntent()                {}
func (DeleteDigit) isIntent()                {}
func (ClearCurrent) isIntent()               {}
func (CommitAndCycle) isIntent()             {}
func (AdjustFrequency) isIntent()            {}
func (AdjustIntensity) isIntent()            {}
func (AdjustTime) isIntent()                 {}
func (ToggleStartStop) isIntent()            {}
func (ClearAll) isIntent()                   {}
func (SoftReduceFromTap) isIntent()          {}
func (SoftReductionStopClicked) isIntent()   {}
func (SoftReductionResumeClicked) isIntent() {}
func (SoftReductionCollapsePanel) isIntent() {}
func (TogglePause) isIntent()                {}
func (Stop) isIntent()                       {}
func (PreviewTone) isIntent()                {}
