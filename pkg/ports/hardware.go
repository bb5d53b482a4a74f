package ports

import "context"

// HardwareGateway is the device output driver.
//
// Calls may block; the orchestrator serializes them and never issues two
// concurrently for the same device.
type HardwareGateway interface {
	// StartOutput switches the output on at the given values. A false result
	// without error means the device refused to start.
	StartOutput(ctx context.Context, frequency, intensity int, playTone bool) (bool, error)
	// StopOutput switches the output off.
	StopOutput(ctx context.Context) error
	// ApplyFrequency changes the frequency of an active output.
	ApplyFrequency(ctx context.Context, frequency int) error
	// ApplyIntensity changes the intensity of an active output.
	ApplyIntensity(ctx context.Context, intensity int) error

	// PlayStandaloneTone plays the audible tone without driving the transducer.
	PlayStandaloneTone(ctx context.Context, frequency, intensity int) (bool, error)
	// StopStandaloneTone stops a tone started by PlayStandaloneTone.
	StopStandaloneTone(ctx context.Context) error

	// Ready reports the current readiness.
	Ready() bool
	// ReadyChanges delivers readiness updates. The channel is closed when the
	// gateway shuts down. A nil channel means readiness never changes.
	ReadyChanges() <-chan bool
}
