package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/sonicwave/pulse/internal/logging"
)

// Driver actions, passed as PULSE_ACTION.
const (
	ActionReady          = "ready"
	ActionStartOutput    = "start_output"
	ActionStopOutput     = "stop_output"
	ActionApplyFrequency = "apply_frequency"
	ActionApplyIntensity = "apply_intensity"
	ActionPlayTone       = "play_tone"
	ActionStopTone       = "stop_tone"
)

// ErrDriverFailed wraps every failed driver invocation.
var ErrDriverFailed = errors.New("driver call failed")

// Hardware implements ports.HardwareGateway by running the driver program.
//
// A call succeeds when the program exits 0. For start_output and play_tone
// the program may print "refused" to decline without failing.
type Hardware struct {
	cfg      DriverConfig
	deviceID string
	logger   *slog.Logger
	ready    bool
}

// Option configures Hardware.
type Option func(*Hardware)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hardware) {
		h.logger = logger
	}
}

// Connect probes the driver with the ready action and returns the gateway
// of deviceID. A failing probe leaves the gateway not ready; only an invalid
// configuration is an error.
func Connect(ctx context.Context, cfg DriverConfig, deviceID string, opts ...Option) (*Hardware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid driver config: %w", err)
	}
	h := &Hardware{
		cfg:      cfg,
		deviceID: deviceID,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	_, err := h.run(ctx, ActionReady, nil)
	h.ready = err == nil
	if err != nil {
		h.logger.Warn("driver not ready", "device_id", deviceID, "err", err)
	}
	return h, nil
}

func (h *Hardware) StartOutput(ctx context.Context, frequency, intensity int, playTone bool) (bool, error) {
	out, err := h.run(ctx, ActionStartOutput, map[string]string{
		"frequency": strconv.Itoa(frequency),
		"intensity": strconv.Itoa(intensity),
		"play_tone": strconv.FormatBool(playTone),
	})
	if err != nil {
		return false, err
	}
	return !refused(out), nil
}

func (h *Hardware) StopOutput(ctx context.Context) error {
	_, err := h.run(ctx, ActionStopOutput, nil)
	return err
}

func (h *Hardware) ApplyFrequency(ctx context.Context, frequency int) error {
	_, err := h.run(ctx, ActionApplyFrequency, map[string]string{"frequency": strconv.Itoa(frequency)})
	return err
}

func (h *Hardware) ApplyIntensity(ctx context.Context, intensity int) error {
	_, err := h.run(ctx, ActionApplyIntensity, map[string]string{"intensity": strconv.Itoa(intensity)})
	return err
}

func (h *Hardware) PlayStandaloneTone(ctx context.Context, frequency, intensity int) (bool, error) {
	out, err := h.run(ctx, ActionPlayTone, map[string]string{
		"frequency": strconv.Itoa(frequency),
		"intensity": strconv.Itoa(intensity),
	})
	if err != nil {
		return false, err
	}
	return !refused(out), nil
}

func (h *Hardware) StopStandaloneTone(ctx context.Context) error {
	_, err := h.run(ctx, ActionStopTone, nil)
	return err
}

// Ready reports the result of the connect probe.
func (h *Hardware) Ready() bool {
	return h.ready
}

// ReadyChanges returns nil: readiness is only probed on connect.
func (h *Hardware) ReadyChanges() <-chan bool {
	return nil
}

func refused(out string) bool {
	return strings.EqualFold(strings.TrimSpace(out), "refused")
}

// run invokes the driver once. Arguments travel as PULSE_ARG_<NAME>
// environment variables so values can never become flags.
func (h *Hardware) run(ctx context.Context, action string, args map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, h.cfg.Command, h.cfg.Args...)
	cmd.Dir = h.cfg.Dir

	env := []string{
		"PULSE_ACTION=" + action,
		"PULSE_DEVICE_ID=" + h.deviceID,
	}
	for k, v := range h.cfg.Environment {
		env = append(env, k+"="+v)
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, "PULSE_ARG_"+strings.ToUpper(k)+"="+args[k])
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		h.logger.Debug("driver call failed", "action", action, "device_id", h.deviceID, "err", err)
		return "", fmt.Errorf("%w: %s: %v. Stderr: %s", ErrDriverFailed, action, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
