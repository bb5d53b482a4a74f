package process

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCallTimeout bounds one driver invocation.
const DefaultCallTimeout = 2 * time.Second

// DriverConfig describes the external program that drives the output stage.
// The program is invoked once per gateway call with the action and its
// arguments in the environment, never on the command line:
//
//	PULSE_ACTION=start_output PULSE_ARG_FREQUENCY=40 PULSE_ARG_INTENSITY=30 driver --port /dev/ttyUSB0
type DriverConfig struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Dir         string            `yaml:"dir" json:"dir"`
	// TimeoutMs bounds each call; zero uses DefaultCallTimeout.
	TimeoutMs int `yaml:"timeout_ms" json:"timeout_ms"`
}

// Validate reports a missing command or a malformed environment.
func (c DriverConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Command) == "" {
		errs = append(errs, errors.New("command is required"))
	}
	if c.TimeoutMs < 0 {
		errs = append(errs, errors.New("timeout_ms must not be negative"))
	}
	for k := range c.Environment {
		if k == "" || strings.ContainsAny(k, "= ") {
			errs = append(errs, fmt.Errorf("env: invalid name %q", k))
		}
	}
	return errors.Join(errs...)
}

func (c DriverConfig) timeout() time.Duration {
	if c.TimeoutMs > 0 {
		return time.Duration(c.TimeoutMs) * time.Millisecond
	}
	return DefaultCallTimeout
}
