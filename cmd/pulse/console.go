package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"github.com/sonicwave/pulse"
	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/internal/presentation/tui"
	"github.com/sonicwave/pulse/pkg/adapters/memory"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const consoleHelp = `keys: 0-9 type | tab/enter commit | backspace delete | f i t select | + - adjust
      space start/stop | p pause | s soft reduce | r resume | x soft stop | k hide panel
      c clear field | C clear all | e stop | o tone preview | h toggle hardware ready
      ? details | q quit`

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Drive a simulated device from the keyboard",
	Long: `Opens one device on simulated hardware and maps keys to intents. The status
line is redrawn on every snapshot, including ramp and countdown ticks.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("device", "console", "Device ID")
	consoleCmd.Flags().String("style", "", "Glamour style for the details panel (default: auto)")
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	deviceID, _ := cmd.Flags().GetString("device")
	style, _ := cmd.Flags().GetString("style")

	// Log lines would tear the status line; stay quiet unless asked.
	logger := logging.NewNop()
	if cmd.Flags().Changed("log-level") {
		logger = newLogger(cfg)
	}

	var hw *memory.Hardware
	stack, err := pulse.Build(cfg,
		pulse.WithLogger(logger),
		pulse.WithHardwareFactory(func(context.Context, string) (ports.HardwareGateway, error) {
			hw = memory.NewHardware(memory.WithReady(true), memory.WithHardwareLogger(logger))
			return hw, nil
		}),
	)
	if err != nil {
		return err
	}
	defer stack.Close(context.Background())

	ctx := cmd.Context()
	if err := stack.Ping(ctx); err != nil {
		return err
	}
	device, err := stack.Manager.Open(ctx, deviceID)
	if err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("console needs an interactive terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	render, err := tui.NewRenderer(style)
	if err != nil {
		return err
	}
	c := &console{
		out:     crlfWriter{cmd.OutOrStdout()},
		profile: termenv.ColorProfile(),
		render:  render,
		device:  device,
	}

	tui.PrintBanner(c.out, c.profile)
	fmt.Fprintln(c.out, consoleHelp)
	fmt.Fprintln(c.out)

	updates, unsubscribe := device.Subscribe()
	defer unsubscribe()

	keys := make(chan byte)
	go readKeys(os.Stdin, keys)

	c.status(device.State())
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			c.show(u)
		case b, ok := <-keys:
			if !ok {
				return nil
			}
			switch b {
			case 'q', 3, 4: // q, ctrl-c, ctrl-d
				fmt.Fprintln(c.out)
				return nil
			case 'h':
				hw.SetReady(!hw.Ready())
				continue
			case '?':
				c.details()
				continue
			}

			intent, ok := keyIntent(b, device.State().ActiveField)
			if b == 'o' {
				intent, ok = domain.PreviewTone{Enabled: !device.State().TonePlaying}, true
			}
			if !ok {
				continue
			}
			if _, _, err := device.Handle(ctx, intent); err != nil {
				fmt.Fprintln(c.out)
				return err
			}
		}
	}
}

type console struct {
	out     io.Writer
	profile termenv.Profile
	render  tui.Renderer
	device  *session.Orchestrator
}

func (c *console) status(s domain.UiState) {
	fmt.Fprintf(c.out, "\r\x1b[2K%s", tui.StatusLine(c.profile, s))
}

func (c *console) show(u session.Update) {
	for _, e := range u.Events {
		msg := e.Error()
		if e.Kind == domain.EventError {
			msg = c.profile.String("! " + msg).Foreground(c.profile.Color("#f87171")).String()
		}
		fmt.Fprintf(c.out, "\r\x1b[2K%s\n", msg)
	}
	c.status(u.State)
}

func (c *console) details() {
	out, err := c.render(tui.StateMarkdown(c.device.DeviceID(), c.device.State()))
	if err != nil {
		out = err.Error() + "\n"
	}
	fmt.Fprint(c.out, "\r\x1b[2K", out)
	c.status(c.device.State())
}

func readKeys(r io.Reader, keys chan<- byte) {
	defer close(keys)
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
		keys <- buf[0]
	}
}

// keyIntent maps a key press to an intent. Adjust keys act on active.
func keyIntent(b byte, active domain.FieldType) (domain.Intent, bool) {
	switch {
	case b >= '0' && b <= '9':
		return domain.AppendDigit{Digit: string(rune(b))}, true
	}

	switch b {
	case '\t', '\r', '\n':
		return domain.CommitAndCycle{}, true
	case 127, 8:
		return domain.DeleteDigit{}, true
	case 'f':
		return domain.SelectInput{Field: domain.FieldFrequency}, true
	case 'i':
		return domain.SelectInput{Field: domain.FieldIntensity}, true
	case 't':
		return domain.SelectInput{Field: domain.FieldDuration}, true
	case '+', '=':
		return adjust(active, 1), true
	case '-', '_':
		return adjust(active, -1), true
	case ' ':
		return domain.ToggleStartStop{}, true
	case 'p':
		return domain.TogglePause{}, true
	case 's':
		return domain.SoftReduceFromTap{}, true
	case 'r':
		return domain.SoftReductionResumeClicked{}, true
	case 'x':
		return domain.SoftReductionStopClicked{}, true
	case 'k':
		return domain.SoftReductionCollapsePanel{}, true
	case 'c':
		return domain.ClearCurrent{}, true
	case 'C':
		return domain.ClearAll{}, true
	case 'e':
		return domain.Stop{}, true
	}
	return nil, false
}

func adjust(f domain.FieldType, delta int) domain.Intent {
	switch f {
	case domain.FieldIntensity:
		return domain.AdjustIntensity{Delta: delta}
	case domain.FieldDuration:
		return domain.AdjustTime{Delta: delta}
	default:
		return domain.AdjustFrequency{Delta: delta}
	}
}

// crlfWriter restores carriage returns that raw mode stops adding.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
