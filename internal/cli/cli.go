// Package cli dispatches the i2cirqmon subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/i2cirqmon/internal/config"
	"github.com/Dicklesworthstone/i2cirqmon/internal/logging"
	"github.com/Dicklesworthstone/i2cirqmon/internal/sampler"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// ErrNoSources is returned by monitor and tui when discovery found nothing
// to watch.
var ErrNoSources = errors.New("no I2C controllers with HID devices found (run 'i2cirqmon list' for details)")

// App carries the process environment a command runs against.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Fs     afero.Fs
	// IsTerminal reports whether Stdout is an interactive terminal.
	IsTerminal func() bool
}

// Run executes the command line in os.Args against the real system.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app := &App{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Fs:         afero.NewOsFs(),
		IsTerminal: func() bool { return term.IsTerminal(int(os.Stdout.Fd())) },
	}
	return app.Run(ctx, os.Args[1:])
}

func (a *App) printUsage() {
	fmt.Fprintf(a.Stderr, `i2cirqmon v%s - I2C and HID interrupt rate monitor

Usage:
  i2cirqmon <command> [options]

Commands:
  list              Show detected I2C controllers, HID devices and their IRQs
  monitor           Print interrupt rates as text, one line per sample
  tui               Live dashboard with a rate chart and per-source table
  version           Print version and exit

Run 'i2cirqmon <command> -h' for the options of a command.

Environment:
  I2CIRQMON_INTERVAL, I2CIRQMON_THRESHOLD, I2CIRQMON_HISTORY, I2CIRQMON_CONFIG
                    override defaults when the matching flag is not given

Examples:
  sudo i2cirqmon list
  sudo i2cirqmon monitor -i 500 -n 20 -t 250
  sudo i2cirqmon monitor --json-stream | jq '.total.rate'
  sudo i2cirqmon tui --config ~/.config/i2cirqmon.yaml
`, Version)
}

// Run dispatches args, whose first element names the command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return errors.New("missing command")
	}
	cmd := args[0]
	switch cmd {
	case "version", "--version", "-V":
		fmt.Fprintf(a.Stdout, "i2cirqmon %s\n", Version)
		return nil
	case "help", "-h", "--help":
		a.printUsage()
		return nil
	case config.CmdList, config.CmdMonitor, config.CmdTUI:
	default:
		a.printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, rest, err := config.Parse(cmd, args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%s: unexpected argument %q", cmd, rest[0])
	}

	// The dashboard owns the terminal; its logs go to --log-file or nowhere.
	var fallback io.Writer = a.Stderr
	if cmd == config.CmdTUI {
		fallback = nil
	}
	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile, fallback)
	if err != nil {
		return err
	}
	defer closeLog()

	switch cmd {
	case config.CmdList:
		return a.list(cfg, log)
	case config.CmdMonitor:
		return a.monitor(ctx, cfg, log)
	default:
		return a.tui(ctx, cfg, log)
	}
}

func (a *App) colors() bool { return a.IsTerminal != nil && a.IsTerminal() }

// paint renders s with st only when writing to a terminal.
func (a *App) paint(st lipgloss.Style, s string) string {
	if !a.colors() {
		return s
	}
	return st.Render(s)
}

func (a *App) probe(cfg config.Config, log logrus.FieldLogger) (*sampler.Probe, error) {
	return sampler.Discover(a.Fs, cfg, log)
}
