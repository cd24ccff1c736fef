package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/i2cirqmon/internal/config"
	"github.com/Dicklesworthstone/i2cirqmon/internal/sampler"
	"github.com/Dicklesworthstone/i2cirqmon/internal/ui"
)

func (a *App) tui(ctx context.Context, cfg config.Config, log logrus.FieldLogger) error {
	if !a.colors() {
		return errors.New("tui needs an interactive terminal; use 'i2cirqmon monitor' instead")
	}
	probe, err := a.probe(cfg, log)
	if err != nil {
		return err
	}
	if probe.Topology.Empty() {
		return ErrNoSources
	}
	engine := probe.Engine(cfg, sampler.HostInfo(log), log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream := sampler.New(engine, cfg.Interval, 0).Stream(ctx)
	window := time.Duration(cfg.HistoryCapacity) * cfg.Interval

	res, err := ui.RunTUI(stream, cancel, window, cfg.AltScreen)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	printSummary(a.Stdout, res)
	return nil
}

// printSummary writes the per-source averages and peaks seen during a
// dashboard session. Nothing is printed if no rate was ever measured.
func printSummary(w io.Writer, res ui.Result) {
	if res.Samples == 0 {
		return
	}
	snap := res.Final
	fmt.Fprintln(w, "\n=== Interrupt Rate Summary ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-40s %12s %12s %12s\n", "Source", "Avg Rate", "Max Rate", "Type")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, v := range snap.Sources {
		fmt.Fprintf(w, "%-40s %10.1f/s %10.1f/s %12s\n",
			shorten(ui.DisplayName(v.Source), 40), v.Avg, v.Max, v.TypeName())
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "%-40s %10.1f/s %10.1f/s\n", "TOTAL", snap.Total.Avg, snap.Total.Max)
	fmt.Fprintf(w, "\nSamples: %d over %.1fs\n\n", res.Samples, snap.Elapsed().Seconds())
}
