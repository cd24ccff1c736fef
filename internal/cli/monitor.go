package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/i2cirqmon/internal/config"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
	"github.com/Dicklesworthstone/i2cirqmon/internal/sampler"
)

const columnWidth = 18

func (a *App) monitor(ctx context.Context, cfg config.Config, log logrus.FieldLogger) error {
	probe, err := a.probe(cfg, log)
	if err != nil {
		return err
	}
	if probe.Topology.Empty() {
		return ErrNoSources
	}
	engine := probe.Engine(cfg, sampler.HostInfo(log), log)
	stream := sampler.New(engine, cfg.Interval, cfg.Count).Stream(ctx)

	if cfg.JSONStream {
		enc := json.NewEncoder(a.Stdout)
		for snap := range stream {
			if snap.Seq == 1 {
				continue
			}
			if err := enc.Encode(compact(snap)); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
		}
		return nil
	}

	sources := probe.Topology.Sources()
	w := a.Stdout
	fmt.Fprintln(w, a.paint(headingStyle, "=== I2C Interrupt Rate Monitor ==="))
	fmt.Fprintf(w, "Interval: %dms | Threshold: %.0f irqs/s | Sources: %d\n\n",
		cfg.Interval.Milliseconds(), cfg.Threshold, len(sources))
	for _, s := range sources {
		fmt.Fprintln(w, sourceLine(s))
	}
	fmt.Fprintln(w)

	var hdr strings.Builder
	fmt.Fprintf(&hdr, "%6s", "Sample")
	for _, s := range sources {
		fmt.Fprintf(&hdr, "  %*s", columnWidth, shorten(s.Label, columnWidth))
	}
	fmt.Fprintf(&hdr, "  %10s", "Status")
	fmt.Fprintln(w, hdr.String())

	for snap := range stream {
		if snap.Seq == 1 {
			continue
		}
		fmt.Fprintln(w, a.monitorRow(snap, sources))
	}
	return nil
}

func (a *App) monitorRow(snap model.Snapshot, sources []model.Source) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6d", snap.Seq-1)
	high := false
	for _, s := range sources {
		cell := "-"
		if v, ok := snap.Find(s.ID); ok {
			switch {
			case v.Missing:
				cell = "missing"
			case v.RateKnown:
				cell = fmt.Sprintf("%.1f/s", v.Rate)
			}
			high = high || v.High
		}
		fmt.Fprintf(&b, "  %*s", columnWidth, cell)
	}
	switch {
	case snap.Glitch:
		b.WriteString("  " + a.paint(highStyle, fmt.Sprintf("%10s", "read fail")))
	case high:
		b.WriteString("  " + a.paint(highStyle, fmt.Sprintf("%10s", "** HIGH")))
	default:
		b.WriteString("  " + a.paint(okStyle, fmt.Sprintf("%10s", "ok")))
	}
	return b.String()
}

// compact drops the rate series, which the stream consumer can rebuild from
// consecutive lines.
func compact(snap model.Snapshot) model.Snapshot {
	snap.Sources = append([]model.SourceView(nil), snap.Sources...)
	for i := range snap.Sources {
		snap.Sources[i].Series = nil
	}
	snap.Total.Series = nil
	return snap
}
