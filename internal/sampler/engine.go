package sampler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/i2cirqmon/internal/interrupts"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
	"github.com/Dicklesworthstone/i2cirqmon/internal/rate"
	"github.com/Dicklesworthstone/i2cirqmon/internal/registry"
)

// Engine runs the tick pipeline: read, reconcile, update rates, publish.
// It is owned by a single goroutine; the Snapshots it returns share no
// memory with it.
type Engine struct {
	reader    *interrupts.Reader
	reg       *registry.Registry
	total     *rate.Window
	interval  time.Duration
	threshold float64
	host      model.Host

	// inflight is the read still running from an earlier tick, if any.
	inflight chan readResult

	seq     uint64
	started time.Time
	log     logrus.FieldLogger
}

// EngineOptions configure an Engine.
type EngineOptions struct {
	Interval        time.Duration
	Threshold       float64
	HistoryCapacity int
	Host            model.Host
}

func NewEngine(reader *interrupts.Reader, reg *registry.Registry, opts EngineOptions, log logrus.FieldLogger) *Engine {
	return &Engine{
		reader:    reader,
		reg:       reg,
		total:     rate.NewWindow(opts.HistoryCapacity),
		interval:  opts.Interval,
		threshold: opts.Threshold,
		host:      opts.Host,
		log:       log,
	}
}

type readResult struct {
	tbl interrupts.Table
	err error
}

// Tick reads the interrupt table and applies it. A read that fails or does
// not finish within the interval is treated as a tick in which every counter
// was missing. At most one read is in flight: while a stalled read is
// pending, later ticks wait on it instead of starting another.
func (e *Engine) Tick(now time.Time) model.Snapshot {
	timeout := e.interval
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if e.inflight == nil {
		done := make(chan readResult, 1)
		go func() {
			tbl, err := e.reader.Read()
			done <- readResult{tbl, err}
		}()
		e.inflight = done
	}

	var res readResult
	select {
	case res = <-e.inflight:
		e.inflight = nil
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		e.log.WithError(res.err).Warn("interrupt table read failed, skipping tick")
		snap := e.Apply(now, interrupts.Table{})
		snap.Glitch = true
		return snap
	}
	return e.Apply(now, res.tbl)
}

// Apply reconciles tbl into the registry, feeds every present counter to
// its rate history, and returns the resulting snapshot.
func (e *Engine) Apply(now time.Time, tbl interrupts.Table) model.Snapshot {
	if e.seq == 0 {
		e.started = now
		if e.host.CPUs > 0 && tbl.CPUs > 0 && tbl.CPUs != e.host.CPUs {
			e.log.Infof("interrupt table has %d CPU columns, host reports %d", tbl.CPUs, e.host.CPUs)
		}
	}
	e.seq++

	d := e.reg.Reconcile(tbl)
	resumed := make(map[int]bool, len(d.Resumed))
	for _, id := range d.Resumed {
		resumed[id] = true
	}

	var (
		total float64
		known bool
	)
	for _, entry := range e.reg.Entries() {
		if entry.Missing() {
			continue
		}
		if resumed[entry.Source.ID] {
			entry.History.ResetBaseline()
		}
		resets := entry.History.Resets()
		if r, ok := entry.History.Update(model.Sample{Time: now, Count: entry.Count}); ok {
			total += r
			known = true
		} else if entry.History.Resets() > resets {
			e.log.WithField("irq", entry.Source.ID).Info("counter went backwards, rate reset")
		}
	}
	e.total.Push(model.Point{Time: now, Rate: total, Known: known})

	return e.snapshot(now)
}

func (e *Engine) snapshot(now time.Time) model.Snapshot {
	entries := e.reg.Entries()
	snap := model.Snapshot{
		Seq:       e.seq,
		Timestamp: now,
		Started:   e.started,
		Interval:  e.interval,
		Threshold: e.threshold,
		Host:      e.host,
		Sources:   make([]model.SourceView, 0, len(entries)),
		Total: model.TotalView{
			Avg:    e.total.Avg(),
			Max:    e.total.Max(),
			Series: e.total.Points(),
		},
	}
	if p, ok := e.total.Latest(); ok {
		snap.Total.Rate = p.Rate
	}
	for _, entry := range entries {
		src := entry.Source
		if src.Identity != nil {
			id := *src.Identity
			id.InputNames = append([]string(nil), id.InputNames...)
			src.Identity = &id
		}
		v := model.SourceView{
			Source:  src,
			Avg:     entry.History.Avg(),
			Max:     entry.History.Max(),
			Missing: entry.Missing(),
			Series:  entry.History.Points(),
		}
		if !v.Missing {
			v.Rate, v.RateKnown = entry.History.Rate()
		}
		v.High = v.RateKnown && e.threshold > 0 && v.Rate > e.threshold
		snap.Sources = append(snap.Sources, v)
	}
	return snap
}
