// Package registry reconciles interrupt table snapshots against the
// discovered topology, creating and retiring monitored sources.
package registry

import (
	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/i2cirqmon/internal/interrupts"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
	"github.com/Dicklesworthstone/i2cirqmon/internal/rate"
	"github.com/Dicklesworthstone/i2cirqmon/internal/topology"
)

// RetireAfter is the number of consecutive ticks a counter may be missing
// before its source is retired.
const RetireAfter = 2

// Entry is one live source and its rate history.
type Entry struct {
	Source  model.Source
	History *rate.History
	Count   uint64
	Misses  int

	slot int
}

// Missing reports whether the counter was absent at the last reconcile.
func (e *Entry) Missing() bool { return e.Misses > 0 }

// Decisions lists what one reconcile did, by source id, in enumeration order.
type Decisions struct {
	Added    []int
	Retained []int
	// Resumed is the subset of Retained that came back after a missed tick.
	Resumed []int
	Missing []int
	Retired []int
}

// Options configure a Registry.
type Options struct {
	HistoryCapacity int
	Palette         []string
}

// Registry is owned by the tick loop; it is not safe for concurrent use.
type Registry struct {
	topo    *topology.Topology
	palette *Palette
	entries map[int]*Entry
	opts    Options
	tick    uint64
	log     logrus.FieldLogger
}

func New(topo *topology.Topology, opts Options, log logrus.FieldLogger) *Registry {
	if opts.HistoryCapacity < 2 {
		opts.HistoryCapacity = 2
	}
	return &Registry{
		topo:    topo,
		palette: NewPalette(opts.Palette),
		entries: make(map[int]*Entry),
		opts:    opts,
		log:     log,
	}
}

// Reconcile applies one interrupt table snapshot. Retirements happen before
// additions so a freed color cannot be reused in the same tick.
func (r *Registry) Reconcile(tbl interrupts.Table) Decisions {
	r.tick++
	var d Decisions
	sources := r.topo.Sources()

	for _, src := range sources {
		e, ok := r.entries[src.ID]
		if !ok {
			continue
		}
		count, present := tbl.Count(src.ID)
		if present {
			if e.Misses > 0 {
				d.Resumed = append(d.Resumed, src.ID)
			}
			e.Misses = 0
			e.Count = count
			d.Retained = append(d.Retained, src.ID)
			continue
		}
		e.Misses++
		if e.Misses >= RetireAfter {
			r.palette.Release(e.slot, r.tick)
			delete(r.entries, src.ID)
			d.Retired = append(d.Retired, src.ID)
			r.log.WithFields(logrus.Fields{"irq": src.ID, "label": src.Label}).Info("source retired")
			continue
		}
		d.Missing = append(d.Missing, src.ID)
		r.log.WithFields(logrus.Fields{"irq": src.ID, "label": src.Label}).Warn("counter missing from interrupt table")
	}

	for _, src := range sources {
		if _, ok := r.entries[src.ID]; ok {
			continue
		}
		count, present := tbl.Count(src.ID)
		if !present {
			continue
		}
		idx := r.palette.Acquire(r.tick)
		src.Color = r.palette.Color(idx)
		r.entries[src.ID] = &Entry{
			Source:  src,
			History: rate.NewHistory(r.opts.HistoryCapacity),
			Count:   count,
			slot:    idx,
		}
		d.Added = append(d.Added, src.ID)
		r.log.WithFields(logrus.Fields{"irq": src.ID, "label": src.Label, "color": src.Color}).Debug("source added")
	}
	return d
}

// Get returns the live entry for id.
func (r *Registry) Get(id int) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Entries returns live entries in enumeration order: controllers in
// discovery order, each followed by its devices.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, src := range r.topo.Sources() {
		if e, ok := r.entries[src.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.entries) }

// Tick is the number of reconciles performed.
func (r *Registry) Tick() uint64 { return r.tick }

func (r *Registry) Topology() *topology.Topology { return r.topo }
