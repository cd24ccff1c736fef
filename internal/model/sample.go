package model

import "time"

// Sample is one cumulative counter reading for a source.
type Sample struct {
	Time  time.Time `json:"time"`
	Count uint64    `json:"count"`
}

// Point is one entry of a rate series. Known is false for the baseline sample
// and for the sample that follows a counter reset.
type Point struct {
	Time  time.Time `json:"time"`
	Count uint64    `json:"count"`
	Rate  float64   `json:"rate"`
	Known bool      `json:"known"`
}

// SourceView is a source together with its rate figures at one tick.
type SourceView struct {
	Source

	Rate      float64 `json:"rate"`
	RateKnown bool    `json:"rate_known"`
	Avg       float64 `json:"avg"`
	Max       float64 `json:"max"`

	// High marks a rate above the configured threshold. It only annotates.
	High bool `json:"high"`

	// Missing is set when the counter was absent this tick but the source
	// has not been retired yet.
	Missing bool `json:"missing"`

	Series []Point `json:"series,omitempty"`
}

// TotalView aggregates the known rates of every present source.
type TotalView struct {
	Rate   float64 `json:"rate"`
	Avg    float64 `json:"avg"`
	Max    float64 `json:"max"`
	Series []Point `json:"series,omitempty"`
}

// Host carries static facts about the machine being observed.
type Host struct {
	Kernel string `json:"kernel"`
	CPUs   int    `json:"cpus"`
}

// Snapshot is the immutable per-tick view exchanged between sampler, UI, and
// the text/JSON outputs. Nothing in a published Snapshot is shared with the
// sampler's working state.
type Snapshot struct {
	Seq       uint64        `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	Started   time.Time     `json:"started"`
	Interval  time.Duration `json:"interval"`
	Threshold float64       `json:"threshold"`
	Host      Host          `json:"host"`
	Sources   []SourceView  `json:"sources"`
	Total     TotalView     `json:"total"`

	// Glitch is set when this tick's interrupt table read failed.
	Glitch bool `json:"glitch,omitempty"`
}

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{Timestamp: time.Now()} }

// Elapsed is the time between the first tick and this one.
func (s Snapshot) Elapsed() time.Duration {
	if s.Started.IsZero() {
		return 0
	}
	return s.Timestamp.Sub(s.Started)
}

// IDs returns the source ids in enumeration order.
func (s Snapshot) IDs() []int {
	ids := make([]int, len(s.Sources))
	for i, src := range s.Sources {
		ids[i] = src.ID
	}
	return ids
}

// Find returns the view for id.
func (s Snapshot) Find(id int) (SourceView, bool) {
	for _, src := range s.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return SourceView{}, false
}
