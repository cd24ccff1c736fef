package rate

import "github.com/Dicklesworthstone/i2cirqmon/internal/model"

// History tracks one source's cumulative counter. The first sample, and the
// first sample after a reset or a baseline drop, only seeds the baseline.
type History struct {
	window  *Window
	last    model.Sample
	hasLast bool
	resets  int
}

func NewHistory(capacity int) *History {
	return &History{window: NewWindow(capacity)}
}

// Update records s and returns the rate since the previous sample in
// interrupts per second. ok is false when no rate can be computed: there is
// no baseline yet, the counter went backwards, or time did not advance.
func (h *History) Update(s model.Sample) (rate float64, ok bool) {
	p := model.Point{Time: s.Time, Count: s.Count}
	switch {
	case !h.hasLast:
	case s.Count < h.last.Count:
		h.resets++
	default:
		if dt := s.Time.Sub(h.last.Time); dt > 0 {
			p.Rate = float64(s.Count-h.last.Count) / dt.Seconds()
			p.Known = true
		}
	}
	h.last, h.hasLast = s, true
	h.window.Push(p)
	return p.Rate, p.Known
}

// ResetBaseline forgets the last sample so the next Update seeds a new
// baseline. History and aggregates are kept.
func (h *History) ResetBaseline() { h.hasLast = false }

// Rate is the most recent rate.
func (h *History) Rate() (float64, bool) {
	p, ok := h.window.Latest()
	if !ok {
		return 0, false
	}
	return p.Rate, p.Known
}

// Last is the most recent sample.
func (h *History) Last() (model.Sample, bool) { return h.last, h.hasLast }

func (h *History) Avg() float64 { return h.window.Avg() }

func (h *History) Max() float64 { return h.window.Max() }

func (h *History) Len() int { return h.window.Len() }

func (h *History) Cap() int { return h.window.Cap() }

// Resets counts detected counter decreases.
func (h *History) Resets() int { return h.resets }

// Points returns the rate series, oldest first.
func (h *History) Points() []model.Point { return h.window.Points() }

// Samples returns the retained samples, oldest first.
func (h *History) Samples() []model.Sample {
	pts := h.window.Points()
	out := make([]model.Sample, len(pts))
	for i, p := range pts {
		out[i] = model.Sample{Time: p.Time, Count: p.Count}
	}
	return out
}
