// Package rate turns cumulative interrupt counts into per-second rates with
// bounded history.
package rate

import (
	"math"

	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// Window is a fixed-capacity ring of rate points. Avg is the mean of the
// known rates currently held; it is kept as a compensated running sum
// adjusted on push and eviction. Max covers every rate ever pushed, evicted
// or not.
type Window struct {
	buf  []model.Point
	head int
	size int

	sum   float64
	comp  float64
	known int
	// nonzero counts held known rates other than 0; the sum is exactly 0
	// when it drops to 0.
	nonzero int
	max     float64
}

// NewWindow returns a window holding at most capacity points (minimum 1).
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]model.Point, capacity)}
}

// Push appends p, evicting the oldest point when full.
func (w *Window) Push(p model.Point) {
	if w.size == len(w.buf) {
		old := w.buf[w.head]
		if old.Known {
			w.add(-old.Rate)
			w.known--
			if old.Rate != 0 {
				w.nonzero--
			}
		}
	} else {
		w.size++
	}
	w.buf[w.head] = p
	w.head = (w.head + 1) % len(w.buf)

	if p.Known {
		w.add(p.Rate)
		w.known++
		if p.Rate != 0 {
			w.nonzero++
		}
		if p.Rate > w.max {
			w.max = p.Rate
		}
	}
	if w.nonzero == 0 {
		w.sum, w.comp = 0, 0
	}
}

// add is Neumaier summation: comp collects the low-order bits lost in sum.
func (w *Window) add(x float64) {
	t := w.sum + x
	if math.Abs(w.sum) >= math.Abs(x) {
		w.comp += (w.sum - t) + x
	} else {
		w.comp += (x - t) + w.sum
	}
	w.sum = t
}

func (w *Window) Len() int { return w.size }

func (w *Window) Cap() int { return len(w.buf) }

// Points returns a copy of the held points, oldest first.
func (w *Window) Points() []model.Point {
	out := make([]model.Point, w.size)
	start := (w.head - w.size + len(w.buf)) % len(w.buf)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(start+i)%len(w.buf)]
	}
	return out
}

// Latest returns the newest point.
func (w *Window) Latest() (model.Point, bool) {
	if w.size == 0 {
		return model.Point{}, false
	}
	return w.buf[(w.head-1+len(w.buf))%len(w.buf)], true
}

// Avg is the mean of the known rates in the window, 0 when there are none.
func (w *Window) Avg() float64 {
	if w.known == 0 {
		return 0
	}
	return max(0, (w.sum+w.comp)/float64(w.known))
}

// Max is the highest rate pushed since the window was created.
func (w *Window) Max() float64 { return w.max }
