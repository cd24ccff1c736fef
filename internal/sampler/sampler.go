// Package sampler drives the tick loop: it reads the interrupt table,
// reconciles it against the discovered topology and publishes immutable
// snapshots on a channel.
package sampler

import (
	"context"
	"time"

	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// Sampler periodically emits Snapshots built by its Engine.
type Sampler struct {
	Interval time.Duration
	// Limit stops the stream after this many samples following the seed
	// tick. Zero means unlimited.
	Limit int

	engine *Engine
}

func New(engine *Engine, interval time.Duration, limit int) *Sampler {
	return &Sampler{Interval: interval, Limit: limit, engine: engine}
}

// Stream returns a channel that receives the seed snapshot immediately and
// one snapshot per interval after it. The channel is closed when ctx is done
// or Limit is reached. A tick in progress always completes; cancellation is
// observed between ticks.
func (s *Sampler) Stream(ctx context.Context) <-chan model.Snapshot {
	ch := make(chan model.Snapshot)
	go func() {
		defer close(ch)
		if !s.send(ctx, ch, s.engine.Tick(time.Now())) {
			return
		}
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for n := 0; s.Limit == 0 || n < s.Limit; n++ {
			select {
			case t := <-ticker.C:
				if !s.send(ctx, ch, s.engine.Tick(t)) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (s *Sampler) send(ctx context.Context, ch chan<- model.Snapshot, snap model.Snapshot) bool {
	select {
	case ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
