package reading

import (
	"context"
	"time"
)

// Ticker is the clock source the Player reads from.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates a Ticker firing every d.
type NewTickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (tt timeTicker) C() <-chan time.Time { return tt.t.C }
func (tt timeTicker) Stop()               { tt.t.Stop() }

// RealTicker is the wall-clock ticker.
func RealTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Player drives a Tracker's auto-play from a ticker.
type Player struct {
	tracker   *Tracker
	newTicker NewTickerFunc

	// OnAdvance, when set, is called after every word the player advances.
	OnAdvance func(Snapshot)
}

// NewPlayer returns a player for t. A nil newTicker uses RealTicker.
func NewPlayer(t *Tracker, newTicker NewTickerFunc) *Player {
	if newTicker == nil {
		newTicker = RealTicker
	}
	return &Player{tracker: t, newTicker: newTicker}
}

// Run ticks the tracker until it stops playing or ctx ends. The period is
// re-read after each tick so speed changes apply immediately.
func (p *Player) Run(ctx context.Context) error {
	interval := p.tracker.Interval()
	ticker := p.newTicker(interval)
	defer func() { ticker.Stop() }()

	for {
		if p.tracker.Snapshot().State != AutoPlaying {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
		}

		if p.tracker.Tick(ctx) && p.OnAdvance != nil {
			p.OnAdvance(p.tracker.Snapshot())
		}

		if next := p.tracker.Interval(); next != interval {
			ticker.Stop()
			interval = next
			ticker = p.newTicker(interval)
		}
	}
}
