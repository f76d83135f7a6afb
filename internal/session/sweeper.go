package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically clears expired flows so abandoned conversations
// don't pin memory between user visits.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
	onSweep  func(swept int)

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSweeper builds a sweeper. onSweep is called after each pass with
// the number of flows removed; pass nil when no accounting is needed.
func NewSweeper(tracker *Tracker, interval time.Duration, onSweep func(swept int)) *Sweeper {
	return &Sweeper{
		tracker:  tracker,
		interval: interval,
		onSweep:  onSweep,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	zap.L().Info("Starting session sweeper", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.doneChan)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				swept := s.tracker.Sweep()
				if s.onSweep != nil && swept > 0 {
					s.onSweep(swept)
				}
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Session sweeper stopped")
}
