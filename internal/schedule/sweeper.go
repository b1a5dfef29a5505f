package schedule

import (
	"log"
	"time"
)

// ExecutionPruner deletes aged terminal execution records.
type ExecutionPruner interface {
	DeleteTerminalExecutionsBefore(cutoff time.Time) (int64, error)
}

// Sweeper periodically prunes execution history older than the retention
// window. Only terminal records are removed; a RUNNING record survives any
// age.
type Sweeper struct {
	store     ExecutionPruner
	retention time.Duration
	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
}

func NewSweeper(store ExecutionPruner, retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.loop()
	log.Printf("Retention sweeper started: every %s, keeping %s of history", s.interval, s.retention)
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(time.Now()); err != nil {
				log.Printf("Retention sweep failed: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

// SweepOnce prunes everything terminal older than the retention window.
func (s *Sweeper) SweepOnce(now time.Time) (int64, error) {
	removed, err := s.store.DeleteTerminalExecutionsBefore(now.Add(-s.retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("Retention sweep removed %d execution records", removed)
	}
	return removed, nil
}
