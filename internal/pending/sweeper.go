package pending

import (
	"time"

	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/metrics"
	"github.com/knowledge-gate/backend/pkg/logger"
)

// Sweeper purges expired pending entries on a fixed interval. A single
// goroutine drives it, so a sweep never overlaps with itself.
type Sweeper struct {
	store    *Store
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			removed := s.store.CleanupExpired()
			if removed > 0 {
				metrics.PendingExpired.Add(float64(removed))
				logger.Info("expired pending entries removed",
					zap.Int("count", removed),
				)
			}
			metrics.PendingEntries.Set(float64(s.store.Len()))
		}
	}
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
