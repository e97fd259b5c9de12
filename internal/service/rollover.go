package service

import (
	"sync"
	"time"

	"github.com/axisfin/conductor/internal/state"
	"go.uber.org/zap"
)

// RolloverService resets the per-day API call counters at local midnight.
// Cumulative per-agent counters and processing averages are untouched.
type RolloverService struct {
	store  *state.Store
	logger *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRolloverService(store *state.Store, logger *zap.Logger) *RolloverService {
	return &RolloverService{
		store:  store,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start schedules the rollover in a background goroutine.
func (s *RolloverService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info("daily stats rollover started",
			zap.Time("next_rollover", nextRollover(time.Now())))

		for {
			timer := time.NewTimer(time.Until(nextRollover(time.Now())))
			select {
			case <-timer.C:
				s.Run()
			case <-s.stopCh:
				timer.Stop()
				s.logger.Info("daily stats rollover stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the rollover.
func (s *RolloverService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Run performs one rollover immediately.
func (s *RolloverService) Run() {
	n := s.store.ResetDailyCounters()
	s.logger.Info("daily api counters reset", zap.Int("tenants", n))
}

// nextRollover returns the first local midnight after t.
func nextRollover(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}
