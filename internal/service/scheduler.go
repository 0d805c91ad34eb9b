package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// SyncScheduler owns the single worker goroutine that executes syncs. Both
// the periodic timer and on-demand triggers funnel into the same loop, so
// request handlers never spawn goroutines themselves.
type SyncScheduler struct {
	sync     *SyncService
	interval time.Duration

	ticker    *time.Ticker
	trigger   chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewSyncScheduler creates a scheduler running the sync every interval.
func NewSyncScheduler(syncService *SyncService, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 20 * time.Minute
	}
	return &SyncScheduler{
		sync:     syncService,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the worker loop.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.interval)
	s.mu.Unlock()

	log.Printf("[SyncScheduler] Started - Interval: %v", s.interval)

	go s.run()
}

// run is the worker loop. The coordinator's own guard handles debounce and
// mutual exclusion, so overlapping ticks and triggers are safe.
func (s *SyncScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.sync.Run(context.Background())
		case <-s.trigger:
			s.sync.Run(context.Background())
		case <-s.stopCh:
			log.Printf("[SyncScheduler] Stopped")
			return
		}
	}
}

// TriggerNow requests an immediate run without blocking the caller. A trigger
// arriving while one is already queued is collapsed into it.
func (s *SyncScheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop stops the scheduler. Idempotent.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
