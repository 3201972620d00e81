package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

const cleanupTimeout = time.Minute

var (
	tokensPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accounts_expired_tokens_purged_total",
		Help: "Expired access tokens deleted by housekeeping.",
	})
	cleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accounts_housekeeping_failures_total",
		Help: "Housekeeping runs that failed.",
	})
)

// HousekeepingService periodically purges expired access tokens so the
// table does not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    s,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs cleanup once and then on every tick until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	s.Cleanup(ctx)
}

// Cleanup deletes access tokens that expired before now and returns how
// many were removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	n, err := s.Store.AccessTokens().DeleteExpiredAccessTokens(ctx, s.Now().UTC())
	if err != nil {
		cleanupFailures.Inc()
		s.Logger.Error("failed to delete expired access tokens", "error", err)
		return 0
	}

	tokensPurged.Add(float64(n))
	if n > 0 {
		s.Logger.Info("housekeeping cleanup completed", "expired_tokens_deleted", n)
	} else {
		s.Logger.Debug("housekeeping found nothing to purge")
	}
	return n
}
