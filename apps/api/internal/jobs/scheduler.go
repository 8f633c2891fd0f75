package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CacheSweeper drops expired cache entries and reports how many went.
type CacheSweeper interface {
	Sweep() int
}

type SessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	cache    CacheSweeper
	sessions SessionPurger
	log      zerolog.Logger
}

// NewScheduler takes a nil sessions purger when sessions live in an external
// identity provider.
func NewScheduler(cache CacheSweeper, sessions SessionPurger, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		cache:    cache,
		sessions: sessions,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.cache != nil {
		if _, err := s.cron.AddFunc("0 */5 * * * *", s.sweepAdminCache); err != nil {
			return err
		}
	}
	if s.sessions != nil {
		if _, err := s.cron.AddFunc("0 15 * * * *", s.purgeSessions); err != nil { // hourly
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs, at most five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepAdminCache() {
	if n := s.cache.Sweep(); n > 0 {
		s.log.Debug().Int("removed", n).Msg("admin cache swept")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired sessions failed")
		return
	}
	s.log.Info().Int64("removed", n).Msg("expired sessions purged")
}
