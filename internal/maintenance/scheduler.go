package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// TokenPurger deletes tokens whose expiry is at or before now.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs periodic housekeeping jobs.
type Scheduler struct {
	cron    *cron.Cron
	tokens  TokenPurger
	timeout time.Duration
	now     func() time.Time
}

// NewScheduler creates a scheduler that sweeps expired tokens on spec, a
// standard cron expression or descriptor such as "@every 10m".
func NewScheduler(tokens TokenPurger, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		tokens:  tokens,
		timeout: time.Minute,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.SweepTokens); err != nil {
		return nil, fmt.Errorf("invalid token sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

// SweepTokens deletes every expired token once.
func (s *Scheduler) SweepTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.tokens.PurgeExpiredTokens(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to purge expired tokens")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Scheduler: purged expired tokens")
	}
}
