package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TokenPurger clears refresh-token slots whose expiry has passed.
type TokenPurger interface {
	ClearExpiredRefreshTokens(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic housekeeping the single-slot session model
// needs: expired refresh tokens linger on user rows until purged.
type Scheduler struct {
	cron  *cron.Cron
	users TokenPurger
	log   zerolog.Logger
}

func NewScheduler(users TokenPurger, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		users: users,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@daily", s.purgeExpiredTokens); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := s.users.ClearExpiredRefreshTokens(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh token purge failed")
		return
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Msg("expired refresh tokens cleared")
	}
}
