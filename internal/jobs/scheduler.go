package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"imagestore/api/internal/repository"
)

// Scheduler logs storage statistics on a fixed cadence so operators can
// watch table growth without querying the database by hand.
type Scheduler struct {
	cron   *cron.Cron
	images *repository.ImageRepository
	log    zerolog.Logger
}

func NewScheduler(images *repository.ImageRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		images: images,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.reportStats); err != nil {
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

func (s *Scheduler) reportStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, totalBytes, err := s.images.Stats(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("storage stats failed")
		return
	}

	s.log.Info().
		Int64("images", count).
		Int64("stored_bytes", totalBytes).
		Msg("storage stats")
}
