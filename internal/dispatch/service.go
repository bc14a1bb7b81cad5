package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"pushflow/internal/cronexpr"
	"pushflow/internal/domain"
	"pushflow/internal/push"
	"pushflow/internal/store"
)

// Service polls for due schedules and fires their deliveries. Each due row
// is advanced (last/next execution) before the delivery attempt, so an
// occurrence fires at most once even if delivery fails.
type Service struct {
	repo     store.Repository
	sender   push.Sender
	sem      chan struct{}
	stop     chan struct{}
	interval time.Duration
}

func NewService(repo store.Repository, sender push.Sender, workers int, interval time.Duration) *Service {
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		repo:     repo,
		sender:   sender,
		sem:      make(chan struct{}, workers),
		stop:     make(chan struct{}),
		interval: interval,
	}
}

func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("dispatch service started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.dispatchDue(ctx, now.UTC())
		}
	}
}

func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) dispatchDue(ctx context.Context, now time.Time) {
	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to list due schedules")
		return
	}

	for _, sched := range due {
		next, err := cronexpr.Decode(sched.CronPattern, now)
		if err != nil {
			// Stored patterns always decoded at write time; a failure here
			// means the row predates a grammar change. Skip, don't wedge.
			log.Error().Err(err).Int64("schedule_id", sched.ID).Msg("stored cron pattern no longer decodes")
			continue
		}
		if err := s.repo.MarkExecuted(ctx, sched.ID, now, next); err != nil {
			log.Error().Err(err).Int64("schedule_id", sched.ID).Msg("failed to advance schedule")
			continue
		}

		s.sem <- struct{}{}
		go func(sc domain.Schedule) {
			defer func() { <-s.sem }()
			if err := s.sender.Send(ctx, sc.PushDestination, sc.Payload); err != nil {
				log.Error().Err(err).Int64("schedule_id", sc.ID).Msg("delivery failed")
				return
			}
			log.Info().
				Int64("schedule_id", sc.ID).
				Str("owner", sc.OwnerUserID).
				Msg("notification delivered")
		}(sched)
	}
}
