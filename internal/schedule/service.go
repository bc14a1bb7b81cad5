package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pushflow/internal/auth"
	"pushflow/internal/cronexpr"
	"pushflow/internal/domain"
	"pushflow/internal/store"
)

// Input carries the caller-supplied schedule fields. Owner fields are
// deliberately absent: they only ever come from the verified credential.
type Input struct {
	Name            string
	PushDestination string
	CronPattern     string
	Payload         json.RawMessage
}

// Service orchestrates credential verification, input validation and the
// ownership-scoped store operations. It holds no locks; the store's
// conditional writes are the sole defense against concurrent callers.
type Service struct {
	verifier auth.Verifier
	repo     store.Repository
	now      func() time.Time
}

func NewService(verifier auth.Verifier, repo store.Repository) *Service {
	return &Service{verifier: verifier, repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, credential string, in Input) (domain.Schedule, error) {
	identity, err := s.verifier.Verify(credential)
	if err != nil {
		return domain.Schedule{}, err
	}
	if err := objectPayload(in.Payload); err != nil {
		return domain.Schedule{}, err
	}

	now := s.now().UTC()
	next, err := cronexpr.Decode(in.CronPattern, now)
	if err != nil {
		return domain.Schedule{}, err
	}

	created, err := s.repo.Create(ctx, domain.Schedule{
		OwnerUserID:     identity.UserID,
		OwnerAudience:   identity.Audience,
		Name:            in.Name,
		PushDestination: in.PushDestination,
		CronPattern:     in.CronPattern,
		Payload:         in.Payload,
		LastExecution:   now,
		NextExecution:   next,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}

	log.Info().
		Int64("schedule_id", created.ID).
		Str("owner", identity.UserID).
		Time("next_execution", created.NextExecution).
		Msg("schedule created")
	return created, nil
}

func (s *Service) List(ctx context.Context, credential string) ([]domain.Schedule, error) {
	identity, err := s.verifier.Verify(credential)
	if err != nil {
		return nil, err
	}
	schedules, err := s.repo.ListByOwner(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

func (s *Service) Update(ctx context.Context, credential string, id int64, in Input) (domain.Schedule, error) {
	identity, err := s.verifier.Verify(credential)
	if err != nil {
		return domain.Schedule{}, err
	}

	// Advisory lookup for early rejection; the conditional write below is
	// what actually decides the outcome.
	current, err := s.repo.GetOwned(ctx, id, identity)
	if err != nil {
		return domain.Schedule{}, err
	}

	if err := objectPayload(in.Payload); err != nil {
		return domain.Schedule{}, err
	}
	now := s.now().UTC()
	next, err := cronexpr.Decode(in.CronPattern, now)
	if err != nil {
		return domain.Schedule{}, err
	}

	current.Name = in.Name
	current.PushDestination = in.PushDestination
	current.CronPattern = in.CronPattern
	current.Payload = in.Payload
	current.NextExecution = next
	current.UpdatedAt = now

	affected, err := s.repo.UpdateOwned(ctx, current)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("update schedule %d: %w", id, err)
	}
	if affected == 0 {
		// Lost the race: deleted between lookup and write.
		return domain.Schedule{}, domain.ErrNotFound
	}

	updated, err := s.repo.GetOwned(ctx, id, identity)
	if err != nil {
		// Read-after-write failure is internal, never not-found: the
		// conditional write above already succeeded.
		return domain.Schedule{}, fmt.Errorf("reload schedule %d after update: %v", id, err)
	}

	log.Info().
		Int64("schedule_id", id).
		Str("owner", identity.UserID).
		Time("next_execution", updated.NextExecution).
		Msg("schedule updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, credential string, id int64) (domain.Schedule, error) {
	identity, err := s.verifier.Verify(credential)
	if err != nil {
		return domain.Schedule{}, err
	}

	snapshot, err := s.repo.GetOwned(ctx, id, identity)
	if err != nil {
		return domain.Schedule{}, err
	}

	affected, err := s.repo.DeleteOwned(ctx, id, identity)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("delete schedule %d: %w", id, err)
	}
	if affected == 0 {
		return domain.Schedule{}, domain.ErrNotFound
	}

	log.Info().
		Int64("schedule_id", id).
		Str("owner", identity.UserID).
		Msg("schedule deleted")
	return snapshot, nil
}

// objectPayload accepts only object-rooted JSON; arrays, scalars and null
// are rejected. The object's contents stay opaque.
func objectPayload(raw json.RawMessage) error {
	if !json.Valid(raw) {
		return domain.Invalidf("payload must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return domain.Invalidf("payload must be a JSON object")
	}
	return nil
}
