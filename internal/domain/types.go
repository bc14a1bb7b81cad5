package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Identity is the (subject, audience) pair asserted by a verified bearer
// credential. Audience names the tenant/project the token was issued for.
type Identity struct {
	UserID   string
	Audience string
}

// Schedule is a recurring push-notification job. Owner fields are stamped
// from the verified identity at creation and never change afterwards.
type Schedule struct {
	ID              int64           `json:"id"`
	OwnerUserID     string          `json:"owner_user_id"`
	OwnerAudience   string          `json:"owner_audience"`
	Name            string          `json:"name"`
	PushDestination string          `json:"push_destination"`
	CronPattern     string          `json:"cron_pattern"`
	Payload         json.RawMessage `json:"payload"`
	LastExecution   time.Time       `json:"last_execution"`
	NextExecution   time.Time       `json:"next_execution"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

var (
	// ErrUnauthorized covers every credential failure. Sub-cases are not
	// distinguished so responses don't help token probing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers both a missing id and an id owned by someone else.
	ErrNotFound = errors.New("schedule not found")
)

// ValidationError reports caller input rejected before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Reason }

func Invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
