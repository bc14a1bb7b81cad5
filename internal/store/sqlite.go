package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pushflow/internal/domain"
)

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS schedules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_user_id TEXT NOT NULL,
  owner_audience TEXT NOT NULL,
  name TEXT NOT NULL,
  push_destination TEXT NOT NULL,
  cron_pattern TEXT NOT NULL,
  payload BLOB NOT NULL,
  last_execution DATETIME NOT NULL,
  next_execution DATETIME NOT NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_owner ON schedules(owner_user_id, owner_audience);
CREATE INDEX IF NOT EXISTS idx_schedules_next ON schedules(next_execution);
`
	_, err := db.Exec(schema)
	return err
}

// Repository persists schedules. Ownership-scoped writes are single
// conditional statements; the affected-row count they report is the
// authoritative outcome under concurrent access.
type Repository interface {
	Create(ctx context.Context, s domain.Schedule) (domain.Schedule, error)
	GetOwned(ctx context.Context, id int64, owner domain.Identity) (domain.Schedule, error)
	ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Schedule, error)
	UpdateOwned(ctx context.Context, s domain.Schedule) (int64, error)
	DeleteOwned(ctx context.Context, id int64, owner domain.Identity) (int64, error)

	// Dispatcher side.
	ListDue(ctx context.Context, now time.Time) ([]domain.Schedule, error)
	MarkExecuted(ctx context.Context, id int64, ranAt, next time.Time) error
}

type sqliteRepo struct{ db *sql.DB }

func NewSQLiteRepo(db *sql.DB) Repository { return &sqliteRepo{db: db} }

const scheduleColumns = `id,owner_user_id,owner_audience,name,push_destination,cron_pattern,payload,last_execution,next_execution,created_at,updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (domain.Schedule, error) {
	var s domain.Schedule
	err := row.Scan(&s.ID, &s.OwnerUserID, &s.OwnerAudience, &s.Name, &s.PushDestination,
		&s.CronPattern, &s.Payload, &s.LastExecution, &s.NextExecution, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *sqliteRepo) Create(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO schedules (owner_user_id,owner_audience,name,push_destination,cron_pattern,payload,last_execution,next_execution,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
`, s.OwnerUserID, s.OwnerAudience, s.Name, s.PushDestination, s.CronPattern, []byte(s.Payload),
		s.LastExecution, s.NextExecution, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return domain.Schedule{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Schedule{}, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id=?`, id)
	return scanSchedule(row)
}

func (r *sqliteRepo) GetOwned(ctx context.Context, id int64, owner domain.Identity) (domain.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+scheduleColumns+` FROM schedules WHERE id=? AND owner_user_id=? AND owner_audience=?`,
		id, owner.UserID, owner.Audience)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Schedule{}, domain.ErrNotFound
	}
	return s, err
}

func (r *sqliteRepo) ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+scheduleColumns+` FROM schedules WHERE owner_user_id=? AND owner_audience=? ORDER BY id`,
		owner.UserID, owner.Audience)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// UpdateOwned applies the mutable fields in one conditional statement keyed
// on (id, owner) and reports how many rows matched. Owner fields, id,
// created_at and last_execution are never written here.
func (r *sqliteRepo) UpdateOwned(ctx context.Context, s domain.Schedule) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE schedules SET name=?,push_destination=?,cron_pattern=?,payload=?,next_execution=?,updated_at=?
WHERE id=? AND owner_user_id=? AND owner_audience=?`,
		s.Name, s.PushDestination, s.CronPattern, []byte(s.Payload), s.NextExecution, s.UpdatedAt,
		s.ID, s.OwnerUserID, s.OwnerAudience)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sqliteRepo) DeleteOwned(ctx context.Context, id int64, owner domain.Identity) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM schedules WHERE id=? AND owner_user_id=? AND owner_audience=?`,
		id, owner.UserID, owner.Audience)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sqliteRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+scheduleColumns+` FROM schedules WHERE next_execution <= ? ORDER BY next_execution`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *sqliteRepo) MarkExecuted(ctx context.Context, id int64, ranAt, next time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE schedules SET last_execution=?,next_execution=?,updated_at=? WHERE id=?`,
		ranAt, next, ranAt, id)
	return err
}
