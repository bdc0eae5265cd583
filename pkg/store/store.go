// pkg/store/store.go
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/pkg/results"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store persists submission history in PostgreSQL. Entirely optional: the
// CLI only constructs one when database.url is configured.
type Store struct {
	db  DB
	log *zap.Logger
}

// New creates a store instance.
func New(db DB, logger *zap.Logger) *Store {
	return &Store{db: db, log: logger.Named("store")}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS submissions (
	submission_id   UUID PRIMARY KEY,
	report_id       UUID NOT NULL,
	damage_type     TEXT NOT NULL,
	description     TEXT NOT NULL,
	latitude        DOUBLE PRECISION NOT NULL,
	longitude       DOUBLE PRECISION NOT NULL,
	address         TEXT,
	city            TEXT,
	tracking_number TEXT,
	method          TEXT NOT NULL,
	success         BOOLEAN NOT NULL,
	error           TEXT,
	envelope        JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the submissions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating submissions schema: %w", err)
	}
	return nil
}

const insertSQL = `
INSERT INTO submissions (
	submission_id, report_id, damage_type, description,
	latitude, longitude, address, city,
	tracking_number, method, success, error, envelope
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// SaveSubmission records one submission attempt, successful or not.
func (s *Store) SaveSubmission(ctx context.Context, env *results.SubmissionEnvelope, envelopeJSON []byte) error {
	rep := env.Report
	_, err := s.db.Exec(ctx, insertSQL,
		env.SubmissionID,
		rep.ID,
		string(rep.Type),
		rep.Description,
		rep.Latitude,
		rep.Longitude,
		env.Address,
		rep.City,
		env.TrackingNumber,
		string(env.Method),
		env.Success,
		env.Error,
		envelopeJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting submission %s: %w", env.SubmissionID, err)
	}
	s.log.Debug("Submission persisted", zap.String("submission_id", env.SubmissionID))
	return nil
}

// TrackingNumber looks up the tracking number recorded for a report.
func (s *Store) TrackingNumber(ctx context.Context, reportID string) (string, error) {
	var tracking string
	err := s.db.QueryRow(ctx,
		`SELECT tracking_number FROM submissions WHERE report_id = $1 ORDER BY created_at DESC LIMIT 1`,
		reportID,
	).Scan(&tracking)
	if err != nil {
		return "", fmt.Errorf("looking up tracking number for report %s: %w", reportID, err)
	}
	return tracking, nil
}
