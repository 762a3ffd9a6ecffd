package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"order_form/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const createSubmissionsTable = `
    CREATE TABLE IF NOT EXISTS form_submissions (
        id         SERIAL PRIMARY KEY,
        session_id TEXT        NOT NULL,
        customer   TEXT        NOT NULL,
        items      JSONB       NOT NULL,
        status     TEXT        NOT NULL,
        message    TEXT        NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )
`

type PostgresSubmissionRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresSubmissionRepository(db *sql.DB, logger *logrus.Logger) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{
		db:  db,
		log: logger,
	}
}

var _ domain.SubmissionRepository = (*PostgresSubmissionRepository)(nil)

func (r *PostgresSubmissionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSubmissionsTable); err != nil {
		r.log.Errorf("Failed to create form_submissions table: %v", err)
		return fmt.Errorf("could not prepare submissions table: %w", err)
	}
	return nil
}

func (r *PostgresSubmissionRepository) Record(ctx context.Context, rec *domain.SubmissionRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("could not encode submission items: %w", err)
	}

	query := `
        INSERT INTO form_submissions (session_id, customer, items, status, message)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err = r.db.QueryRowContext(ctx, query, rec.SessionID, string(rec.Customer), items, rec.Status, rec.Message).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			r.log.Errorf("Failed to insert submission for session %s (code %s): %s", rec.SessionID, pqErr.Code, pqErr.Message)
			return fmt.Errorf("could not record submission: %s", pqErr.Message)
		}
		r.log.Errorf("Failed to insert submission for session %s: %v", rec.SessionID, err)
		return fmt.Errorf("could not record submission: %w", err)
	}
	r.log.Infof("Submission %d recorded for session %s with status %s", rec.ID, rec.SessionID, rec.Status)
	return nil
}

func (r *PostgresSubmissionRepository) ListRecent(ctx context.Context, limit int) ([]domain.SubmissionRecord, error) {
	query := `
        SELECT id, session_id, customer, items, status, message, created_at
        FROM form_submissions
        ORDER BY created_at DESC, id DESC
        LIMIT $1
    `
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.log.Errorf("Failed to list submissions: %v", err)
		return nil, fmt.Errorf("could not list submissions: %w", err)
	}
	defer rows.Close()

	records := make([]domain.SubmissionRecord, 0, limit)
	for rows.Next() {
		var (
			rec      domain.SubmissionRecord
			customer string
			items    []byte
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &customer, &items, &rec.Status, &rec.Message, &rec.CreatedAt); err != nil {
			r.log.Errorf("Failed to scan submission row: %v", err)
			return nil, fmt.Errorf("could not read submission: %w", err)
		}
		rec.Customer = domain.ID(customer)
		if err := json.Unmarshal(items, &rec.Items); err != nil {
			return nil, fmt.Errorf("could not decode items of submission %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return records, nil
}

type noopSubmissionRepository struct{}

// NewNoopSubmissionRepository is used when no database is configured.
func NewNoopSubmissionRepository() domain.SubmissionRepository {
	return noopSubmissionRepository{}
}

func (noopSubmissionRepository) Record(context.Context, *domain.SubmissionRecord) error { return nil }

func (noopSubmissionRepository) ListRecent(context.Context, int) ([]domain.SubmissionRecord, error) {
	return []domain.SubmissionRecord{}, nil
}
