// Package pgstore provides a PostgreSQL implementation of
// feedback.Store. Appends are plain INSERTs, so the append-only
// property and writer serialization come from the database itself.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/feedback"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sentinel/internal/feedback/pgstore")

//go:embed schema.sql
var schema string

// Store persists feedback entries in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is owned
// by the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Append validates the entry, assigns its ID and timestamp if unset,
// and inserts it.
func (s *Store) Append(ctx context.Context, e *feedback.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "pgstore.Append", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback_entries (id, alert_id, category, action, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.AlertID, string(e.Category), string(e.Action), e.Reason, e.CreatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// List returns the full sequence in append order.
func (s *Store) List(ctx context.Context) ([]feedback.Entry, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, alert_id, category, action, reason, created_at
		 FROM feedback_entries ORDER BY created_at, id`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	entries := []feedback.Entry{}
	for rows.Next() {
		var e feedback.Entry
		var category, action string
		if err := rows.Scan(&e.ID, &e.AlertID, &category, &action, &e.Reason, &e.CreatedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		e.Category = alert.Category(category)
		e.Action = feedback.Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return entries, nil
}
