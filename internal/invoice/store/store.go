package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanSnapshot decodes the payload column into a snapshot.
func scanSnapshot(s scanner) (*invoice.Snapshot, error) {
	var payload []byte
	if err := s.Scan(&payload); err != nil {
		return nil, err
	}

	var snap invoice.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	return &snap, nil
}

// SaveSnapshot upserts the document row and appends to its snapshot history in
// a single transaction. The totals columns mirror the payload for querying.
func (s *Store) SaveSnapshot(ctx context.Context, snap *invoice.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc := snap.Document

	upsert := `
		INSERT INTO documents (
			id, kind, number, status, client_name, issue_date,
			subtotal, total_tax, discount_amount, total, balance_due, project_total,
			payload, computed_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			number = EXCLUDED.number,
			status = EXCLUDED.status,
			client_name = EXCLUDED.client_name,
			issue_date = EXCLUDED.issue_date,
			subtotal = EXCLUDED.subtotal,
			total_tax = EXCLUDED.total_tax,
			discount_amount = EXCLUDED.discount_amount,
			total = EXCLUDED.total,
			balance_due = EXCLUDED.balance_due,
			project_total = EXCLUDED.project_total,
			payload = EXCLUDED.payload,
			computed_at = EXCLUDED.computed_at,
			updated_at = NOW()
		WHERE documents.deleted_at IS NULL
	`

	res, err := tx.ExecContext(ctx, upsert,
		doc.ID,
		doc.Kind,
		doc.Number,
		doc.Status,
		doc.ClientName,
		doc.IssueDate,
		snap.Totals.Subtotal,
		snap.Totals.Tax.TotalTax,
		snap.Totals.DiscountAmount,
		snap.Totals.Total,
		snap.Totals.BalanceDue,
		snap.ProjectTotal,
		payload,
		snap.ComputedAt,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return invoice.ErrNotFound
	}

	history := `
		INSERT INTO document_snapshots (document_id, payload, computed_at)
		VALUES ($1, $2, $3)
	`

	if _, err := tx.ExecContext(ctx, history, doc.ID, payload, snap.ComputedAt); err != nil {
		return fmt.Errorf("saving snapshot history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}

	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*invoice.Snapshot, error) {
	query := `SELECT payload FROM documents WHERE id = $1 AND deleted_at IS NULL`

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting document: %w", err)
	}

	return snap, nil
}

func (s *Store) ListSnapshots(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Snapshot, error) {
	query := `SELECT payload FROM documents WHERE deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)

		args = append(args, *filter.Kind)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
	}

	query += " ORDER BY issue_date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var snaps []*invoice.Snapshot

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return snaps, nil
}

// History returns every snapshot saved for a document, oldest first.
func (s *Store) History(ctx context.Context, id uuid.UUID) ([]*invoice.Snapshot, error) {
	query := `
		SELECT payload FROM document_snapshots
		WHERE document_id = $1
		ORDER BY computed_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot history: %w", err)
	}
	defer rows.Close()

	var snaps []*invoice.Snapshot

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}

		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if n == 0 {
		return invoice.ErrNotFound
	}

	return nil
}
