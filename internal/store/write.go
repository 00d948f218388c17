package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/ir"
)

// WriteSnapshots upserts the orders and assets of each snapshot in one
// transaction. Records without a subscriber are stored under the snapshot's
// subscriber. A later write of the same (subscriber, id) replaces the row.
func (s *Store) WriteSnapshots(ctx context.Context, snaps ...ir.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshots: begin: %w", err)
	}
	defer tx.Rollback()

	for _, snap := range snaps {
		for _, o := range snap.Orders {
			if err := writeOrder(ctx, tx, snap.Subscriber, o); err != nil {
				return fmt.Errorf("write snapshots: %w", err)
			}
		}
		for _, a := range snap.Assets {
			if err := writeAsset(ctx, tx, snap.Subscriber, a); err != nil {
				return fmt.Errorf("write snapshots: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshots: commit: %w", err)
	}
	return nil
}

func writeOrder(ctx context.Context, tx *sql.Tx, subscriber string, o ir.Order) error {
	if o.Subscriber != "" {
		subscriber = o.Subscriber
	}
	fields, err := marshalFields(o.Fields)
	if err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (subscriber, id, type, created_at, fields)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subscriber, id) DO UPDATE SET
			type = excluded.type,
			created_at = excluded.created_at,
			fields = excluded.fields
	`, subscriber, o.ID, o.Type, formatTime(o.CreatedAt), fields)
	if err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	return nil
}

func writeAsset(ctx context.Context, tx *sql.Tx, subscriber string, a ir.Asset) error {
	if a.Subscriber != "" {
		subscriber = a.Subscriber
	}
	fields, err := marshalFields(a.Fields)
	if err != nil {
		return fmt.Errorf("asset %s: %w", a.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (subscriber, id, type, parent_id, status, fields)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subscriber, id) DO UPDATE SET
			type = excluded.type,
			parent_id = excluded.parent_id,
			status = excluded.status,
			fields = excluded.fields
	`, subscriber, a.ID, a.Type, a.ParentID, a.Status, fields)
	if err != nil {
		return fmt.Errorf("asset %s: %w", a.ID, err)
	}
	return nil
}

// WriteRun records a finished batch and its results. Results keep their
// batch position as seq. Writing the same run twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run engine.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	sum := run.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, finished_at, ruleset_digest, engine_version,
		 total, passed, passed_with_warnings, failed, not_validated, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.RuleSetDigest,
		run.EngineVersion,
		sum.Total, sum.Passed, sum.PassedWithWarnings, sum.Failed, sum.NotValidated, sum.Errors,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	for i, r := range run.Results {
		body, err := marshalResult(r)
		if err != nil {
			return fmt.Errorf("write run %s: %w", run.ID, err)
		}
		code := ""
		if r.Error != nil {
			code = r.Error.Code
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO results (run_id, seq, subscriber, order_id, status, error_code, digest, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`, run.ID, i, r.Subscriber, r.OrderID, string(r.Status), code, r.Digest, body)
		if err != nil {
			return fmt.Errorf("write run %s: result %d: %w", run.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return nil
}
