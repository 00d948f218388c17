package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/esungul/UniveralValidator/internal/aggregate"
	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/selector"
)

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunInfo is a run row without its results.
type RunInfo struct {
	ID            string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	RuleSetDigest string            `json:"ruleset_digest"`
	EngineVersion string            `json:"engine_version"`
	Summary       aggregate.Summary `json:"summary"`
}

// ReadSnapshots loads stored records grouped per subscriber. With no
// subscribers it returns every stored subscriber, sorted. With subscribers
// it returns exactly those, in the given order, empty ones included.
func (s *Store) ReadSnapshots(ctx context.Context, subscribers ...string) ([]ir.Snapshot, error) {
	where, args := subscriberFilter(subscribers)

	orders, err := s.readOrders(ctx, where, args)
	if err != nil {
		return nil, err
	}
	assets, err := s.readAssets(ctx, where, args)
	if err != nil {
		return nil, err
	}
	return selector.Group(orders, assets, subscribers...), nil
}

// Subscribers lists every subscriber with at least one stored order or
// asset, sorted.
func (s *Store) Subscribers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscriber FROM orders
		UNION
		SELECT subscriber FROM assets
		ORDER BY subscriber COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	subs := []string{}
	for rows.Next() {
		var sub string
		if err := rows.Scan(&sub); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subs, nil
}

func subscriberFilter(subscribers []string) (string, []any) {
	if len(subscribers) == 0 {
		return "", nil
	}
	args := make([]any, len(subscribers))
	for i, sub := range subscribers {
		args[i] = sub
	}
	return "WHERE subscriber IN (?" + strings.Repeat(", ?", len(subscribers)-1) + ")", args
}

func (s *Store) readOrders(ctx context.Context, where string, args []any) ([]ir.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscriber, id, type, created_at, fields
		FROM orders `+where+`
		ORDER BY subscriber COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []ir.Order{}
	for rows.Next() {
		var o ir.Order
		var createdAt, fields string
		if err := rows.Scan(&o.Subscriber, &o.ID, &o.Type, &createdAt, &fields); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}
		if o.Fields, err = unmarshalFields(fields); err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (s *Store) readAssets(ctx context.Context, where string, args []any) ([]ir.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscriber, id, type, parent_id, status, fields
		FROM assets `+where+`
		ORDER BY subscriber COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	assets := []ir.Asset{}
	for rows.Next() {
		var a ir.Asset
		var fields string
		if err := rows.Scan(&a.Subscriber, &a.ID, &a.Type, &a.ParentID, &a.Status, &fields); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		if a.Fields, err = unmarshalFields(fields); err != nil {
			return nil, fmt.Errorf("asset %s: %w", a.ID, err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// ListRuns returns recorded runs, newest first, at most limit of them
// (all when limit <= 0).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `
		SELECT id, started_at, finished_at, ruleset_digest, engine_version,
		       total, passed, passed_with_warnings, failed, not_validated, errors
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun loads a run and its results in batch order.
func (s *Store) ReadRun(ctx context.Context, id string) (engine.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, ruleset_digest, engine_version,
		       total, passed, passed_with_warnings, failed, not_validated, errors
		FROM runs WHERE id = ?
	`, id)
	info, err := scanRunInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return engine.Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	run := engine.Run{
		ID:            info.ID,
		StartedAt:     info.StartedAt,
		FinishedAt:    info.FinishedAt,
		RuleSetDigest: info.RuleSetDigest,
		EngineVersion: info.EngineVersion,
		Summary:       info.Summary,
	}
	if run.Results, err = s.readResults(ctx, "WHERE run_id = ?", []any{id}); err != nil {
		return engine.Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// SubscriberHistory returns every stored result for a subscriber, oldest
// run first.
func (s *Store) SubscriberHistory(ctx context.Context, subscriber string) ([]ir.ValidationResult, error) {
	return s.readResults(ctx, `
		JOIN runs ON runs.id = results.run_id
		WHERE results.subscriber = ?`, []any{subscriber})
}

func (s *Store) readResults(ctx context.Context, where string, args []any) ([]ir.ValidationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT results.body FROM results `+where+`
		ORDER BY results.run_id COLLATE BINARY ASC, results.seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ir.ValidationResult{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r, err := unmarshalResult(body)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(row scanner) (RunInfo, error) {
	var info RunInfo
	var started, finished string
	sum := &info.Summary
	err := row.Scan(
		&info.ID, &started, &finished, &info.RuleSetDigest, &info.EngineVersion,
		&sum.Total, &sum.Passed, &sum.PassedWithWarnings, &sum.Failed, &sum.NotValidated, &sum.Errors,
	)
	if err != nil {
		return RunInfo{}, err
	}
	if info.StartedAt, err = parseTime(started); err != nil {
		return RunInfo{}, err
	}
	if info.FinishedAt, err = parseTime(finished); err != nil {
		return RunInfo{}, err
	}
	sum.SuccessRate = aggregate.Percent(sum.Passed+sum.PassedWithWarnings, sum.Total)
	return info, nil
}
