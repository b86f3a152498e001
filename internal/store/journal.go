package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/bondbreak/internal/ir"
)

// WriteFlush journals one flush with its events and runtime errors.
// Writing the same step twice is an error; steps are assigned by the
// subsystem clock and never reused.
func (s *Store) WriteFlush(ctx context.Context, rec ir.FlushRecord) error {
	handlers := make([]any, len(rec.Handlers))
	for i, h := range rec.Handlers {
		handlers[i] = h
	}
	handlersJSON, err := ir.MarshalCanonical(handlers)
	if err != nil {
		return fmt.Errorf("marshal handlers: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flushes (
				step, token, handlers, dispatches,
				hash_before, hash_after, engine_version, ir_version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.Step, rec.Token, string(handlersJSON), rec.Dispatches,
			rec.HashBefore, rec.HashAfter, ir.EngineVersion, ir.IRVersion)
		if err != nil {
			return fmt.Errorf("insert flush %d: %w", rec.Step, err)
		}

		for i, ev := range rec.Events {
			id, err := ir.EventID(rec.Step, i, ev)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO flush_events (id, step, position, type, id1, id2)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, rec.Step, i, int64(ev.Type), int64(ev.ID1), int64(ev.ID2))
			if err != nil {
				return fmt.Errorf("insert flush event %d/%d: %w", rec.Step, i, err)
			}
		}

		for i, fe := range rec.Errors {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO flush_errors (step, position, code, message)
				VALUES (?, ?, ?, ?)
			`, rec.Step, i, fe.Code, fe.Message)
			if err != nil {
				return fmt.Errorf("insert flush error %d/%d: %w", rec.Step, i, err)
			}
		}
		return nil
	})
}

// ReadFlushes returns journaled flushes ordered by step. A positive limit
// keeps only the most recent limit records.
func (s *Store) ReadFlushes(ctx context.Context, limit int) ([]ir.FlushRecord, error) {
	query := `
		SELECT step, token, handlers, dispatches, hash_before, hash_after
		FROM flushes ORDER BY step ASC
	`
	args := []any{}
	if limit > 0 {
		query = `
			SELECT step, token, handlers, dispatches, hash_before, hash_after
			FROM (SELECT * FROM flushes ORDER BY step DESC LIMIT ?)
			ORDER BY step ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flushes: %w", err)
	}
	defer rows.Close()

	records := []ir.FlushRecord{}
	for rows.Next() {
		var rec ir.FlushRecord
		var handlersJSON string
		if err := rows.Scan(&rec.Step, &rec.Token, &handlersJSON, &rec.Dispatches,
			&rec.HashBefore, &rec.HashAfter); err != nil {
			return nil, fmt.Errorf("scan flush: %w", err)
		}
		if err := json.Unmarshal([]byte(handlersJSON), &rec.Handlers); err != nil {
			return nil, fmt.Errorf("decode handlers for step %d: %w", rec.Step, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flushes: %w", err)
	}
	rows.Close()

	for i := range records {
		if records[i].Events, err = s.flushEvents(ctx, records[i].Step); err != nil {
			return nil, err
		}
		if records[i].Errors, err = s.flushErrors(ctx, records[i].Step); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// LastStep returns the highest journaled step, or 0 if nothing was flushed.
func (s *Store) LastStep(ctx context.Context) (int64, error) {
	var step sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(step) FROM flushes`).Scan(&step); err != nil {
		return 0, fmt.Errorf("query last step: %w", err)
	}
	return step.Int64, nil
}

func (s *Store) flushEvents(ctx context.Context, step int64) ([]ir.BreakEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, id1, id2 FROM flush_events
		WHERE step = ? ORDER BY position ASC
	`, step)
	if err != nil {
		return nil, fmt.Errorf("query flush events: %w", err)
	}
	defer rows.Close()

	events := []ir.BreakEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) flushErrors(ctx context.Context, step int64) ([]ir.FlushError, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, message FROM flush_errors
		WHERE step = ? ORDER BY position ASC
	`, step)
	if err != nil {
		return nil, fmt.Errorf("query flush errors: %w", err)
	}
	defer rows.Close()

	var errs []ir.FlushError
	for rows.Next() {
		var fe ir.FlushError
		if err := rows.Scan(&fe.Code, &fe.Message); err != nil {
			return nil, fmt.Errorf("scan flush error: %w", err)
		}
		errs = append(errs, fe)
	}
	return errs, rows.Err()
}
