package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/bondbreak/internal/ir"
	"github.com/roach88/bondbreak/internal/topology"
)

// PutBondType declares or replaces a bond type.
func (s *Store) PutBondType(ctx context.Context, spec ir.BondTypeSpec) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bond_types (id, name, breakable) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			breakable = excluded.breakable
	`, int64(spec.ID), spec.Name, boolToInt(spec.Breakable))
	if err != nil {
		return fmt.Errorf("put bond type %d: %w", spec.ID, err)
	}
	return nil
}

// BondTypes returns every declared bond type ordered by id.
func (s *Store) BondTypes(ctx context.Context) ([]ir.BondTypeSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, breakable FROM bond_types ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query bond types: %w", err)
	}
	defer rows.Close()

	specs := []ir.BondTypeSpec{}
	for rows.Next() {
		var id int64
		var name string
		var breakable int
		if err := rows.Scan(&id, &name, &breakable); err != nil {
			return nil, fmt.Errorf("scan bond type: %w", err)
		}
		specs = append(specs, ir.BondTypeSpec{
			ID:        ir.BondType(id),
			Name:      name,
			Breakable: breakable != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bond types: %w", err)
	}
	return specs, nil
}

// SaveChain replaces the persisted handler chain with names, in order.
func (s *Store) SaveChain(ctx context.Context, names []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM handler_chain`); err != nil {
			return fmt.Errorf("clear chain: %w", err)
		}
		for i, name := range names {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO handler_chain (position, name) VALUES (?, ?)
			`, i, name)
			if err != nil {
				return fmt.Errorf("save chain entry %d: %w", i, err)
			}
		}
		return nil
	})
}

// LoadChain returns the persisted handler chain in order.
// An empty result means breakage is off.
func (s *Store) LoadChain(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM handler_chain ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query chain: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan chain entry: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chain: %w", err)
	}
	return names, nil
}

// AppendPending persists events for the next flush, in order.
func (s *Store) AppendPending(ctx context.Context, events ...ir.BreakEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, ev := range events {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO pending_events (type, id1, id2) VALUES (?, ?, ?)
			`, int64(ev.Type), int64(ev.ID1), int64(ev.ID2))
			if err != nil {
				return fmt.Errorf("append pending %s: %w", ev, err)
			}
		}
		return nil
	})
}

// ReplacePending atomically swaps the persisted queue for events.
func (s *Store) ReplacePending(ctx context.Context, events []ir.BreakEvent) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_events`); err != nil {
			return fmt.Errorf("clear pending: %w", err)
		}
		for _, ev := range events {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO pending_events (type, id1, id2) VALUES (?, ?, ?)
			`, int64(ev.Type), int64(ev.ID1), int64(ev.ID2))
			if err != nil {
				return fmt.Errorf("append pending %s: %w", ev, err)
			}
		}
		return nil
	})
}

// ReadPending returns the persisted events in enqueue order.
func (s *Store) ReadPending(ctx context.Context) ([]ir.BreakEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, id1, id2 FROM pending_events ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	return events, nil
}

// ClearPending drops every persisted event.
func (s *Store) ClearPending(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_events`); err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	return nil
}

// ImportSystem loads a compiled system definition: bond types, particles,
// bonds, and the initial handler chain. Existing bonds are kept, so
// importing twice duplicates them.
func (s *Store) ImportSystem(ctx context.Context, sys ir.System) error {
	for _, bt := range sys.BondTypes {
		if err := s.PutBondType(ctx, bt); err != nil {
			return err
		}
	}
	if err := topology.Load(ctx, s, sys); err != nil {
		return err
	}
	if len(sys.Handlers) > 0 {
		if err := s.SaveChain(ctx, sys.Handlers); err != nil {
			return err
		}
	}
	return nil
}

func scanEvent(row scanner) (ir.BreakEvent, error) {
	var typ, id1, id2 int64
	if err := row.Scan(&typ, &id1, &id2); err != nil {
		return ir.BreakEvent{}, fmt.Errorf("scan event: %w", err)
	}
	return ir.BreakEvent{
		Type: ir.BondType(typ),
		ID1:  ir.ParticleID(id1),
		ID2:  ir.ParticleID(id2),
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
