package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bondbreak/internal/ir"
)

// AddParticle declares a particle. Re-declaring an id replaces its
// virtual-site back-reference and keeps its bonds.
func (s *Store) AddParticle(ctx context.Context, spec ir.ParticleSpec) error {
	var virtualOf sql.NullInt64
	if spec.VirtualOf != nil {
		virtualOf = sql.NullInt64{Int64: int64(*spec.VirtualOf), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO particles (id, virtual_of) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET virtual_of = excluded.virtual_of
	`, int64(spec.ID), virtualOf)
	if err != nil {
		return fmt.Errorf("add particle %d: %w", spec.ID, err)
	}
	return nil
}

// BondExists reports whether owner holds a bond of type t to partner.
// An unknown owner holds no bonds.
func (s *Store) BondExists(ctx context.Context, owner, partner ir.ParticleID, t ir.BondType) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM bonds WHERE owner = ? AND type = ? AND partner = ? LIMIT 1
	`, int64(owner), int64(t), int64(partner)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bond exists: %w", err)
	}
	return true, nil
}

// MutateBond adds (del == false) or deletes (del == true) one bond record
// on owner. Deleting a missing bond is a no-op.
func (s *Store) MutateBond(ctx context.Context, owner ir.ParticleID, t ir.BondType, partner ir.ParticleID, del bool) error {
	if del {
		// rowid subquery deletes exactly one record if duplicates exist
		_, err := s.db.ExecContext(ctx, `
			DELETE FROM bonds WHERE rowid = (
				SELECT rowid FROM bonds
				WHERE owner = ? AND type = ? AND partner = ?
				ORDER BY rowid LIMIT 1
			)
		`, int64(owner), int64(t), int64(partner))
		if err != nil {
			return fmt.Errorf("delete bond: %w", err)
		}
		return nil
	}

	if _, err := s.particle(ctx, owner); err != nil {
		return fmt.Errorf("add bond: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bonds (owner, type, partner) VALUES (?, ?, ?)
	`, int64(owner), int64(t), int64(partner))
	if err != nil {
		return fmt.Errorf("add bond: %w", err)
	}
	return nil
}

// VirtualSiteBackref returns the real particle a virtual site represents.
func (s *Store) VirtualSiteBackref(ctx context.Context, id ir.ParticleID) (ir.ParticleID, error) {
	spec, err := s.particle(ctx, id)
	if err != nil {
		return 0, err
	}
	if spec.VirtualOf == nil {
		return 0, fmt.Errorf("particle %d: %w", id, ir.ErrNotVirtual)
	}
	return *spec.VirtualOf, nil
}

// ClearBondsBetween removes every bond between a and b on either side.
func (s *Store) ClearBondsBetween(ctx context.Context, a, b ir.ParticleID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM bonds
		WHERE (owner = ? AND partner = ?) OR (owner = ? AND partner = ?)
	`, int64(a), int64(b), int64(b), int64(a))
	if err != nil {
		return fmt.Errorf("clear bonds between %d and %d: %w", a, b, err)
	}
	return nil
}

// Bonds lists every bond record ordered by (owner, type, partner).
func (s *Store) Bonds(ctx context.Context) ([]ir.Bond, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner, type, partner FROM bonds
		ORDER BY owner ASC, type ASC, partner ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query bonds: %w", err)
	}
	defer rows.Close()

	bonds := []ir.Bond{}
	for rows.Next() {
		var owner, typ, partner int64
		if err := rows.Scan(&owner, &typ, &partner); err != nil {
			return nil, fmt.Errorf("scan bond: %w", err)
		}
		bonds = append(bonds, ir.Bond{
			Owner:   ir.ParticleID(owner),
			Type:    ir.BondType(typ),
			Partner: ir.ParticleID(partner),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bonds: %w", err)
	}
	return bonds, nil
}

// Particles lists every particle ordered by id.
func (s *Store) Particles(ctx context.Context) ([]ir.ParticleSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, virtual_of FROM particles ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query particles: %w", err)
	}
	defer rows.Close()

	particles := []ir.ParticleSpec{}
	for rows.Next() {
		spec, err := scanParticle(rows)
		if err != nil {
			return nil, err
		}
		particles = append(particles, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate particles: %w", err)
	}
	return particles, nil
}

func (s *Store) particle(ctx context.Context, id ir.ParticleID) (ir.ParticleSpec, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, virtual_of FROM particles WHERE id = ?
	`, int64(id))
	spec, err := scanParticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ParticleSpec{}, fmt.Errorf("particle %d: %w", id, ir.ErrParticleNotFound)
	}
	return spec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticle(row scanner) (ir.ParticleSpec, error) {
	var id int64
	var virtualOf sql.NullInt64
	if err := row.Scan(&id, &virtualOf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.ParticleSpec{}, err
		}
		return ir.ParticleSpec{}, fmt.Errorf("scan particle: %w", err)
	}

	spec := ir.ParticleSpec{ID: ir.ParticleID(id)}
	if virtualOf.Valid {
		backref := ir.ParticleID(virtualOf.Int64)
		spec.VirtualOf = &backref
	}
	return spec, nil
}
