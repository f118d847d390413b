package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dasjeff/warppoint/internal/services/warp/domain"
	"github.com/dasjeff/warppoint/internal/services/warp/storage"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// each mutation has one implementation usable standalone or inside a
// transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const warpColumns = "id, owner_id, name, world, x, y, z, yaw, pitch, created_at"

// CreateWarp inserts a warp using its own short-lived connection and returns
// it with the assigned id.
func (s *Store) CreateWarp(ctx context.Context, warp domain.Warp) (domain.Warp, error) {
	if err := ctx.Err(); err != nil {
		return domain.Warp{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Warp{}, fmt.Errorf("storage is not configured")
	}
	return insertWarp(ctx, s.sqlDB, warp)
}

// CreateWarp participates in the caller's transaction.
func (t *Tx) CreateWarp(ctx context.Context, warp domain.Warp) (domain.Warp, error) {
	if err := ctx.Err(); err != nil {
		return domain.Warp{}, err
	}
	return insertWarp(ctx, t.tx, warp)
}

func insertWarp(ctx context.Context, q querier, warp domain.Warp) (domain.Warp, error) {
	if warp.OwnerID == uuid.Nil {
		return domain.Warp{}, fmt.Errorf("owner id is required")
	}
	if warp.Name == "" {
		return domain.Warp{}, fmt.Errorf("warp name is required")
	}
	if warp.Location.World == "" {
		return domain.Warp{}, fmt.Errorf("world is required")
	}

	result, err := q.ExecContext(ctx, `
INSERT INTO warps (owner_id, name, world, x, y, z, yaw, pitch, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		warp.OwnerID.String(),
		warp.Name,
		warp.Location.World,
		warp.Location.X,
		warp.Location.Y,
		warp.Location.Z,
		warp.Location.Yaw,
		warp.Location.Pitch,
		toMillis(warp.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Warp{}, storage.ErrAlreadyExists
		}
		return domain.Warp{}, fmt.Errorf("insert warp: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Warp{}, fmt.Errorf("warp insert id: %w", err)
	}
	warp.ID = id
	return warp, nil
}

// GetWarpByID fetches a warp by its assigned id.
func (s *Store) GetWarpByID(ctx context.Context, id int64) (domain.Warp, error) {
	if err := ctx.Err(); err != nil {
		return domain.Warp{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Warp{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+warpColumns+`
FROM warps
WHERE id = ?
`, id)
	return scanWarp(row)
}

// GetWarpByOwnerAndName fetches one warp by owner and case-insensitive name.
func (s *Store) GetWarpByOwnerAndName(ctx context.Context, owner uuid.UUID, name string) (domain.Warp, error) {
	if err := ctx.Err(); err != nil {
		return domain.Warp{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Warp{}, fmt.Errorf("storage is not configured")
	}
	if owner == uuid.Nil {
		return domain.Warp{}, fmt.Errorf("owner id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+warpColumns+`
FROM warps
WHERE owner_id = ? AND name = ? COLLATE NOCASE
`, owner.String(), name)
	return scanWarp(row)
}

// ListWarpsByOwner returns all warps for one owner.
func (s *Store) ListWarpsByOwner(ctx context.Context, owner uuid.UUID) ([]domain.Warp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if owner == uuid.Nil {
		return nil, fmt.Errorf("owner id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+warpColumns+`
FROM warps
WHERE owner_id = ?
ORDER BY id
`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list warps: %w", err)
	}
	defer rows.Close()

	var warps []domain.Warp
	for rows.Next() {
		warp, err := scanWarpRows(rows)
		if err != nil {
			return nil, err
		}
		warps = append(warps, warp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list warps rows: %w", err)
	}
	return warps, nil
}

// CountWarpsByOwner returns the number of warps one owner holds.
func (s *Store) CountWarpsByOwner(ctx context.Context, owner uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if owner == uuid.Nil {
		return 0, fmt.Errorf("owner id is required")
	}

	var count int
	row := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM warps WHERE owner_id = ?`, owner.String())
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count warps: %w", err)
	}
	return count, nil
}

// UpdateWarp rewrites all mutable attributes of a warp by id.
func (s *Store) UpdateWarp(ctx context.Context, warp domain.Warp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if warp.ID == 0 {
		return fmt.Errorf("warp id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE warps
SET owner_id = ?, name = ?, world = ?, x = ?, y = ?, z = ?, yaw = ?, pitch = ?
WHERE id = ?
`,
		warp.OwnerID.String(),
		warp.Name,
		warp.Location.World,
		warp.Location.X,
		warp.Location.Y,
		warp.Location.Z,
		warp.Location.Yaw,
		warp.Location.Pitch,
		warp.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("update warp: %w", err)
	}
	return requireAffectedRow(result, "update warp")
}

// DeleteWarpByID deletes a warp by id using its own short-lived connection.
func (s *Store) DeleteWarpByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return deleteWarpByID(ctx, s.sqlDB, id)
}

// DeleteWarpByID participates in the caller's transaction.
func (t *Tx) DeleteWarpByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return deleteWarpByID(ctx, t.tx, id)
}

func deleteWarpByID(ctx context.Context, q querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM warps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete warp: %w", err)
	}
	return requireAffectedRow(result, "delete warp")
}

// DeleteWarpByOwnerAndName deletes one warp by owner and case-insensitive name.
func (s *Store) DeleteWarpByOwnerAndName(ctx context.Context, owner uuid.UUID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if owner == uuid.Nil {
		return fmt.Errorf("owner id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM warps
WHERE owner_id = ? AND name = ? COLLATE NOCASE
`, owner.String(), name)
	if err != nil {
		return fmt.Errorf("delete warp by name: %w", err)
	}
	return requireAffectedRow(result, "delete warp by name")
}

// ListOwners returns the distinct owners holding at least one warp.
func (s *Store) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT DISTINCT owner_id FROM warps ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var owners []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owner, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse owner id %q: %w", raw, err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list owners rows: %w", err)
	}
	return owners, nil
}

// requireAffectedRow maps zero-row mutations to storage.ErrNotFound.
func requireAffectedRow(result sql.Result, verb string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s affected rows: %w", verb, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarp(row *sql.Row) (domain.Warp, error) {
	warp, err := scanWarpFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Warp{}, storage.ErrNotFound
		}
		return domain.Warp{}, err
	}
	return warp, nil
}

func scanWarpRows(rows *sql.Rows) (domain.Warp, error) {
	return scanWarpFrom(rows)
}

func scanWarpFrom(scanner rowScanner) (domain.Warp, error) {
	var (
		warp      domain.Warp
		rawOwner  string
		createdAt int64
	)
	if err := scanner.Scan(
		&warp.ID,
		&rawOwner,
		&warp.Name,
		&warp.Location.World,
		&warp.Location.X,
		&warp.Location.Y,
		&warp.Location.Z,
		&warp.Location.Yaw,
		&warp.Location.Pitch,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Warp{}, err
		}
		return domain.Warp{}, fmt.Errorf("scan warp: %w", err)
	}
	owner, err := uuid.Parse(rawOwner)
	if err != nil {
		return domain.Warp{}, fmt.Errorf("parse warp owner %q: %w", rawOwner, err)
	}
	warp.OwnerID = owner
	warp.CreatedAt = fromMillis(createdAt)
	return warp, nil
}
