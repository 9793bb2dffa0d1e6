package assets

import (
	"context"
	"database/sql"
)

// PostgresStore persists asset custody in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed asset store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the assets table.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS assets (
			id          VARCHAR(32) PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			description TEXT,
			owner       VARCHAR(42) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets(owner);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, a *Asset) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO assets (id, name, description, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, nullString(a.Description), a.Owner, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Asset, error) {
	a := &Asset{}
	var desc sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner, created_at, updated_at
		FROM assets WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &desc, &a.Owner, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Description = desc.String
	return a, nil
}

// TransferOwner is a single conditional UPDATE, so the custody check and
// the reassignment cannot be split by a concurrent transfer.
func (p *PostgresStore) TransferOwner(ctx context.Context, id, from, to string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE assets SET owner = $1, updated_at = NOW()
		WHERE id = $2 AND owner = $3`, to, id, from)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a missing asset from wrong custody.
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM assets WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrAssetNotFound
		}
		return ErrNotOwned
	}
	return nil
}

func (p *PostgresStore) ListByOwner(ctx context.Context, owner string, limit int) ([]*Asset, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, description, owner, created_at, updated_at
		FROM assets WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT $2`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Asset
	for rows.Next() {
		a := &Asset{}
		var desc sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &desc, &a.Owner, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Description = desc.String
		result = append(result, a)
	}
	return result, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
