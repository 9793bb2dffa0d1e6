package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mbd888/gavel/internal/idgen"
	"github.com/mbd888/gavel/internal/pagination"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables with NUMERIC columns.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS balances (
			address    VARCHAR(42) PRIMARY KEY,
			available  NUMERIC(20,6) NOT NULL DEFAULT 0,
			total_in   NUMERIC(20,6) NOT NULL DEFAULT 0,
			total_out  NUMERIC(20,6) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			CONSTRAINT chk_available_nonneg CHECK (available >= 0)
		);

		CREATE TABLE IF NOT EXISTS ledger_entries (
			id          VARCHAR(32) PRIMARY KEY,
			address     VARCHAR(42) NOT NULL,
			type        VARCHAR(20) NOT NULL,
			amount      NUMERIC(20,6) NOT NULL,
			reference   VARCHAR(255),
			description TEXT,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_ledger_address ON ledger_entries(address);
		CREATE INDEX IF NOT EXISTS idx_ledger_created ON ledger_entries(created_at DESC);
	`)
	return err
}

func (p *PostgresStore) GetBalance(ctx context.Context, addr string) (*Balance, error) {
	bal := &Balance{Address: addr}

	err := p.db.QueryRowContext(ctx, `
		SELECT available, total_in, total_out
		FROM balances WHERE address = $1
	`, addr).Scan(&bal.Available, &bal.TotalIn, &bal.TotalOut)

	if err == sql.ErrNoRows {
		// Absent addresses read as zero.
		return &Balance{
			Address:   addr,
			Available: "0",
			TotalIn:   "0",
			TotalOut:  "0",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return bal, nil
}

func (p *PostgresStore) Credit(ctx context.Context, addr, amount, reference, description string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balances (address, available, total_in)
		VALUES ($1, $2::NUMERIC(20,6), $2::NUMERIC(20,6))
		ON CONFLICT (address) DO UPDATE SET
			available = balances.available + $2::NUMERIC(20,6),
			total_in = balances.total_in + $2::NUMERIC(20,6),
			updated_at = NOW()`,
		addr, amount)
	if err != nil {
		return err
	}

	if err := insertEntry(ctx, tx, addr, "credit", amount, reference, description); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Debit(ctx context.Context, addr, amount, reference, description string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Conditional update: the balance check and the subtraction are one
	// statement, so concurrent debits cannot both pass the check.
	result, err := tx.ExecContext(ctx, `
		UPDATE balances SET
			available = available - $2::NUMERIC(20,6),
			total_out = total_out + $2::NUMERIC(20,6),
			updated_at = NOW()
		WHERE address = $1 AND available >= $2::NUMERIC(20,6)`,
		addr, amount)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientFunds
	}

	if err := insertEntry(ctx, tx, addr, "debit", amount, reference, description); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) GetHistory(ctx context.Context, addr string, cursor *pagination.Cursor, limit int) ([]*Entry, error) {
	query := `
		SELECT id, address, type, amount, COALESCE(reference, ''), COALESCE(description, ''), created_at
		FROM ledger_entries
		WHERE address = $1`
	args := []any{addr}

	// Keyset pagination on (created_at, id) matches the DESC sort below.
	if cursor != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.Address, &e.Type, &e.Amount, &e.Reference, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func insertEntry(ctx context.Context, tx *sql.Tx, addr, typ, amount, reference, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, address, type, amount, reference, description)
		VALUES ($1, $2, $3, $4::NUMERIC(20,6), NULLIF($5, ''), NULLIF($6, ''))`,
		idgen.WithPrefix("le_"), addr, typ, amount, reference, description)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}
