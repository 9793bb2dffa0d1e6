package auction

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// PostgresStore persists auction data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed auction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the auctions table. The refundable map is stored as
// JSONB; amounts inside it are decimal strings like everywhere else.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS auctions (
			id             VARCHAR(32) PRIMARY KEY,
			asset_id       VARCHAR(32) NOT NULL,
			seller         VARCHAR(42) NOT NULL,
			starting_price NUMERIC(20,6) NOT NULL,
			status         VARCHAR(10) NOT NULL,
			end_at         TIMESTAMPTZ,
			highest_bid    NUMERIC(20,6) NOT NULL,
			highest_bidder VARCHAR(42),
			refundable     JSONB NOT NULL DEFAULT '{}',
			winner         VARCHAR(42),
			sale_price     NUMERIC(20,6),
			ended_at       TIMESTAMPTZ,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_auctions_status ON auctions(status);
		CREATE INDEX IF NOT EXISTS idx_auctions_deadline ON auctions(end_at) WHERE status = 'active';
	`)
	return err
}

const auctionColumns = `id, asset_id, seller, starting_price, status, end_at,
	       highest_bid, highest_bidder, refundable, winner, sale_price,
	       ended_at, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, a *Auction) error {
	refundable, err := refundableJSON(a)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO auctions (`+auctionColumns+`)
		VALUES ($1, $2, $3, $4::NUMERIC(20,6), $5, $6,
		        $7::NUMERIC(20,6), $8, $9, $10, $11,
		        $12, $13, $14)`,
		a.ID, a.AssetID, a.Seller, a.StartingPrice, string(a.Status), nullTime(a.EndAt),
		a.HighestBid, nullString(a.HighestBidder), refundable,
		nullString(a.Winner), nullNumeric(a.SalePrice),
		nullTime(a.EndedAt), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Auction, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	a, err := scanAuction(row)
	if err == sql.ErrNoRows {
		return nil, ErrAuctionNotFound
	}
	return a, err
}

func (p *PostgresStore) Update(ctx context.Context, a *Auction) error {
	refundable, err := refundableJSON(a)
	if err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE auctions SET
			status = $1, end_at = $2,
			highest_bid = $3::NUMERIC(20,6), highest_bidder = $4,
			refundable = $5, winner = $6, sale_price = $7,
			ended_at = $8, updated_at = $9
		WHERE id = $10`,
		string(a.Status), nullTime(a.EndAt),
		a.HighestBid, nullString(a.HighestBidder),
		refundable, nullString(a.Winner), nullNumeric(a.SalePrice),
		nullTime(a.EndedAt), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, status Status, limit int) ([]*Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions`
	args := []interface{}{limit}
	if status != "" {
		query += ` WHERE status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanAuctions(rows)
}

func (p *PostgresStore) ListExpired(ctx context.Context, before time.Time, limit int) ([]*Auction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status = 'active' AND end_at < $1
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanAuctions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*Auction, error) {
	a := &Auction{}
	var (
		status        string
		endAt         sql.NullTime
		highestBidder sql.NullString
		refundable    []byte
		winner        sql.NullString
		salePrice     sql.NullString
		endedAt       sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.AssetID, &a.Seller, &a.StartingPrice, &status, &endAt,
		&a.HighestBid, &highestBidder, &refundable, &winner, &salePrice,
		&endedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	if endAt.Valid {
		t := endAt.Time
		a.EndAt = &t
	}
	a.HighestBidder = highestBidder.String
	a.Winner = winner.String
	a.SalePrice = salePrice.String
	if endedAt.Valid {
		t := endedAt.Time
		a.EndedAt = &t
	}
	if len(refundable) > 0 {
		if err := json.Unmarshal(refundable, &a.Refundable); err != nil {
			return nil, err
		}
		if len(a.Refundable) == 0 {
			a.Refundable = nil
		}
	}
	return a, nil
}

func scanAuctions(rows *sql.Rows) ([]*Auction, error) {
	var result []*Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func refundableJSON(a *Auction) ([]byte, error) {
	if a.Refundable == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.Refundable)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullNumeric(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
