package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/exchange/internal/model"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same statements serve both direct and transactional execution.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
// Id sequences and cumulative counters live in the single-row
// platform_stats table so they move inside the same transactions as the
// records they number.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

func (s *PostgresStore) NextListingID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.q.QueryRow(ctx,
		`UPDATE platform_stats
		 SET next_listing_id = next_listing_id + 1
		 RETURNING next_listing_id - 1`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next listing id: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) PutListing(ctx context.Context, l *model.Listing) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO listings (id, seller, energy_amount, price_per_unit, energy_type, location, expiry_height, active)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7, $8)`,
		l.ID, l.Seller, l.EnergyAmount, l.PricePerUnit.String(),
		l.EnergyType, l.Location, l.ExpiryHeight, l.Active,
	)
	return err
}

func (s *PostgresStore) GetListing(ctx context.Context, id uint64) (*model.Listing, error) {
	l, err := scanListing(s.q.QueryRow(ctx,
		`SELECT id, seller, energy_amount, price_per_unit::TEXT, energy_type, location, expiry_height, active
		 FROM listings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}
	return l, nil
}

func (s *PostgresStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE listings SET energy_amount = $2, active = $3 WHERE id = $1`,
		l.ID, l.EnergyAmount, l.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, seller, energy_amount, price_per_unit::TEXT, energy_type, location, expiry_height, active
		 FROM listings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) NextTradeID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.q.QueryRow(ctx,
		`UPDATE platform_stats
		 SET next_trade_id = next_trade_id + 1
		 RETURNING next_trade_id - 1`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next trade id: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) PutTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO trades (id, listing_id, buyer, seller, energy_amount, total_price, created_at, completed)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8)`,
		t.ID, t.ListingID, t.Buyer, t.Seller, t.EnergyAmount,
		t.TotalPrice.String(), t.CreatedAt, t.Completed,
	)
	return err
}

func (s *PostgresStore) GetTrade(ctx context.Context, id uint64) (*model.Trade, error) {
	t, err := scanTrade(s.q.QueryRow(ctx,
		`SELECT id, listing_id, buyer, seller, energy_amount, total_price::TEXT, created_at, completed
		 FROM trades WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get trade %d: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTrade(ctx context.Context, t *model.Trade) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE trades SET completed = $2 WHERE id = $1`,
		t.ID, t.Completed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListTradesByAccount(ctx context.Context, account string) ([]model.Trade, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, listing_id, buyer, seller, energy_amount, total_price::TEXT, created_at, completed
		 FROM trades WHERE buyer = $1 OR seller = $1 ORDER BY id`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) PutEscrow(ctx context.Context, e *model.EscrowEntry) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO escrow_entries (trade_id, amount, depositor)
		 VALUES ($1, $2::NUMERIC, $3)`,
		e.TradeID, e.Amount.String(), e.Depositor,
	)
	return err
}

func (s *PostgresStore) GetEscrow(ctx context.Context, tradeID uint64) (*model.EscrowEntry, error) {
	var e model.EscrowEntry
	var amount string
	err := s.q.QueryRow(ctx,
		`SELECT trade_id, amount::TEXT, depositor FROM escrow_entries WHERE trade_id = $1`,
		tradeID).Scan(&e.TradeID, &amount, &e.Depositor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get escrow %d: %w", tradeID, err)
	}
	if e.Amount, err = parseNumeric(amount); err != nil {
		return nil, fmt.Errorf("get escrow %d: %w", tradeID, err)
	}
	return &e, nil
}

func (s *PostgresStore) DeleteEscrow(ctx context.Context, tradeID uint64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM escrow_entries WHERE trade_id = $1`, tradeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetReputation(ctx context.Context, account string) (*model.Reputation, error) {
	var r model.Reputation
	err := s.q.QueryRow(ctx,
		`SELECT account, total_trades, successful_trades, score FROM reputation WHERE account = $1`,
		account).Scan(&r.Account, &r.TotalTrades, &r.SuccessfulTrades, &r.Score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get reputation %s: %w", account, err)
	}
	return &r, nil
}

func (s *PostgresStore) PutReputation(ctx context.Context, r *model.Reputation) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO reputation (account, total_trades, successful_trades, score)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (account) DO UPDATE
		 SET total_trades = EXCLUDED.total_trades,
		     successful_trades = EXCLUDED.successful_trades,
		     score = EXCLUDED.score`,
		r.Account, r.TotalTrades, r.SuccessfulTrades, r.Score,
	)
	return err
}

func (s *PostgresStore) GetStats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	var revenue string
	err := s.q.QueryRow(ctx,
		`SELECT energy_traded, platform_revenue::TEXT, next_listing_id, next_trade_id
		 FROM platform_stats`).
		Scan(&st.EnergyTraded, &revenue, &st.NextListingID, &st.NextTradeID)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	if st.PlatformRevenue, err = parseNumeric(revenue); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) AddStats(ctx context.Context, energy int64, revenue decimal.Decimal) error {
	_, err := s.q.Exec(ctx,
		`UPDATE platform_stats
		 SET energy_traded = energy_traded + $1,
		     platform_revenue = platform_revenue + $2::NUMERIC`,
		energy, revenue.String(),
	)
	return err
}

// InTx runs fn against a pgx transaction; fn's mutations commit together or
// roll back together.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{pool: s.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgxRow interface{ Scan(dest ...any) error }

func scanListing(row pgxRow) (*model.Listing, error) {
	var l model.Listing
	var price string
	if err := row.Scan(&l.ID, &l.Seller, &l.EnergyAmount, &price,
		&l.EnergyType, &l.Location, &l.ExpiryHeight, &l.Active); err != nil {
		return nil, err
	}
	var err error
	if l.PricePerUnit, err = parseNumeric(price); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanTrade(row pgxRow) (*model.Trade, error) {
	var t model.Trade
	var total string
	if err := row.Scan(&t.ID, &t.ListingID, &t.Buyer, &t.Seller,
		&t.EnergyAmount, &total, &t.CreatedAt, &t.Completed); err != nil {
		return nil, err
	}
	var err error
	if t.TotalPrice, err = parseNumeric(total); err != nil {
		return nil, err
	}
	return &t, nil
}

// parseNumeric converts a NUMERIC column read as text back into a decimal.
// A row that fails to parse is surfaced as an error, never as zero money.
func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}
