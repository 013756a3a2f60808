package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// Store is the PostgreSQL ledger. Entity rows are locked with
// SELECT ... FOR UPDATE inside the caller's transaction.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool and checks it
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewStore wraps a pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

const itemColumns = `id, name, email, external_ref, category, base_price, status, bidder_id, price, method, tier, pool, created_at, updated_at`

func scanItem(row pgx.Row) (models.Item, error) {
	var it models.Item
	err := row.Scan(&it.ID, &it.Name, &it.Email, &it.ExternalRef, &it.Category, &it.BasePrice,
		&it.Status, &it.BidderID, &it.Price, &it.Method, &it.Tier, &it.Pool, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (s *Store) getItem(ctx context.Context, id int64, lock bool) (models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	it, err := scanItem(s.q(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Item{}, models.ErrItemNotFound
	}
	if err != nil {
		return models.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (models.Item, error) {
	return s.getItem(ctx, id, false)
}

func (s *Store) GetItemForUpdate(ctx context.Context, id int64) (models.Item, error) {
	return s.getItem(ctx, id, true)
}

func (s *Store) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.BidderID != nil {
		add("bidder_id = $%d", *filter.BidderID)
	}
	if filter.Method != "" {
		add("method = $%d", filter.Method)
	}
	if filter.PoolOnly {
		where = append(where, "(pool OR status = 'unsold')")
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(lower(name) LIKE $%d OR lower(email) LIKE $%d)", n, n))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) CreateItem(ctx context.Context, in models.NewItem, status models.ItemStatus) (models.Item, error) {
	const stmt = `
INSERT INTO items (name, email, external_ref, category, base_price, status, pool)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + itemColumns
	it, err := scanItem(s.q(ctx).QueryRow(ctx, stmt,
		in.Name, in.Email, in.ExternalRef, in.Category, in.BasePrice, status, in.Pool))
	if err != nil {
		return models.Item{}, fmt.Errorf("create item: %w", err)
	}
	return it, nil
}

func (s *Store) UpdateItem(ctx context.Context, it models.Item) error {
	const stmt = `
UPDATE items
SET name = $2, email = $3, external_ref = $4, category = $5, base_price = $6,
    status = $7, bidder_id = $8, price = $9, method = $10, tier = $11, pool = $12,
    updated_at = NOW()
WHERE id = $1`
	tag, err := s.q(ctx).Exec(ctx, stmt, it.ID, it.Name, it.Email, it.ExternalRef, it.Category, it.BasePrice,
		it.Status, it.BidderID, it.Price, it.Method, it.Tier, it.Pool)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

func (s *Store) DeleteCatalogItems(ctx context.Context) (int, error) {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM items WHERE NOT pool`)
	if err != nil {
		return 0, fmt.Errorf("delete catalog items: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

const bidderColumns = `id, name, budget, spend, item_count, min_quota, captain, vice_captain, created_at`

func scanBidder(row pgx.Row) (models.Bidder, error) {
	var b models.Bidder
	err := row.Scan(&b.ID, &b.Name, &b.Budget, &b.Spend, &b.ItemCount, &b.MinQuota, &b.Captain, &b.ViceCaptain, &b.CreatedAt)
	return b, err
}

func (s *Store) getBidder(ctx context.Context, id int64, lock bool) (models.Bidder, error) {
	query := `SELECT ` + bidderColumns + ` FROM bidders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	b, err := scanBidder(s.q(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Bidder{}, models.ErrBidderNotFound
	}
	if err != nil {
		return models.Bidder{}, fmt.Errorf("get bidder: %w", err)
	}
	return b, nil
}

func (s *Store) GetBidder(ctx context.Context, id int64) (models.Bidder, error) {
	return s.getBidder(ctx, id, false)
}

func (s *Store) GetBidderForUpdate(ctx context.Context, id int64) (models.Bidder, error) {
	return s.getBidder(ctx, id, true)
}

func (s *Store) FindBidderByName(ctx context.Context, name string) (models.Bidder, error) {
	b, err := scanBidder(s.q(ctx).QueryRow(ctx,
		`SELECT `+bidderColumns+` FROM bidders WHERE lower(name) = lower($1)`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Bidder{}, models.NotFoundf("bidder %q not found", name)
	}
	if err != nil {
		return models.Bidder{}, fmt.Errorf("find bidder: %w", err)
	}
	return b, nil
}

func (s *Store) ListBidders(ctx context.Context) ([]models.Bidder, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT `+bidderColumns+` FROM bidders ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list bidders: %w", err)
	}
	defer rows.Close()

	bidders := []models.Bidder{}
	for rows.Next() {
		b, err := scanBidder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bidder: %w", err)
		}
		bidders = append(bidders, b)
	}
	return bidders, rows.Err()
}

func (s *Store) CreateBidder(ctx context.Context, in models.BidderInput) (models.Bidder, error) {
	const stmt = `
INSERT INTO bidders (name, budget, min_quota, captain, vice_captain)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + bidderColumns
	b, err := scanBidder(s.q(ctx).QueryRow(ctx, stmt, in.Name, in.Budget, in.MinQuota, in.Captain, in.ViceCaptain))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Bidder{}, models.ErrBidderExists
		}
		return models.Bidder{}, fmt.Errorf("create bidder: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBidder(ctx context.Context, b models.Bidder) error {
	const stmt = `
UPDATE bidders
SET name = $2, budget = $3, spend = $4, item_count = $5, min_quota = $6, captain = $7, vice_captain = $8
WHERE id = $1`
	tag, err := s.q(ctx).Exec(ctx, stmt, b.ID, b.Name, b.Budget, b.Spend, b.ItemCount, b.MinQuota, b.Captain, b.ViceCaptain)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrBidderExists
		}
		return fmt.Errorf("update bidder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBidderNotFound
	}
	return nil
}

func (s *Store) DeleteBidder(ctx context.Context, id int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM bidders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bidder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBidderNotFound
	}
	return nil
}

func (s *Store) GetBand(ctx context.Context, id int64) (models.Band, error) {
	var b models.Band
	err := s.q(ctx).QueryRow(ctx, `SELECT id, letter, value, min_bid, max_bid FROM bundle_bands WHERE id = $1`, id).
		Scan(&b.ID, &b.Letter, &b.Value, &b.MinBid, &b.MaxBid)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Band{}, models.ErrBandNotFound
	}
	if err != nil {
		return models.Band{}, fmt.Errorf("get band: %w", err)
	}
	return b, nil
}

func (s *Store) ListBands(ctx context.Context) ([]models.Band, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT id, letter, value, min_bid, max_bid FROM bundle_bands ORDER BY value DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bands: %w", err)
	}
	defer rows.Close()

	bands := []models.Band{}
	for rows.Next() {
		var b models.Band
		if err := rows.Scan(&b.ID, &b.Letter, &b.Value, &b.MinBid, &b.MaxBid); err != nil {
			return nil, fmt.Errorf("scan band: %w", err)
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

func (s *Store) CreateBand(ctx context.Context, in models.BandInput) (models.Band, error) {
	b := models.Band{Letter: in.Letter, Value: in.Value, MinBid: in.MinBid, MaxBid: in.MaxBid}
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO bundle_bands (letter, value, min_bid, max_bid) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Letter, in.Value, in.MinBid, in.MaxBid).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Band{}, models.ErrBandExists
		}
		return models.Band{}, fmt.Errorf("create band: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBand(ctx context.Context, b models.Band) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE bundle_bands SET letter = $2, value = $3, min_bid = $4, max_bid = $5 WHERE id = $1`,
		b.ID, b.Letter, b.Value, b.MinBid, b.MaxBid)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrBandExists
		}
		return fmt.Errorf("update band: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBandNotFound
	}
	return nil
}

func (s *Store) DeleteBand(ctx context.Context, id int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM bundle_bands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete band: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBandNotFound
	}
	return nil
}

func (s *Store) ListParticipations(ctx context.Context, bidderID int64) ([]models.Participation, error) {
	rows, err := s.q(ctx).Query(ctx, `
SELECT id, bidder_id, band_id, amount, result, created_at
FROM bundle_participations
WHERE bidder_id = $1
ORDER BY id DESC`, bidderID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	parts := []models.Participation{}
	for rows.Next() {
		var p models.Participation
		if err := rows.Scan(&p.ID, &p.BidderID, &p.BandID, &p.Amount, &p.Result, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (s *Store) AddParticipation(ctx context.Context, p models.Participation) (models.Participation, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := s.q(ctx).QueryRow(ctx, `
INSERT INTO bundle_participations (bidder_id, band_id, amount, result, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`, p.BidderID, p.BandID, p.Amount, p.Result, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return models.Participation{}, fmt.Errorf("add participation: %w", err)
	}
	return p, nil
}

func (s *Store) ResetLedger(ctx context.Context) error {
	stmts := []string{
		`UPDATE items SET status = 'unsold', bidder_id = NULL, price = NULL, method = 'none', tier = '', updated_at = NOW()`,
		`UPDATE bidders SET spend = 0, item_count = 0`,
		`DELETE FROM bundle_participations`,
	}
	for _, stmt := range stmts {
		if _, err := s.q(ctx).Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset ledger: %w", err)
		}
	}
	return nil
}
