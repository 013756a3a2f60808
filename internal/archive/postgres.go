package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

// Postgres is the append-only archive of ledger events
type Postgres struct {
	db *sql.DB
}

// Open connects to the archive database
func Open(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db}, nil
}

// InitSchema creates the archive table
func (p *Postgres) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_events (
		event_id VARCHAR(64) PRIMARY KEY,
		kind VARCHAR(32) NOT NULL,
		item_id BIGINT,
		bidder_id BIGINT,
		previous_bidder_id BIGINT,
		price BIGINT NOT NULL DEFAULT 0,
		method VARCHAR(16) NOT NULL DEFAULT '',
		tier VARCHAR(16) NOT NULL DEFAULT '',
		draw_id VARCHAR(64) NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL,
		archived_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_events_item_id ON ledger_events(item_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_events_bidder_id ON ledger_events(bidder_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_events_occurred_at ON ledger_events(occurred_at);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// InsertEvent stores an event once; redelivered events are ignored
func (p *Postgres) InsertEvent(ctx context.Context, event models.LedgerEvent) (bool, error) {
	query := `
		INSERT INTO ledger_events
			(event_id, kind, item_id, bidder_id, previous_bidder_id, price, method, tier, draw_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING
	`
	res, err := p.db.ExecContext(ctx, query,
		event.EventID,
		string(event.Kind),
		nullID(event.ItemID),
		nullID(event.BidderID),
		nullID(event.PreviousBidderID),
		event.Price,
		string(event.Method),
		event.Tier,
		event.DrawID,
		event.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// Query selects archived events. Zero fields match everything.
type Query struct {
	ItemID   int64
	BidderID int64
	Limit    int
}

// ListEvents returns matching events, newest first
func (p *Postgres) ListEvents(ctx context.Context, q Query) ([]models.LedgerEvent, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	query := `
		SELECT event_id, kind, item_id, bidder_id, previous_bidder_id, price, method, tier, draw_id, occurred_at
		FROM ledger_events
		WHERE ($1::bigint = 0 OR item_id = $1)
		  AND ($2::bigint = 0 OR bidder_id = $2 OR previous_bidder_id = $2)
		ORDER BY occurred_at DESC, event_id
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, query, q.ItemID, q.BidderID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.LedgerEvent
	for rows.Next() {
		var (
			e                       models.LedgerEvent
			kind, method            string
			itemID, bidderID, prior sql.NullInt64
		)
		if err := rows.Scan(&e.EventID, &kind, &itemID, &bidderID, &prior, &e.Price, &method, &e.Tier, &e.DrawID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = models.EventKind(kind)
		e.Method = models.Method(method)
		e.ItemID, e.BidderID, e.PreviousBidderID = itemID.Int64, bidderID.Int64, prior.Int64
		events = append(events, e)
	}
	return events, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
