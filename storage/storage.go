package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath keeps the journal in memory for the life of the process.
const MemoryPath = ":memory:"

// Relay is one journaled relay attempt.
type Relay struct {
	ItemID     string
	Title      string
	URL        string
	Currencies []string
	Vote       string
	Delivered  bool
	Skipped    bool
	MessageID  int
	Error      string
	CycleID    string
	RelayedAt  time.Time
}

// Totals summarises the journal.
type Totals struct {
	Delivered int
	Failed    int
	Skipped   int
}

// DB wraps the SQLite connection holding the relay journal.
type DB struct {
	conn *sql.DB
}

// NewDB opens the journal at path and initializes the schema.
// An empty path or MemoryPath keeps everything in memory.
func NewDB(path string) (*DB, error) {
	if path == "" {
		path = MemoryPath
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS relays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		currencies TEXT NOT NULL DEFAULT '[]',
		vote TEXT NOT NULL DEFAULT '',
		delivered INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		message_id INTEGER,
		error TEXT,
		cycle_id TEXT NOT NULL DEFAULT '',
		relayed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_relays_item_id ON relays(item_id);
	CREATE INDEX IF NOT EXISTS idx_relays_relayed_at ON relays(relayed_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// RecordRelay appends one relay attempt to the journal.
func (db *DB) RecordRelay(ctx context.Context, r *Relay) error {
	currencies := r.Currencies
	if currencies == nil {
		currencies = []string{}
	}
	currenciesJSON, err := json.Marshal(currencies)
	if err != nil {
		return fmt.Errorf("marshal currencies: %w", err)
	}

	relayedAt := r.RelayedAt
	if relayedAt.IsZero() {
		relayedAt = time.Now()
	}
	relayedAt = relayedAt.UTC()

	var messageID sql.NullInt64
	if r.MessageID != 0 {
		messageID = sql.NullInt64{Int64: int64(r.MessageID), Valid: true}
	}
	var errText sql.NullString
	if r.Error != "" {
		errText = sql.NullString{String: r.Error, Valid: true}
	}

	query := `
	INSERT INTO relays (item_id, title, url, currencies, vote, delivered, skipped, message_id, error, cycle_id, relayed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.conn.ExecContext(ctx, query,
		r.ItemID,
		r.Title,
		r.URL,
		string(currenciesJSON),
		r.Vote,
		r.Delivered,
		r.Skipped,
		messageID,
		errText,
		r.CycleID,
		relayedAt,
	)
	if err != nil {
		return fmt.Errorf("insert relay: %w", err)
	}
	return nil
}

// Totals counts delivered, failed and skipped relays.
func (db *DB) Totals(ctx context.Context) (Totals, error) {
	query := `
	SELECT
		COALESCE(SUM(CASE WHEN delivered = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN delivered = 0 AND skipped = 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN skipped = 1 THEN 1 ELSE 0 END), 0)
	FROM relays
	`
	var t Totals
	err := db.conn.QueryRowContext(ctx, query).Scan(&t.Delivered, &t.Failed, &t.Skipped)
	return t, err
}

// Recent returns the latest relays, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Relay, error) {
	query := `
	SELECT item_id, title, url, currencies, vote, delivered, skipped, message_id, error, cycle_id, relayed_at
	FROM relays ORDER BY id DESC LIMIT ?
	`
	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relays []Relay
	for rows.Next() {
		var r Relay
		var currenciesJSON string
		var messageID sql.NullInt64
		var errText sql.NullString
		if err := rows.Scan(
			&r.ItemID,
			&r.Title,
			&r.URL,
			&currenciesJSON,
			&r.Vote,
			&r.Delivered,
			&r.Skipped,
			&messageID,
			&errText,
			&r.CycleID,
			&r.RelayedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(currenciesJSON), &r.Currencies); err != nil {
			return nil, fmt.Errorf("unmarshal currencies: %w", err)
		}
		if messageID.Valid {
			r.MessageID = int(messageID.Int64)
		}
		r.Error = errText.String
		relays = append(relays, r)
	}
	return relays, rows.Err()
}
