package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"supplierflow/internal/matcher"
)

// WatchlistEntry is a supplier name that was rejected or flagged by hand.
type WatchlistEntry struct {
	matcher.Entry
	Reason  string
	AddedAt time.Time
}

func watchlistKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// InMemoryWatchlist keeps one entry per case-insensitive name; the first
// reason recorded wins.
type InMemoryWatchlist struct {
	mu      sync.RWMutex
	keys    map[string]bool
	entries []WatchlistEntry
}

func NewInMemoryWatchlist() *InMemoryWatchlist {
	return &InMemoryWatchlist{keys: make(map[string]bool)}
}

func (w *InMemoryWatchlist) Add(_ context.Context, entry WatchlistEntry) error {
	key := watchlistKey(entry.Name)
	if key == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.keys[key] {
		return nil
	}
	w.keys[key] = true
	w.entries = append(w.entries, entry)
	return nil
}

func (w *InMemoryWatchlist) Entries(_ context.Context) ([]matcher.Entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]matcher.Entry, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.Entry
	}
	return out, nil
}

// PostgresWatchlist is the supplier_watchlist table.
type PostgresWatchlist struct {
	db *sql.DB
}

func NewPostgresWatchlist(db *sql.DB) *PostgresWatchlist {
	return &PostgresWatchlist{db: db}
}

func (w *PostgresWatchlist) Add(ctx context.Context, entry WatchlistEntry) error {
	key := watchlistKey(entry.Name)
	if key == "" {
		return nil
	}
	query := `
		INSERT INTO supplier_watchlist (name_key, name, reference, reason, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name_key) DO NOTHING
	`
	_, err := w.db.ExecContext(ctx, query, key, strings.TrimSpace(entry.Name), entry.Reference, entry.Reason, entry.AddedAt)
	if err != nil {
		return fmt.Errorf("insert watchlist entry: %w", err)
	}
	return nil
}

func (w *PostgresWatchlist) Entries(ctx context.Context) ([]matcher.Entry, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT name, reference FROM supplier_watchlist ORDER BY added_at, name_key`)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var out []matcher.Entry
	for rows.Next() {
		var e matcher.Entry
		if err := rows.Scan(&e.Name, &e.Reference); err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist: %w", err)
	}
	return out, nil
}
