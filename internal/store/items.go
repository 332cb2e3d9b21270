package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/rote/internal/fsrs"
)

// ErrStaleItem is returned when a scheduling update loses an
// optimistic-concurrency race: another writer changed the item between
// this writer's read and its update.
var ErrStaleItem = errors.New("store: stale item revision")

// Item is the persisted scheduling state of one learnable unit.
type Item struct {
	ID            string
	UserID        string
	State         fsrs.State
	Stability     float64
	Difficulty    float64
	Reps          int
	Lapses        int
	LastReview    *time.Time
	ScheduledDays *float64
	NextReview    *time.Time
	Superseded    bool
	Rev           int64
	CreatedAt     int64
	UpdatedAt     int64
}

const itemColumns = `id, user_id, state, stability, difficulty, reps, lapses,
	last_review, scheduled_days, next_review, superseded, rev, created_at, updated_at`

// CreateItem inserts a new item row. State, stability, and difficulty
// must already be set by the caller.
func (db *DB) CreateItem(item *Item) error {
	now := time.Now().UnixMilli()
	state, err := item.State.MarshalText()
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO items (id, user_id, state, stability, difficulty, reps, lapses,
			last_review, scheduled_days, next_review, superseded, rev, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, item.ID, item.UserID, string(state), item.Stability, item.Difficulty,
		item.Reps, item.Lapses,
		timeToMillis(item.LastReview), item.ScheduledDays, timeToMillis(item.NextReview),
		boolToInt(item.Superseded), now, now)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	item.Rev = 0
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// GetItem returns the item for the (id, user) pair, or nil if absent.
func (db *DB) GetItem(id, userID string) (*Item, error) {
	row := db.QueryRow(`
		SELECT `+itemColumns+`
		FROM items WHERE id = ? AND user_id = ?
	`, id, userID)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// UpdateItemScheduling persists the scheduling fields of an item,
// guarded by the revision the caller read. Returns ErrStaleItem if
// another writer got there first; the caller should reload and retry.
func (db *DB) UpdateItemScheduling(item *Item) error {
	now := time.Now().UnixMilli()
	state, err := item.State.MarshalText()
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	result, err := db.Exec(`
		UPDATE items SET state = ?, stability = ?, difficulty = ?, reps = ?, lapses = ?,
			last_review = ?, scheduled_days = ?, next_review = ?, rev = rev + 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND rev = ?
	`, string(state), item.Stability, item.Difficulty, item.Reps, item.Lapses,
		timeToMillis(item.LastReview), item.ScheduledDays, timeToMillis(item.NextReview),
		now, item.ID, item.UserID, item.Rev)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n == 0 {
		return ErrStaleItem
	}

	item.Rev++
	item.UpdatedAt = now
	return nil
}

// SupersedeItem flags an item as merged/superseded by the external
// memory lifecycle, removing it from all queues.
func (db *DB) SupersedeItem(id, userID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE items SET superseded = 1, updated_at = ? WHERE id = ? AND user_id = ?
	`, now, id, userID)
	if err != nil {
		return fmt.Errorf("supersede item: %w", err)
	}
	return nil
}

// DueItems returns items whose next review date has arrived, ordered
// by next review ascending. Superseded items are excluded.
func (db *DB) DueItems(userID string, limit int, now time.Time) ([]Item, error) {
	rows, err := db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE user_id = ? AND superseded = 0
			AND next_review IS NOT NULL AND next_review <= ?
		ORDER BY next_review ASC
		LIMIT ?
	`, userID, now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("due items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// NewItems returns unreviewed items, most recently created first.
func (db *DB) NewItems(userID string, limit int) ([]Item, error) {
	rows, err := db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE user_id = ? AND superseded = 0 AND state = 'new'
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("new items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// LearningItems returns items in learning or relearning, least
// recently reviewed first.
func (db *DB) LearningItems(userID string) ([]Item, error) {
	rows, err := db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE user_id = ? AND superseded = 0 AND state IN ('learning', 'relearning')
		ORDER BY last_review ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("learning items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// CountDue returns the number of currently due items.
func (db *DB) CountDue(userID string, now time.Time) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM items
		WHERE user_id = ? AND superseded = 0
			AND next_review IS NOT NULL AND next_review <= ?
	`, userID, now.UnixMilli()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count due: %w", err)
	}
	return count, nil
}

// CountNew returns the number of unreviewed items.
func (db *DB) CountNew(userID string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM items
		WHERE user_id = ? AND superseded = 0 AND state = 'new'
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count new: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var state string
	var superseded int
	var lastReview, nextReview sql.NullInt64
	var scheduledDays sql.NullFloat64

	err := row.Scan(&item.ID, &item.UserID, &state, &item.Stability, &item.Difficulty,
		&item.Reps, &item.Lapses, &lastReview, &scheduledDays, &nextReview,
		&superseded, &item.Rev, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := item.State.UnmarshalText([]byte(state)); err != nil {
		return nil, err
	}
	item.Superseded = superseded != 0
	if lastReview.Valid {
		t := time.UnixMilli(lastReview.Int64).UTC()
		item.LastReview = &t
	}
	if nextReview.Valid {
		t := time.UnixMilli(nextReview.Int64).UTC()
		item.NextReview = &t
	}
	if scheduledDays.Valid {
		item.ScheduledDays = &scheduledDays.Float64
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func timeToMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
