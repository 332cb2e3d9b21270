package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lazypower/rote/internal/fsrs"
)

// ReviewEntry is one append-only review event. Entries are never
// mutated and never read back into scheduling; they exist for
// statistics and audit.
type ReviewEntry struct {
	ID               int64
	ItemID           string
	UserID           string
	Rating           fsrs.Rating
	StateBefore      fsrs.State
	StabilityBefore  float64
	StabilityAfter   float64
	DifficultyBefore float64
	DifficultyAfter  float64
	Retrievability   float64
	ElapsedDays      float64
	ScheduledDays    float64
	DurationMS       *int64
	CreatedAt        int64
}

// AppendReview inserts a review entry. Insert-only; there is no update
// or delete path for review_log.
func (db *DB) AppendReview(e *ReviewEntry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	stateBefore, err := e.StateBefore.MarshalText()
	if err != nil {
		return fmt.Errorf("append review: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO review_log (item_id, user_id, rating, state_before,
			stability_before, stability_after, difficulty_before, difficulty_after,
			retrievability, elapsed_days, scheduled_days, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ItemID, e.UserID, int(e.Rating), string(stateBefore),
		e.StabilityBefore, e.StabilityAfter, e.DifficultyBefore, e.DifficultyAfter,
		e.Retrievability, e.ElapsedDays, e.ScheduledDays, e.DurationMS, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append review: %w", err)
	}

	id, _ := result.LastInsertId()
	e.ID = id
	return nil
}

// ReviewsForItem returns the most recent review entries for an item,
// newest first. Audit use only.
func (db *DB) ReviewsForItem(itemID string, limit int) ([]ReviewEntry, error) {
	rows, err := db.Query(`
		SELECT id, item_id, user_id, rating, state_before,
			stability_before, stability_after, difficulty_before, difficulty_after,
			retrievability, elapsed_days, scheduled_days, duration_ms, created_at
		FROM review_log WHERE item_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("reviews for item: %w", err)
	}
	defer rows.Close()

	var entries []ReviewEntry
	for rows.Next() {
		var e ReviewEntry
		var rating int
		var stateBefore string
		var duration sql.NullInt64
		if err := rows.Scan(&e.ID, &e.ItemID, &e.UserID, &rating, &stateBefore,
			&e.StabilityBefore, &e.StabilityAfter, &e.DifficultyBefore, &e.DifficultyAfter,
			&e.Retrievability, &e.ElapsedDays, &e.ScheduledDays, &duration, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		e.Rating = fsrs.Rating(rating)
		if err := e.StateBefore.UnmarshalText([]byte(stateBefore)); err != nil {
			return nil, err
		}
		if duration.Valid {
			e.DurationMS = &duration.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReviewStats aggregates review history for one user over a window.
// AvgRating and RetentionRate are nil when the window holds no reviews;
// zero would be a legal value and must stay distinguishable.
type ReviewStats struct {
	TotalReviews  int
	AvgRating     *float64
	AgainCount    int
	EasyCount     int
	RetentionRate *float64
}

// ReviewStatsWindow computes aggregates over the last windowDays of
// review history.
func (db *DB) ReviewStatsWindow(userID string, windowDays int, now time.Time) (ReviewStats, error) {
	since := now.AddDate(0, 0, -windowDays).UnixMilli()

	var stats ReviewStats
	var avg sql.NullFloat64
	err := db.QueryRow(`
		SELECT COUNT(*), AVG(rating),
			COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN rating = 4 THEN 1 ELSE 0 END), 0)
		FROM review_log
		WHERE user_id = ? AND created_at >= ?
	`, userID, since).Scan(&stats.TotalReviews, &avg, &stats.AgainCount, &stats.EasyCount)
	if err != nil {
		return ReviewStats{}, fmt.Errorf("review stats: %w", err)
	}

	if stats.TotalReviews > 0 {
		if avg.Valid {
			stats.AvgRating = &avg.Float64
		}
		retention := 1 - float64(stats.AgainCount)/float64(stats.TotalReviews)
		stats.RetentionRate = &retention
	}
	return stats, nil
}
