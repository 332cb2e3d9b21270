package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/rote/internal/fsrs"
)

// GetOrCreateParams returns the scheduling parameters for a user,
// lazily creating a row from the given defaults on first access.
// This is the only mutation path for scheduler_params in this core.
func (db *DB) GetOrCreateParams(userID string, defaults fsrs.Params) (fsrs.Params, error) {
	params, found, err := db.getParams(userID)
	if err != nil {
		return fsrs.Params{}, err
	}
	if found {
		return params, nil
	}

	weights, err := json.Marshal(defaults.Weights)
	if err != nil {
		return fsrs.Params{}, fmt.Errorf("marshal weights: %w", err)
	}

	now := time.Now().UnixMilli()
	// OR IGNORE: a concurrent first access may have created the row
	// between our read and this insert; theirs wins.
	_, err = db.Exec(`
		INSERT OR IGNORE INTO scheduler_params (user_id, weights, request_retention, maximum_interval, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, string(weights), defaults.RequestRetention, defaults.MaximumInterval, now, now)
	if err != nil {
		return fsrs.Params{}, fmt.Errorf("create params: %w", err)
	}

	params, found, err = db.getParams(userID)
	if err != nil {
		return fsrs.Params{}, err
	}
	if !found {
		return fsrs.Params{}, fmt.Errorf("params for %q missing after create", userID)
	}
	return params, nil
}

func (db *DB) getParams(userID string) (fsrs.Params, bool, error) {
	var weightsJSON string
	var p fsrs.Params
	err := db.QueryRow(`
		SELECT weights, request_retention, maximum_interval
		FROM scheduler_params WHERE user_id = ?
	`, userID).Scan(&weightsJSON, &p.RequestRetention, &p.MaximumInterval)
	if err == sql.ErrNoRows {
		return fsrs.Params{}, false, nil
	}
	if err != nil {
		return fsrs.Params{}, false, fmt.Errorf("get params: %w", err)
	}

	var weights []float64
	if err := json.Unmarshal([]byte(weightsJSON), &weights); err != nil {
		return fsrs.Params{}, false, fmt.Errorf("unmarshal weights: %w", err)
	}
	if len(weights) != len(p.Weights) {
		return fsrs.Params{}, false, fmt.Errorf("stored weights for %q have %d values, want %d",
			userID, len(weights), len(p.Weights))
	}
	copy(p.Weights[:], weights)
	return p, true, nil
}
