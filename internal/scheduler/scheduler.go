// Package scheduler orchestrates the FSRS engine against the store:
// load item and parameters, compute the outcome, persist the mutated
// item, append the review log entry. All math lives in internal/fsrs;
// all I/O lives in internal/store.
package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/rote/internal/fsrs"
	"github.com/lazypower/rote/internal/store"
)

var (
	// ErrNotFound means the (item, user) pair does not exist.
	ErrNotFound = errors.New("scheduler: item not found")
	// ErrConflict means concurrent reviews of the same item kept
	// colliding past the retry budget.
	ErrConflict = errors.New("scheduler: conflicting concurrent review")
)

// submitRetries bounds the reload-and-recompute loop when two reviews
// of the same item race (e.g. two devices reviewing out of sync).
const submitRetries = 3

// Defaults applied when an item is first initialized.
const (
	initialStability  = 1.0
	initialDifficulty = 0.3
)

// Service is the scheduling service. The parameter repository is the
// store itself, injected here rather than cached in a process global.
type Service struct {
	db       *store.DB
	defaults fsrs.Params
}

// New creates a Service. defaults seeds per-user parameter rows on
// first access.
func New(db *store.DB, defaults fsrs.Params) *Service {
	return &Service{db: db, defaults: defaults}
}

// Params returns the scheduling parameters for a user, creating the
// default row on first access.
func (s *Service) Params(userID string) (fsrs.Params, error) {
	return s.db.GetOrCreateParams(userID, s.defaults)
}

// ReviewResult is the before/after snapshot returned from a submitted
// review.
type ReviewResult struct {
	ItemID           string     `json:"item_id"`
	StateBefore      fsrs.State `json:"state_before"`
	StateAfter       fsrs.State `json:"state_after"`
	StabilityBefore  float64    `json:"stability_before"`
	StabilityAfter   float64    `json:"stability_after"`
	DifficultyBefore float64    `json:"difficulty_before"`
	DifficultyAfter  float64    `json:"difficulty_after"`
	ScheduledDays    float64    `json:"scheduled_days"`
	NextReview       time.Time  `json:"next_review_date"`
	Retrievability   float64    `json:"retrievability"`
	Reps             int        `json:"reps"`
	Lapses           int        `json:"lapses"`
}

// SubmitReview applies one review to an item and appends a log entry.
// Out-of-range ratings are clamped, never rejected. Lost updates are
// prevented by the item revision check; on a collision the item is
// reloaded and the outcome recomputed against the winner's state.
func (s *Service) SubmitReview(itemID, userID string, rating fsrs.Rating, durationMS *int64, now time.Time) (*ReviewResult, error) {
	params, err := s.Params(userID)
	if err != nil {
		return nil, err
	}
	rating = rating.Clamp()

	for attempt := 0; attempt < submitRetries; attempt++ {
		item, err := s.db.GetItem(itemID, userID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
		}

		before := *item
		elapsed := elapsedDays(item.LastReview, now)
		retr := fsrs.Retrievability(elapsed, item.Stability, params.Decay())
		out := fsrs.NextOutcome(item.State, item.Stability, item.Difficulty,
			elapsed, prevScheduled(item), rating, params)

		item.State = out.State
		item.Stability = out.Stability
		item.Difficulty = out.Difficulty
		item.Reps++
		if rating == fsrs.Again {
			item.Lapses++
		}
		reviewedAt := now
		item.LastReview = &reviewedAt
		sched := out.IntervalDays
		item.ScheduledDays = &sched
		next := nextReviewDate(now, out.IntervalDays)
		item.NextReview = &next

		err = s.db.UpdateItemScheduling(item)
		if errors.Is(err, store.ErrStaleItem) {
			continue
		}
		if err != nil {
			return nil, err
		}

		entry := &store.ReviewEntry{
			ItemID:           itemID,
			UserID:           userID,
			Rating:           rating,
			StateBefore:      before.State,
			StabilityBefore:  before.Stability,
			StabilityAfter:   item.Stability,
			DifficultyBefore: before.Difficulty,
			DifficultyAfter:  item.Difficulty,
			Retrievability:   retr,
			ElapsedDays:      elapsed,
			ScheduledDays:    out.IntervalDays,
			DurationMS:       durationMS,
			CreatedAt:        now.UnixMilli(),
		}
		if err := s.db.AppendReview(entry); err != nil {
			return nil, err
		}

		return &ReviewResult{
			ItemID:           itemID,
			StateBefore:      before.State,
			StateAfter:       item.State,
			StabilityBefore:  before.Stability,
			StabilityAfter:   item.Stability,
			DifficultyBefore: before.Difficulty,
			DifficultyAfter:  item.Difficulty,
			ScheduledDays:    out.IntervalDays,
			NextReview:       next,
			Retrievability:   retr,
			Reps:             item.Reps,
			Lapses:           item.Lapses,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrConflict, itemID)
}

// PreviewOption is the projected outcome for a single rating.
type PreviewOption struct {
	Rating       fsrs.Rating `json:"rating"`
	State        fsrs.State  `json:"state"`
	Stability    float64     `json:"stability"`
	Difficulty   float64     `json:"difficulty"`
	IntervalDays float64     `json:"interval_days"`
}

// Preview holds the projected outcomes for all four ratings.
type Preview struct {
	ItemID                string          `json:"item_id"`
	CurrentState          fsrs.State      `json:"current_state"`
	CurrentRetrievability float64         `json:"current_retrievability"`
	Options               []PreviewOption `json:"options"`
}

// PreviewSchedule computes all four rating outcomes without mutating
// the item. Each option goes through the same outcome function
// SubmitReview commits, so preview and apply cannot drift apart.
func (s *Service) PreviewSchedule(itemID, userID string, now time.Time) (*Preview, error) {
	params, err := s.Params(userID)
	if err != nil {
		return nil, err
	}

	item, err := s.db.GetItem(itemID, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}

	elapsed := elapsedDays(item.LastReview, now)
	preview := &Preview{
		ItemID:                itemID,
		CurrentState:          item.State,
		CurrentRetrievability: fsrs.Retrievability(elapsed, item.Stability, params.Decay()),
		Options:               make([]PreviewOption, 0, 4),
	}

	for r := fsrs.Again; r <= fsrs.Easy; r++ {
		out := fsrs.NextOutcome(item.State, item.Stability, item.Difficulty,
			elapsed, prevScheduled(item), r, params)
		preview.Options = append(preview.Options, PreviewOption{
			Rating:       r,
			State:        out.State,
			Stability:    out.Stability,
			Difficulty:   out.Difficulty,
			IntervalDays: out.IntervalDays,
		})
	}
	return preview, nil
}

// InitializeItem creates the scheduling row for an item in the New
// state. Idempotent: an item already past initialization is returned
// untouched, so partial batch failures can be retried. An empty itemID
// generates one.
func (s *Service) InitializeItem(itemID, userID string) (*store.Item, error) {
	if itemID == "" {
		itemID = uuid.NewString()
	}

	existing, err := s.db.GetItem(itemID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	item := &store.Item{
		ID:         itemID,
		UserID:     userID,
		State:      fsrs.StateNew,
		Stability:  initialStability,
		Difficulty: initialDifficulty,
	}
	if err := s.db.CreateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Due returns items whose next review has arrived.
func (s *Service) Due(userID string, limit int, now time.Time) ([]store.Item, error) {
	return s.db.DueItems(userID, limit, now)
}

// NewItems returns unreviewed items, newest first.
func (s *Service) NewItems(userID string, limit int) ([]store.Item, error) {
	return s.db.NewItems(userID, limit)
}

// LearningItems returns items in a learning phase, least recently
// reviewed first.
func (s *Service) LearningItems(userID string) ([]store.Item, error) {
	return s.db.LearningItems(userID)
}

// Stats is the review statistics snapshot for one user.
type Stats struct {
	TotalReviews  int      `json:"total_reviews"`
	AvgRating     *float64 `json:"avg_rating"`
	AgainCount    int      `json:"again_count"`
	EasyCount     int      `json:"easy_count"`
	RetentionRate *float64 `json:"retention_rate"`
	DueCount      int      `json:"due_count"`
	NewCount      int      `json:"new_count"`
}

// Statistics aggregates review history over the window and snapshots
// the current queue counts.
func (s *Service) Statistics(userID string, windowDays int, now time.Time) (*Stats, error) {
	reviews, err := s.db.ReviewStatsWindow(userID, windowDays, now)
	if err != nil {
		return nil, err
	}
	dueCount, err := s.db.CountDue(userID, now)
	if err != nil {
		return nil, err
	}
	newCount, err := s.db.CountNew(userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalReviews:  reviews.TotalReviews,
		AvgRating:     reviews.AvgRating,
		AgainCount:    reviews.AgainCount,
		EasyCount:     reviews.EasyCount,
		RetentionRate: reviews.RetentionRate,
		DueCount:      dueCount,
		NewCount:      newCount,
	}, nil
}

// elapsedDays returns the days since the last review, floored at 0.
// Items never reviewed report 0.
func elapsedDays(lastReview *time.Time, now time.Time) float64 {
	if lastReview == nil {
		return 0
	}
	days := now.Sub(*lastReview).Hours() / 24.0
	if days < 0 {
		return 0
	}
	return days
}

func prevScheduled(item *store.Item) float64 {
	if item.ScheduledDays == nil {
		return 0
	}
	return *item.ScheduledDays
}

// nextReviewDate converts a fractional interval into a concrete date:
// the UTC date of now plus at least one day.
func nextReviewDate(now time.Time, intervalDays float64) time.Time {
	days := int(math.Round(intervalDays))
	if days < 1 {
		days = 1
	}
	year, month, day := now.UTC().Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, days)
}
