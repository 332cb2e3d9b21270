package fsrs

import "math"

// Fixed learning-step intervals, in days.
const (
	StepAgain = 10.0 / 1440.0 // 10 minutes
	StepHard  = 1.0 / 24.0    // 1 hour
	StepGood  = 10.0 / 24.0   // 10 hours
)

const (
	minStability  = 0.1
	minDifficulty = 0.1
	maxDifficulty = 1.0
)

// Retrievability computes the recall probability after elapsedDays:
// R = (1 + Factor*t/S)^(-decay). Non-positive stability yields 0;
// non-positive elapsed time yields 1.
func Retrievability(elapsedDays, stability, decay float64) float64 {
	if stability <= 0 {
		return 0
	}
	if elapsedDays <= 0 {
		return 1
	}
	return math.Pow(1+Factor*elapsedDays/stability, -decay)
}

// IntervalForRetention inverts the forgetting curve: the number of days
// until retrievability decays to target, clamped to [1, maxInterval].
// Degenerate targets (0 or 1) cannot be inverted and return the
// stability itself, capped at maxInterval but not floored.
func IntervalForRetention(target, stability, decay float64, maxInterval int) float64 {
	ceiling := float64(maxInterval)
	if target <= 0 || target >= 1 {
		return math.Min(stability, ceiling)
	}
	ivl := stability / Factor * (math.Pow(target, -1/decay) - 1)
	if ivl < 1 {
		ivl = 1
	}
	if ivl > ceiling {
		ivl = ceiling
	}
	return ivl
}

func clampStability(s float64) float64 {
	return math.Max(s, minStability)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}

// InitialStability returns S0 for the first rating of an item (w0..w3).
func (p Params) InitialStability(r Rating) float64 {
	return clampStability(p.Weights[r-1])
}

// InitialDifficulty returns D0(rating) = w4 - e^(w5*(rating-1)) + 1,
// clamped to [0.1, 1.0].
func (p Params) InitialDifficulty(r Rating) float64 {
	return clampDifficulty(p.Weights[4] - math.Exp(p.Weights[5]*float64(r-1)) + 1)
}

// NextDifficulty applies the per-review difficulty update with mean
// reversion toward D0(Good).
func (p Params) NextDifficulty(d float64, r Rating) float64 {
	shifted := d - p.Weights[6]*float64(r-3)
	return clampDifficulty(p.Weights[7]*p.InitialDifficulty(Good) + (1-p.Weights[7])*shifted)
}

// ShortTermStability is the same-day stability update used while an
// item sits in Learning or Relearning: S * e^(w17*(rating-3+w18)).
func (p Params) ShortTermStability(s float64, r Rating) float64 {
	return clampStability(s * math.Exp(p.Weights[17]*(float64(r)-3+p.Weights[18])))
}

// SuccessStability is the post-recall stability for a Review-state item
// (Hard/Good/Easy). Hard applies the w19 penalty, Easy the w16 bonus.
func (p Params) SuccessStability(d, s, retr float64, r Rating) float64 {
	hardPenalty := 1.0
	if r == Hard {
		hardPenalty = p.Weights[19]
	}
	easyBonus := 1.0
	if r == Easy {
		easyBonus = p.Weights[16]
	}
	growth := math.Exp(p.Weights[8]) *
		(11 - d) *
		math.Pow(s, -p.Weights[9]) *
		(math.Exp(p.Weights[10]*(1-retr)) - 1) *
		hardPenalty * easyBonus
	return clampStability(s * (growth + 1))
}

// FailureStability is the post-lapse stability. A lapse never increases
// stability beyond its pre-lapse value.
func (p Params) FailureStability(d, s, retr float64) float64 {
	next := p.Weights[11] *
		math.Pow(d, -p.Weights[12]) *
		(math.Pow(s+1, p.Weights[13]) - 1) *
		math.Exp(p.Weights[14]*(1-retr))
	if next > s {
		next = s
	}
	return clampStability(next)
}

// Outcome is the scheduling result for one (state, rating) pair.
type Outcome struct {
	State        State   `json:"state"`
	Stability    float64 `json:"stability"`
	Difficulty   float64 `json:"difficulty"`
	IntervalDays float64 `json:"interval_days"`
}

// NextOutcome computes the single scheduling outcome for reviewing an
// item in the given state with the given rating. Both apply and
// preview go through here so the two paths cannot drift apart.
// prevScheduledDays is the interval chosen at the item's previous
// review (0 if none); it only matters for the Hard-in-Review floor.
func NextOutcome(state State, stability, difficulty, elapsedDays, prevScheduledDays float64, r Rating, p Params) Outcome {
	r = r.Clamp()
	decay := p.Decay()

	switch state {
	case StateNew:
		s := p.InitialStability(r)
		d := p.InitialDifficulty(r)
		switch r {
		case Again:
			return Outcome{StateLearning, s, d, StepAgain}
		case Hard:
			return Outcome{StateLearning, s, d, StepHard}
		case Good:
			return Outcome{StateLearning, s, d, StepGood}
		default: // Easy skips the learning steps entirely
			ivl := IntervalForRetention(p.RequestRetention, s, decay, p.MaximumInterval)
			return Outcome{StateReview, s, d, ivl}
		}

	case StateLearning, StateRelearning:
		retr := Retrievability(elapsedDays, stability, decay)
		d := p.NextDifficulty(difficulty, r)
		switch r {
		case Again:
			// Lapse within a learning phase keeps the phase.
			return Outcome{state, p.FailureStability(d, stability, retr), d, StepAgain}
		case Hard:
			return Outcome{state, p.ShortTermStability(stability, Hard), d, StepHard}
		default: // Good or Easy graduates to Review
			s := p.ShortTermStability(stability, r)
			ivl := IntervalForRetention(p.RequestRetention, s, decay, p.MaximumInterval)
			return Outcome{StateReview, s, d, ivl}
		}

	default: // StateReview
		retr := Retrievability(elapsedDays, stability, decay)
		d := p.NextDifficulty(difficulty, r)
		if r == Again {
			return Outcome{StateRelearning, p.FailureStability(d, stability, retr), d, StepAgain}
		}
		s := p.SuccessStability(d, stability, retr, r)
		ivl := IntervalForRetention(p.RequestRetention, s, decay, p.MaximumInterval)
		if r == Hard {
			// Hard never shortens the interval below the previous one.
			floor := prevScheduledDays
			if floor < 1 {
				floor = 1
			}
			if ivl < floor {
				ivl = floor
			}
		}
		return Outcome{StateReview, s, d, ivl}
	}
}
