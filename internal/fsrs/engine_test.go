package fsrs

import (
	"math"
	"testing"
)

func defaults() Params {
	return DefaultParams()
}

func TestRetrievabilityAtZeroElapsed(t *testing.T) {
	for _, s := range []float64{0.1, 1, 10, 365} {
		if r := Retrievability(0, s, 0.1542); r != 1.0 {
			t.Errorf("Retrievability(0, %v) = %v, want 1.0", s, r)
		}
	}
}

func TestRetrievabilityEdgeCases(t *testing.T) {
	if r := Retrievability(10, 0, 0.1542); r != 0 {
		t.Errorf("zero stability: R = %v, want 0", r)
	}
	if r := Retrievability(10, -1, 0.1542); r != 0 {
		t.Errorf("negative stability: R = %v, want 0", r)
	}
	if r := Retrievability(-3, 5, 0.1542); r != 1 {
		t.Errorf("negative elapsed: R = %v, want 1", r)
	}
}

func TestRetrievabilityStrictlyDecreasing(t *testing.T) {
	const stability, decay = 7.5, 0.1542
	prev := Retrievability(0, stability, decay)
	for days := 1.0; days <= 200; days++ {
		r := Retrievability(days, stability, decay)
		if r >= prev {
			t.Fatalf("R(%v) = %v not below R(%v) = %v", days, r, days-1, prev)
		}
		prev = r
	}
}

func TestIntervalRetrievabilityRoundTrip(t *testing.T) {
	const decay = 0.1542
	for _, stability := range []float64{0.5, 2, 10, 120} {
		for _, days := range []float64{1, 3.5, 17, 99, 400} {
			r := Retrievability(days, stability, decay)
			got := IntervalForRetention(r, stability, decay, 36500)
			if math.Abs(got-days) > 1e-6 {
				t.Errorf("round trip S=%v t=%v: got %v", stability, days, got)
			}
		}
	}
}

func TestIntervalClamping(t *testing.T) {
	const decay = 0.1542
	// Very high target retention forces an interval below one day.
	if ivl := IntervalForRetention(0.9999, 0.1, decay, 36500); ivl != 1 {
		t.Errorf("short interval not floored: %v", ivl)
	}
	// Huge stability hits the ceiling.
	if ivl := IntervalForRetention(0.5, 1e9, decay, 36500); ivl != 36500 {
		t.Errorf("long interval not capped: %v", ivl)
	}
}

func TestIntervalDegenerateTargets(t *testing.T) {
	const decay = 0.1542
	for _, target := range []float64{0, 1} {
		if ivl := IntervalForRetention(target, 0.25, decay, 36500); ivl != 0.25 {
			t.Errorf("target %v: ivl = %v, want stability 0.25 without floor", target, ivl)
		}
		if ivl := IntervalForRetention(target, 1e9, decay, 36500); ivl != 36500 {
			t.Errorf("target %v: ivl = %v, want ceiling 36500", target, ivl)
		}
	}
}

func TestNextDifficultyStaysInRange(t *testing.T) {
	p := defaults()
	for d := 0.1; d <= 1.0; d += 0.05 {
		for r := Again; r <= Easy; r++ {
			got := p.NextDifficulty(d, r)
			if got < 0.1 || got > 1.0 {
				t.Errorf("NextDifficulty(%v, %v) = %v out of [0.1, 1.0]", d, r, got)
			}
		}
	}
}

func TestInitialDifficultyOrdering(t *testing.T) {
	p := defaults()
	prev := math.Inf(1)
	for r := Again; r <= Easy; r++ {
		d := p.InitialDifficulty(r)
		if d < 0.1 || d > 1.0 {
			t.Fatalf("InitialDifficulty(%v) = %v out of range", r, d)
		}
		if d > prev {
			t.Errorf("InitialDifficulty(%v) = %v above %v for an easier rating", r, d, prev)
		}
		prev = d
	}
}

func TestFailureStabilityNeverIncreases(t *testing.T) {
	p := defaults()
	for _, s := range []float64{0.1, 1, 10, 500} {
		for _, d := range []float64{0.1, 0.5, 1.0} {
			for _, retr := range []float64{0.1, 0.5, 0.95} {
				got := p.FailureStability(d, s, retr)
				if got > s {
					t.Errorf("FailureStability(d=%v, s=%v, r=%v) = %v > %v", d, s, retr, got, s)
				}
				if got < 0.1 {
					t.Errorf("FailureStability(d=%v, s=%v, r=%v) = %v below floor", d, s, retr, got)
				}
			}
		}
	}
}

func TestNewItemOutcomes(t *testing.T) {
	p := defaults()
	tests := []struct {
		rating   Rating
		state    State
		interval float64
	}{
		{Again, StateLearning, StepAgain},
		{Hard, StateLearning, StepHard},
		{Good, StateLearning, StepGood},
	}
	for _, tt := range tests {
		out := NextOutcome(StateNew, 0, 0, 0, 0, tt.rating, p)
		if out.State != tt.state {
			t.Errorf("%v: state = %v, want %v", tt.rating, out.State, tt.state)
		}
		if math.Abs(out.IntervalDays-tt.interval) > 1e-9 {
			t.Errorf("%v: interval = %v, want %v", tt.rating, out.IntervalDays, tt.interval)
		}
		if out.Stability != p.InitialStability(tt.rating) {
			t.Errorf("%v: stability = %v, want %v", tt.rating, out.Stability, p.InitialStability(tt.rating))
		}
		if out.Difficulty != p.InitialDifficulty(tt.rating) {
			t.Errorf("%v: difficulty = %v, want %v", tt.rating, out.Difficulty, p.InitialDifficulty(tt.rating))
		}
	}
}

func TestNewItemEasySkipsLearning(t *testing.T) {
	p := defaults()
	out := NextOutcome(StateNew, 0, 0, 0, 0, Easy, p)
	if out.State != StateReview {
		t.Fatalf("state = %v, want review", out.State)
	}
	if out.IntervalDays < 1 {
		t.Errorf("interval = %v, want at least one day", out.IntervalDays)
	}
}

func TestLearningGraduation(t *testing.T) {
	p := defaults()
	for _, state := range []State{StateLearning, StateRelearning} {
		for _, r := range []Rating{Good, Easy} {
			out := NextOutcome(state, 2.0, 0.5, 0.4, 0, r, p)
			if out.State != StateReview {
				t.Errorf("%v + %v: state = %v, want review", state, r, out.State)
			}
			want := p.ShortTermStability(2.0, r)
			if out.Stability != want {
				t.Errorf("%v + %v: stability = %v, want %v", state, r, out.Stability, want)
			}
		}
	}
}

func TestLearningAgainKeepsPhase(t *testing.T) {
	p := defaults()
	for _, state := range []State{StateLearning, StateRelearning} {
		out := NextOutcome(state, 2.0, 0.5, 0.4, 0, Again, p)
		if out.State != state {
			t.Errorf("%v + again: state = %v, want unchanged", state, out.State)
		}
		if math.Abs(out.IntervalDays-StepAgain) > 1e-9 {
			t.Errorf("%v + again: interval = %v, want %v", state, out.IntervalDays, StepAgain)
		}
	}
}

func TestLearningHardHoldsAtOneHour(t *testing.T) {
	p := defaults()
	out := NextOutcome(StateLearning, 2.0, 0.5, 0.4, 0, Hard, p)
	if out.State != StateLearning {
		t.Errorf("state = %v, want learning", out.State)
	}
	if math.Abs(out.IntervalDays-StepHard) > 1e-9 {
		t.Errorf("interval = %v, want %v", out.IntervalDays, StepHard)
	}
	if want := p.ShortTermStability(2.0, Hard); out.Stability != want {
		t.Errorf("stability = %v, want %v", out.Stability, want)
	}
}

func TestReviewLapse(t *testing.T) {
	p := defaults()
	out := NextOutcome(StateReview, 10.0, 0.5, 30, 30, Again, p)
	if out.State != StateRelearning {
		t.Errorf("state = %v, want relearning", out.State)
	}
	if out.Stability > 10.0 {
		t.Errorf("stability = %v, lapse must not exceed 10.0", out.Stability)
	}
	if math.Abs(out.IntervalDays-StepAgain) > 1e-9 {
		t.Errorf("interval = %v, want %v", out.IntervalDays, StepAgain)
	}
}

func TestReviewHardNeverShortensInterval(t *testing.T) {
	p := defaults()
	// Low stability keeps the freshly computed interval under the
	// previous five-day schedule; the floor must win.
	out := NextOutcome(StateReview, 0.3, 1.0, 30, 5, Hard, p)
	if out.State != StateReview {
		t.Fatalf("state = %v, want review", out.State)
	}
	raw := IntervalForRetention(p.RequestRetention, out.Stability, p.Decay(), p.MaximumInterval)
	if raw >= 5 {
		t.Fatalf("fixture broken: raw interval %v not below previous 5", raw)
	}
	if out.IntervalDays != 5 {
		t.Errorf("interval = %v, want previous 5", out.IntervalDays)
	}
}

func TestReviewGoodMayShortenInterval(t *testing.T) {
	p := defaults()
	// Same setup as the Hard case: Good takes the computed interval as-is.
	out := NextOutcome(StateReview, 0.3, 1.0, 30, 5, Good, p)
	want := IntervalForRetention(p.RequestRetention, out.Stability, p.Decay(), p.MaximumInterval)
	if out.IntervalDays != want {
		t.Errorf("interval = %v, want computed %v", out.IntervalDays, want)
	}
}

func TestReviewSuccessGrowsStability(t *testing.T) {
	p := defaults()
	for _, r := range []Rating{Good, Easy} {
		out := NextOutcome(StateReview, 10.0, 0.5, 10, 10, r, p)
		if out.State != StateReview {
			t.Errorf("%v: state = %v, want review", r, out.State)
		}
		if out.Stability <= 10.0 {
			t.Errorf("%v: stability = %v, want growth beyond 10.0", r, out.Stability)
		}
	}
}

func TestOutcomeClampsRating(t *testing.T) {
	p := defaults()
	low := NextOutcome(StateNew, 0, 0, 0, 0, Rating(0), p)
	if low.State != StateLearning || math.Abs(low.IntervalDays-StepAgain) > 1e-9 {
		t.Errorf("rating 0 not clamped to again: %+v", low)
	}
	high := NextOutcome(StateNew, 0, 0, 0, 0, Rating(9), p)
	if high.State != StateReview {
		t.Errorf("rating 9 not clamped to easy: %+v", high)
	}
}

func TestOutcomeInvariants(t *testing.T) {
	p := defaults()
	for _, state := range []State{StateNew, StateLearning, StateReview, StateRelearning} {
		for r := Again; r <= Easy; r++ {
			for _, elapsed := range []float64{0, 0.01, 1, 30, 365} {
				out := NextOutcome(state, 3.0, 0.5, elapsed, 2, r, p)
				if out.Stability < 0.1 {
					t.Errorf("%v+%v: stability %v below floor", state, r, out.Stability)
				}
				if out.Difficulty < 0.1 || out.Difficulty > 1.0 {
					t.Errorf("%v+%v: difficulty %v out of range", state, r, out.Difficulty)
				}
				if out.IntervalDays <= 0 {
					t.Errorf("%v+%v: non-positive interval %v", state, r, out.IntervalDays)
				}
				if !out.State.IsValid() || out.State == StateNew {
					t.Errorf("%v+%v: transitioned into %v", state, r, out.State)
				}
			}
		}
	}
}
