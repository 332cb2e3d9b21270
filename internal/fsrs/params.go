package fsrs

import "fmt"

// Factor is the fixed forgetting-curve factor 19/81 used by both the
// retrievability curve and its interval inversion.
const Factor = 19.0 / 81.0

// DefaultWeights are the published FSRS-6 default parameter values.
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w[0..3]  initial stability per rating
	6.4133, 0.8334, 3.0194, 0.001, // w[4..7]  difficulty
	1.8722, 0.1666, 0.796, 1.4835, // w[8..11] recall stability
	0.0614, 0.2629, 1.6483, 0.6014, // w[12..15] forget stability
	1.8729, 0.5425, 0.0912, 0.0658, // w[16..19] easy bonus / short-term / hard penalty
	0.1542, // w[20] decay exponent
}

// lowerBounds and upperBounds define the allowed range per weight.
var lowerBounds = [21]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

var upperBounds = [21]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// Params holds the per-user scheduling parameters. Immutable for the
// duration of a scheduling call.
type Params struct {
	Weights          [21]float64 `json:"weights"`
	RequestRetention float64     `json:"request_retention"`
	MaximumInterval  int         `json:"maximum_interval"` // days
}

// DefaultParams returns the published FSRS-6 defaults with a target
// retention of 0.9 and a 100-year interval ceiling.
func DefaultParams() Params {
	return Params{
		Weights:          DefaultWeights,
		RequestRetention: 0.9,
		MaximumInterval:  36500,
	}
}

// Decay returns the forgetting-curve decay exponent, drawn from w[20].
func (p Params) Decay() float64 {
	return p.Weights[20]
}

// Validate checks that every weight is within its bounds and the two
// scalar knobs are sane.
func (p Params) Validate() error {
	for i := 0; i < 21; i++ {
		if p.Weights[i] < lowerBounds[i] || p.Weights[i] > upperBounds[i] {
			return fmt.Errorf("fsrs: w[%d] = %f out of bounds [%f, %f]",
				i, p.Weights[i], lowerBounds[i], upperBounds[i])
		}
	}
	if p.RequestRetention < 0 || p.RequestRetention > 1 {
		return fmt.Errorf("fsrs: request retention %f out of range [0, 1]", p.RequestRetention)
	}
	if p.MaximumInterval < 1 {
		return fmt.Errorf("fsrs: maximum interval %d must be at least 1 day", p.MaximumInterval)
	}
	return nil
}
