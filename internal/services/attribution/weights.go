package attribution

import (
	"math"

	"OmniTrackIQ/internal/domain/models"
)

// MaxDecayTouchpoints bounds n for strictly increasing time-decay weights.
const MaxDecayTouchpoints = 1000

// Weights returns the credit share of each of n chronologically ordered
// touchpoints under model. The shares sum to 1.
//
// Time-decay weights halve per step back from the newest touchpoint, so they
// strictly increase only while the oldest weight is a normal float64, which
// holds for n <= MaxDecayTouchpoints. Beyond that the oldest weights
// underflow and tie at zero.
func Weights(model models.AttributionModel, n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	switch model {
	case models.ModelFirstTouch:
		w[0] = 1
	case models.ModelLastTouch:
		w[n-1] = 1
	case models.ModelTimeDecay:
		// 2^(i-(n-1)) keeps the newest weight at 1 for any n
		sum := 0.0
		for i := range w {
			w[i] = math.Pow(2, float64(i-(n-1)))
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
	case models.ModelPositionBased:
		switch n {
		case 1:
			w[0] = 1
		case 2:
			w[0], w[1] = 0.5, 0.5
		default:
			w[0], w[n-1] = 0.4, 0.4
			middle := 0.2 / float64(n-2)
			for i := 1; i < n-1; i++ {
				w[i] = middle
			}
		}
	default:
		// linear and data_driven
		for i := range w {
			w[i] = 1 / float64(n)
		}
	}
	return w
}
