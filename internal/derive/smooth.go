package derive

import (
	"errors"
	"math"
)

// ErrInvalidWindow is returned for a moving-average window below 1.
var ErrInvalidWindow = errors.New("moving average window must be >= 1")

// MovingAverage applies a trailing (causal) moving average of width w.
// Output i averages series[i-w+1 .. i]; the first w-1 outputs are NaN since
// the window is not yet full. NaN inputs propagate to every window that
// contains them.
func MovingAverage(series []float64, w int) ([]float64, error) {
	if w < 1 {
		return nil, ErrInvalidWindow
	}

	out := make([]float64, len(series))
	for i := range out {
		if i < w-1 {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range series[i-w+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(w)
	}
	return out, nil
}
