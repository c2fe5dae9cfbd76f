package profile

import "sort"

// Interp linearly interpolates (xp, fp) at every x. xp must be strictly
// increasing. Points outside [xp[0], xp[n-1]] take the nearest boundary
// value.
func Interp(x, xp, fp []float64) []float64 {
	out := make([]float64, len(x))
	n := len(xp)
	if n == 0 {
		return out
	}
	for i, v := range x {
		switch {
		case v <= xp[0]:
			out[i] = fp[0]
		case v >= xp[n-1]:
			out[i] = fp[n-1]
		default:
			// xp[j-1] < v <= xp[j]
			j := sort.SearchFloat64s(xp, v)
			if xp[j] == v {
				out[i] = fp[j]
				continue
			}
			t := (v - xp[j-1]) / (xp[j] - xp[j-1])
			out[i] = fp[j-1] + t*(fp[j]-fp[j-1])
		}
	}
	return out
}

// Resample interpolates p onto grid, holding boundary values outside p.
func (p Profile) Resample(grid []float64) Profile {
	ys := Interp(grid, p.Xs(), p.Ys())
	out := make(Profile, len(grid))
	for i, x := range grid {
		out[i] = Sample{X: x, Y: ys[i]}
	}
	return out
}
