package hitcluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// MaxBetaOrder is the highest Legendre order returned by BetaArray.
const MaxBetaOrder = 5

// BetaArray returns beta[l] = mean over hit pairs of P_l(cos θ_ij) for
// l = 0..MaxBetaOrder. Fewer than two directions give all zeros.
func BetaArray(dirs []r3.Vec) [MaxBetaOrder + 1]float64 {
	var beta [MaxBetaOrder + 1]float64
	n := len(dirs)
	if n < 2 {
		return beta
	}
	var p [MaxBetaOrder + 1]float64
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			legendre(clampCos(r3.Dot(dirs[i], dirs[j])), p[:])
			for l := range beta {
				beta[l] += p[l]
			}
		}
	}
	pairs := float64(n*(n-1)) / 2
	for l := range beta {
		beta[l] /= pairs
	}
	return beta
}

// legendre fills p with P_0(x)..P_len(p)-1(x) via the Bonnet recurrence.
func legendre(x float64, p []float64) {
	p[0] = 1
	if len(p) > 1 {
		p[1] = x
	}
	for l := 1; l+1 < len(p); l++ {
		p[l+1] = (float64(2*l+1)*x*p[l] - float64(l)*p[l-1]) / float64(l+1)
	}
}

func clampCos(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}

// AngleStats summarises a distribution of angles in degrees.
type AngleStats struct {
	Mean   float64
	Median float64
	Stdev  float64
	Skew   float64
}

// OpeningAngleStats returns the statistics of all pairwise opening angles
// between dirs, in degrees. Undefined moments are reported as 0.
func OpeningAngleStats(dirs []r3.Vec) AngleStats {
	n := len(dirs)
	if n < 2 {
		return AngleStats{}
	}
	angles := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			angles = append(angles, Degrees(dirs[i], dirs[j]))
		}
	}
	return angleStats(angles)
}

func angleStats(angles []float64) AngleStats {
	sort.Float64s(angles)
	s := AngleStats{
		Mean:   stat.Mean(angles, nil),
		Median: stat.Quantile(0.5, stat.Empirical, angles, nil),
	}
	if len(angles) < 2 {
		return s
	}
	s.Stdev = stat.StdDev(angles, nil)
	s.Skew = standardizedSkew(angles)
	return s
}

// standardizedSkew returns the third standardized moment m3/m2^(3/2) using
// population moments, or 0 when the angles do not spread.
func standardizedSkew(angles []float64) float64 {
	_, v := stat.PopMeanVariance(angles, nil)
	if v <= 0 {
		return 0
	}
	return stat.Moment(3, angles, nil) / math.Pow(v, 1.5)
}

// Degrees returns the angle between a and b in degrees.
func Degrees(a, b r3.Vec) float64 {
	if r3.Norm(a) == 0 || r3.Norm(b) == 0 {
		return 0
	}
	return math.Acos(clampCos(r3.Cos(a, b))) * 180 / math.Pi
}

// MeanDirection returns the normalised mean of dirs, or the zero vector.
func MeanDirection(dirs []r3.Vec) r3.Vec {
	var sum r3.Vec
	for _, d := range dirs {
		sum = r3.Add(sum, d)
	}
	if r3.Norm(sum) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(sum)
}
