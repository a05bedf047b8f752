package spo2

import (
	"errors"
	"fmt"
	"math"
)

// savgol smooths a signal with a Savitzky-Golay polynomial filter.
// Interior points are produced by precomputed midpoint convolution
// weights. The first and last half-windows are filled by fitting one
// polynomial to the leading (trailing) window and evaluating it over
// the edge, so the output has the same length as the input and no
// truncated boundaries.
type savgol struct {
	window int
	order  int
	center []float64
}

func newSavgol(window, order int) (*savgol, error) {
	if window < 3 || window%2 == 0 {
		return nil, fmt.Errorf("smoothing window must be odd and at least 3, got %d", window)
	}
	if order < 1 || order >= window {
		return nil, fmt.Errorf("polynomial order %d does not fit window %d", order, window)
	}

	center, err := midpointWeights(window, order)
	if err != nil {
		return nil, fmt.Errorf("could not derive filter weights: %w", err)
	}

	return &savgol{
		window: window,
		order:  order,
		center: center,
	}, nil
}

// apply smooths x. The input must be at least one window long; the
// engine validates this once at construction.
func (s *savgol) apply(x []float64) []float64 {
	n := len(x)
	half := s.window / 2
	out := make([]float64, n)

	for i := half; i < n-half; i++ {
		acc := 0.0
		for j, c := range s.center {
			acc += c * x[i-half+j]
		}
		out[i] = acc
	}

	// Edge fills: one least-squares polynomial per end, evaluated at
	// the positions the convolution cannot reach. Positions are
	// centered on the fit window and scaled to [-1, 1] to keep the
	// normal equations well conditioned.
	scale := float64(half)
	head, _ := polyfit(x[:s.window], s.order)
	for i := 0; i < half; i++ {
		out[i] = polyval(head, float64(i-half)/scale)
	}
	tail, _ := polyfit(x[n-s.window:], s.order)
	for i := n - half; i < n; i++ {
		out[i] = polyval(tail, float64(i-(n-s.window)-half)/scale)
	}

	return out
}

// midpointWeights computes the convolution weights that evaluate a
// least-squares polynomial fit of the window at its midpoint. Solving
// (V^T V) z = e0 for the Vandermonde matrix V of centered, scaled
// positions gives weight c_i = sum_k z_k * t_i^k.
func midpointWeights(window, order int) ([]float64, error) {
	half := window / 2
	scale := float64(half)
	m := order + 1

	g := make([][]float64, m)
	for k := range g {
		g[k] = make([]float64, m)
		for l := range g[k] {
			sum := 0.0
			for i := 0; i < window; i++ {
				sum += math.Pow(float64(i-half)/scale, float64(k+l))
			}
			g[k][l] = sum
		}
	}

	e0 := make([]float64, m)
	e0[0] = 1
	z, err := solveLinear(g, e0)
	if err != nil {
		return nil, err
	}

	weights := make([]float64, window)
	for i := 0; i < window; i++ {
		t := float64(i-half) / scale
		acc := 0.0
		for k := m - 1; k >= 0; k-- {
			acc = acc*t + z[k]
		}
		weights[i] = acc
	}
	return weights, nil
}

// polyfit fits a polynomial of the given order to y sampled at
// centered positions scaled to [-1, 1] and returns its coefficients
// in the scaled variable, lowest order first.
func polyfit(y []float64, order int) ([]float64, error) {
	half := len(y) / 2
	scale := float64(half)
	m := order + 1

	a := make([][]float64, m)
	b := make([]float64, m)
	for k := range a {
		a[k] = make([]float64, m)
		for l := range a[k] {
			sum := 0.0
			for i := range y {
				sum += math.Pow(float64(i-half)/scale, float64(k+l))
			}
			a[k][l] = sum
		}
		sum := 0.0
		for i, v := range y {
			sum += math.Pow(float64(i-half)/scale, float64(k)) * v
		}
		b[k] = sum
	}

	return solveLinear(a, b)
}

func polyval(coeffs []float64, t float64) float64 {
	acc := 0.0
	for k := len(coeffs) - 1; k >= 0; k-- {
		acc = acc*t + coeffs[k]
	}
	return acc
}

// solveLinear solves A x = b by Gaussian elimination with partial
// pivoting. A and b are overwritten.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)

	for col := 0; col < n; col++ {
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > maxAbs {
				maxAbs = math.Abs(a[r][col])
				pivot = r
			}
		}
		if maxAbs == 0 {
			return nil, errors.New("normal matrix is singular")
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}
		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}
