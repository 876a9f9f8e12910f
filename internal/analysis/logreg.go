package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// trainL1Logistic fits a binary logistic regression with an L1 penalty by
// proximal gradient descent and returns the feature weights. Classes are
// reweighted to balance, so small clusters still produce usable
// coefficients against a large control group. The intercept is trained but
// not returned; only feature weights matter for trigger extraction.
func trainL1Logistic(x [][]float64, y []int) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	d := len(x[0])

	var nPos int
	for _, label := range y {
		if label == 1 {
			nPos++
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return make([]float64, d)
	}

	// balanced class weights: n / (2 * class count)
	posWeight := float64(n) / (2 * float64(nPos))
	negWeight := float64(n) / (2 * float64(nNeg))

	sampleWeight := make([]float64, n)
	var totalSquaredNorm float64
	for i := range x {
		if y[i] == 1 {
			sampleWeight[i] = posWeight
		} else {
			sampleWeight[i] = negWeight
		}
		totalSquaredNorm += sampleWeight[i] * floats.Dot(x[i], x[i])
	}

	// Lipschitz bound of the weighted logistic loss gradient.
	lipschitz := 0.25 * totalSquaredNorm
	if lipschitz == 0 {
		return make([]float64, d)
	}
	step := 1 / lipschitz

	const (
		penalty       = 1.0
		maxIterations = 1000
		tolerance     = 1e-6
	)

	weights := make([]float64, d)
	intercept := 0.0
	grad := make([]float64, d)

	for iter := 0; iter < maxIterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradIntercept := 0.0

		for i := range x {
			z := floats.Dot(weights, x[i]) + intercept
			p := sigmoid(z)
			residual := sampleWeight[i] * (p - float64(y[i]))
			floats.AddScaled(grad, residual, x[i])
			gradIntercept += residual
		}

		var maxDelta float64
		for j := range weights {
			updated := softThreshold(weights[j]-step*grad[j], step*penalty)
			if delta := math.Abs(updated - weights[j]); delta > maxDelta {
				maxDelta = delta
			}
			weights[j] = updated
		}
		// intercept stays unpenalized
		newIntercept := intercept - step*gradIntercept
		if delta := math.Abs(newIntercept - intercept); delta > maxDelta {
			maxDelta = delta
		}
		intercept = newIntercept

		if maxDelta < tolerance {
			break
		}
	}
	return weights
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softThreshold(v, threshold float64) float64 {
	switch {
	case v > threshold:
		return v - threshold
	case v < -threshold:
		return v + threshold
	default:
		return 0
	}
}
