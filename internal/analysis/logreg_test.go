package analysis

import "testing"

// ============================================================
// trainL1Logistic
// ============================================================

func TestTrainL1Logistic_SeparableData(t *testing.T) {
	// Feature 0 fires exactly on the positive class, feature 1 exactly on
	// the negative class, feature 2 fires on everything.
	var x [][]float64
	var y []int
	for i := 0; i < 10; i++ {
		x = append(x, []float64{1, 0, 1})
		y = append(y, 1)
	}
	for i := 0; i < 20; i++ {
		x = append(x, []float64{0, 1, 1})
		y = append(y, 0)
	}

	weights := trainL1Logistic(x, y)
	if len(weights) != 3 {
		t.Fatalf("got %d weights, want 3", len(weights))
	}

	if weights[0] <= triggerWeightThreshold {
		t.Errorf("positive-class feature weight = %v, want above %v", weights[0], triggerWeightThreshold)
	}
	if weights[1] >= 0 {
		t.Errorf("negative-class feature weight = %v, want negative or zero", weights[1])
	}
	if weights[0] <= weights[1] {
		t.Errorf("weights not ordered: pos %v <= neg %v", weights[0], weights[1])
	}
}

func TestTrainL1Logistic_UninformativeFeatureShrinksToZero(t *testing.T) {
	// Feature 1 is constant across both classes; the unpenalized intercept
	// absorbs it and the L1 penalty zeroes the weight.
	var x [][]float64
	var y []int
	for i := 0; i < 15; i++ {
		x = append(x, []float64{1, 1})
		y = append(y, 1)
	}
	for i := 0; i < 15; i++ {
		x = append(x, []float64{0, 1})
		y = append(y, 0)
	}

	weights := trainL1Logistic(x, y)
	if weights[1] > triggerWeightThreshold {
		t.Errorf("constant feature weight = %v, should stay below the trigger threshold", weights[1])
	}
}

func TestTrainL1Logistic_SingleClass(t *testing.T) {
	x := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	y := []int{1, 1, 1}

	weights := trainL1Logistic(x, y)
	for j, w := range weights {
		if w != 0 {
			t.Errorf("weights[%d] = %v, want 0 with no negative examples", j, w)
		}
	}
}

func TestTrainL1Logistic_Empty(t *testing.T) {
	if weights := trainL1Logistic(nil, nil); weights != nil {
		t.Errorf("weights = %v, want nil for empty input", weights)
	}
}

// ============================================================
// numeric helpers
// ============================================================

func TestSigmoid(t *testing.T) {
	if got := sigmoid(0); got != 0.5 {
		t.Errorf("sigmoid(0) = %v, want 0.5", got)
	}
	if got := sigmoid(50); got < 0.999 {
		t.Errorf("sigmoid(50) = %v, want near 1", got)
	}
	if got := sigmoid(-50); got > 0.001 {
		t.Errorf("sigmoid(-50) = %v, want near 0", got)
	}
}

func TestSoftThreshold(t *testing.T) {
	cases := []struct{ v, threshold, want float64 }{
		{1.0, 0.3, 0.7},
		{-1.0, 0.3, -0.7},
		{0.2, 0.3, 0},
		{-0.2, 0.3, 0},
		{0.3, 0.3, 0},
	}
	for _, tc := range cases {
		if got := softThreshold(tc.v, tc.threshold); got != tc.want {
			t.Errorf("softThreshold(%v, %v) = %v, want %v", tc.v, tc.threshold, got, tc.want)
		}
	}
}
