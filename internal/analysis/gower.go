package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sakif/chess-coach/internal/model"
)

// numericValues returns the numeric feature columns of a mistake in the
// order cpl, move_number.
func numericValues(m *model.Mistake) []float64 {
	return []float64{float64(m.CPL), float64(m.MoveNumber)}
}

const numNumericFeatures = 2

// gowerMatrix computes the pairwise Gower distance over the mixed feature
// space: numeric columns are standardized and compared by range-normalized
// absolute difference, categorical columns contribute 0 or 1, and the
// per-feature distances are averaged.
func gowerMatrix(mistakes []*model.Mistake) [][]float64 {
	n := len(mistakes)

	numeric := make([][]float64, n)
	for i, m := range mistakes {
		numeric[i] = numericValues(m)
	}
	standardizeColumns(numeric)

	// Range per standardized numeric column, for Gower normalization.
	ranges := make([]float64, numNumericFeatures)
	col := make([]float64, n)
	for j := 0; j < numNumericFeatures; j++ {
		for i := range numeric {
			col[i] = numeric[i][j]
		}
		ranges[j] = floats.Max(col) - floats.Min(col)
	}

	categorical := make([][]string, n)
	for i, m := range mistakes {
		categorical[i] = categoricalValues(m)
	}
	totalFeatures := float64(numNumericFeatures + len(categoricalCols))

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var sum float64
			for k := 0; k < numNumericFeatures; k++ {
				if ranges[k] > 0 {
					d := numeric[i][k] - numeric[j][k]
					if d < 0 {
						d = -d
					}
					sum += d / ranges[k]
				}
			}
			for k := range categoricalCols {
				if categorical[i][k] != categorical[j][k] {
					sum++
				}
			}
			d := sum / totalFeatures
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// standardizeColumns scales each column to zero mean and unit variance in
// place. Constant columns are left centered at zero.
func standardizeColumns(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	col := make([]float64, len(rows))
	for j := range rows[0] {
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		for i := range rows {
			if std > 0 {
				rows[i][j] = (rows[i][j] - mean) / std
			} else {
				rows[i][j] = 0
			}
		}
	}
}
