package hfocore

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Classify standardizes each feature row against the model's mean/std,
// applies the linear predictor, and maps it through the logistic sigmoid.
// Labels use a strict threshold comparison: score > threshold is 1 (HFO),
// otherwise 0. A NaN anywhere in a row yields a NaN score and a NaN label,
// never a forced 0/1.
func Classify(x *mat.Dense, model *Model) (labels, scores []float64, err error) {
	rows, cols := x.Dims()
	if cols != len(model.Coefficients) {
		return nil, nil, validationf("features", "feature matrix has %d columns, model expects %d", cols, len(model.Coefficients))
	}

	labels = make([]float64, rows)
	scores = make([]float64, rows)
	for i := 0; i < rows; i++ {
		z := model.Intercept
		for j := 0; j < cols; j++ {
			z += (x.At(i, j) - model.Mean[j]) / model.Std[j] * model.Coefficients[j]
		}
		s := sigmoid(z)
		scores[i] = s
		switch {
		case math.IsNaN(s):
			labels[i] = math.NaN()
		case s > model.Threshold:
			labels[i] = 1
		default:
			labels[i] = 0
		}
	}
	return labels, scores, nil
}

// sigmoid is the numerically stable branch-on-sign logistic function: the
// exponential argument is never positive, so large |z| cannot overflow.
func sigmoid(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
