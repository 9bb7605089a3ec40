package aptitude

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearModel is an ordinary least squares regression with intercept.
type LinearModel struct {
	intercept    float64
	coefficients []float64
}

// FitLinear fits the model as the least squares solution of Aβ = y, where A is
// the feature matrix with a leading column of ones.
func FitLinear(features [][]float64, targets []float64) (*LinearModel, error) {
	if len(features) == 0 {
		return nil, errors.New("training set is empty")
	}
	if len(features) != len(targets) {
		return nil, fmt.Errorf("features have %d rows, targets have %d", len(features), len(targets))
	}

	width := len(features[0])
	if width == 0 {
		return nil, errors.New("training rows have no features")
	}
	if len(features) < width+1 {
		return nil, fmt.Errorf("%d rows cannot determine %d parameters", len(features), width+1)
	}

	design := mat.NewDense(len(features), width+1, nil)
	for r, x := range features {
		if len(x) != width {
			return nil, fmt.Errorf("row %d has %d features, expected %d", r, len(x), width)
		}
		design.Set(r, 0, 1)
		for c, v := range x {
			design.Set(r, c+1, v)
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, mat.NewVecDense(len(targets), append([]float64(nil), targets...))); err != nil {
		return nil, fmt.Errorf("solve least squares: %w", err)
	}

	solution := beta.RawVector().Data
	return &LinearModel{
		intercept:    solution[0],
		coefficients: append([]float64(nil), solution[1:]...),
	}, nil
}

// Predict returns the regression estimate for x.
func (m *LinearModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.coefficients), len(x))
	}
	return m.intercept + floats.Dot(m.coefficients, x), nil
}

// Intercept returns the fitted bias term.
func (m *LinearModel) Intercept() float64 {
	return m.intercept
}

// Coefficients returns a copy of the fitted feature weights.
func (m *LinearModel) Coefficients() []float64 {
	out := make([]float64, len(m.coefficients))
	copy(out, m.coefficients)
	return out
}
