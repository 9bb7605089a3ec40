// Package aptitude holds the statistical models fitted once at start-up from a
// fixed training table over the five core subjects.
package aptitude

import (
	"fmt"
	"math"

	"github.com/spigell/pathfinder/internal/apperrors"
)

// CoreSubjects is the fixed order of the feature vector.
var CoreSubjects = []string{"DSA", "ML", "DBMS", "Python", "Stats"}

const (
	ClusterAlpha = "KNN: Cluster Alpha"
	ClusterBeta  = "KNN: Cluster Beta"

	neighbours = 3
)

// TrainingSet is a labelled table of core-subject marks.
type TrainingSet struct {
	Features [][]float64
	Aptitude []float64
	Cluster  []int
}

// DefaultTrainingSet returns the built-in eight-row table.
func DefaultTrainingSet() TrainingSet {
	return TrainingSet{
		Features: [][]float64{
			{95, 40, 90, 80, 40},
			{40, 95, 50, 85, 95},
			{75, 50, 70, 65, 45},
			{45, 75, 40, 70, 80},
			{30, 20, 30, 30, 20},
			{50, 50, 50, 50, 50},
			{90, 90, 90, 90, 90},
			{20, 80, 30, 70, 85},
		},
		Aptitude: []float64{92, 94, 65, 68, 10, 45, 98, 85},
		Cluster:  []int{0, 1, 0, 1, 0, 0, 0, 1},
	}
}

// Models bundles the fitted regression and classifier. It is read-only after construction.
type Models struct {
	Linear *LinearModel
	KNN    *KNNClassifier
}

// Estimate is the model output for a single feature vector.
type Estimate struct {
	Base       float64
	ClusterTag string
}

// Fit builds Models from the provided training set.
func Fit(set TrainingSet) (*Models, error) {
	linear, err := FitLinear(set.Features, set.Aptitude)
	if err != nil {
		return nil, fmt.Errorf("fit linear model: %w", err)
	}

	knn, err := FitKNN(neighbours, set.Features, set.Cluster)
	if err != nil {
		return nil, fmt.Errorf("fit knn classifier: %w", err)
	}

	return &Models{Linear: linear, KNN: knn}, nil
}

// NewDefaultModels fits Models on the built-in training set.
func NewDefaultModels() (*Models, error) {
	return Fit(DefaultTrainingSet())
}

// Estimate returns the base probability and the cluster tag for the core marks.
func (m *Models) Estimate(marks []float64) (*Estimate, error) {
	if len(marks) != len(CoreSubjects) {
		return nil, apperrors.NewValidation(MarksValidationMessage)
	}

	for _, mark := range marks {
		if !finite(mark) {
			return nil, apperrors.NewValidation(MarksRangeMessage)
		}
	}

	base, err := m.Linear.Predict(marks)
	if err != nil {
		return nil, apperrors.NewValidation(MarksValidationMessage)
	}
	if !finite(base) {
		return nil, apperrors.NewValidation(MarksRangeMessage)
	}

	label, err := m.KNN.Predict(marks)
	if err != nil {
		return nil, apperrors.NewValidation(MarksValidationMessage)
	}

	return &Estimate{Base: base, ClusterTag: ClusterTag(label)}, nil
}

const (
	// MarksValidationMessage is returned when the core vector is malformed.
	MarksValidationMessage = "marks must be exactly 5 values: [DSA, ML, DBMS, Python, Stats]"
	// MarksRangeMessage is returned when the marks overflow the regression.
	MarksRangeMessage = "marks must be finite numbers of a reasonable magnitude"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClusterTag turns a classifier label into its display name.
func ClusterTag(label int) string {
	if label == 0 {
		return ClusterAlpha
	}
	return ClusterBeta
}
