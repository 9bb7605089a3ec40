package scoring

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/pathfinder/internal/apperrors"
	"github.com/spigell/pathfinder/internal/aptitude"
	"github.com/spigell/pathfinder/internal/careers"
)

type fakeCatalogs struct {
	catalog *careers.Catalog
	err     error
	calls   int
}

func (f *fakeCatalogs) Catalog(context.Context) (*careers.Catalog, error) {
	f.calls++
	return f.catalog, f.err
}

func weights(pairs ...any) []careers.SubjectWeight {
	out := make([]careers.SubjectWeight, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, careers.SubjectWeight{Name: pairs[i].(string), Weight: pairs[i+1].(float64)})
	}
	return out
}

func defaultCatalog() *careers.Catalog {
	return &careers.Catalog{Profiles: []careers.Profile{
		{Title: "Data Scientist", SubjectWeights: weights("ML", 0.5, "Stats", 0.3, "Python", 0.2)},
		{Title: "Software Engineer", SubjectWeights: weights("DSA", 0.5, "DBMS", 0.3, "OOP", 0.2)},
		{Title: "Generalist", SubjectWeights: nil},
	}}
}

func newScorer(t *testing.T, catalog *careers.Catalog, cfg Config) *Scorer {
	t.Helper()
	models, err := aptitude.NewDefaultModels()
	if err != nil {
		t.Fatalf("fit models: %v", err)
	}
	return New(models, &fakeCatalogs{catalog: catalog}, cfg, zap.NewNop())
}

var developerMarks = []float64{95, 40, 90, 80, 40}

func TestScoreRanksAndTags(t *testing.T) {
	s := newScorer(t, defaultCatalog(), DefaultConfig())

	results, err := s.Score(context.Background(), developerMarks, Marks{"DSA": 95, "DBMS": 90, "OOP": 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []Result{
		{Role: "Software Engineer", Prob: 91.0, Algo: aptitude.ClusterAlpha},
		{Role: "Data Scientist", Prob: 27.65, Algo: "Heuristic Analysis"},
		{Role: "Generalist", Prob: 27.65, Algo: "Heuristic Analysis"},
	}

	if len(results) != len(expected) {
		t.Fatalf("expected %d results, got %d: %+v", len(expected), len(results), results)
	}
	for i := range expected {
		if results[i] != expected[i] {
			t.Fatalf("result %d: expected %+v, got %+v", i, expected[i], results[i])
		}
	}
}

func TestScoreRejectsOverflowingMarks(t *testing.T) {
	catalog := &careers.Catalog{Profiles: []careers.Profile{
		{Title: "Software Engineer", SubjectWeights: weights("DSA", 1.0, "DBMS", 1.0)},
	}}
	s := newScorer(t, catalog, DefaultConfig())

	_, err := s.Score(context.Background(), developerMarks, Marks{"DSA": 1.7e308, "DBMS": 1.7e308})
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apperrors.PublicMessage(err) != AllMarksRangeMessage {
		t.Fatalf("unexpected message %q", apperrors.PublicMessage(err))
	}

	_, err = s.Score(context.Background(), []float64{1.7e308, 1.7e308, 0, 1.7e308, 0}, Marks{"DSA": 100})
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error for overflowing core marks, got %v", err)
	}
}

func TestScoreHugeFiniteMarksClampHigh(t *testing.T) {
	catalog := &careers.Catalog{Profiles: []careers.Profile{
		{Title: "Software Engineer", SubjectWeights: weights("DSA", 1.0)},
	}}
	s := newScorer(t, catalog, DefaultConfig())

	results, err := s.Score(context.Background(), developerMarks, Marks{"DSA": 1e300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Prob != 99 {
		t.Fatalf("expected a single result clamped to 99, got %+v", results)
	}
}

func TestScoreFullMarksReachHighEnd(t *testing.T) {
	s := newScorer(t, defaultCatalog(), DefaultConfig())

	results, err := s.Score(context.Background(), developerMarks, Marks{"DSA": 100, "DBMS": 100, "OOP": 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].Role != "Software Engineer" || results[0].Prob != 97.65 {
		t.Fatalf("unexpected top result: %+v", results[0])
	}
}

func TestScoreClampsExtremes(t *testing.T) {
	catalog := &careers.Catalog{Profiles: []careers.Profile{
		{Title: "Everything", SubjectWeights: weights("DSA", 1.0, "ML", 1.0)},
	}}
	s := newScorer(t, catalog, DefaultConfig())

	high, err := s.Score(context.Background(), []float64{100, 100, 100, 100, 100}, Marks{"DSA": 100, "ML": 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(high) != 1 || high[0].Prob != 99 {
		t.Fatalf("expected clamp to 99, got %+v", high)
	}

	low, err := s.Score(context.Background(), []float64{0, 0, 0, 0, 0}, Marks{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(low) != 0 {
		t.Fatalf("expected clamped minimum to be filtered out, got %+v", low)
	}
}

func TestScoreLowerClampIsVisibleWithoutFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinProbability = 0
	catalog := &careers.Catalog{Profiles: []careers.Profile{{Title: "Anything", SubjectWeights: weights("DSA", 1.0)}}}
	s := newScorer(t, catalog, cfg)

	results, err := s.Score(context.Background(), []float64{0, 0, 0, 0, 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Prob != 5 {
		t.Fatalf("expected clamp to 5, got %+v", results)
	}
}

func TestScoreThresholdIsExclusive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseWeight = 0
	cfg.SpecificWeight = 1
	catalog := &careers.Catalog{Profiles: []careers.Profile{
		{Title: "At Threshold", SubjectWeights: weights("A", 1.0)},
		{Title: "Above Threshold", SubjectWeights: weights("B", 1.0)},
	}}
	s := newScorer(t, catalog, cfg)

	results, err := s.Score(context.Background(), developerMarks, Marks{"A": 15, "B": 15.01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 || results[0].Role != "Above Threshold" {
		t.Fatalf("expected only the result above 15, got %+v", results)
	}
	for _, r := range results {
		if r.Prob <= cfg.MinProbability {
			t.Fatalf("result at or below threshold leaked: %+v", r)
		}
	}
}

func TestScoreSortedDescendingAndStable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseWeight = 0
	cfg.SpecificWeight = 1
	catalog := &careers.Catalog{Profiles: []careers.Profile{
		{Title: "first tie", SubjectWeights: weights("A", 1.0)},
		{Title: "best", SubjectWeights: weights("B", 1.0)},
		{Title: "second tie", SubjectWeights: weights("A", 2.0)},
		{Title: "worst", SubjectWeights: weights("C", 1.0)},
	}}
	s := newScorer(t, catalog, cfg)

	results, err := s.Score(context.Background(), developerMarks, Marks{"A": 50, "B": 80, "C": 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := []string{"best", "first tie", "second tie", "worst"}
	if len(results) != len(order) {
		t.Fatalf("unexpected results: %+v", results)
	}
	for i, role := range order {
		if results[i].Role != role {
			t.Fatalf("position %d: expected %q, got %q (%+v)", i, role, results[i].Role, results)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Prob < results[i].Prob {
			t.Fatalf("results not descending: %+v", results)
		}
	}
}

func TestScoreRejectsWrongVectorLength(t *testing.T) {
	catalogs := &fakeCatalogs{catalog: defaultCatalog()}
	models, err := aptitude.NewDefaultModels()
	if err != nil {
		t.Fatalf("fit models: %v", err)
	}
	s := New(models, catalogs, DefaultConfig(), nil)

	for _, marks := range [][]float64{nil, {90, 90, 90, 90}, {1, 2, 3, 4, 5, 6}} {
		results, err := s.Score(context.Background(), marks, Marks{})
		if !apperrors.IsValidation(err) {
			t.Fatalf("expected validation error for %v, got %v", marks, err)
		}
		if results != nil {
			t.Fatalf("expected no results, got %+v", results)
		}
	}

	if catalogs.calls != 0 {
		t.Fatalf("catalog must not be loaded for invalid input, loaded %d times", catalogs.calls)
	}
}

func TestScorePropagatesConfigurationError(t *testing.T) {
	models, err := aptitude.NewDefaultModels()
	if err != nil {
		t.Fatalf("fit models: %v", err)
	}
	cause := apperrors.NewConfiguration("careers.json not found", errors.New("enoent"))
	s := New(models, &fakeCatalogs{err: cause}, DefaultConfig(), zap.NewNop())

	_, err = s.Score(context.Background(), developerMarks, Marks{})
	if !apperrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSpecificScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile careers.Profile
		marks   Marks
		expect  float64
	}{
		{
			name:    "weighted average",
			profile: careers.Profile{SubjectWeights: weights("DSA", 0.5, "DBMS", 0.3, "OOP", 0.2)},
			marks:   Marks{"DSA": 95, "DBMS": 90, "OOP": 80},
			expect:  90.5,
		},
		{
			name:    "full marks",
			profile: careers.Profile{SubjectWeights: weights("DSA", 0.5, "DBMS", 0.3, "OOP", 0.2)},
			marks:   Marks{"DSA": 100, "DBMS": 100, "OOP": 100},
			expect:  100,
		},
		{
			name:    "empty marks",
			profile: careers.Profile{SubjectWeights: weights("ML", 0.5, "Stats", 0.5)},
			marks:   Marks{},
			expect:  0,
		},
		{
			name:    "nil marks",
			profile: careers.Profile{SubjectWeights: weights("ML", 1.0)},
			marks:   nil,
			expect:  0,
		},
		{
			name:    "no weights",
			profile: careers.Profile{},
			marks:   Marks{"ML": 100},
			expect:  0,
		},
		{
			name:    "zero weights",
			profile: careers.Profile{SubjectWeights: weights("ML", 0.0, "Stats", 0.0)},
			marks:   Marks{"ML": 100, "Stats": 100},
			expect:  0,
		},
		{
			name:    "missing subject counts as zero",
			profile: careers.Profile{SubjectWeights: weights("HTML", 0.5, "CSS", 0.5)},
			marks:   Marks{"HTML": 80},
			expect:  40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SpecificScore(tt.profile, tt.marks)
			if math.IsNaN(got) || math.Abs(got-tt.expect) > 1e-9 {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestTagRespectsMarker(t *testing.T) {
	s := &Scorer{config: DefaultConfig()}

	if got := s.tag("Machine Learning Engineer", aptitude.ClusterBeta); got != aptitude.ClusterBeta {
		t.Fatalf("expected cluster tag, got %q", got)
	}
	if got := s.tag("engineering manager", aptitude.ClusterBeta); got != "Heuristic Analysis" {
		t.Fatalf("expected case-sensitive marker match, got %q", got)
	}
}

func TestScoreLogsStep(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	models, err := aptitude.NewDefaultModels()
	if err != nil {
		t.Fatalf("fit models: %v", err)
	}
	s := New(models, &fakeCatalogs{catalog: defaultCatalog()}, DefaultConfig(), zap.New(core))

	if _, err := s.Score(context.Background(), []float64{0, 0, 0, 0, 0}, Marks{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("scoring step").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 scoring step entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["initial"] != int64(3) || ctx["dropped"] != int64(3) || ctx["left"] != int64(0) {
		t.Fatalf("unexpected step fields: %+v", ctx)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}

	bad := DefaultConfig()
	bad.ClampMin, bad.ClampMax = 99, 5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for inverted clamp bounds")
	}

	bad = DefaultConfig()
	bad.BaseWeight = -1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative weight")
	}
}
