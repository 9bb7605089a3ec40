// Package scoring ranks career profiles for a set of subject marks by blending
// the aptitude regression with each profile's weighted rubric.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/pathfinder/internal/apperrors"
	"github.com/spigell/pathfinder/internal/aptitude"
	"github.com/spigell/pathfinder/internal/careers"
)

// AllMarksRangeMessage is returned when subject marks overflow a profile score.
const AllMarksRangeMessage = "all_marks values are too large to score"

// Config holds the tuning constants of the blend.
type Config struct {
	BaseWeight     float64 `mapstructure:"base-weight"`
	SpecificWeight float64 `mapstructure:"specific-weight"`
	// MinProbability discards results whose probability is not above it.
	MinProbability float64 `mapstructure:"min-probability"`
	ClampMin       float64 `mapstructure:"clamp-min"`
	ClampMax       float64 `mapstructure:"clamp-max"`
	EngineerMarker string  `mapstructure:"engineer-marker"`
	HeuristicTag   string  `mapstructure:"heuristic-tag"`
}

// DefaultConfig returns the stock constants.
func DefaultConfig() Config {
	return Config{
		BaseWeight:     0.3,
		SpecificWeight: 0.7,
		MinProbability: 15,
		ClampMin:       5,
		ClampMax:       99,
		EngineerMarker: "Engineer",
		HeuristicTag:   "Heuristic Analysis",
	}
}

// Validate checks the constants are usable.
func (c Config) Validate() error {
	if c.BaseWeight < 0 || c.SpecificWeight < 0 {
		return fmt.Errorf("blend weights must be non-negative, got base=%v specific=%v", c.BaseWeight, c.SpecificWeight)
	}
	if c.ClampMin > c.ClampMax {
		return fmt.Errorf("clamp-min %v is greater than clamp-max %v", c.ClampMin, c.ClampMax)
	}
	if strings.TrimSpace(c.HeuristicTag) == "" {
		return fmt.Errorf("heuristic-tag must not be empty")
	}
	return nil
}

// Marks maps subject names to marks.
type Marks map[string]float64

// Lookup returns the mark for subject, or 0 when it was not supplied.
func (m Marks) Lookup(subject string) float64 {
	if mark, ok := m[subject]; ok {
		return mark
	}
	return 0
}

// Result is a single ranked career match.
type Result struct {
	Role string  `json:"role"`
	Prob float64 `json:"prob"`
	Algo string  `json:"algo"`
}

// Catalogs provides the profile catalog for a scoring pass.
type Catalogs interface {
	Catalog(ctx context.Context) (*careers.Catalog, error)
}

// Scorer computes ranked matches. It holds no per-request state.
type Scorer struct {
	models   *aptitude.Models
	catalogs Catalogs
	config   Config
	logger   *zap.Logger
}

// New creates a scorer.
func New(models *aptitude.Models, catalogs Catalogs, config Config, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		models:   models,
		catalogs: catalogs,
		config:   config,
		logger:   logger,
	}
}

// Score ranks every catalog profile for the given marks. An empty result is valid.
func (s *Scorer) Score(ctx context.Context, marks []float64, allMarks Marks) ([]Result, error) {
	estimate, err := s.models.Estimate(marks)
	if err != nil {
		return nil, err
	}

	catalog, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load careers: %w", err)
	}

	results := make([]Result, 0, catalog.Len())
	for _, profile := range catalog.Profiles {
		specific := SpecificScore(profile, allMarks)
		if math.IsNaN(specific) || math.IsInf(specific, 0) {
			return nil, apperrors.NewValidation(AllMarksRangeMessage)
		}
		results = append(results, Result{
			Role: profile.Title,
			Prob: s.blend(estimate.Base, specific),
			Algo: s.tag(profile.Title, estimate.ClusterTag),
		})
	}

	ranked, step := s.rank(results)

	s.logger.Debug("scoring step",
		zap.Float64("base_prob", estimate.Base),
		zap.String("cluster", estimate.ClusterTag),
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("left", step.Left),
	)

	return ranked, nil
}

// SpecificScore is the 0-100 weighted rubric score of profile. A profile with
// no positive weight scores 0.
func SpecificScore(profile careers.Profile, marks Marks) float64 {
	var weightedSum, totalPossible float64
	for _, sw := range profile.SubjectWeights {
		weightedSum += marks.Lookup(sw.Name) * sw.Weight
		totalPossible += sw.Weight * 100
	}

	if totalPossible <= 0 {
		return 0
	}
	return weightedSum / totalPossible * 100
}

func (s *Scorer) blend(base, specific float64) float64 {
	final := base*s.config.BaseWeight + specific*s.config.SpecificWeight
	final = math.Max(s.config.ClampMin, math.Min(s.config.ClampMax, final))
	return round2(final)
}

func (s *Scorer) tag(title, cluster string) string {
	if s.config.EngineerMarker != "" && strings.Contains(title, s.config.EngineerMarker) {
		return cluster
	}
	return s.config.HeuristicTag
}

// Step describes the outcome of the threshold filter.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

func (s *Scorer) rank(results []Result) ([]Result, Step) {
	initial := len(results)
	kept := results[:0]
	for _, r := range results {
		if r.Prob > s.config.MinProbability {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Prob > kept[j].Prob
	})

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
