// Package careers loads the career profile catalog used by the scorer.
package careers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/pathfinder/internal/apperrors"
)

//go:embed document.schema.json
var documentSchemaJSON string

//go:embed profile.schema.json
var profileSchemaJSON string

var (
	documentSchema = mustSchema(documentSchemaJSON)
	profileSchema  = mustSchema(profileSchemaJSON)
)

// SubjectWeight is one rubric entry of a profile.
type SubjectWeight struct {
	Name   string  `mapstructure:"name" json:"name"`
	Weight float64 `mapstructure:"weight" json:"weight"`
}

// Profile is a named role with its ordered subject weights.
type Profile struct {
	Title          string          `mapstructure:"title" json:"title"`
	SubjectWeights []SubjectWeight `mapstructure:"subject_weights" json:"subject_weights"`
}

// TotalWeight is the sum of all subject weights.
func (p Profile) TotalWeight() float64 {
	var total float64
	for _, sw := range p.SubjectWeights {
		total += sw.Weight
	}
	return total
}

// Skipped describes a catalog entry that was ignored.
type Skipped struct {
	Index  int
	Reason string
}

// Catalog is an ordered, read-only set of profiles.
type Catalog struct {
	Profiles []Profile
	Skipped  []Skipped
}

// Len returns the number of usable profiles.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Profiles)
}

// Titles returns the profile titles in catalog order.
func (c *Catalog) Titles() []string {
	titles := make([]string, 0, c.Len())
	if c == nil {
		return titles
	}
	for _, p := range c.Profiles {
		titles = append(titles, p.Title)
	}
	return titles
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("%s not found", filepath.Base(path)), err)
		}
		return nil, apperrors.NewConfiguration(fmt.Sprintf("reading %s failed", filepath.Base(path)), err)
	}

	return Parse(data)
}

// Parse validates a raw catalog document. A malformed document fails as a
// whole, a malformed entry is only skipped.
func Parse(data []byte) (*Catalog, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewConfiguration("career configuration is not valid JSON", err)
	}

	result, err := documentSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, apperrors.NewConfiguration("career configuration could not be validated", err)
	}
	if !result.Valid() {
		return nil, apperrors.NewConfiguration("career configuration is malformed", errors.New(describe(result)))
	}

	entries := doc.(map[string]any)["careers"].([]any)
	catalog := &Catalog{Profiles: make([]Profile, 0, len(entries))}

	for i, entry := range entries {
		profile, reason := decodeProfile(entry)
		if reason != "" {
			catalog.Skipped = append(catalog.Skipped, Skipped{Index: i, Reason: reason})
			continue
		}
		catalog.Profiles = append(catalog.Profiles, *profile)
	}

	return catalog, nil
}

func decodeProfile(entry any) (*Profile, string) {
	result, err := profileSchema.Validate(gojsonschema.NewGoLoader(entry))
	if err != nil {
		return nil, err.Error()
	}
	if !result.Valid() {
		return nil, describe(result)
	}

	var profile Profile
	if err := mapstructure.Decode(entry, &profile); err != nil {
		return nil, err.Error()
	}
	if profile.SubjectWeights == nil {
		profile.SubjectWeights = []SubjectWeight{}
	}

	return &profile, ""
}

func describe(result *gojsonschema.Result) string {
	parts := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("compile embedded schema: %v", err))
	}
	return schema
}
