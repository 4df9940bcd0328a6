package replay

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/danielpatrickdp/sentencing-engine/internal/interval"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
	"github.com/danielpatrickdp/sentencing-engine/internal/ledger"
)

// #region fixture-types
// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description  string  `json:"description"`
	RulesVersion string  `json:"rules_version"`
	Alpha        float64 `json:"alpha"` // miscoverage level for Winkler scores
	Cases        []Case  `json:"cases"`
}

// Case is one recorded input and the interval it is expected to produce.
type Case struct {
	ID       string            `json:"id"`
	Input    labels.Case       `json:"input"`
	Expected interval.Interval `json:"expected"`
	Truth    *float64          `json:"truth,omitempty"` // actual sentence in months, when known
}

// DefaultAlpha is used when a fixture leaves alpha unset.
const DefaultAlpha = 0.1

// #endregion fixture-types

// #region fixture-loader
// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(fs afero.Fs, path string) (*Fixture, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Alpha == 0 {
		f.Alpha = DefaultAlpha
	}
	if f.Alpha < 0 || f.Alpha >= 1 {
		return nil, fmt.Errorf("fixture %s: alpha %.3f outside (0, 1)", path, f.Alpha)
	}
	for i, c := range f.Cases {
		if c.ID == "" {
			return nil, fmt.Errorf("fixture %s: case %d has no id", path, i)
		}
		if c.Input.ID == "" {
			f.Cases[i].Input.ID = c.ID
		}
	}
	return &f, nil
}

// SaveFixture writes the fixture as indented JSON.
func SaveFixture(fs afero.Fs, path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := afero.WriteFile(fs, path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader

// #region export
// FromRun builds a fixture from a checkpointed run: every case that produced
// a real prediction becomes a regression case. Fallback outputs are skipped.
func FromRun(run ledger.Run, inputs []labels.Case, preds []ledger.Prediction) *Fixture {
	byID := make(map[string]labels.Case, len(inputs))
	for _, in := range inputs {
		byID[in.ID] = in
	}

	f := &Fixture{
		Description:  fmt.Sprintf("exported from run %s (%s)", run.ID, run.Input),
		RulesVersion: run.RulesVersion,
		Alpha:        DefaultAlpha,
	}
	for _, p := range preds {
		in, ok := byID[p.CaseID]
		if !ok || p.Fallback {
			continue
		}
		f.Cases = append(f.Cases, Case{
			ID:       p.CaseID,
			Input:    in,
			Expected: interval.Interval{Low: p.Low, High: p.High},
		})
	}
	return f
}

// #endregion export
