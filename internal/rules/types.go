package rules

import (
	"errors"

	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
)

// #region errors
var (
	// ErrUnknownCrimeType is fatal for a single request.
	ErrUnknownCrimeType = errors.New("unknown crime type")
	// ErrInvalidRuleTable is fatal at load time.
	ErrInvalidRuleTable = errors.New("invalid rule table")
	// ErrUnsupportedRegion is recoverable; callers fall back to national thresholds.
	ErrUnsupportedRegion = errors.New("unsupported region")
)

// #endregion errors

// #region enums
// Metric is the primary severity measure a crime type is banded on.
type Metric string

const (
	MetricAmount   Metric = "amount"
	MetricSeverity Metric = "severity"
)

// BandMode selects how a band turns a metric into months.
type BandMode string

const (
	ModeFixed   BandMode = "fixed"
	ModeLinear  BandMode = "linear"
	ModeStepped BandMode = "stepped"
)

// Threshold names usable in band from/to fields.
const (
	ThresholdLarge          = "large"
	ThresholdHuge           = "huge"
	ThresholdEspeciallyHuge = "especially_huge"
)

// #endregion enums

// #region thresholds
// Thresholds are the amount cut-offs for 数额较大 / 数额巨大 / 数额特别巨大.
type Thresholds struct {
	Large          float64 `yaml:"large" json:"large"`
	Huge           float64 `yaml:"huge" json:"huge"`
	EspeciallyHuge float64 `yaml:"especially_huge" json:"especially_huge"`
}

// ascending reports whether 0 < large < huge < especially_huge.
func (t Thresholds) ascending() bool {
	return t.Large > 0 && t.Large < t.Huge && t.Huge < t.EspeciallyHuge
}

// Value returns the threshold by name.
func (t Thresholds) Value(name string) (float64, bool) {
	switch name {
	case ThresholdLarge:
		return t.Large, true
	case ThresholdHuge:
		return t.Huge, true
	case ThresholdEspeciallyHuge:
		return t.EspeciallyHuge, true
	}
	return 0, false
}

// #endregion thresholds

// #region range
// Range is an inclusive month range.
type Range struct {
	Min float64 `yaml:"min" json:"min" validate:"gte=0"`
	Max float64 `yaml:"max" json:"max" validate:"gtefield=Min"`
}

// #endregion range

// #region band
// Band maps the half-open amount interval [Lower, Upper) to months.
type Band struct {
	Level      string   `yaml:"level" validate:"required"`
	Label      string   `yaml:"label"`
	From       string   `yaml:"from" validate:"required,oneof=large huge especially_huge"`
	To         string   `yaml:"to" validate:"omitempty,oneof=large huge especially_huge"`
	Span       float64  `yaml:"span" validate:"gte=0"` // used when To is empty
	Mode       BandMode `yaml:"mode" validate:"required,oneof=fixed linear stepped"`
	BaseMonths float64  `yaml:"base_months" validate:"gt=0"`
	BaseRange  *Range   `yaml:"base_range"`
	MaxMonths  float64  `yaml:"max_months" validate:"gte=0"`
	Step       float64  `yaml:"step" validate:"gte=0"`
	StepMonths float64  `yaml:"step_months" validate:"gte=0"`
	Statutory  Range    `yaml:"statutory"`

	Lower float64 `yaml:"-"`
	Upper float64 `yaml:"-"`
}

// Contains reports whether amount falls in [Lower, Upper).
func (b Band) Contains(amount float64) bool {
	return amount >= b.Lower && amount < b.Upper
}

// #endregion band

// #region level
// Level is one categorical severity grade, e.g. 轻伤二级.
type Level struct {
	ID         string   `yaml:"id" validate:"required"`
	Label      string   `yaml:"label" validate:"required"`
	Aliases    []string `yaml:"aliases"`
	BaseMonths float64  `yaml:"base_months" validate:"gt=0"`
	BaseRange  *Range   `yaml:"base_range"`
	Statutory  Range    `yaml:"statutory"`
}

// #endregion level

// #region count-bonus
// CountBonus scales the base by a secondary count (thefts, victims).
type CountBonus struct {
	Mode       string  `yaml:"mode" validate:"required,oneof=step percent"`
	Free       int     `yaml:"free" validate:"gte=0"`
	Step       int     `yaml:"step" validate:"gte=0"`
	Months     float64 `yaml:"months" validate:"gte=0"`
	Percent    float64 `yaml:"percent" validate:"gte=0"`
	MaxPercent float64 `yaml:"max_percent" validate:"gte=0"`
}

// #endregion count-bonus

// #region tier-rules
// Tier1Rule multiplies the base by Factor.
type Tier1Rule struct {
	Tag              facts.Tag `yaml:"tag" validate:"required"`
	Factor           float64   `yaml:"factor" validate:"gt=0"`
	PermitsReduction bool      `yaml:"permits_reduction"`
}

// Tier2Rule contributes a signed percentage and/or fixed months.
type Tier2Rule struct {
	Tag              facts.Tag `yaml:"tag" validate:"required"`
	Percent          float64   `yaml:"percent" validate:"gt=-100"`
	Months           float64   `yaml:"months"`
	FullPercent      *float64  `yaml:"full_percent"` // restitution covering the whole loss
	Compound         bool      `yaml:"compound"`
	PermitsReduction bool      `yaml:"permits_reduction"`
}

// #endregion tier-rules

// #region interval-policy
// IntervalPolicy controls interval width for scalar sentences.
type IntervalPolicy struct {
	WidthRatio float64 `yaml:"width_ratio" validate:"gte=0"`
	MinWidth   float64 `yaml:"min_width" validate:"gt=0"`
	MaxWidth   float64 `yaml:"max_width" validate:"gtefield=MinWidth"`
	Candidates []int   `yaml:"candidates" validate:"required,min=1,dive,gt=0"`
	Tier1Widen float64 `yaml:"tier1_widen" validate:"gte=0"`
}

// #endregion interval-policy

// #region profile
// Profile is the immutable rule set for one crime type, optionally with
// regional thresholds substituted. Profiles are shared between goroutines
// and must not be modified after load.
type Profile struct {
	ID                string         `yaml:"id" validate:"required"`
	Name              string         `yaml:"name" validate:"required"`
	Aliases           []string       `yaml:"aliases"`
	Metric            Metric         `yaml:"metric" validate:"required,oneof=amount severity"`
	DefaultBaseMonths float64        `yaml:"default_base_months" validate:"gt=0"`
	MaxMonths         float64        `yaml:"max_months" validate:"gt=0"`
	Thresholds        Thresholds     `yaml:"thresholds"`
	Bands             []Band         `yaml:"bands" validate:"dive"`
	Levels            []Level        `yaml:"levels" validate:"dive"`
	CountBonus        *CountBonus    `yaml:"count_bonus"`
	Tier1             []Tier1Rule    `yaml:"tier1" validate:"dive"`
	Tier2             []Tier2Rule    `yaml:"tier2" validate:"dive"`
	Interval          IntervalPolicy `yaml:"interval"`

	Region      string  `yaml:"-"` // empty for national thresholds
	FloorMonths float64 `yaml:"-"` // floor when a reduction is permitted
}

// Tier1For returns the tier-1 rule for a tag.
func (p *Profile) Tier1For(tag facts.Tag) (Tier1Rule, bool) {
	for _, r := range p.Tier1 {
		if r.Tag == tag {
			return r, true
		}
	}
	return Tier1Rule{}, false
}

// Tier2For returns the tier-2 rule for a tag.
func (p *Profile) Tier2For(tag facts.Tag) (Tier2Rule, bool) {
	for _, r := range p.Tier2 {
		if r.Tag == tag {
			return r, true
		}
	}
	return Tier2Rule{}, false
}

// Covers reports whether the tag belongs to this crime type's vocabulary.
func (p *Profile) Covers(tag facts.Tag) bool {
	_, ok1 := p.Tier1For(tag)
	_, ok2 := p.Tier2For(tag)
	return ok1 || ok2
}

// LevelFor resolves a severity level by id, label or alias.
func (p *Profile) LevelFor(name string) (Level, bool) {
	for _, l := range p.Levels {
		if l.ID == name || l.Label == name {
			return l, true
		}
		for _, a := range l.Aliases {
			if a == name {
				return l, true
			}
		}
	}
	return Level{}, false
}

// #endregion profile

// #region document
// document is the on-disk YAML layout.
type document struct {
	Version     string                           `yaml:"version" validate:"required"`
	FloorMonths float64                          `yaml:"floor_months" validate:"gte=0"`
	Crimes      []Profile                        `yaml:"crimes" validate:"required,min=1,dive"`
	Regions     map[string]map[string]Thresholds `yaml:"regions"`
	Cities      map[string]string                `yaml:"cities"`
	Parents     map[string]string                `yaml:"region_parents"`
}

// #endregion document
