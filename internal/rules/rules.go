package rules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
)

//go:embed default_rules.yaml
var defaultRules []byte

// #region table
// Table holds every crime-type profile, national and regional. It is built
// once and shared read-only by all predictions.
type Table struct {
	Version     string
	FloorMonths float64

	order    []string                       // crime ids in file order
	national map[string]*Profile            // crime id -> profile
	regional map[string]map[string]*Profile // region -> crime id -> profile
	names    map[string]string              // id, name or alias -> crime id
	cities   map[string]string              // city -> region key
	parents  map[string]string              // city-level region key -> province key
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded table. It is parsed once per process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(defaultRules)
	})
	return defaultTable, defaultErr
}

// DefaultSource returns the embedded YAML.
func DefaultSource() []byte {
	return append([]byte(nil), defaultRules...)
}

// Load reads and parses a rule table from disk.
func Load(path string) (*Table, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads and parses a rule table from the given filesystem.
func LoadFs(fs afero.Fs, path string) (*Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read rule table %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes YAML, validates it and materialises every regional profile.
// Any structural problem is reported as ErrInvalidRuleTable.
func Parse(data []byte) (*Table, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidRuleTable, err)
	}

	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRuleTable, err)
	}

	t := &Table{
		Version:     doc.Version,
		FloorMonths: doc.FloorMonths,
		national:    make(map[string]*Profile, len(doc.Crimes)),
		regional:    make(map[string]map[string]*Profile, len(doc.Regions)),
		names:       make(map[string]string),
		cities:      make(map[string]string, len(doc.Cities)),
		parents:     make(map[string]string, len(doc.Parents)),
	}

	var errs []error
	for i := range doc.Crimes {
		p := doc.Crimes[i]
		p.FloorMonths = doc.FloorMonths
		if _, dup := t.national[p.ID]; dup {
			errs = append(errs, fmt.Errorf("crime %s: duplicate id", p.ID))
			continue
		}
		if err := finalize(&p); err != nil {
			errs = append(errs, fmt.Errorf("crime %s: %w", p.ID, err))
			continue
		}
		t.national[p.ID] = &p
		t.order = append(t.order, p.ID)
		for _, n := range append([]string{p.ID, p.Name}, p.Aliases...) {
			if prev, ok := t.names[n]; ok && prev != p.ID {
				errs = append(errs, fmt.Errorf("crime %s: name %q already used by %s", p.ID, n, prev))
				continue
			}
			t.names[n] = p.ID
		}
	}

	for region, overrides := range doc.Regions {
		t.regional[region] = make(map[string]*Profile, len(overrides))
		for crimeID, th := range overrides {
			base, ok := t.national[crimeID]
			if !ok {
				errs = append(errs, fmt.Errorf("region %s: unknown crime %s", region, crimeID))
				continue
			}
			if base.Metric != MetricAmount {
				errs = append(errs, fmt.Errorf("region %s: crime %s has no amount thresholds", region, crimeID))
				continue
			}
			p := *base
			p.Region = region
			p.Thresholds = th
			p.Bands = append([]Band(nil), base.Bands...)
			if err := finalize(&p); err != nil {
				errs = append(errs, fmt.Errorf("region %s crime %s: %w", region, crimeID, err))
				continue
			}
			t.regional[region][crimeID] = &p
		}
	}

	for city, region := range doc.Cities {
		if _, ok := doc.Regions[region]; !ok {
			errs = append(errs, fmt.Errorf("city %s: unknown region %s", city, region))
			continue
		}
		t.cities[city] = region
	}

	for child, parent := range doc.Parents {
		_, okChild := doc.Regions[child]
		_, okParent := doc.Regions[parent]
		if !okChild || !okParent || doc.Parents[parent] != "" {
			errs = append(errs, fmt.Errorf("region parent %s -> %s: both must be top-level region keys", child, parent))
			continue
		}
		t.parents[child] = parent
	}

	if len(errs) > 0 {
		sortErrors(errs)
		return nil, fmt.Errorf("%w: %w", ErrInvalidRuleTable, errors.Join(errs...))
	}
	return t, nil
}

// #endregion table

// #region lookup
// Lookup returns the national profile for a crime id, name or alias.
func (t *Table) Lookup(crime string) (*Profile, error) {
	id, ok := t.names[strings.TrimSpace(crime)]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", crime, ErrUnknownCrimeType)
	}
	return t.national[id], nil
}

// ForRegion returns the profile with regional thresholds substituted. An
// unresolvable region falls back to national thresholds and is reported as
// an issue rather than an error.
func (t *Table) ForRegion(crime, region string) (*Profile, []diagnostics.Issue, error) {
	p, err := t.Lookup(crime)
	if err != nil {
		return nil, nil, err
	}
	if !t.hasRegional(p.ID) {
		return p, nil, nil
	}

	key, err := t.ResolveRegion(region)
	if err != nil {
		if errors.Is(err, ErrUnsupportedRegion) {
			return p, []diagnostics.Issue{{
				Code:   diagnostics.IssueUnsupportedRegion,
				Detail: fmt.Sprintf("region %q not in table, national thresholds used", region),
			}}, nil
		}
		return nil, nil, err
	}
	if key == "" {
		return p, nil, nil
	}
	if rp, ok := t.regional[key][p.ID]; ok {
		return rp, nil, nil
	}
	return p, nil, nil
}

// ResolveRegion maps a free-form region string to a table region key.
// Empty input and national aliases resolve to "". A province named in the
// string always decides; a city-level key only refines it when that city
// belongs to the province, so "广东省江门市" resolves to 江门 while
// "辽宁省大连市中山区" stays 辽宁. Without a province the earliest city wins.
func (t *Table) ResolveRegion(region string) (string, error) {
	region = strings.TrimSpace(region)
	switch region {
	case "", "default", "national", "全国":
		return "", nil
	}
	if _, ok := t.regional[region]; ok {
		return region, nil
	}
	if key, ok := t.cities[region]; ok {
		return key, nil
	}

	if province := t.findProvince(region); province != "" {
		for _, city := range sortedKeys(t.parents) {
			if t.parents[city] == province && strings.Contains(region, city) {
				return city, nil
			}
		}
		return province, nil
	}

	best, bestPos, bestLen := "", -1, 0
	consider := func(name, key string) {
		pos := strings.Index(region, name)
		if pos < 0 {
			return
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(name) > bestLen) {
			best, bestPos, bestLen = key, pos, len(name)
		}
	}
	for _, city := range sortedKeys(t.parents) {
		consider(city, city)
	}
	for _, city := range sortedKeys(t.cities) {
		consider(city, t.cities[city])
	}
	if best == "" {
		return "", fmt.Errorf("resolve %q: %w", region, ErrUnsupportedRegion)
	}
	return best, nil
}

// findProvince returns the province key named in s. Names followed by an
// administrative suffix (省, 市, 自治区) beat bare ones; then the earliest
// occurrence wins.
func (t *Table) findProvince(s string) string {
	best, bestPos, bestSuffixed := "", -1, false
	for _, name := range sortedKeys(t.regional) {
		if _, city := t.parents[name]; city {
			continue
		}
		pos, suffixed := -1, false
		for off := 0; off <= len(s); {
			i := strings.Index(s[off:], name)
			if i < 0 {
				break
			}
			at := off + i
			if pos < 0 {
				pos = at
			}
			if hasAdminSuffix(s[at+len(name):]) {
				pos, suffixed = at, true
				break
			}
			off = at + len(name)
		}
		if pos < 0 {
			continue
		}
		switch {
		case best == "",
			suffixed && !bestSuffixed,
			suffixed == bestSuffixed && pos < bestPos:
			best, bestPos, bestSuffixed = name, pos, suffixed
		}
	}
	return best
}

func hasAdminSuffix(rest string) bool {
	for _, suf := range []string{"省", "市", "自治区", "壮族自治区", "回族自治区", "维吾尔自治区"} {
		if strings.HasPrefix(rest, suf) {
			return true
		}
	}
	return false
}

// CrimeIDs returns crime ids in file order.
func (t *Table) CrimeIDs() []string {
	return append([]string(nil), t.order...)
}

// Regions returns the region keys in sorted order.
func (t *Table) Regions() []string {
	return sortedKeys(t.regional)
}

func (t *Table) hasRegional(crimeID string) bool {
	for _, m := range t.regional {
		if _, ok := m[crimeID]; ok {
			return true
		}
	}
	return false
}

// #endregion lookup

// #region validation
// finalize computes band bounds and checks the invariants struct tags cannot express.
func finalize(p *Profile) error {
	var errs []error

	switch p.Metric {
	case MetricAmount:
		if !p.Thresholds.ascending() {
			errs = append(errs, fmt.Errorf("thresholds must satisfy 0 < large < huge < especially_huge, got %+v", p.Thresholds))
			break
		}
		if len(p.Bands) == 0 {
			errs = append(errs, errors.New("amount metric requires bands"))
			break
		}
		for i := range p.Bands {
			b := &p.Bands[i]
			lower, _ := p.Thresholds.Value(b.From)
			upper := lower + b.Span
			if b.To != "" {
				upper, _ = p.Thresholds.Value(b.To)
			} else if b.Span <= 0 {
				errs = append(errs, fmt.Errorf("band %s: needs to or span", b.Level))
			}
			b.Lower, b.Upper = lower, upper
			if b.Lower >= b.Upper {
				errs = append(errs, fmt.Errorf("band %s: empty interval [%.0f, %.0f)", b.Level, b.Lower, b.Upper))
			}
			if i > 0 && p.Bands[i-1].Upper != b.Lower {
				prev := p.Bands[i-1]
				kind := "gap"
				if prev.Upper > b.Lower {
					kind = "overlap"
				}
				errs = append(errs, fmt.Errorf("band %s: %s with %s (%.0f vs %.0f)", b.Level, kind, prev.Level, prev.Upper, b.Lower))
			}
			errs = append(errs, checkMonths(b.Level, b.Mode, b.BaseMonths, b.MaxMonths, b.Step, b.Statutory, p.MaxMonths)...)
		}
	case MetricSeverity:
		if len(p.Levels) == 0 {
			errs = append(errs, errors.New("severity metric requires levels"))
		}
		seen := make(map[string]bool)
		for _, l := range p.Levels {
			if seen[l.ID] {
				errs = append(errs, fmt.Errorf("level %s: duplicate", l.ID))
			}
			seen[l.ID] = true
			if l.Statutory.Max > p.MaxMonths {
				errs = append(errs, fmt.Errorf("level %s: statutory max %.0f above crime max %.0f", l.ID, l.Statutory.Max, p.MaxMonths))
			}
		}
	}

	seen := make(map[facts.Tag]string)
	for _, r := range p.Tier1 {
		errs = append(errs, checkTag(seen, r.Tag, "tier1")...)
	}
	for _, r := range p.Tier2 {
		errs = append(errs, checkTag(seen, r.Tag, "tier2")...)
	}

	if p.Interval.MinWidth > 0 && p.Interval.MaxWidth < p.Interval.MinWidth {
		errs = append(errs, errors.New("interval: max_width below min_width"))
	}
	if !sort.IntsAreSorted(p.Interval.Candidates) {
		errs = append(errs, errors.New("interval: candidates must be ascending"))
	}
	if p.FloorMonths > p.MaxMonths {
		errs = append(errs, fmt.Errorf("floor %.0f above max %.0f", p.FloorMonths, p.MaxMonths))
	}

	return errors.Join(errs...)
}

func checkMonths(level string, mode BandMode, base, maxMonths, step float64, stat Range, crimeMax float64) []error {
	var errs []error
	if (mode == ModeLinear || mode == ModeStepped) && maxMonths < base {
		errs = append(errs, fmt.Errorf("band %s: max_months %.1f below base %.1f", level, maxMonths, base))
	}
	if mode == ModeStepped && step <= 0 {
		errs = append(errs, fmt.Errorf("band %s: stepped mode needs step > 0", level))
	}
	if stat.Max > crimeMax {
		errs = append(errs, fmt.Errorf("band %s: statutory max %.0f above crime max %.0f", level, stat.Max, crimeMax))
	}
	return errs
}

func checkTag(seen map[facts.Tag]string, tag facts.Tag, tier string) []error {
	var errs []error
	if !tag.Known() {
		errs = append(errs, fmt.Errorf("%s: unknown tag %s", tier, tag))
	}
	if prev, ok := seen[tag]; ok {
		errs = append(errs, fmt.Errorf("%s: tag %s already in %s", tier, tag, prev))
	}
	seen[tag] = tier
	return errs
}

// #endregion validation

// #region helpers
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortErrors orders errors from map iteration so messages are stable.
func sortErrors(errs []error) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
}

// #endregion helpers
