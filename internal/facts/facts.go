package facts

import (
	"sort"
	"strings"
)

// #region lookup
var labelIndex = buildLabelIndex()

func buildLabelIndex() map[string]Tag {
	idx := make(map[string]Tag)
	for tag, names := range chineseLabels {
		idx[string(tag)] = tag
		for _, n := range names {
			idx[n] = tag
		}
	}
	return idx
}

// ParseTag resolves an English id or Chinese label to a known tag.
// The second return is false when the string is outside the vocabulary; the
// returned Tag then carries the raw string so it can be reported.
func ParseTag(s string) (Tag, bool) {
	s = strings.TrimSpace(s)
	if tag, ok := labelIndex[s]; ok {
		return tag, true
	}
	return Tag(s), false
}

// Known reports whether t is part of the closed vocabulary.
func (t Tag) Known() bool {
	_, ok := chineseLabels[t]
	return ok
}

// Label returns the primary Chinese label, or the id when none exists.
func (t Tag) Label() string {
	if names := chineseLabels[t]; len(names) > 0 {
		return names[0]
	}
	return string(t)
}

// AllTags returns the vocabulary in sorted order.
func AllTags() []Tag {
	out := make([]Tag, 0, len(chineseLabels))
	for tag := range chineseLabels {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// #endregion lookup

// #region set
// Set is an immutable collection of circumstances keyed by tag.
// The zero value is an empty set.
type Set struct {
	items []Circumstance
}

// NewSet builds a set. Duplicate tags merge and the first payload wins,
// except that a later Full flag is kept.
func NewSet(cs ...Circumstance) Set {
	byTag := make(map[Tag]int, len(cs))
	items := make([]Circumstance, 0, len(cs))
	for _, c := range cs {
		if c.Tag == "" {
			continue
		}
		if i, ok := byTag[c.Tag]; ok {
			if c.Full {
				items[i].Full = true
			}
			if items[i].Amount == nil && c.Amount != nil {
				items[i].Amount = copyFloat(c.Amount)
			}
			if items[i].Count == nil && c.Count != nil {
				items[i].Count = copyInt(c.Count)
			}
			continue
		}
		byTag[c.Tag] = len(items)
		items = append(items, Circumstance{
			Tag:    c.Tag,
			Amount: copyFloat(c.Amount),
			Count:  copyInt(c.Count),
			Full:   c.Full,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Tag < items[j].Tag })
	return Set{items: items}
}

// Tags builds a set of payload-free circumstances.
func Tags(tags ...Tag) Set {
	cs := make([]Circumstance, len(tags))
	for i, t := range tags {
		cs[i] = Circumstance{Tag: t}
	}
	return NewSet(cs...)
}

// Len returns the number of distinct tags.
func (s Set) Len() int { return len(s.items) }

// Has reports whether the tag is present.
func (s Set) Has(t Tag) bool {
	_, ok := s.Get(t)
	return ok
}

// Get returns a copy of the circumstance for a tag.
func (s Set) Get(t Tag) (Circumstance, bool) {
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].Tag >= t })
	if i < len(s.items) && s.items[i].Tag == t {
		return cloneCircumstance(s.items[i]), true
	}
	return Circumstance{}, false
}

// Items returns copies of all circumstances in tag order.
func (s Set) Items() []Circumstance {
	out := make([]Circumstance, len(s.items))
	for i, c := range s.items {
		out[i] = cloneCircumstance(c)
	}
	return out
}

// #endregion set

// #region helpers
func cloneCircumstance(c Circumstance) Circumstance {
	return Circumstance{Tag: c.Tag, Amount: copyFloat(c.Amount), Count: copyInt(c.Count), Full: c.Full}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v. Handy for building payloads.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// #endregion helpers
