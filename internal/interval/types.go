package interval

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
)

// #region interval
// Interval is a closed range of whole months, serialised as [low, high].
type Interval struct {
	Low  int
	High int
}

// Width returns High - Low.
func (iv Interval) Width() int { return iv.High - iv.Low }

// Contains reports whether months falls inside the interval.
func (iv Interval) Contains(months float64) bool {
	return months >= float64(iv.Low) && months <= float64(iv.High)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %d]", iv.Low, iv.High)
}

// MarshalJSON encodes the interval as a two-element array.
func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{iv.Low, iv.High})
}

// UnmarshalJSON decodes a two-element array.
func (iv *Interval) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode interval: %w", err)
	}
	iv.Low, iv.High = pair[0], pair[1]
	return nil
}

// #endregion interval

// #region result
// Result is the constructed interval plus what happened along the way.
type Result struct {
	Interval Interval
	Issues   []diagnostics.Issue
	Trace    diagnostics.Trace
}

// #endregion result
