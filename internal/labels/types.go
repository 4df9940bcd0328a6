package labels

import (
	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
)

// #region config
// ParserConfig holds fallbacks for label parsing.
type ParserConfig struct {
	DefaultCrime string // used when no label names the crime
}

// DefaultParserConfig returns the fallbacks used by the batch runner.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{DefaultCrime: "theft"}
}

// #endregion config

// #region case
// Case is a case as it arrives from outside: fact text, extraction labels,
// and any structured fields the caller already knows. It is the record
// format of batch input files and of the Predict RPC.
type Case struct {
	ID        string   `json:"id"`
	Fact      string   `json:"fact,omitempty"`
	CrimeType string   `json:"crime_type,omitempty"`
	Region    string   `json:"region,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Count     *int     `json:"count,omitempty"`
	Severity  string   `json:"severity,omitempty"`
	Labels    []string `json:"labels,omitempty"`
}

// NeedsExtraction reports whether the case carries only fact text.
func (c Case) NeedsExtraction() bool {
	return len(c.Labels) == 0 && c.Fact != "" && c.Amount == nil && c.Severity == ""
}

// #endregion case

// #region extraction
// Extraction is the structured form of one case's label list.
type Extraction struct {
	CrimeType     string
	Amount        *float64
	Count         *int
	Severity      string
	Circumstances []facts.Circumstance
	Informational []string // band hints and markers that carry no arithmetic
	Unrecognized  []string // passed through as unknown tags
}

// ToInput converts the extraction into a calculator input.
func (x Extraction) ToInput(caseID, region string) engine.Input {
	return engine.Input{
		CaseID:        caseID,
		CrimeType:     x.CrimeType,
		Region:        region,
		Amount:        x.Amount,
		Count:         x.Count,
		Severity:      x.Severity,
		Circumstances: append([]facts.Circumstance(nil), x.Circumstances...),
	}
}

// #endregion extraction
