package model

// FundamentalsRecord is the per-ticker snapshot produced by the batch fetch.
// A nil pointer or empty Sector means the provider had no usable value;
// absent fields exclude the ticker and are never read as zero.
type FundamentalsRecord struct {
	TrailingPE   *float64
	SectorPE     *float64
	DebtToEquity *float64
	Sector       string
}

// AbsentRecord is the record assigned to a ticker whose fetch failed.
func AbsentRecord() FundamentalsRecord { return FundamentalsRecord{} }

// HasPE reports whether a trailing P/E is present.
func (r FundamentalsRecord) HasPE() bool { return r.TrailingPE != nil }

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 { return &v }
