package model

// ScreenResult is one ticker that survived every enabled gate, together with
// the figures that justified its inclusion.
type ScreenResult struct {
	Symbol        Ticker
	Sector        string
	Price         float64
	PE            float64
	SectorPE      *float64
	DebtToEquity  float64
	LatestVolume  float64
	AverageVolume float64
	HighN         float64
	SMA           float64
	EPSGrowth     bool
}

// Columns is the spreadsheet header, in the same order as Row.
func Columns() []string {
	return []string{
		"Symbol",
		"Sector",
		"Price",
		"P/E",
		"Sector P/E",
		"Debt/Equity",
		"Latest Volume",
		"Average Volume",
		"N-Day High",
		"SMA",
		"EPS Growth",
	}
}

// Row returns the cell values for the export. An unknown sector P/E is
// written as "N/A".
func (r ScreenResult) Row() []interface{} {
	var sectorPE interface{} = "N/A"
	if r.SectorPE != nil {
		sectorPE = *r.SectorPE
	}
	growth := "No"
	if r.EPSGrowth {
		growth = "Yes"
	}
	return []interface{}{
		string(r.Symbol),
		r.Sector,
		r.Price,
		r.PE,
		sectorPE,
		r.DebtToEquity,
		r.LatestVolume,
		r.AverageVolume,
		r.HighN,
		r.SMA,
		growth,
	}
}
