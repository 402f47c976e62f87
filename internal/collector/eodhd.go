package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"StockScreener/internal/model"
)

const (
	// EODHDBaseURL is the base URL for the EODHD API.
	EODHDBaseURL = "https://eodhd.com/api"
	eodhdTimeout = 30 * time.Second
)

// EODHDProvider implements Provider using the EODHD fundamentals and
// end-of-day endpoints. Symbols are resolved on the US exchange.
type EODHDProvider struct {
	baseURL    string
	apiKey     string
	exchange   string
	httpClient *http.Client
}

// EODHDOption configures the provider.
type EODHDOption func(*EODHDProvider)

// WithEODHDBaseURL sets a custom base URL.
func WithEODHDBaseURL(baseURL string) EODHDOption {
	return func(p *EODHDProvider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithEODHDHTTPClient sets a custom HTTP client.
func WithEODHDHTTPClient(c *http.Client) EODHDOption {
	return func(p *EODHDProvider) {
		p.httpClient = c
	}
}

// WithEODHDProxy routes requests through an HTTP proxy.
func WithEODHDProxy(proxyURL string) EODHDOption {
	return func(p *EODHDProvider) {
		if proxyURL == "" {
			return
		}
		if u, err := url.Parse(proxyURL); err == nil {
			p.httpClient = &http.Client{
				Timeout:   eodhdTimeout,
				Transport: &http.Transport{Proxy: http.ProxyURL(u)},
			}
		}
	}
}

// NewEODHDProvider creates a new EODHD provider.
func NewEODHDProvider(apiKey string, opts ...EODHDOption) *EODHDProvider {
	p := &EODHDProvider{
		baseURL:    EODHDBaseURL,
		apiKey:     apiKey,
		exchange:   "US",
		httpClient: &http.Client{Timeout: eodhdTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *EODHDProvider) Name() string { return "eodhd" }

func (p *EODHDProvider) code(symbol model.Ticker) string {
	return url.PathEscape(symbol.String() + "." + p.exchange)
}

func (p *EODHDProvider) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", p.apiKey)
	params.Set("fmt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type eodhdFundamentals struct {
	General struct {
		Sector string `json:"Sector"`
	} `json:"General"`
	Highlights struct {
		PERatio interface{} `json:"PERatio"`
	} `json:"Highlights"`
	Valuation struct {
		TrailingPE interface{} `json:"TrailingPE"`
	} `json:"Valuation"`
	Earnings struct {
		Annual json.RawMessage `json:"Annual"`
	} `json:"Earnings"`
	Financials struct {
		BalanceSheet struct {
			Yearly map[string]map[string]interface{} `json:"yearly"`
		} `json:"Balance_Sheet"`
	} `json:"Financials"`
}

type eodhdAnnualEPS struct {
	Date      string      `json:"date"`
	EPSActual interface{} `json:"epsActual"`
}

func (p *EODHDProvider) fundamentals(ctx context.Context, symbol model.Ticker, filter string) (*eodhdFundamentals, error) {
	params := url.Values{}
	if filter != "" {
		params.Set("filter", filter)
	}
	var f eodhdFundamentals
	if err := p.get(ctx, "/fundamentals/"+p.code(symbol), params, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FetchFundamentals reads P/E (falling back to trailing P/E from the
// valuation block), sector, and debt/equity from the latest yearly balance
// sheet.
func (p *EODHDProvider) FetchFundamentals(ctx context.Context, symbol model.Ticker) (model.FundamentalsRecord, error) {
	f, err := p.fundamentals(ctx, symbol, "")
	if err != nil {
		return model.AbsentRecord(), fetchErr(p.Name(), symbol, "fundamentals", err)
	}

	rec := model.AbsentRecord()
	rec.TrailingPE = toFloatPtr(f.Highlights.PERatio)
	if rec.TrailingPE == nil || *rec.TrailingPE == 0 {
		rec.TrailingPE = toFloatPtr(f.Valuation.TrailingPE)
	}
	rec.Sector = strings.TrimSpace(f.General.Sector)
	rec.DebtToEquity = latestDebtToEquity(f.Financials.BalanceSheet.Yearly)
	return rec, nil
}

func latestDebtToEquity(yearly map[string]map[string]interface{}) *float64 {
	if len(yearly) == 0 {
		return nil
	}
	dates := make([]string, 0, len(yearly))
	for d := range yearly {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	sheet := yearly[dates[0]]
	debt := toFloatPtr(sheet["shortLongTermDebtTotal"])
	equity := toFloatPtr(sheet["totalStockholderEquity"])
	if debt == nil || equity == nil || *equity == 0 {
		return nil
	}
	return model.Float(*debt / *equity)
}

// parseAnnualEPS accepts the date-keyed object EODHD returns as well as a
// plain array of entries.
func parseAnnualEPS(raw json.RawMessage) []eodhdAnnualEPS {
	if len(raw) == 0 {
		return nil
	}
	var byDate map[string]eodhdAnnualEPS
	if err := json.Unmarshal(raw, &byDate); err == nil {
		out := make([]eodhdAnnualEPS, 0, len(byDate))
		for k, v := range byDate {
			if v.Date == "" {
				v.Date = k
			}
			out = append(out, v)
		}
		return out
	}
	var list []eodhdAnnualEPS
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

func (p *EODHDProvider) FetchDilutedEPS(ctx context.Context, symbol model.Ticker, years int) ([]*float64, error) {
	f, err := p.fundamentals(ctx, symbol, "Earnings")
	if err != nil {
		return nil, fetchErr(p.Name(), symbol, "eps", err)
	}
	entries := parseAnnualEPS(f.Earnings.Annual)
	if len(entries) == 0 {
		return nil, fetchErr(p.Name(), symbol, "eps", ErrNoData)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date > entries[j].Date })
	if len(entries) > years {
		entries = entries[:years]
	}
	out := make([]*float64, len(entries))
	for i, e := range entries {
		out[i] = toFloatPtr(e.EPSActual)
	}
	return out, nil
}

type eodhdBar struct {
	Date   string      `json:"date"`
	Open   float64     `json:"open"`
	High   float64     `json:"high"`
	Low    float64     `json:"low"`
	Close  float64     `json:"close"`
	Volume interface{} `json:"volume"`
}

func (p *EODHDProvider) FetchDailyBars(ctx context.Context, symbol model.Ticker, days int) ([]model.OHLCV, error) {
	to := time.Now()
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("from", to.AddDate(0, 0, -(days*7/5+7)).Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	var raw []eodhdBar
	if err := p.get(ctx, "/eod/"+p.code(symbol), params, &raw); err != nil {
		return nil, fetchErr(p.Name(), symbol, "eod", err)
	}
	if len(raw) == 0 {
		return nil, fetchErr(p.Name(), symbol, "eod", ErrNoData)
	}

	bars := make([]model.OHLCV, 0, len(raw))
	for _, b := range raw {
		t, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   t,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: toFloat(b.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
