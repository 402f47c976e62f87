package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"StockScreener/internal/model"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	yahooCookieURL = "https://fc.yahoo.com"
	yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// YahooProvider implements Provider using the public Yahoo Finance endpoints.
type YahooProvider struct {
	Client    *http.Client
	BaseURL   string
	CookieURL string

	mu    sync.Mutex
	crumb string
}

// NewYahooProvider creates a Yahoo provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)
	return &YahooProvider{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
			Jar:       jar,
		},
		BaseURL:   yahooBaseURL,
		CookieURL: yahooCookieURL,
	}
}

func (y *YahooProvider) Name() string { return "yahoo" }

func (y *YahooProvider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// yahooChart is the response structure from the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return toFloat(vals[i])
}

// chartRange picks the smallest Yahoo range covering days trading sessions.
func chartRange(days int) string {
	calendar := days*7/5 + 7
	switch {
	case calendar <= 30:
		return "1mo"
	case calendar <= 90:
		return "3mo"
	case calendar <= 180:
		return "6mo"
	case calendar <= 365:
		return "1y"
	default:
		return "2y"
	}
}

func (y *YahooProvider) FetchDailyBars(ctx context.Context, symbol model.Ticker, days int) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.BaseURL, url.PathEscape(symbol.String()), chartRange(days))

	body, err := y.get(ctx, u)
	if err != nil {
		return nil, fetchErr(y.Name(), symbol, "chart", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fetchErr(y.Name(), symbol, "chart", fmt.Errorf("decode: %w", err))
	}
	if chart.Chart.Error != nil {
		return nil, fetchErr(y.Name(), symbol, "chart", fmt.Errorf("%w: %s", ErrNoData, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fetchErr(y.Name(), symbol, "chart", ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bar
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// ensureCrumb performs the cookie + crumb handshake quoteSummary requires.
func (y *YahooProvider) ensureCrumb(ctx context.Context, refresh bool) (string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" && !refresh {
		return y.crumb, nil
	}

	// The cookie endpoint answers 404 but still sets the session cookie.
	if _, err := y.get(ctx, y.CookieURL); err != nil {
		var se *StatusError
		if !errors.As(err, &se) {
			return "", fmt.Errorf("cookie: %w", err)
		}
	}
	body, err := y.get(ctx, y.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" {
		return "", errors.New("crumb: empty response")
	}
	y.crumb = crumb
	return crumb, nil
}

type yahooQuoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail map[string]interface{} `json:"summaryDetail"`
			FinancialData map[string]interface{} `json:"financialData"`
			AssetProfile  struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (y *YahooProvider) quoteSummary(ctx context.Context, symbol model.Ticker, refresh bool) ([]byte, error) {
	crumb, err := y.ensureCrumb(ctx, refresh)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("modules", "summaryDetail,financialData,assetProfile")
	q.Set("crumb", crumb)
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", y.BaseURL, url.PathEscape(symbol.String()), q.Encode())
	return y.get(ctx, u)
}

// FetchFundamentals reads trailing P/E, debt/equity and sector. Yahoo reports
// debt/equity in percent; the record holds a ratio. Sector P/E is not offered.
func (y *YahooProvider) FetchFundamentals(ctx context.Context, symbol model.Ticker) (model.FundamentalsRecord, error) {
	body, err := y.quoteSummary(ctx, symbol, false)
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		body, err = y.quoteSummary(ctx, symbol, true)
	}
	if err != nil {
		return model.AbsentRecord(), fetchErr(y.Name(), symbol, "fundamentals", err)
	}

	var qs yahooQuoteSummary
	if err := json.Unmarshal(body, &qs); err != nil {
		return model.AbsentRecord(), fetchErr(y.Name(), symbol, "fundamentals", fmt.Errorf("decode: %w", err))
	}
	if qs.QuoteSummary.Error != nil {
		return model.AbsentRecord(), fetchErr(y.Name(), symbol, "fundamentals",
			fmt.Errorf("%w: %s", ErrNoData, qs.QuoteSummary.Error.Description))
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return model.AbsentRecord(), fetchErr(y.Name(), symbol, "fundamentals", ErrNoData)
	}

	res := qs.QuoteSummary.Result[0]
	rec := model.AbsentRecord()
	rec.TrailingPE = toFloatPtr(res.SummaryDetail["trailingPE"])
	if de := toFloatPtr(res.FinancialData["debtToEquity"]); de != nil {
		rec.DebtToEquity = model.Float(*de / 100)
	}
	rec.Sector = strings.TrimSpace(res.AssetProfile.Sector)
	return rec, nil
}

type yahooTimeseries struct {
	Timeseries struct {
		Result []struct {
			Timestamp        []int64 `json:"timestamp"`
			AnnualDilutedEPS []*struct {
				AsOfDate      string      `json:"asOfDate"`
				ReportedValue interface{} `json:"reportedValue"`
			} `json:"annualDilutedEPS"`
		} `json:"result"`
	} `json:"timeseries"`
}

func (y *YahooProvider) FetchDilutedEPS(ctx context.Context, symbol model.Ticker, years int) ([]*float64, error) {
	now := time.Now()
	q := url.Values{}
	q.Set("type", "annualDilutedEPS")
	q.Set("period1", fmt.Sprint(now.AddDate(-(years+2), 0, 0).Unix()))
	q.Set("period2", fmt.Sprint(now.Unix()))
	u := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?%s",
		y.BaseURL, url.PathEscape(symbol.String()), q.Encode())

	body, err := y.get(ctx, u)
	if err != nil {
		return nil, fetchErr(y.Name(), symbol, "eps", err)
	}
	var ts yahooTimeseries
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, fetchErr(y.Name(), symbol, "eps", fmt.Errorf("decode: %w", err))
	}

	type point struct {
		date  string
		value *float64
	}
	var points []point
	for _, r := range ts.Timeseries.Result {
		for i, e := range r.AnnualDilutedEPS {
			p := point{}
			if i < len(r.Timestamp) {
				p.date = time.Unix(r.Timestamp[i], 0).UTC().Format("2006-01-02")
			}
			if e != nil {
				if e.AsOfDate != "" {
					p.date = e.AsOfDate
				}
				p.value = toFloatPtr(e.ReportedValue)
			}
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return nil, fetchErr(y.Name(), symbol, "eps", ErrNoData)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].date > points[j].date })
	if len(points) > years {
		points = points[:years]
	}
	out := make([]*float64, len(points))
	for i, p := range points {
		out[i] = p.value
	}
	return out, nil
}
