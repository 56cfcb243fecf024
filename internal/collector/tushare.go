package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"TurtleTrader/internal/model"
)

const tushareBaseURL = "http://api.tushare.pro"

const tushareDateLayout = "20060102"

// TushareFetcher implements Fetcher and Namer using the Tushare Pro API.
type TushareFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewTushareFetcher creates a new fetcher with optional proxy support.
func NewTushareFetcher(baseURL, token, proxyURL string) *TushareFetcher {
	if baseURL == "" {
		baseURL = tushareBaseURL
	}
	return &TushareFetcher{
		BaseURL: baseURL,
		Token:   token,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *TushareFetcher) Name() string { return "tushare" }

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// query calls one Tushare endpoint and returns its rows keyed by field name.
func (f *TushareFetcher) query(ctx context.Context, api string, params map[string]string, fields string) ([]map[string]interface{}, error) {
	payload, err := json.Marshal(tushareRequest{APIName: api, Token: f.Token, Params: params, Fields: fields})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tushare %s: %w", api, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tushare %s: status %d, body: %s", api, resp.StatusCode, string(body))
	}

	var out tushareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tushare %s decode: %w", api, err)
	}
	if out.Code != 0 {
		return nil, fmt.Errorf("tushare %s: code %d: %s", api, out.Code, out.Msg)
	}
	if out.Data == nil {
		return nil, nil
	}

	rows := make([]map[string]interface{}, 0, len(out.Data.Items))
	for _, item := range out.Data.Items {
		row := make(map[string]interface{}, len(out.Data.Fields))
		for i, name := range out.Data.Fields {
			if i < len(item) {
				row[name] = item[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchDailyBars returns unadjusted daily bars. Tushare lists newest first;
// ordering is left to the caller.
func (f *TushareFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	rows, err := f.query(ctx, "daily", map[string]string{
		"ts_code":    symbol,
		"start_date": start.Format(tushareDateLayout),
		"end_date":   end.Format(tushareDateLayout),
	}, "trade_date,open,high,low,close,pre_close,vol")
	if err != nil {
		return nil, err
	}

	bars := make([]model.OHLCV, 0, len(rows))
	for _, r := range rows {
		ds, _ := r["trade_date"].(string)
		d, err := time.Parse(tushareDateLayout, ds)
		if err != nil {
			return nil, fmt.Errorf("tushare daily: bad trade_date %q: %w", ds, err)
		}
		bars = append(bars, model.OHLCV{
			Date:      d,
			Open:      toFloat(r["open"]),
			High:      toFloat(r["high"]),
			Low:       toFloat(r["low"]),
			Close:     toFloat(r["close"]),
			PrevClose: toFloat(r["pre_close"]),
			Volume:    toFloat(r["vol"]),
		})
	}
	return bars, nil
}

// StockName looks the symbol up in stock_basic.
func (f *TushareFetcher) StockName(ctx context.Context, symbol string) (string, error) {
	rows, err := f.query(ctx, "stock_basic", map[string]string{"ts_code": symbol}, "ts_code,name")
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	name, _ := rows[0]["name"].(string)
	return name, nil
}
