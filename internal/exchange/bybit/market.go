package bybit

import (
	"context"
	"fmt"
	"sort"
)

// GetKlines fetches up to limit candles for a linear symbol, oldest first
func (c *Client) GetKlines(ctx context.Context, category, symbol, interval string, limit int) ([]Kline, error) {
	if category == "" {
		category = "linear"
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"interval": interval,
		"limit":    limit,
	}

	var result struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"`
	}
	err := c.call(ctx, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
		if err != nil {
			return err
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("get klines %s: %w", symbol, err)
	}

	klines := make([]Kline, 0, len(result.List))
	for _, row := range result.List {
		if len(row) < 7 {
			continue
		}
		klines = append(klines, Kline{
			StartTime: parseMillis(row[0]),
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
			Turnover:  parseFloat(row[6]),
		})
	}

	// Bybit returns newest first; callers expect chronological order
	sort.Slice(klines, func(i, j int) bool {
		return klines[i].StartTime.Before(klines[j].StartTime)
	})
	return klines, nil
}

// GetTicker fetches the futures ticker including mark price and funding rate
func (c *Client) GetTicker(ctx context.Context, category, symbol string) (*Ticker, error) {
	if category == "" {
		category = "linear"
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	var result struct {
		List []struct {
			Symbol          string `json:"symbol"`
			LastPrice       string `json:"lastPrice"`
			MarkPrice       string `json:"markPrice"`
			IndexPrice      string `json:"indexPrice"`
			FundingRate     string `json:"fundingRate"`
			NextFundingTime string `json:"nextFundingTime"`
			Volume24h       string `json:"volume24h"`
			HighPrice24h    string `json:"highPrice24h"`
			LowPrice24h     string `json:"lowPrice24h"`
		} `json:"list"`
	}
	err := c.call(ctx, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
		if err != nil {
			return err
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("get ticker %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("get ticker %s: empty response", symbol)
	}

	row := result.List[0]
	return &Ticker{
		Symbol:          row.Symbol,
		LastPrice:       parseFloat(row.LastPrice),
		MarkPrice:       parseFloat(row.MarkPrice),
		IndexPrice:      parseFloat(row.IndexPrice),
		FundingRate:     parseFloat(row.FundingRate),
		NextFundingTime: parseMillis(row.NextFundingTime),
		Volume24h:       parseFloat(row.Volume24h),
		HighPrice24h:    parseFloat(row.HighPrice24h),
		LowPrice24h:     parseFloat(row.LowPrice24h),
	}, nil
}

// GetInstrument fetches lot size and leverage constraints for a symbol
func (c *Client) GetInstrument(ctx context.Context, category, symbol string) (*Instrument, error) {
	if category == "" {
		category = "linear"
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	var result struct {
		List []struct {
			Symbol         string `json:"symbol"`
			LotSizeFilter  struct {
				MinOrderQty string `json:"minOrderQty"`
				MaxOrderQty string `json:"maxOrderQty"`
				QtyStep     string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
			LeverageFilter struct {
				MaxLeverage string `json:"maxLeverage"`
			} `json:"leverageFilter"`
		} `json:"list"`
	}
	err := c.call(ctx, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
		if err != nil {
			return err
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("get instrument %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("get instrument %s: not found", symbol)
	}

	row := result.List[0]
	return &Instrument{
		Symbol:      row.Symbol,
		MinOrderQty: parseFloat(row.LotSizeFilter.MinOrderQty),
		MaxOrderQty: parseFloat(row.LotSizeFilter.MaxOrderQty),
		QtyStep:     parseFloat(row.LotSizeFilter.QtyStep),
		MaxLeverage: parseFloat(row.LeverageFilter.MaxLeverage),
	}, nil
}
