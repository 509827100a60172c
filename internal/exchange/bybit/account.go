package bybit

import (
	"context"
	"fmt"
)

// GetCoinBalance fetches the unified account balance for one coin
func (c *Client) GetCoinBalance(ctx context.Context, coin string) (*Balance, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
		"coin":        coin,
	}

	var result struct {
		List []struct {
			Coin []struct {
				Coin             string `json:"coin"`
				WalletBalance    string `json:"walletBalance"`
				AvailableToTrade string `json:"availableToTrade"`
				UnrealisedPnl    string `json:"unrealisedPnl"`
			} `json:"coin"`
		} `json:"list"`
	}
	err := c.call(ctx, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
		if err != nil {
			return err
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", coin, err)
	}

	for _, account := range result.List {
		for _, row := range account.Coin {
			if row.Coin == coin {
				return &Balance{
					Coin:             row.Coin,
					WalletBalance:    parseFloat(row.WalletBalance),
					AvailableToTrade: parseFloat(row.AvailableToTrade),
					UnrealisedPnl:    parseFloat(row.UnrealisedPnl),
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("get balance: coin %s not found in unified account", coin)
}
