package bybit

import (
	"context"
	"fmt"
)

// AccountType represents different account types in Bybit
type AccountType string

const (
	AccountTypeUnified  AccountType = "UNIFIED"
	AccountTypeContract AccountType = "CONTRACT"
)

// AccountInfo is the wallet summary of one account
type AccountInfo struct {
	AccountType           string
	TotalEquity           float64
	TotalWalletBalance    float64
	TotalAvailableBalance float64
	TotalPerpUPL          float64
}

// GetAccountBalance retrieves the wallet balance of an account
func (c *Client) GetAccountBalance(ctx context.Context, accountType AccountType) (*AccountInfo, error) {
	params := map[string]interface{}{
		"accountType": string(accountType),
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	return parseAccountBalanceResponse(result)
}

// parseAccountBalanceResponse parses the wallet balance response
func parseAccountBalanceResponse(response interface{}) (*AccountInfo, error) {
	var wallet walletResult
	if err := decodeResult(response, &wallet); err != nil {
		return nil, err
	}
	if len(wallet.List) == 0 {
		return nil, fmt.Errorf("no account data found")
	}

	account := wallet.List[0]
	return &AccountInfo{
		AccountType:           account.AccountType,
		TotalEquity:           parseFloat64(account.TotalEquity),
		TotalWalletBalance:    parseFloat64(account.TotalWalletBalance),
		TotalAvailableBalance: parseFloat64(account.TotalAvailableBalance),
		TotalPerpUPL:          parseFloat64(account.TotalPerpUPL),
	}, nil
}
