package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	blockchainTickerAPI   = "https://blockchain.info/ticker"
	defaultTickerCurrency = "USD"
)

// PriceFeed returns the last BTC trade price in the dashboard currency.
type PriceFeed interface {
	Name() string
	FetchPrice(ctx context.Context) (decimal.Decimal, error)
}

// BlockchainTicker reads the blockchain.info ticker.
type BlockchainTicker struct {
	client   *http.Client
	baseURL  string
	currency string
}

func NewBlockchainTicker(baseURL, currency string, timeout time.Duration) *BlockchainTicker {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = blockchainTickerAPI
	}
	if currency = strings.TrimSpace(currency); currency == "" {
		currency = defaultTickerCurrency
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &BlockchainTicker{
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		currency: strings.ToUpper(currency),
	}
}

func (t *BlockchainTicker) Name() string { return "blockchain" }

func (t *BlockchainTicker) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	var raw map[string]struct {
		Last json.Number `json:"last"`
	}
	if err := getJSON(ctx, t.client, t.baseURL, nil, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("blockchain ticker: %w", err)
	}

	entry, ok := raw[t.currency]
	if !ok || entry.Last == "" {
		return decimal.Zero, decodeErr(fmt.Errorf("ticker has no last price for %s", t.currency))
	}
	price, err := decimal.NewFromString(entry.Last.String())
	if err != nil {
		return decimal.Zero, decodeErr(fmt.Errorf("parse ticker price: %w", err))
	}
	return price, nil
}
