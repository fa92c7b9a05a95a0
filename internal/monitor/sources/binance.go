package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	binanceTickerAPI     = "https://api.binance.com/api/v3/ticker/price"
	defaultBinanceSymbol = "BTCUSDT"
)

type binanceTickerResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Binance fetches the BTC price from the Binance public API.
// USDT is treated as USD.
type Binance struct {
	client  *http.Client
	baseURL string
	symbol  string
}

func NewBinance(baseURL, symbol string, timeout time.Duration) *Binance {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = binanceTickerAPI
	}
	if symbol = strings.TrimSpace(symbol); symbol == "" {
		symbol = defaultBinanceSymbol
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Binance{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		symbol:  strings.ToUpper(symbol),
	}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s?symbol=%s", b.baseURL, url.QueryEscape(b.symbol))

	var ticker binanceTickerResp
	if err := getJSON(ctx, b.client, u, nil, &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("binance API: %w", err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(ticker.Price))
	if err != nil {
		return decimal.Zero, decodeErr(fmt.Errorf("parse binance price: %w", err))
	}
	return price, nil
}
