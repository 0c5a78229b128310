// Package bandclient reads reference prices from a Band Protocol REST endpoint.
package bandclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/pkg/decimals"
	"github.com/gaze-network/ido-ledger/pkg/httpclient"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	DefaultTimeout = 10 * time.Second
	pricesPath     = "/oracle/v1/request_prices"
)

type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Debug   bool          `mapstructure:"debug"`
}

type Client struct {
	client *httpclient.Client
}

func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "band url is required")
	}
	client, err := httpclient.New(config.URL, httpclient.Config{
		Debug:   config.Debug,
		Timeout: utils.Default(config.Timeout, DefaultTimeout),
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create http client")
	}
	return &Client{client: client}, nil
}

type priceResult struct {
	Symbol     string `json:"symbol"`
	Multiplier string `json:"multiplier"`
	Px         string `json:"px"`
}

type requestPricesResponse struct {
	PriceResults []priceResult `json:"price_results"`
}

func (r priceResult) price() (decimal.Decimal, error) {
	px, err := decimal.NewFromString(r.Px)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid price of %s", r.Symbol)
	}
	multiplier, err := decimal.NewFromString(r.Multiplier)
	if err != nil || multiplier.IsZero() {
		return decimal.Zero, errors.Errorf("invalid multiplier of %s: %q", r.Symbol, r.Multiplier)
	}
	return px.Div(multiplier), nil
}

// Rate returns the price of one base unit in quote units, scaled by 10^18.
// USD is always worth 1.
func (c *Client) Rate(ctx context.Context, base, quote string) (uint128.Uint128, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	symbols := lo.Filter([]string{base, quote}, func(s string, _ int) bool { return s != "USD" })
	prices := map[string]decimal.Decimal{"USD": decimal.NewFromInt(1)}

	if len(symbols) > 0 {
		resp, err := c.client.Get(ctx, pricesPath, httpclient.RequestOptions{
			Query: url.Values{"symbols": lo.Uniq(symbols)},
		})
		if err != nil {
			return uint128.Zero, errors.Wrap(err, "can't request prices")
		}
		if resp.StatusCode() != http.StatusOK {
			return uint128.Zero, errors.Errorf("unexpected status code %d from band", resp.StatusCode())
		}
		var body requestPricesResponse
		if err := resp.UnmarshalBody(&body); err != nil {
			return uint128.Zero, errors.WithStack(err)
		}
		for _, r := range body.PriceResults {
			price, err := r.price()
			if err != nil {
				return uint128.Zero, errors.WithStack(err)
			}
			prices[strings.ToUpper(r.Symbol)] = price
		}
	}

	basePrice, ok := prices[base]
	if !ok {
		return uint128.Zero, errors.Wrapf(errs.NotFound, "price of %s", base)
	}
	quotePrice, ok := prices[quote]
	if !ok || quotePrice.IsZero() {
		return uint128.Zero, errors.Wrapf(errs.NotFound, "price of %s", quote)
	}
	rate, err := decimals.RateFromDecimal(basePrice.Div(quotePrice))
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	return rate, nil
}
