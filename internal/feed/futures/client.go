package futures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/httputil"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Client fetches futures contract chains and calendar-spread quotes from the
// market-data gateway.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a futures quote client with the gateway's rate budget.
func NewClient(cfg config.FuturesConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httputil.New(log, cfg.Timeout).WithRateLimit(cfg.RatePerSec, cfg.RateBurst),
		logger:     log,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type contractDTO struct {
	Symbol        string    `json:"symbol"`
	DeliveryMonth time.Time `json:"delivery_month"`
	Expiry        time.Time `json:"expiry"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	TickSize      float64   `json:"tick_size"`
	QuotedAt      time.Time `json:"quoted_at"`
}

// FetchChain pulls the listed contracts for one tenor, nearest delivery
// first as the gateway returns them.
func (c *Client) FetchChain(ctx context.Context, tenor contracts.TenorTag) ([]contracts.FuturesContract, error) {
	u := fmt.Sprintf("%s/v1/futures/chain?tenor=%s", c.baseURL, url.QueryEscape(string(tenor)))

	resp, err := c.httpClient.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch %s chain: %w", tenor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s chain: unexpected status %d", tenor, resp.StatusCode)
	}

	var dtos []contractDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode %s chain: %w", tenor, err)
	}

	chain := make([]contracts.FuturesContract, 0, len(dtos))
	for _, d := range dtos {
		chain = append(chain, contracts.FuturesContract{
			Symbol:        d.Symbol,
			Tenor:         tenor,
			DeliveryMonth: d.DeliveryMonth,
			Expiry:        d.Expiry,
			Quote: contracts.FuturesQuote{
				Symbol:   d.Symbol,
				Tenor:    tenor,
				Bid:      d.Bid,
				Ask:      d.Ask,
				TickSize: d.TickSize,
				AsOf:     d.QuotedAt,
			},
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"tenor": tenor,
		"count": len(chain),
	}).Debug("Fetched futures chain")

	return chain, nil
}

type spreadDTO struct {
	Bid      float64   `json:"bid"`
	Ask      float64   `json:"ask"`
	QuotedAt time.Time `json:"quoted_at"`
}

// FetchSpread pulls the exchange-listed spread quote for a contract pair.
// The gateway quotes the near-minus-far convention.
func (c *Client) FetchSpread(ctx context.Context, nearSymbol, farSymbol string) (contracts.SpreadQuote, error) {
	u := fmt.Sprintf("%s/v1/futures/spread?near=%s&far=%s",
		c.baseURL, url.QueryEscape(nearSymbol), url.QueryEscape(farSymbol))

	resp, err := c.httpClient.Get(ctx, u)
	if err != nil {
		return contracts.SpreadQuote{}, fmt.Errorf("fetch spread %s/%s: %w", nearSymbol, farSymbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.SpreadQuote{}, fmt.Errorf("spread %s/%s: unexpected status %d", nearSymbol, farSymbol, resp.StatusCode)
	}

	var d spreadDTO
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return contracts.SpreadQuote{}, fmt.Errorf("decode spread %s/%s: %w", nearSymbol, farSymbol, err)
	}

	return contracts.SpreadQuote{
		NearSymbol: nearSymbol,
		FarSymbol:  farSymbol,
		Bid:        d.Bid,
		Ask:        d.Ask,
		AsOf:       d.QuotedAt,
	}, nil
}
