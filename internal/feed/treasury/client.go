package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/httputil"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Client fetches cash Treasury quote snapshots from the market-data gateway.
// All Treasury quote requests go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a Treasury quote client with the gateway's rate budget.
func NewClient(cfg config.TreasuryConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httputil.New(log, cfg.Timeout).WithRateLimit(cfg.RatePerSec, cfg.RateBurst),
		logger:     log,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// quoteDTO is one record in the gateway's snapshot payload.
type quoteDTO struct {
	CUSIP      string     `json:"cusip"`
	IssueType  string     `json:"issue_type"`
	Maturity   *time.Time `json:"maturity,omitempty"`
	Coupon     *float64   `json:"coupon,omitempty"`
	CleanPrice *float64   `json:"clean_price,omitempty"`
	QuotedAt   time.Time  `json:"quoted_at"`
	Quality    string     `json:"quality"`
}

type snapshotDTO struct {
	AsOf   time.Time  `json:"as_of"`
	Quotes []quoteDTO `json:"quotes"`
}

// Snapshot is one pull of the full quote universe.
type Snapshot struct {
	AsOf   time.Time
	Quotes []contracts.RawQuote
}

// FetchSnapshot pulls the current quote universe. Records are passed through
// as-is; validation belongs to the normalizer.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	url := c.baseURL + "/v1/treasury/quotes"

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch treasury quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("treasury quotes: unexpected status %d", resp.StatusCode)
	}

	var payload snapshotDTO
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode treasury quotes: %w", err)
	}

	snap := &Snapshot{
		AsOf:   payload.AsOf,
		Quotes: make([]contracts.RawQuote, 0, len(payload.Quotes)),
	}
	for _, q := range payload.Quotes {
		snap.Quotes = append(snap.Quotes, contracts.RawQuote{
			CUSIP:      q.CUSIP,
			Type:       contracts.IssueType(strings.ToUpper(q.IssueType)),
			Maturity:   q.Maturity,
			Coupon:     q.Coupon,
			CleanPrice: q.CleanPrice,
			AsOf:       q.QuotedAt,
			Quality:    parseQuality(q.Quality),
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"as_of": snap.AsOf,
		"count": len(snap.Quotes),
	}).Debug("Fetched treasury quote snapshot")

	return snap, nil
}

// parseQuality maps the gateway's quality label. Unknown labels grade down
// to indicative rather than failing the whole snapshot.
func parseQuality(s string) contracts.QualityFlag {
	switch strings.ToUpper(s) {
	case "FIRM":
		return contracts.QualityFirm
	case "DELAYED":
		return contracts.QualityDelayed
	default:
		return contracts.QualityIndicative
	}
}
