package cme

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/httputil"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Client fetches deliverable-basket publications. The exchange publishes one
// page per contract listing the eligible issues and their conversion
// factors; baskets and factors are fixed for a contract's life, so callers
// cache aggressively.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a basket publication client.
func NewClient(cfg config.CMEConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httputil.New(log, cfg.Timeout),
		logger:     log,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

var cusipRe = regexp.MustCompile(`^[0-9A-Z]{9}$`)

// FetchBasket pulls and parses the deliverable basket for one contract.
func (c *Client) FetchBasket(ctx context.Context, contract string, tenor contracts.TenorTag, deliveryMonth time.Time) (*contracts.DeliveryBasket, error) {
	url := fmt.Sprintf("%s/deliverables/%s", c.baseURL, strings.ToLower(contract))

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch basket %s: %w", contract, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("basket %s: unexpected status %d", contract, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read basket %s: %w", contract, err)
	}

	members, err := parseBasketHTML(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse basket %s: %w", contract, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("basket %s: no deliverable issues found", contract)
	}

	c.logger.WithFields(map[string]interface{}{
		"contract": contract,
		"members":  len(members),
	}).Debug("Fetched deliverable basket")

	return &contracts.DeliveryBasket{
		Contract:      contract,
		Tenor:         tenor,
		DeliveryMonth: deliveryMonth,
		Members:       members,
	}, nil
}

// parseBasketHTML extracts (CUSIP, conversion factor) rows from the
// publication table. Rows are identified by shape, not position: a nine
// character CUSIP cell followed somewhere right of it by a factor between
// 0 and 2.
func parseBasketHTML(html string) ([]contracts.BasketMember, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var members []contracts.BasketMember
	seen := make(map[string]bool)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		var cusip string
		var factor float64

		cells.Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			if cusip == "" && cusipRe.MatchString(text) {
				cusip = text
				return
			}
			if cusip != "" && factor == 0 {
				if v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64); err == nil && v > 0 && v < 2 {
					factor = v
				}
			}
		})

		if cusip == "" || factor == 0 || seen[cusip] {
			return
		}
		seen[cusip] = true
		members = append(members, contracts.BasketMember{
			CUSIP:            cusip,
			ConversionFactor: factor,
		})
	})

	return members, nil
}
