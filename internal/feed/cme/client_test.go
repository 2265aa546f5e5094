package cme

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/logger"
)

const basketHTML = `<html><body>
<h1>ZNZ6 Deliverable Grade</h1>
<table>
  <tr><th>Issue</th><th>CUSIP</th><th>Coupon</th><th>Factor</th></tr>
  <tr><td>4.5% Aug 2034</td><td>91282CAB1</td><td>4.500%</td><td>0.9124</td></tr>
  <tr><td>4.0% Nov 2034</td><td>91282CCD2</td><td>4.000%</td><td>0.8831</td></tr>
  <tr><td>duplicate row</td><td>91282CAB1</td><td>4.500%</td><td>0.9124</td></tr>
  <tr><td>no factor here</td><td>91282CEF3</td><td>n/a</td><td>pending</td></tr>
  <tr><td colspan="4">footnote row</td></tr>
</table>
</body></html>`

func testClient(baseURL string) *Client {
	return NewClient(config.CMEConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, logger.Nop())
}

func TestFetchBasket(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(basketHTML))
	}))
	defer server.Close()

	delivery := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	basket, err := testClient(server.URL).FetchBasket(context.Background(), "ZNZ6", contracts.TenorZN, delivery)
	require.NoError(t, err)

	assert.Equal(t, "/deliverables/znz6", gotPath)
	assert.Equal(t, "ZNZ6", basket.Contract)
	assert.Equal(t, contracts.TenorZN, basket.Tenor)
	assert.Equal(t, delivery, basket.DeliveryMonth)

	// Duplicate and unparseable rows drop out.
	require.Len(t, basket.Members, 2)
	assert.Equal(t, contracts.BasketMember{CUSIP: "91282CAB1", ConversionFactor: 0.9124}, basket.Members[0])
	assert.Equal(t, contracts.BasketMember{CUSIP: "91282CCD2", ConversionFactor: 0.8831}, basket.Members[1])
}

func TestFetchBasket_EmptyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><table><tr><th>CUSIP</th></tr></table></body></html>`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchBasket(context.Background(), "ZNZ6", contracts.TenorZN, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no deliverable issues")
}

func TestParseBasketHTML_FactorBounds(t *testing.T) {
	// A "factor" column value outside (0,2) is some other number, for
	// example an outstanding amount; the row must not produce a member.
	html := `<table>
	  <tr><td>91282CAB1</td><td>45000</td></tr>
	  <tr><td>91282CCD2</td><td>0.9124</td></tr>
	</table>`

	members, err := parseBasketHTML(html)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "91282CCD2", members[0].CUSIP)
}
