// Package extract abstracts the external structured-extraction service that
// turns a product page into price, shipping, stock and seller fields.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// Result is one successful extraction of a product page.
type Result struct {
	Price    decimal.Decimal
	Shipping decimal.Decimal
	Stock    domain.StockStatus
	Seller   string
}

// Client is the extraction call boundary. Implementations must classify
// failures with the domain sentinel errors so the retry policy can tell
// transient from permanent ones.
type Client interface {
	Extract(ctx context.Context, pageRef string) (Result, error)
}

// requestedFields is the fixed field set every extraction asks for.
var requestedFields = []string{"price", "shipping", "stock", "seller"}

// HTTPClient calls the extraction service over HTTP.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates an extraction client for the service at baseURL.
// timeout bounds each individual call; exceeding it is a transient failure.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type extractRequest struct {
	PageReference   string   `json:"page_reference"`
	RequestedFields []string `json:"requested_fields"`
}

type extractResponse struct {
	Price    *flexDecimal `json:"price"`
	Shipping flexDecimal  `json:"shipping"`
	Stock    string       `json:"stock"`
	Seller   string       `json:"seller"`
}

// Extract requests structured price data for the page reference.
func (c *HTTPClient) Extract(ctx context.Context, pageRef string) (Result, error) {
	body, err := json.Marshal(extractRequest{
		PageReference:   pageRef,
		RequestedFields: requestedFields,
	})
	if err != nil {
		return Result{}, fmt.Errorf("extract: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("extract: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Result{}, fmt.Errorf("extract %s: %w", pageRef, domain.ErrExtractTimeout)
		}
		return Result{}, fmt.Errorf("extract %s: %w: %v", pageRef, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return Result{}, fmt.Errorf("extract %s: %w", pageRef, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, fmt.Errorf("extract %s: %w", pageRef, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return Result{}, fmt.Errorf("extract %s: %w: status %d", pageRef, domain.ErrUnavailable, resp.StatusCode)
	default:
		return Result{}, fmt.Errorf("extract %s: %w: status %d", pageRef, domain.ErrMalformedSchema, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: read response: %w", pageRef, domain.ErrUnavailable)
	}

	var payload extractResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, fmt.Errorf("extract %s: %w: %v", pageRef, domain.ErrMalformedSchema, err)
	}
	if payload.Price == nil {
		return Result{}, fmt.Errorf("extract %s: %w: missing price", pageRef, domain.ErrMalformedSchema)
	}
	price := payload.Price.Decimal
	if price.Sign() < 0 || payload.Shipping.Decimal.Sign() < 0 {
		return Result{}, fmt.Errorf("extract %s: %w: negative amount", pageRef, domain.ErrMalformedSchema)
	}

	return Result{
		Price:    price,
		Shipping: payload.Shipping.Decimal,
		Stock:    domain.ParseStockStatus(strings.ToLower(strings.TrimSpace(payload.Stock))),
		Seller:   strings.TrimSpace(payload.Seller),
	}, nil
}

// flexDecimal decodes a JSON number or a string ("3.99", "free", "") into a
// decimal; the extraction service reports shipping either way.
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(raw), "$"))
		if raw == "" || raw == "free" {
			f.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%w: shipping %q", domain.ErrMalformedSchema, raw)
		}
		f.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: amount %q", domain.ErrMalformedSchema, s)
	}
	f.Decimal = d
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
