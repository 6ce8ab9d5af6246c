package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ayo6706/currency-widget/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://v6.exchangerate-api.com/v6"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

var ErrMissingAPIKey = errors.New("exchange rate api key is not configured")

// FetchError reports a failed rate fetch. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	Base       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch rates for %s: status %d: %v", e.Base, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch rates for %s: %v", e.Base, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// latestResponse is the v6 "latest" payload; only the fields we read.
type latestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// ExchangeRateAPI fetches rates from exchangerate-api.com.
type ExchangeRateAPI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewExchangeRateAPI creates a client. A zero timeout selects the default.
func NewExchangeRateAPI(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *ExchangeRateAPI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeRateAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchRates issues GET {base_url}/{api_key}/latest/{base}.
func (c *ExchangeRateAPI) FetchRates(ctx context.Context, base string) (models.RateMap, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, &FetchError{Base: base, Err: ErrMissingAPIKey}
	}

	endpoint := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Base: base, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Base: base, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{Base: base, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))}
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{Base: base, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Result == "error" {
		return nil, &FetchError{Base: base, StatusCode: resp.StatusCode, Err: fmt.Errorf("provider error: %s", payload.ErrorType)}
	}
	if payload.ConversionRates == nil {
		return nil, &FetchError{Base: base, StatusCode: resp.StatusCode, Err: errors.New("response has no conversion_rates")}
	}

	rates := make(models.RateMap, len(payload.ConversionRates))
	for code, rate := range payload.ConversionRates {
		if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			c.logger.Warn("dropping invalid rate", zap.String("base", base), zap.String("code", code), zap.Float64("rate", rate))
			continue
		}
		rates[code] = rate
	}
	return rates, nil
}

var _ RateSource = (*ExchangeRateAPI)(nil)
var _ RateSource = (*MockRateSource)(nil)
