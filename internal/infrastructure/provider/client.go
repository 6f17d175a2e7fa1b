// Package provider fetches raw documents from upstream sports data APIs.
package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/sportsdata-producer/internal/platform/cache"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/hashing"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/resilience"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

const (
	defaultTimeout      = 20 * time.Second
	defaultRetryBackoff = time.Second
	maxDocumentBytes    = 6 << 20
)

var errProviderTransient = crerr.New("provider transient failure")

type ClientConfig struct {
	HTTPClient   *http.Client
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// CacheTTL keeps hot documents in memory. Zero disables the cache.
	CacheTTL       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	userAgent      string
	maxRetries     int
	backoff        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	documents      *cache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	var documents *cache.Store
	if cfg.CacheTTL > 0 {
		documents = cache.NewStore(cfg.CacheTTL)
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
	breaker := resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("provider circuit breaker state changed", "from", from, "to", to)
	})

	return &Client{
		httpClient:     httpClient,
		userAgent:      strings.TrimSpace(cfg.UserAgent),
		maxRetries:     max(cfg.MaxRetries, 0),
		backoff:        backoff,
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
		documents:      documents,
	}
}

// Fetch returns the JSON document at rawURL. Concurrent fetches of the same
// url share one request.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	fullURL, err := validateDocumentURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	key := hashing.HashURL(fullURL, false)

	if c.documents != nil {
		if cached, ok := c.documents.Get(ctx, key); ok {
			if raw, ok := cached.([]byte); ok {
				return append([]byte(nil), raw...), nil
			}
		}
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "provider circuit breaker rejected request", "state", c.breaker.State(), "url", fullURL)
			return nil, fmt.Errorf("%w: document provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	out, err, shared := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		c.recordCircuitResult(reqErr)
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	if !sonic.Valid(raw) {
		return nil, fmt.Errorf("provider document is not valid json: url=%s body=%s", fullURL, abbreviateBody(raw))
	}
	if c.documents != nil && !shared {
		c.documents.Set(ctx, key, raw)
	}

	return append([]byte(nil), raw...), nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("provider.url", fullURL),
			attribute.String("provider.request_curl_preview", buildCurlPreview(fullURL, c.userAgent)),
		)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("user-agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errProviderTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errProviderTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: provider document url=%s", usecase.ErrNotFound, fullURL)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errProviderTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		c.logger.DebugContext(ctx, "retrying provider request", "url", fullURL, "attempt", attempt+1, "error", lastErr)
		timer := time.NewTimer(time.Duration(attempt+1) * c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "provider request failed", "url", fullURL, "curl_preview", buildCurlPreview(fullURL, c.userAgent), "error", lastErr)
	return nil, fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, lastErr)
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled {
		return
	}
	if isCircuitFailure(err) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func validateDocumentURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("document url is required")
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return candidate, nil
}

func buildCurlPreview(fullURL, userAgent string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart("-sS")
	appendPart("-H")
	appendPart(shellQuote("Accept: application/json"))
	if userAgent != "" {
		appendPart("-H")
		appendPart(shellQuote("User-Agent: " + userAgent))
	}
	appendPart(shellQuote(fullURL))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errProviderTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
