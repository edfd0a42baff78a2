// Package shopify reads the merchant catalog from the Shopify Admin API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/niksmo/catalog-audit/pkg/retry"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIVersion = "2024-01"

	defaultRPS         = 2
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 4
	defaultRetryDelay  = 500 * time.Millisecond
	maxRetryDelay      = 10 * time.Second

	maxPageSize  = 250
	maxErrorBody = 512
	tokenHeader  = "X-Shopify-Access-Token"

	// Shopify rejects a single GraphQL query above 1000 cost points.
	// A product node costs about 5 plus 2 per requested publication.
	queryCostLimit          = 1000
	baseNodeCost            = 5
	publicationCost         = 2
	DefaultGraphQLBatch     = 15
	DefaultPublicationLimit = 10
)

var (
	ErrNoToken          = errors.New("access token is required")
	ErrNoShop           = errors.New("shop or host is required")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrGraphQL          = errors.New("graphql error")
)

// A StatusError is returned for non 2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string

	// Wait is the parsed Retry-After header, zero when absent.
	Wait time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d from %s: %s",
		ErrUnexpectedStatus, e.StatusCode, e.URL, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

func (e *StatusError) RetryAfter() time.Duration {
	return e.Wait
}

func (e *StatusError) temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Config struct {
	// Host overrides https://<shop>.myshopify.com.
	Host              string
	Shop              string
	APIVersion        string
	AccessToken       string
	RequestsPerSecond float64
	Timeout           time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration

	// LinkNamespace and LinkKey address the product link metafield.
	LinkNamespace string
	LinkKey       string

	// GraphQLBatch is the number of products enriched per GraphQL query.
	// It is lowered when the query would exceed the cost limit.
	GraphQLBatch int

	// PublicationLimit is how many sales channels are read per product.
	PublicationLimit int
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	retry   retry.RetryConfig

	linkNamespace string
	linkKey       string
	graphQLBatch  int
	publications  int
}

func New(cfg Config) (*Client, error) {
	const op = "shopify.New"

	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoToken)
	}

	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		if cfg.Shop == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrNoShop)
		}
		host = "https://" + cfg.Shop + ".myshopify.com"
	}

	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	namespace, key := cfg.LinkNamespace, cfg.LinkKey
	if namespace == "" || key == "" {
		namespace, key = "custom", "link"
	}

	publications := cfg.PublicationLimit
	if publications <= 0 {
		publications = DefaultPublicationLimit
	}
	publications = min(publications, maxPageSize)

	return &Client{
		baseURL: host + "/admin/api/" + version,
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry: retry.RetryConfig{
			MaxAttempts: attempts,
			Backoff:     retry.ExponentialBackoff(delay),
			ShouldRetry: shouldRetry,
			MaxDelay:    maxRetryDelay,
		},
		linkNamespace: namespace,
		linkKey:       key,
		graphQLBatch:  graphQLBatch(cfg.GraphQLBatch, publications),
		publications:  publications,
	}, nil
}

type response struct {
	body   []byte
	header http.Header
}

// getJSON decodes the resource at url into v and returns the next page URL.
func (c *Client) getJSON(ctx context.Context, url string, v any) (string, error) {
	res, err := c.send(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(res.body, v); err != nil {
		return "", fmt.Errorf("decode %s: %w", url, err)
	}
	return nextLink(res.header), nil
}

func (c *Client) graphQL(ctx context.Context, req graphQLRequest, data any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	res, err := c.send(ctx, http.MethodPost, c.baseURL+"/graphql.json", body)
	if err != nil {
		return err
	}

	envelope := graphQLResponse[json.RawMessage]{}
	if err := json.Unmarshal(res.body, &envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) != 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(envelope.Data, data); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

func (c *Client) send(
	ctx context.Context, method, url string, body []byte,
) (response, error) {
	return retry.DoWithResult(ctx, c.retry, func() (response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{}, err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return response{}, err
		}
		req.Header.Set(tokenHeader, c.token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return response{}, err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet := b
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			return response{}, &StatusError{
				StatusCode: resp.StatusCode,
				URL:        url,
				Body:       string(snippet),
				Wait:       retryAfter(resp.Header),
			}
		}

		return response{b, resp.Header}, nil
	})
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.temporary()
	}
	return true
}

// graphQLBatch returns the configured batch size, bounded so one
// nodes query stays under the cost limit.
func graphQLBatch(configured, publications int) int {
	batch := configured
	if batch <= 0 {
		batch = DefaultGraphQLBatch
	}
	affordable := queryCostLimit / (baseNodeCost + publicationCost*publications)
	return max(1, min(batch, affordable, maxPageSize))
}

// retryAfter reads Retry-After as seconds. Shopify sends fractional
// values like "2.0".
func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// nextLink extracts the rel="next" URL from a Link header.
func nextLink(h http.Header) string {
	for _, part := range strings.Split(h.Get("Link"), ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		for _, s := range segs[1:] {
			if strings.TrimSpace(s) == `rel="next"` {
				return strings.Trim(strings.TrimSpace(segs[0]), "<>")
			}
		}
	}
	return ""
}
