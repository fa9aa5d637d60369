package polar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const maxResponseBodyBytes int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client executes authenticated requests against the Polar API. It is safe
// for concurrent use: the configuration is immutable and resource clients
// are created exactly once behind a sync.Once guard.
type Client struct {
	config     Config
	httpClient HTTPDoer
	sleep      func(time.Duration)

	customersOnce sync.Once
	customers     *CustomerClient

	productsOnce sync.Once
	products     *ProductClient

	subscriptionsOnce sync.Once
	subscriptions     *SubscriptionClient

	checkoutsOnce sync.Once
	checkouts     *CheckoutClient

	ordersOnce sync.Once
	orders     *OrderClient

	benefitsOnce sync.Once
	benefits     *BenefitClient
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithSleep overrides the backoff sleep between timeout retries. Tests use
// it to fast-forward the exponential delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

func NewClient(cfg Config, options ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := &Client{
		config: cfg,
		sleep:  time.Sleep,
	}
	for _, option := range options {
		option(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return client, nil
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) Customers() *CustomerClient {
	c.customersOnce.Do(func() {
		c.customers = &CustomerClient{client: c}
	})
	return c.customers
}

func (c *Client) Products() *ProductClient {
	c.productsOnce.Do(func() {
		c.products = &ProductClient{client: c}
	})
	return c.products
}

func (c *Client) Subscriptions() *SubscriptionClient {
	c.subscriptionsOnce.Do(func() {
		c.subscriptions = &SubscriptionClient{client: c}
	})
	return c.subscriptions
}

func (c *Client) Checkouts() *CheckoutClient {
	c.checkoutsOnce.Do(func() {
		c.checkouts = &CheckoutClient{client: c}
	})
	return c.checkouts
}

func (c *Client) Orders() *OrderClient {
	c.ordersOnce.Do(func() {
		c.orders = &OrderClient{client: c}
	})
	return c.orders
}

func (c *Client) Benefits() *BenefitClient {
	c.benefitsOnce.Do(func() {
		c.benefits = &BenefitClient{client: c}
	})
	return c.benefits
}

func (c *Client) Get(ctx context.Context, path string, query map[string]any) (map[string]any, error) {
	return c.request(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	return c.request(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Put(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	return c.request(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) Patch(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	return c.request(ctx, http.MethodPatch, path, nil, body)
}

func (c *Client) Delete(ctx context.Context, path string) (map[string]any, error) {
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

// request executes one HTTP call, retrying transport timeouts with an
// exponential backoff of 2^attempt seconds. HTTP error statuses are never
// retried; they map straight onto the typed taxonomy.
func (c *Client) request(
	ctx context.Context,
	method string,
	path string,
	query map[string]any,
	body map[string]any,
) (map[string]any, error) {
	if c == nil || c.httpClient == nil {
		return nil, configurationError("polar: client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempt := 0
	for {
		res, err := c.do(ctx, method, path, query, body)
		if err != nil {
			if !isTimeout(err) {
				return nil, err
			}
			attempt++
			if attempt > c.config.Retries {
				return nil, timeoutExhaustedError(c.config.Retries)
			}
			c.sleep(time.Duration(1<<attempt) * time.Second)
			continue
		}
		return res, nil
	}
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query map[string]any,
	body map[string]any,
) (map[string]any, error) {
	target, err := c.buildURL(path, query)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if body != nil {
		encoded, marshalErr := json.Marshal(compactParams(body))
		if marshalErr != nil {
			return nil, wrapTransportError(marshalErr, "polar: encode request body")
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, wrapTransportError(err, "polar: create http request")
	}
	for key, value := range c.config.headers() {
		req.Header.Set(key, value)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, err
		}
		return nil, wrapTransportError(err, "polar: execute http request")
	}
	defer res.Body.Close()

	return handleResponse(res)
}

func (c *Client) buildURL(path string, query map[string]any) (string, error) {
	base := c.config.Endpoint()
	parsed, err := url.Parse(base + path)
	if err != nil {
		return "", wrapTransportError(err, "polar: invalid request path "+path)
	}
	if len(query) > 0 {
		values := parsed.Query()
		for key, value := range compactParams(query) {
			values.Set(key, fmt.Sprint(value))
		}
		parsed.RawQuery = values.Encode()
	}
	return parsed.String(), nil
}

func handleResponse(res *http.Response) (map[string]any, error) {
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, wrapTransportError(err, "polar: read response body")
	}

	var parsed map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		// Error payloads may be malformed; keep parsed nil and rely on the
		// status-specific default message in that case.
		_ = json.Unmarshal(raw, &parsed)
	}

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		if parsed == nil {
			parsed = map[string]any{}
		}
		return parsed, nil
	}
	return nil, statusError(res.StatusCode, parsed)
}

// compactParams strips nil values and stringifies keys, mirroring what the
// API expects for both query strings and JSON bodies.
func compactParams(params map[string]any) map[string]any {
	compacted := make(map[string]any, len(params))
	for key, value := range params {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		compacted[trimmed] = value
	}
	return compacted
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
