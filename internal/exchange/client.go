package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"holdingsd/internal/domain"
)

// Client signs and sends requests against the exchange REST API.
// One instance is shared across concurrent requests.
type Client struct {
	baseURL    string
	userAgent  string
	creds      *CredentialCache
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, userAgent string, creds *CredentialCache, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

const maxAttempts = 2

// Execute signs and sends one request and returns the decoded JSON body.
// A 401 on the first attempt invalidates the cached credential, forces a
// refetch and retries exactly once; that tolerates a key rotated between
// fetch and use without retry storms against the auth endpoint. Network
// failures are never retried here.
func (c *Client) Execute(ctx context.Context, method, path string, jsonBody interface{}) (interface{}, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body []byte
	if jsonBody != nil {
		b, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = b
	}

	for attempt := 1; ; attempt++ {
		cred, err := c.creds.Get(ctx, attempt > 1)
		if err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, cred, method, path, body)
		if err != nil {
			return nil, &domain.NetworkError{Err: err}
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &domain.NetworkError{Err: err}
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt < maxAttempts {
			c.creds.Invalidate()
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &domain.HTTPError{Status: resp.StatusCode, Body: string(raw)}
		}

		if len(bytes.TrimSpace(raw)) == 0 {
			return map[string]interface{}{}, nil
		}
		var out interface{}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode response body: %w", err)
		}
		return out, nil
	}
}

func (c *Client) send(ctx context.Context, cred CredentialSet, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	ts := c.now().Unix()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-ACCESS-KEY", cred.APIKey)
	req.Header.Set("X-ACCESS-SIGN", Sign(cred.Secret, ts, method, path, body))
	req.Header.Set("X-ACCESS-TIMESTAMP", strconv.FormatInt(ts, 10))
	req.Header.Set("X-ACCESS-PASSPHRASE", cred.Passphrase)

	return c.httpClient.Do(req)
}

// ListAccounts fetches the raw account records, tolerating the response
// shapes the upstream is known to produce: a bare array, or an object
// wrapping the array under "accounts" or "data".
func (c *Client) ListAccounts(ctx context.Context) ([]map[string]interface{}, error) {
	raw, err := c.Execute(ctx, http.MethodGet, "/accounts", nil)
	if err != nil {
		return nil, err
	}

	if list, ok := raw.([]interface{}); ok {
		return recordList(list), nil
	}
	if obj, ok := raw.(map[string]interface{}); ok {
		for _, key := range []string{"accounts", "data"} {
			if list, ok := obj[key].([]interface{}); ok {
				return recordList(list), nil
			}
		}
	}
	return []map[string]interface{}{}, nil
}

func recordList(list []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
