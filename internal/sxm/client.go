// Package sxm implements the session, catalog, and playlist/segment
// translation pipeline that sits between a local HLS player and SiriusXM's
// authenticated web-player REST and CDN endpoints.
package sxm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRestBase = "https://player.siriusxm.com/rest/v2/experience/modules/%s"
	defaultCDNRoot  = "https://siriusxm-priprodlive.akamaized.net"
	userAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/604.5.6 (KHTML, like Gecko) Version/11.0.3 Safari/604.5.6"
)

// Client is the single shared HTTP client (C1): one cookie jar, one
// User-Agent, one rate limiter, no automatic retry. Retry semantics live in
// the session manager and playlist/segment layers, not here. restBase and
// cdnRoot are fields rather than constants so tests can point the client at
// an httptest fake instead of the real SiriusXM hosts.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter

	restBase   string
	cdnRoot    string
	cookieHost *url.URL // host the session cookies are read from (§3)
}

// NewClient builds the shared client with a fresh, empty cookie jar,
// pointed at the real SiriusXM REST and CDN hosts.
func NewClient() (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("sxm: failed to create cookie jar: %w", err)
	}
	cookieHost, err := url.Parse("https://player.siriusxm.com/")
	if err != nil {
		return nil, err
	}
	return &Client{
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		// Bursts of a handful of calls are normal for a single playlist
		// resolution (now-playing + master + variant); sustained load above
		// ~5 req/s toward SiriusXM is almost certainly a retry storm.
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		restBase:   defaultRestBase,
		cdnRoot:    defaultCDNRoot,
		cookieHost: cookieHost,
	}, nil
}

// newTestClient builds a client pointed at an httptest fake instead of the
// real SiriusXM hosts, with its own empty cookie jar and no rate limiting.
// The cookie host is derived from restBase, at the login method's path, so
// cookies the fake server sets on both login and resume (which default to
// those requests' directories) are visible to the session predicates under
// test.
func newTestClient(restBase, cdnRoot string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cookieHost, err := url.Parse(fmt.Sprintf(restBase, "modify/authentication"))
	if err != nil {
		return nil, err
	}
	return &Client{
		http:       &http.Client{Jar: jar},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		restBase:   restBase,
		cdnRoot:    cdnRoot,
		cookieHost: cookieHost,
	}, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, &NetworkError{Op: "rate-limit-wait", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	return resp, nil
}

// restPost issues a POST to the REST module base with a JSON body and
// decodes the moduleListResponse envelope.
func (c *Client) restPost(ctx context.Context, method string, body any) (*moduleListResponse, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("sxm: failed to marshal request for %s: %w", method, err)
	}

	url := fmt.Sprintf(c.restBase, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("sxm: failed to build request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var out moduleListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %s: %v", ErrParse, method, err)
	}
	return &out, resp.StatusCode, nil
}

// restGet issues a GET to the REST module base with query params and
// decodes the moduleListResponse envelope.
func (c *Client) restGet(ctx context.Context, method string, params map[string]string) (*moduleListResponse, error) {
	url := fmt.Sprintf(c.restBase, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sxm: failed to build request for %s: %w", method, err)
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Code: resp.StatusCode, Message: "non-200 on " + method}
	}

	var out moduleListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, method, err)
	}
	return &out, nil
}

// fetchText issues a plain GET (not against the REST module base) and
// returns the raw response, for master/variant playlist and segment fetches.
func (c *Client) fetchText(ctx context.Context, url string, params map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sxm: failed to build request for %s: %w", url, err)
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	return c.do(req)
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readAllBytes(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
