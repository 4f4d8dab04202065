package metabase

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Rows is the decoded body of a card query: a JSON array of row objects.
type Rows []map[string]any

// Filter is one typed card parameter targeting a template-tag variable.
type Filter struct {
	Type   string `json:"type"`
	Value  any    `json:"value"`
	Target []any  `json:"target"`
	ID     string `json:"id,omitempty"`
}

// DateFilter scopes a card query to a single date (YYYY-MM-DD).
func DateFilter(tag string, value string) Filter {
	return Filter{
		Type:   "date/single",
		Value:  value,
		Target: []any{"variable", []any{"template-tag", tag}},
	}
}

// NumberFilter scopes a card query to a list of numeric values.
func NumberFilter(tag string, values ...string) Filter {
	return Filter{
		Type:   "number/=",
		Value:  values,
		Target: []any{"variable", []any{"template-tag", tag}},
	}
}

// dateParamID is the saved parameter id the private cards declare on their
// date filter; the query endpoint rejects the body without it.
const dateParamID = "8df24e4e-e7f5-d6ed-1585-bce1ad69569c"

// Client is a stateful session against the dashboard API. The session cookie
// lives in the HTTP client's jar; on a 401 the client re-authenticates once
// and retries the original request once with identical parameters. It never
// retries beyond that and never backs off.
//
// The session cookie is the only mutable shared state, so a Client must not
// be used by two jobs concurrently without external serialization.
type Client struct {
	baseURL        string
	username       string
	password       string
	publicCardPath string

	http *http.Client

	mu sync.Mutex // serializes the re-login triggered by a 401
}

func New(httpClient *http.Client, baseURL, username, password, publicCardPath string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		httpClient.Jar = jar
	}
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		username:       username,
		password:       password,
		publicCardPath: publicCardPath,
		http:           httpClient,
	}
}

// NewInsecure returns a client that skips TLS certificate verification, for
// dashboards behind self-signed internal certificates.
func NewInsecure(timeout time.Duration, baseURL, username, password, publicCardPath string) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return New(&http.Client{Timeout: timeout, Transport: transport}, baseURL, username, password, publicCardPath)
}

// Login establishes a fresh session. The session cookie is stored in the jar
// as a side effect.
func (c *Client) Login(ctx context.Context) error {
	if c.baseURL == "" {
		return errors.New("metabase base url is empty")
	}
	body, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/session", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("metabase login http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// QueryCard runs a private (session-authenticated) card query. The filter
// payload is form-encoded the way the card query endpoint expects; date
// filters are stamped with the card's saved parameter id.
func (c *Client) QueryCard(ctx context.Context, cardID int, filters ...Filter) (Rows, error) {
	for i := range filters {
		if filters[i].Type == "date/single" && filters[i].ID == "" {
			filters[i].ID = dateParamID
		}
	}
	params, err := json.Marshal(filters)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("parameters", string(params))

	endpoint := fmt.Sprintf("%s/api/card/%d/query/json", c.baseURL, cardID)
	body, err := c.request(ctx, http.MethodPost, endpoint,
		"application/x-www-form-urlencoded;charset=UTF-8", []byte(form.Encode()))
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// QueryPublicCard runs a public card query. No explicit credentials are sent;
// the shared session (and its 401 re-login path) still applies.
func (c *Client) QueryPublicCard(ctx context.Context, cardID int, filters ...Filter) (Rows, error) {
	path := strings.ReplaceAll(c.publicCardPath, "{card_id}", strconv.Itoa(cardID))
	endpoint := c.baseURL + path
	if len(filters) > 0 {
		params, err := json.Marshal(filters)
		if err != nil {
			return nil, err
		}
		q := url.Values{}
		q.Set("parameters", string(params))
		endpoint += "?" + q.Encode()
	}
	body, err := c.request(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// request performs one HTTP call. On a 401 it logs in again and replays the
// request exactly once; every other failure propagates to the caller.
func (c *Client) request(ctx context.Context, method, endpoint, contentType string, body []byte) ([]byte, error) {
	status, b, err := c.doOnce(ctx, method, endpoint, contentType, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.mu.Lock()
		err = c.Login(ctx)
		c.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("metabase re-login after 401: %w", err)
		}
		status, b, err = c.doOnce(ctx, method, endpoint, contentType, body)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("metabase %s %s http %d: %s", method, endpoint, status, strings.TrimSpace(string(b)))
	}
	return b, nil
}

func (c *Client) doOnce(ctx context.Context, method, endpoint, contentType string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, b, nil
}

func decodeRows(body []byte) (Rows, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var rows Rows
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("metabase card response is not a row array: %w", err)
	}
	return rows, nil
}
