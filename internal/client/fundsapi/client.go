package fundsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Client calls the internal funds platform. Authentication is a static
// cookie plus a crypto-token header issued out of band.
type Client struct {
	baseURL     string
	plEndpoint  string
	cookie      string
	cryptoToken string

	http *http.Client
}

func New(httpClient *http.Client, baseURL, plEndpoint, cookie, cryptoToken string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		plEndpoint:  plEndpoint,
		cookie:      cookie,
		cryptoToken: cryptoToken,
		http:        httpClient,
	}
}

// FetchPL returns the fund PL rows with each row's nested "resultado" payload
// flattened into the row itself.
func (c *Client) FetchPL(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.plEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", c.cookie)
	req.Header.Set("x-crypto-token", c.cryptoToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("funds api http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rows []map[string]any
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("funds api response is not a row array: %w", err)
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, FlattenRow(row))
	}
	return out, nil
}

// detalhesPrefixRE matches the JSON-blob prefix the platform leaks into
// flattened key names.
var detalhesPrefixRE = regexp.MustCompile(`^detalhesJson[._]`)

// FlattenRow merges a row's top-level fields with its nested "resultado"
// payload. Nested keys are joined with underscores and the detalhesJson
// prefix is stripped.
func FlattenRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if k == "resultado" {
			continue
		}
		out[k] = v
	}
	nested := nestedMap(row["resultado"])
	if nested != nil {
		flattenInto(out, "", nested)
	}
	return out
}

// nestedMap accepts the resultado payload either as a decoded object or as a
// JSON string.
func nestedMap(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(x), &m); err == nil {
			return m
		}
	}
	return nil
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenInto(out, key, sub)
			continue
		}
		out[detalhesPrefixRE.ReplaceAllString(key, "")] = v
	}
}
