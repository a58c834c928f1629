// Package supabase is a minimal PostgREST client for the page records table.
package supabase

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/sw33tLie/wpaudit/pkg/pages"
)

const (
	DefaultTable    = "pages"
	DefaultRetryMax = 3
	DefaultTimeout  = 30 * time.Second

	selectColumns = "id,slug,wp_url,status,review_status"
)

type Config struct {
	URL      string
	Key      string
	Table    string
	Proxy    string
	// RetryMax of 0 means DefaultRetryMax; a negative value disables retries.
	RetryMax int
	Timeout  time.Duration
	// HTTPLogger receives retryablehttp's request logging. Nil = discard.
	HTTPLogger retryablehttp.LeveledLogger
}

// APIError is a non-2xx PostgREST response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: HTTP %d: %s", e.Status, e.Message)
}

type Client struct {
	base  string
	key   string
	table string
	http  *retryablehttp.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Key) == "" {
		return nil, pages.ErrMissingCredentials
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	switch {
	case cfg.RetryMax == 0:
		cfg.RetryMax = DefaultRetryMax
	case cfg.RetryMax < 0:
		cfg.RetryMax = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = cfg.Timeout
	if cfg.HTTPLogger != nil {
		rc.Logger = cfg.HTTPLogger
	} else {
		rc.Logger = nil
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		rc.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		base:  strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + cfg.Table,
		key:   cfg.Key,
		table: cfg.Table,
		http:  rc,
	}, nil
}

// ListQuery renders the PostgREST query string for a filter.
func ListQuery(f pages.Filter) url.Values {
	q := url.Values{}
	q.Set("select", selectColumns)
	q.Set("wp_url", "not.is.null")
	q.Set("order", "slug.asc")
	if f.Status != "" {
		q.Set("status", "eq."+f.Status)
	}
	if len(f.Slugs) > 0 {
		quoted := make([]string, 0, len(f.Slugs))
		for _, s := range f.Slugs {
			quoted = append(quoted, `"`+strings.ReplaceAll(s, `"`, `\"`)+`"`)
		}
		q.Set("slug", "in.("+strings.Join(quoted, ",")+")")
	}
	return q
}

func (c *Client) ListPages(ctx context.Context, f pages.Filter) ([]pages.Page, error) {
	body, err := c.do(ctx, http.MethodGet, c.base+"?"+ListQuery(f).Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("supabase: unexpected response listing %s", c.table)
	}

	var out []pages.Page
	res.ForEach(func(_, row gjson.Result) bool {
		out = append(out, pages.Page{
			ID:           row.Get("id").String(),
			Slug:         row.Get("slug").String(),
			LegacyURL:    row.Get("wp_url").String(),
			Status:       row.Get("status").String(),
			ReviewStatus: row.Get("review_status").String(),
		})
		return true
	})
	return out, nil
}

func (c *Client) UpdatePage(ctx context.Context, id string, p pages.Patch) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err = c.do(ctx, http.MethodPatch, c.base+"?"+q.Encode(), payload, map[string]string{
		"Content-Type": "application/json",
		"Prefer":       "return=minimal",
	})
	return err
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte, headers map[string]string) ([]byte, error) {
	var body interface{}
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(data, "message").String()
		if msg == "" {
			msg = truncateRunes(strings.TrimSpace(string(data)), maxErrorBody)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return data, nil
}

const maxErrorBody = 200

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
