// Package fetch retrieves legacy HTML documents.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const (
	DefaultUserAgent = "wpaudit/1.0 (+content parity audit)"
	DefaultTimeout   = 30 * time.Second
)

// Logger abstracts logging so callers can plug in logrus or nothing at all.
type Logger interface {
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

type Config struct {
	UserAgent string
	Timeout   time.Duration
	Proxy     string
	Log       Logger
	// HTTPLogger receives retryablehttp's own request logging. Nil = discard.
	HTTPLogger retryablehttp.LeveledLogger
}

type Document struct {
	URL        string
	FinalURL   string
	StatusCode int
	Title      string
	Body       string
	Elapsed    time.Duration
}

// FetchError is the only error Fetch returns. StatusCode is zero for
// transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Fetcher struct {
	client    *retryablehttp.Client
	userAgent string
	log       Logger
}

func New(cfg Config) (*Fetcher, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}

	client := retryablehttp.NewClient()
	// A failed page is reported, never retried.
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = cfg.Timeout
	if cfg.HTTPLogger != nil {
		client.Logger = cfg.HTTPLogger
	} else {
		client.Logger = nil
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		client.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Fetcher{client: client, userAgent: cfg.UserAgent, log: cfg.Log}, nil
}

// NormalizeURL appends a trailing slash to the path, the legacy server's
// canonical form. Query and fragment are left alone.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if strings.HasSuffix(raw, "/") {
			return raw
		}
		return raw + "/"
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	target := NormalizeURL(rawURL)
	start := time.Now()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		f.log.Warnf("Bad URL %s: %v", target, err)
		return nil, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warnf("Failed to fetch %s: %v", target, err)
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		f.log.Warnf("Failed to fetch %s: HTTP %d", target, resp.StatusCode)
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Warnf("Failed to read %s: %v", target, err)
		return nil, &FetchError{URL: target, Err: err}
	}

	doc := &Document{
		URL:        target,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Elapsed:    time.Since(start),
	}
	if title, ok := getHTMLTitle(doc.Body); ok {
		doc.Title = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}
	f.log.Debugf("Fetched %s (%d bytes, %s)", target, len(body), doc.Elapsed)
	return doc, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(body string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	return traverse(doc)
}
