package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/wpaudit/pkg/pages"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{URL: "https://x.supabase.co"})
	assert.ErrorIs(t, err, pages.ErrMissingCredentials)
	_, err = New(Config{Key: "k"})
	assert.ErrorIs(t, err, pages.ErrMissingCredentials)
}

func TestListQuery(t *testing.T) {
	q := ListQuery(pages.Filter{Status: "live", Slugs: []string{"about-us", "faq"}})
	assert.Equal(t, "not.is.null", q.Get("wp_url"))
	assert.Equal(t, "eq.live", q.Get("status"))
	assert.Equal(t, `in.("about-us","faq")`, q.Get("slug"))
	assert.Equal(t, "slug.asc", q.Get("order"))

	q = ListQuery(pages.Filter{})
	assert.Empty(t, q.Get("status"))
	assert.Empty(t, q.Get("slug"))
}

func TestListPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/pages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "eq.live", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`[
			{"id": 7, "slug": "roller-blinds", "wp_url": "/roller-blinds/", "status": "live", "review_status": null},
			{"id": "b3c1", "slug": "faq", "wp_url": "https://old.example.com/faq", "status": "draft", "review_status": "passed"}
		]`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL + "/", Key: "secret"})
	require.NoError(t, err)

	got, err := c.ListPages(context.Background(), pages.Filter{Status: "live"})
	require.NoError(t, err)
	assert.Equal(t, []pages.Page{
		{ID: "7", Slug: "roller-blinds", LegacyURL: "/roller-blinds/", Status: "live"},
		{ID: "b3c1", Slug: "faq", LegacyURL: "https://old.example.com/faq", Status: "draft", ReviewStatus: "passed"},
	}, got)
}

func TestUpdatePage(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.42", r.URL.Query().Get("id"))
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Key: "k"})
	require.NoError(t, err)

	err = c.UpdatePage(context.Background(), "42", pages.Patch{ReviewNotes: "PASSED", VideoCount: 2, HasVideo: true, UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "PASSED", gotBody["review_notes"])
	assert.Equal(t, float64(2), gotBody["video_count"])
	assert.NotContains(t, gotBody, "review_status")
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"42703","message":"column pages.wp_url does not exist"}`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Key: "k"})
	require.NoError(t, err)

	_, err = c.ListPages(context.Background(), pages.Filter{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "column pages.wp_url does not exist", apiErr.Message)
}

func TestServerErrorsAreRetried(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Key: "k"})
	require.NoError(t, err)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = time.Millisecond

	got, err := c.ListPages(context.Background(), pages.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, hits)
}

func TestNegativeRetryMaxDisablesRetries(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Key: "k", RetryMax: -1})
	require.NoError(t, err)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = time.Millisecond

	_, err = c.ListPages(context.Background(), pages.Filter{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, 1, hits)
}

func TestLongErrorBodyIsCutOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", 150) + strings.Repeat("ü", 150)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Key: "k"})
	require.NoError(t, err)

	_, err = c.ListPages(context.Background(), pages.Filter{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, utf8.ValidString(apiErr.Message))
	assert.Equal(t, 200, utf8.RuneCountInString(apiErr.Message))
	assert.Equal(t, strings.Repeat("é", 150)+strings.Repeat("ü", 50), apiErr.Message)
}
