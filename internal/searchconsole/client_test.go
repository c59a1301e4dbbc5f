package searchconsole

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-123" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"access-abc","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/searchAnalytics/query") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer access-abc" {
			http.Error(w, `{"error":{"code":401,"message":"unauthenticated"}}`, http.StatusUnauthorized)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["startDate"] != "2025-04-03" || req["endDate"] != "2025-05-01" {
			http.Error(w, `{"error":{"code":400,"message":"bad dates"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func testConfig(srv *httptest.Server) Config {
	return Config{
		SiteURL:      "sc-domain:roofquote.example",
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh-123",
		Endpoint:     srv.URL,
		TokenURL:     srv.URL + "/token",
		Timeout:      5 * time.Second,
	}
}

var (
	testStart = time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
)

func TestTopQueries(t *testing.T) {
	t.Parallel()

	srv, tokenCalls := newTestServer(t, http.StatusOK, `{"rows":[
		{"keys":["metal roof cost"],"clicks":3,"impressions":800,"ctr":0.00375,"position":8.2},
		{"keys":[],"clicks":1},
		{"keys":["slate roof cost"],"clicks":1,"impressions":120,"ctr":0.0083,"position":14.5}
	]}`)

	client, err := New(context.Background(), testConfig(srv), nil)
	require.NoError(t, err)

	rows, err := client.TopQueries(context.Background(), testStart, testEnd, 100)
	require.NoError(t, err)
	require.Equal(t, []blog.KeywordRow{
		{Query: "metal roof cost", Clicks: 3, Impressions: 800, CTR: 0.00375, Position: 8.2},
		{Query: "slate roof cost", Clicks: 1, Impressions: 120, CTR: 0.0083, Position: 14.5},
	}, rows)

	_, err = client.TopQueries(context.Background(), testStart, testEnd, 0)
	require.NoError(t, err)
	require.Equal(t, int32(1), tokenCalls.Load(), "access token should be cached")
}

func TestTopQueriesProviderError(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, http.StatusForbidden, `{"error":{"code":403,"message":"User does not have sufficient permission"}}`)
	client, err := New(context.Background(), testConfig(srv), nil)
	require.NoError(t, err)

	_, err = client.TopQueries(context.Background(), testStart, testEnd, 10)
	var pe *blog.ProviderError
	require.True(t, errors.As(err, &pe), "got %v", err)
	require.Equal(t, http.StatusForbidden, pe.StatusCode)
	require.Equal(t, "search_console", pe.Provider)
}

func TestTopQueriesRejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	client, err := New(context.Background(), testConfig(srv), nil)
	require.NoError(t, err)
	_, err = client.TopQueries(context.Background(), testEnd, testStart, 10)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	err := Config{SiteURL: "x", ClientID: "y"}.Validate()
	require.EqualError(t, err, "search console config missing client_secret, refresh_token")
	_, err = New(context.Background(), Config{}, nil)
	require.Error(t, err)
}
