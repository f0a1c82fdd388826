package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"holdingsd/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) (*Client, *fakeSource) {
	t.Helper()
	source := &fakeSource{doc: validSecretDoc()}
	creds := NewCredentialCache(source, "cb", 5*time.Minute)
	return NewClient(baseURL, "holdingsd-test/0.1", creds, 2*time.Second), source
}

func TestExecuteSendsSignedHeaders(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)

		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "holdingsd-test/0.1", r.Header.Get("User-Agent"))
		require.Equal(t, "key-1", r.Header.Get("X-ACCESS-KEY"))
		require.Equal(t, "pass-1", r.Header.Get("X-ACCESS-PASSPHRASE"))

		ts, err := strconv.ParseInt(r.Header.Get("X-ACCESS-TIMESTAMP"), 10, 64)
		require.NoError(t, err)
		want := Sign([]byte("top-secret"), ts, r.Method, r.URL.Path, nil)
		require.Equal(t, want, r.Header.Get("X-ACCESS-SIGN"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	out, err := client.Execute(context.Background(), http.MethodGet, "accounts", nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))

	obj, ok := out.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, obj["ok"])
}

func TestExecuteRetriesOnceAfter401(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, source := newTestClient(t, srv.URL)
	_, err := client.Execute(context.Background(), http.MethodGet, "/accounts", nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	// initial fetch plus the forced refresh after the 401
	require.Equal(t, 2, source.calls)
}

func TestExecuteGivesUpAfterSecond401(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	_, err := client.Execute(context.Background(), http.MethodGet, "/accounts", nil)

	var httpErr *domain.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Status)
	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestExecuteDoesNotRetryOtherStatuses(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	_, err := client.Execute(context.Background(), http.MethodGet, "/accounts", nil)

	var httpErr *domain.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
	require.Equal(t, "maintenance", httpErr.Body)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestExecuteWrapsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client, _ := newTestClient(t, srv.URL)
	_, err := client.Execute(context.Background(), http.MethodGet, "/accounts", nil)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestExecuteFailsFastOnBadSecret(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
	}))
	defer srv.Close()

	source := &fakeSource{doc: `{"api_key":"k"}`}
	creds := NewCredentialCache(source, "cb", 5*time.Minute)
	client := NewClient(srv.URL, "holdingsd-test/0.1", creds, 2*time.Second)

	_, err := client.Execute(context.Background(), http.MethodGet, "/accounts", nil)
	var configErr *domain.ConfigError
	require.ErrorAs(t, err, &configErr)
	// no HTTP call is attempted with an invalid credential document
	require.Equal(t, int32(0), atomic.LoadInt32(&attempts))
}

func TestExecuteEmptyBodyBecomesEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	out, err := client.Execute(context.Background(), http.MethodDelete, "/orders/1", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{}, out)
}

func TestListAccountsToleratesResponseShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"currency":"BTC"},{"currency":"ETH"}]`, 2},
		{"accounts wrapper", `{"accounts":[{"currency":"BTC"}]}`, 1},
		{"data wrapper", `{"data":[{"currency":"BTC"}]}`, 1},
		{"unknown shape", `{"message":"hi"}`, 0},
		{"array with junk entries", `[{"currency":"BTC"},42,"x"]`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/accounts", r.URL.Path)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, _ := newTestClient(t, srv.URL)
			accounts, err := client.ListAccounts(context.Background())
			require.NoError(t, err)
			require.Len(t, accounts, tc.want)
		})
	}
}
