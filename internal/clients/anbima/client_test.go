package anbima_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-bondvol/internal"
	"service-bondvol/internal/clients/anbima"
	"service-bondvol/internal/credentials"
)

func newStore(t *testing.T, creds *credentials.Credentials) *credentials.Store {
	t.Helper()
	store := credentials.NewStore(filepath.Join(t.TempDir(), "anbimaAuth.json"))
	if creds != nil {
		require.NoError(t, store.Save(*creds))
	}
	return store
}

func tokenServer(t *testing.T, calls *atomic.Int64, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		id, secret, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "id-1", id)
		assert.Equal(t, "secret-1", secret)

		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(body))
		require.NoError(t, err)
	}))
}

func TestClient_EnsureToken_Fresh(t *testing.T) {
	var calls atomic.Int64
	server := tokenServer(t, &calls, `{"access_token":"tok-new","expires_in":120}`)
	defer server.Close()

	store := newStore(t, &credentials.Credentials{ClientID: "id-1", ClientSecret: "secret-1"})
	client := anbima.New(store, credentials.Credentials{})
	client.TokenURL = server.URL

	before := time.Now().UTC()
	token, err := client.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
	assert.Equal(t, int64(1), calls.Load())

	// refreshed token is persisted with the safety buffer applied
	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "id-1", creds.ClientID)
	assert.Equal(t, "secret-1", creds.ClientSecret)
	require.NotNil(t, creds.TokenInfo)
	assert.Equal(t, "tok-new", creds.TokenInfo.AccessToken)
	assert.InDelta(t, float64(before.Unix()+120-60), creds.TokenInfo.ExpiresAt, 2)

	// round trip: immediate second call reuses the persisted token
	token, err = client.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
	assert.Equal(t, int64(1), calls.Load())
}

func TestClient_EnsureToken_CachedValid(t *testing.T) {
	var calls atomic.Int64
	server := tokenServer(t, &calls, `{"access_token":"never-used"}`)
	defer server.Close()

	store := newStore(t, &credentials.Credentials{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		TokenInfo: &credentials.TokenInfo{
			AccessToken: "tok-cached",
			ExpiresAt:   float64(time.Now().UTC().Add(10 * time.Minute).Unix()),
		},
	})
	client := anbima.New(store, credentials.Credentials{})
	client.TokenURL = server.URL

	token, err := client.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-cached", token)
	assert.Equal(t, int64(0), calls.Load(), "valid cached token must not hit the network")
}

func TestClient_EnsureToken_ExpiredRefreshes(t *testing.T) {
	var calls atomic.Int64
	server := tokenServer(t, &calls, `{"access_token":"tok-new"}`) // no expires_in: default applies
	defer server.Close()

	store := newStore(t, &credentials.Credentials{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		TokenInfo: &credentials.TokenInfo{
			AccessToken: "tok-old",
			ExpiresAt:   float64(time.Now().UTC().Add(-time.Minute).Unix()),
		},
	})
	client := anbima.New(store, credentials.Credentials{})
	client.TokenURL = server.URL

	before := time.Now().UTC()
	token, err := client.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
	assert.Equal(t, int64(1), calls.Load())

	creds, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, creds.TokenInfo)
	assert.InDelta(t, float64(before.Unix()+3600-60), creds.TokenInfo.ExpiresAt, 2)
}

func TestClient_EnsureToken_MissingFileUsesFallback(t *testing.T) {
	var calls atomic.Int64
	server := tokenServer(t, &calls, `{"access_token":"tok-new","expires_in":3600}`)
	defer server.Close()

	store := newStore(t, nil)
	client := anbima.New(store, credentials.Credentials{ClientID: "id-1", ClientSecret: "secret-1"})
	client.TokenURL = server.URL

	token, err := client.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)

	// the file is created with the fallback credentials preserved
	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "id-1", creds.ClientID)
	assert.Equal(t, "secret-1", creds.ClientSecret)
}

func TestClient_EnsureToken_NoCredentials(t *testing.T) {
	store := newStore(t, nil)
	client := anbima.New(store, credentials.Credentials{})

	_, err := client.EnsureToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials unavailable")
}

func TestClient_EnsureToken_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad credentials"))
	}))
	defer server.Close()

	store := newStore(t, &credentials.Credentials{ClientID: "id-1", ClientSecret: "secret-1"})
	client := anbima.New(store, credentials.Credentials{})
	client.TokenURL = server.URL

	_, err := client.EnsureToken(context.Background())
	require.Error(t, err)

	var authErr *anbima.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, "bad credentials", authErr.Body)
}

// withToken primes the client from a cached, still-valid token so fetch
// tests need no token endpoint.
func withToken(t *testing.T) *anbima.Client {
	t.Helper()
	store := newStore(t, &credentials.Credentials{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		TokenInfo: &credentials.TokenInfo{
			AccessToken: "tok-1",
			ExpiresAt:   float64(time.Now().UTC().Add(10 * time.Minute).Unix()),
		},
	})
	client := anbima.New(store, credentials.Credentials{})
	_, err := client.EnsureToken(context.Background())
	require.NoError(t, err)
	return client
}

func TestClient_MarketByDate_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-09-10", r.URL.Query().Get("data"))
		assert.Equal(t, "id-1", r.Header.Get("client_id"))
		assert.Equal(t, "tok-1", r.Header.Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`[
			{"tipo_titulo":"LTN","data_vencimento":"2030-01-01","taxa_indicativa":"5.0"},
			{"tipo_titulo":"NTN-F","data_vencimento":"2031-01-01","taxa_indicativa":6.1}
		]`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := withToken(t)
	client.BaseURL = server.URL

	records, err := client.MarketByDate(context.Background(), mustDate(t, "2025-09-10"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, internal.LTN, records[0].InstrumentType)
	assert.Equal(t, "2030-01-01", records[0].MaturityDate.String())
	assert.Equal(t, internal.NTNF, records[1].InstrumentType)
}

func TestClient_MarketByDate_SingleObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"tipo_titulo":"LTN","data_vencimento":"2030-01-01","taxa_indicativa":"5.0"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := withToken(t)
	client.BaseURL = server.URL

	records, err := client.MarketByDate(context.Background(), mustDate(t, "2025-09-10"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, internal.LTN, records[0].InstrumentType)
}

func TestClient_MarketByDate_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := withToken(t)
	client.BaseURL = server.URL

	_, err := client.MarketByDate(context.Background(), mustDate(t, "2025-09-10"))
	require.Error(t, err)

	var fetchErr *anbima.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.Equal(t, "upstream down", fetchErr.Body)
	assert.Equal(t, "2025-09-10", fetchErr.Date)
}

func TestClient_MarketByDate_RequiresToken(t *testing.T) {
	store := newStore(t, nil)
	client := anbima.New(store, credentials.Credentials{})

	_, err := client.MarketByDate(context.Background(), mustDate(t, "2025-09-10"))
	require.ErrorIs(t, err, anbima.ErrTokenMissing)
}

func mustDate(t *testing.T, s string) internal.Date {
	t.Helper()
	d, err := internal.ParseDate(s)
	require.NoError(t, err)
	return d
}
