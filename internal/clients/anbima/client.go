package anbima

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"service-bondvol/internal"
	"service-bondvol/internal/credentials"
)

const (
	defaultTokenURL = "https://api.anbima.com.br/oauth/access-token"
	defaultBaseURL  = "https://api-sandbox.anbima.com.br/feed/precos-indices/v1/titulos-publicos/mercado-secundario-TPF"

	// Daily TPF snapshots run to a few hundred KB in production.
	maxBodyBytes = 4 << 20

	expiryBuffer     = 60 * time.Second
	defaultExpiresIn = 3600
)

// Client talks to the ANBIMA feed API: it keeps a valid access token in
// the credential file and fetches the daily secondary-market snapshot.
type Client struct {
	TokenURL string
	BaseURL  string

	httpClient *http.Client
	store      *credentials.Store
	fallback   credentials.Credentials

	clientID string
	token    string
}

// New builds a client over the given credential store. fallback supplies
// client id/secret when the credential file is missing or unreadable.
func New(store *credentials.Store, fallback credentials.Credentials) *Client {
	return &Client{
		TokenURL: defaultTokenURL,
		BaseURL:  defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				// The token endpoint must not be followed across redirects.
				return http.ErrUseLastResponse
			},
		},
		store:    store,
		fallback: fallback,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// EnsureToken returns a valid access token, reusing the cached one when it
// has not expired and requesting a new one otherwise. A fresh token is
// persisted back to the credential file with the client id and secret
// preserved.
func (c *Client) EnsureToken(ctx context.Context) (string, error) {
	creds, err := c.store.Load()
	if err != nil {
		// Unreadable credential file is not fatal: fall through to a
		// fresh token request with the configured credentials.
		creds = c.fallback
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", fmt.Errorf("client credentials unavailable: %s is unreadable and no fallback is configured", c.store.Path())
	}

	now := time.Now().UTC()
	if creds.TokenInfo.Valid(now) {
		c.clientID = creds.ClientID
		c.token = creds.TokenInfo.AccessToken
		return c.token, nil
	}

	tr, err := c.requestToken(ctx, creds)
	if err != nil {
		return "", err
	}

	expiresIn := tr.ExpiresIn
	if expiresIn == 0 {
		expiresIn = defaultExpiresIn
	}
	creds.TokenInfo = &credentials.TokenInfo{
		AccessToken: tr.AccessToken,
		ExpiresAt:   float64(now.Add(time.Duration(expiresIn)*time.Second - expiryBuffer).Unix()),
	}
	if err := c.store.Save(creds); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	c.clientID = creds.ClientID
	c.token = tr.AccessToken
	return c.token, nil
}

func (c *Client) requestToken(ctx context.Context, creds credentials.Credentials) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("new token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("unmarshal token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response has empty access_token")
	}
	return &tr, nil
}

// MarketByDate fetches the secondary-market snapshot for one reference
// date. The vendor returns either a JSON array of records or a single
// record object; both come back as a slice.
func (c *Client) MarketByDate(ctx context.Context, date internal.Date) ([]internal.MarketRecord, error) {
	if c.token == "" {
		return nil, ErrTokenMissing
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := url.Values{}
	q.Set("data", date.String())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("client_id", c.clientID)
	req.Header.Set("access_token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Date: date.String(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	return decodeRecords(body)
}

func decodeRecords(body []byte) ([]internal.MarketRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []internal.MarketRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("unmarshal record list: %w", err)
		}
		return records, nil
	}

	var record internal.MarketRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return []internal.MarketRecord{record}, nil
}
