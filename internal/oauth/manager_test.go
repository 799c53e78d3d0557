package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
)

var fixedNow = time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(tokenURL string) *Manager {
	return NewManager(Config{
		ClientID:       "client-1",
		ClientSecret:   "shh",
		RedirectURL:    "https://app.example.no/api/providers/izettle/callback",
		AuthURL:        "https://oauth.example.com/authorize",
		TokenURL:       tokenURL,
		Scopes:         []string{"READ:PURCHASE", "WRITE:PURCHASE"},
		AccountIDField: "stripe_user_id",
	}, WithClock(func() time.Time { return fixedNow }))
}

func TestStateRoundTrip(t *testing.T) {
	st, err := NewState("tenant-42", fixedNow)
	require.NoError(t, err)

	raw, err := EncodeState(st)
	require.NoError(t, err)

	got, err := ParseState(raw)
	require.NoError(t, err)
	assert.Equal(t, st, got)
	assert.True(t, fixedNow.Equal(got.Issued()))
}

func TestParseStateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "!!!", "bm90LWpzb24", "e30"} {
		_, err := ParseState(raw)
		assert.ErrorIs(t, err, ErrInvalidState, raw)
	}
}

func TestAuthorizationURL(t *testing.T) {
	m := newTestManager("https://oauth.example.com/token")

	raw, err := m.AuthorizationURL("tenant-7")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "oauth.example.com", u.Host)
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "READ:PURCHASE WRITE:PURCHASE", q.Get("scope"))
	assert.Equal(t, "https://app.example.no/api/providers/izettle/callback", q.Get("redirect_uri"))

	st, err := ParseState(q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "tenant-7", st.TenantID)
	assert.NotEmpty(t, st.Nonce)
}

func TestExchangeCodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "shh", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":   "at-1",
			"refresh_token":  "rt-1",
			"token_type":     "bearer",
			"expires_in":     7200,
			"stripe_user_id": "acct_123",
		})
	}))
	defer srv.Close()

	ts, err := newTestManager(srv.URL).ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "at-1", ts.AccessToken)
	assert.Equal(t, "rt-1", ts.RefreshToken)
	assert.Equal(t, "acct_123", ts.AccountID)
	assert.False(t, ts.ExpiresAt.IsZero())
}

func TestExchangeCodeErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, "invalid_authorization_code"},
		{http.StatusUnauthorized, "authentication_failed"},
		{http.StatusForbidden, "insufficient_permissions"},
		{http.StatusInternalServerError, "connection_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			_, err := newTestManager(srv.URL).ExchangeCode(context.Background(), "c")
			require.Error(t, err)
			assert.True(t, httperr.IsBusiness(err, tt.code), "got %v", err)
		})
	}
}

func TestRefreshErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		code   string
		kind   httperr.Kind
	}{
		{http.StatusBadRequest, "session_expired", httperr.KindUpstreamAuth},
		{http.StatusUnauthorized, "session_expired", httperr.KindUpstreamAuth},
		{http.StatusBadGateway, "refresh_failed", httperr.KindUpstreamTransient},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestManager(srv.URL).Refresh(context.Background(), "rt")
			require.Error(t, err)
			assert.True(t, httperr.IsBusiness(err, tt.code), "got %v", err)
			assert.Equal(t, tt.kind, httperr.KindOf(err))
		})
	}
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-old", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-new","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	ts, err := newTestManager(srv.URL).Refresh(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-new", ts.AccessToken)
	assert.Equal(t, "rt-old", ts.RefreshToken)
}

func TestTransportFailureIsNotMappedToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	tokenURL := srv.URL
	srv.Close()

	m := newTestManager(tokenURL)

	_, err := m.ExchangeCode(context.Background(), "c")
	assert.True(t, httperr.IsBusiness(err, "transport_error"), "got %v", err)

	_, err = m.Refresh(context.Background(), "rt")
	assert.True(t, httperr.IsBusiness(err, "transport_error"), "got %v", err)
}

func TestRefreshWithoutTokenIsExpired(t *testing.T) {
	_, err := newTestManager("http://unused").Refresh(context.Background(), "")
	assert.True(t, httperr.IsBusiness(err, "session_expired"))
}
