// Package oauth runs the authorization-code and refresh flows against payment
// and calendar providers. Nothing here is persisted.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string

	// AccountIDField names a token response field holding the provider account
	// id, e.g. "stripe_user_id". Empty when the provider has none.
	AccountIDField string

	// AuthParams are appended to the authorization URL (access_type=offline, ...).
	AuthParams map[string]string
}

type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	ExpiresAt    time.Time
	AccountID    string
}

type Manager struct {
	cfg    oauth2.Config
	extra  Config
	client *http.Client
	now    func() time.Time
}

type Option func(*Manager)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		extra:  cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// AuthorizationURL builds the consent URL with a state bound to tenantID.
func (m *Manager) AuthorizationURL(tenantID string) (string, error) {
	st, err := NewState(tenantID, m.now())
	if err != nil {
		return "", err
	}
	raw, err := EncodeState(st)
	if err != nil {
		return "", err
	}

	opts := make([]oauth2.AuthCodeOption, 0, len(m.extra.AuthParams))
	for k, v := range m.extra.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return m.cfg.AuthCodeURL(raw, opts...), nil
}

// ExchangeCode trades an authorization code for tokens in a single request.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	tok, err := m.cfg.Exchange(m.withClient(ctx), code)
	if err != nil {
		return nil, m.classify(err, exchangeCode)
	}
	return m.tokenSet(tok), nil
}

// Refresh uses a refresh token to obtain a new access token.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, httperr.New(httperr.KindUpstreamAuth, "session_expired")
	}

	src := m.cfg.TokenSource(m.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, m.classify(err, refreshCode)
	}

	ts := m.tokenSet(tok)
	if ts.RefreshToken == "" {
		ts.RefreshToken = refreshToken
	}
	return ts, nil
}

func (m *Manager) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

func (m *Manager) tokenSet(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if !tok.Expiry.IsZero() {
		ts.ExpiresIn = int64(math.Round(tok.Expiry.Sub(m.now()).Seconds()))
	}
	if f := m.extra.AccountIDField; f != "" {
		if v, ok := tok.Extra(f).(string); ok {
			ts.AccountID = v
		}
	}
	return ts
}

type flow int

const (
	exchangeCode flow = iota
	refreshCode
)

func (m *Manager) classify(err error, f flow) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return httperr.Wrap(kindFor(re.Response.StatusCode, f), codeFor(re.Response.StatusCode, f), err)
	}

	var ue *url.Error
	var ne net.Error
	if errors.As(err, &ue) || errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return httperr.Wrap(httperr.KindUpstreamTransient, "transport_error", err)
	}

	if f == refreshCode {
		return httperr.Wrap(httperr.KindUpstreamTransient, "refresh_failed", err)
	}
	return httperr.Wrap(httperr.KindUpstreamTransient, "connection_failed", fmt.Errorf("token exchange: %w", err))
}

func codeFor(status int, f flow) string {
	if f == refreshCode {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return "session_expired"
		}
		return "refresh_failed"
	}

	switch status {
	case http.StatusBadRequest:
		return "invalid_authorization_code"
	case http.StatusUnauthorized:
		return "authentication_failed"
	case http.StatusForbidden:
		return "insufficient_permissions"
	default:
		return "connection_failed"
	}
}

func kindFor(status int, f flow) httperr.Kind {
	switch {
	case f == exchangeCode && status == http.StatusBadRequest:
		return httperr.KindValidation
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusForbidden:
		return httperr.KindUpstreamAuth
	default:
		return httperr.KindUpstreamTransient
	}
}
