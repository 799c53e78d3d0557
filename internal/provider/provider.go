// Package provider manages tenants' OAuth connections to payment providers:
// the callback exchange, encrypted token storage and serialized refresh.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/oauth"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
)

const (
	// RefreshSkew renews access tokens this long before they expire.
	RefreshSkew = 5 * time.Minute
	// StateMaxAge bounds how long a consent round trip may take.
	StateMaxAge = 15 * time.Minute
)

var (
	ErrUnknownProvider = httperr.New(httperr.KindValidation, "unknown_provider")
	ErrNotConnected    = httperr.New(httperr.KindUpstreamAuth, "provider_not_connected")
	ErrStateExpired    = httperr.New(httperr.KindValidation, "state_expired")
)

// Issuer runs the OAuth flows for one provider.
type Issuer interface {
	AuthorizationURL(tenantID string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*oauth.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth.TokenSet, error)
}

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AccountResolver finds the provider account id for a fresh access token when
// the token response does not carry one.
type AccountResolver func(ctx context.Context, accessToken string) (string, error)

type Repository interface {
	Get(ctx context.Context, tenantID, kind string) (*models.PaymentProvider, error)
	Upsert(ctx context.Context, p *models.PaymentProvider) error
	UpdateTokens(ctx context.Context, id uint, accessToken, refreshToken string, expiresAt *time.Time) error
	UpdateConfig(ctx context.Context, id uint, cfg models.ProviderConfig) error
	Delete(ctx context.Context, tenantID, kind string) (bool, error)
}

type Service struct {
	repo      Repository
	cipher    Cipher
	issuers   map[string]Issuer
	resolvers map[string]AccountResolver
	flights   singleflight.Group
	now       func() time.Time
	log       logrus.FieldLogger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithProvider registers the OAuth issuer for kind and, optionally, how to
// resolve its account id.
func WithProvider(kind string, issuer Issuer, resolve AccountResolver) Option {
	return func(s *Service) {
		s.issuers[kind] = issuer
		if resolve != nil {
			s.resolvers[kind] = resolve
		}
	}
}

func NewService(repo Repository, cipher Cipher, log logrus.FieldLogger, opts ...Option) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Service{
		repo:      repo,
		cipher:    cipher,
		issuers:   make(map[string]Issuer),
		resolvers: make(map[string]AccountResolver),
		now:       time.Now,
		log:       log.WithField("component", "provider"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) issuer(kind string) (Issuer, error) {
	iss, ok := s.issuers[kind]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return iss, nil
}

func (s *Service) AuthorizationURL(tenantID, kind string) (string, error) {
	iss, err := s.issuer(kind)
	if err != nil {
		return "", err
	}
	return iss.AuthorizationURL(tenantID)
}

// ParseCallbackState recovers the tenant from a callback state.
func (s *Service) ParseCallbackState(raw string) (oauth.State, error) {
	st, err := oauth.ParseState(raw)
	if err != nil {
		return oauth.State{}, err
	}
	age := s.now().Sub(st.Issued())
	if age < -time.Minute || age > StateMaxAge {
		return oauth.State{}, ErrStateExpired
	}
	return st, nil
}

// Connect exchanges the authorization code and stores the encrypted tokens.
func (s *Service) Connect(
	ctx context.Context,
	tenantID string,
	kind string,
	code string,
) (*models.PaymentProvider, error) {

	iss, err := s.issuer(kind)
	if err != nil {
		return nil, err
	}

	ts, err := iss.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	account := ts.AccountID
	if resolve, ok := s.resolvers[kind]; ok && account == "" {
		if account, err = resolve(ctx, ts.AccessToken); err != nil {
			s.log.WithError(err).WithField("tenant_id", tenantID).Warn("could not resolve provider account")
			account = ""
		}
	}

	access, refresh, err := s.seal(ts)
	if err != nil {
		return nil, err
	}

	p := &models.PaymentProvider{
		TenantID:          tenantID,
		Provider:          kind,
		AccessToken:       access,
		RefreshToken:      refresh,
		TokenExpiresAt:    expiry(ts),
		ProviderAccountID: account,
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "provider": kind}).Info("provider connected")
	return p, nil
}

// Connection returns the stored row without touching its tokens.
func (s *Service) Connection(ctx context.Context, tenantID, kind string) (*models.PaymentProvider, error) {
	p, err := s.repo.Get(ctx, tenantID, kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	return p, nil
}

// AccessToken returns a usable access token, refreshing it first when it is
// about to expire.
func (s *Service) AccessToken(ctx context.Context, tenantID, kind string) (string, error) {
	p, err := s.Connection(ctx, tenantID, kind)
	if err != nil {
		return "", err
	}

	if p.TokenExpiresAt == nil || s.now().Add(RefreshSkew).Before(*p.TokenExpiresAt) {
		return s.cipher.Decrypt(p.AccessToken)
	}

	return s.refreshOnce(ctx, tenantID, kind, "")
}

// ForceRefresh renews after the provider rejected stale. If another caller
// already rotated the token, the stored one is returned instead.
func (s *Service) ForceRefresh(ctx context.Context, tenantID, kind, stale string) (string, error) {
	return s.refreshOnce(ctx, tenantID, kind, stale)
}

func (s *Service) refreshOnce(ctx context.Context, tenantID, kind, stale string) (string, error) {
	key := tenantID + ":" + kind
	v, err, _ := s.flights.Do(key, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), tenantID, kind, stale)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) refresh(ctx context.Context, tenantID, kind, stale string) (string, error) {
	iss, err := s.issuer(kind)
	if err != nil {
		return "", err
	}

	p, err := s.Connection(ctx, tenantID, kind)
	if err != nil {
		return "", err
	}

	current, err := s.cipher.Decrypt(p.AccessToken)
	if err != nil {
		return "", err
	}
	fresh := p.TokenExpiresAt != nil && s.now().Add(RefreshSkew).Before(*p.TokenExpiresAt)
	if stale != "" && current != stale {
		return current, nil
	}
	if stale == "" && fresh {
		return current, nil
	}

	var rt string
	if p.RefreshToken != "" {
		if rt, err = s.cipher.Decrypt(p.RefreshToken); err != nil {
			return "", err
		}
	}

	ts, err := iss.Refresh(ctx, rt)
	obs.TokenRefreshes.WithLabelValues(kind, obs.Outcome(err)).Inc()
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"provider":  kind,
		}).Warn("token refresh failed")
		return "", err
	}

	access, refresh, err := s.seal(ts)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateTokens(ctx, p.ID, access, refresh, expiry(ts)); err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "provider": kind}).Info("access token refreshed")
	return ts.AccessToken, nil
}

func (s *Service) Disconnect(ctx context.Context, tenantID, kind string) error {
	if _, err := s.issuer(kind); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, tenantID, kind)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConnected
	}
	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "provider": kind}).Info("provider disconnected")
	return nil
}

// SaveReaderLinks mirrors the provider's reader links into the config blob.
func (s *Service) SaveReaderLinks(ctx context.Context, tenantID, kind string, links []models.ReaderLink) error {
	p, err := s.Connection(ctx, tenantID, kind)
	if err != nil {
		return err
	}
	cfg := p.Config
	cfg.ReaderLinks = links
	return s.repo.UpdateConfig(ctx, p.ID, cfg)
}

func (s *Service) seal(ts *oauth.TokenSet) (string, string, error) {
	access, err := s.cipher.Encrypt(ts.AccessToken)
	if err != nil {
		return "", "", err
	}
	var refresh string
	if ts.RefreshToken != "" {
		if refresh, err = s.cipher.Encrypt(ts.RefreshToken); err != nil {
			return "", "", err
		}
	}
	return access, refresh, nil
}

func expiry(ts *oauth.TokenSet) *time.Time {
	if ts.ExpiresAt.IsZero() {
		return nil
	}
	t := ts.ExpiresAt.UTC()
	return &t
}
