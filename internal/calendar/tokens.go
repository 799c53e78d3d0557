package calendar

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
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
	refreshSkew = 5 * time.Minute
	stateMaxAge = 15 * time.Minute
)

var (
	ErrNotConnected = httperr.New(httperr.KindNotFound, "calendar_not_connected")
	ErrStateExpired = httperr.New(httperr.KindValidation, "state_expired")
)

// Issuer is implemented by *oauth.Manager configured for Google.
type Issuer interface {
	AuthorizationURL(subject string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*oauth.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth.TokenSet, error)
}

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type ConnectionRepository interface {
	GetActive(ctx context.Context, tenantID string, employeeID uint) (*models.CalendarConnection, error)
	Upsert(ctx context.Context, c *models.CalendarConnection) error
	UpdateTokens(ctx context.Context, id uint, accessToken, refreshToken string, expiresAt *time.Time) error
	Deactivate(ctx context.Context, id uint) error
}

// TokenStore keeps employees' calendar grants encrypted and fresh.
type TokenStore struct {
	repo    ConnectionRepository
	cipher  Cipher
	issuer  Issuer
	flights singleflight.Group
	now     func() time.Time
	log     logrus.FieldLogger
}

func NewTokenStore(repo ConnectionRepository, cipher Cipher, issuer Issuer, log logrus.FieldLogger) *TokenStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TokenStore{
		repo:   repo,
		cipher: cipher,
		issuer: issuer,
		now:    time.Now,
		log:    log.WithField("component", "calendar_tokens"),
	}
}

// The consent state identifies the employee as "tenant/employee".
func subject(tenantID string, employeeID uint) string {
	return fmt.Sprintf("%s/%d", tenantID, employeeID)
}

func parseSubject(s string) (string, uint, error) {
	i := strings.LastIndex(s, "/")
	if i <= 0 {
		return "", 0, oauth.ErrInvalidState
	}
	id, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil || id == 0 {
		return "", 0, oauth.ErrInvalidState
	}
	return s[:i], uint(id), nil
}

func (s *TokenStore) AuthorizationURL(tenantID string, employeeID uint) (string, error) {
	return s.issuer.AuthorizationURL(subject(tenantID, employeeID))
}

// ParseCallbackState returns the tenant and employee the consent was for.
func (s *TokenStore) ParseCallbackState(raw string) (string, uint, error) {
	st, err := oauth.ParseState(raw)
	if err != nil {
		return "", 0, err
	}
	age := s.now().Sub(st.Issued())
	if age < -time.Minute || age > stateMaxAge {
		return "", 0, ErrStateExpired
	}
	return parseSubject(st.TenantID)
}

func (s *TokenStore) Connect(ctx context.Context, tenantID string, employeeID uint, code string) error {
	ts, err := s.issuer.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}

	access, refresh, err := s.seal(ts)
	if err != nil {
		return err
	}

	c := &models.CalendarConnection{
		TenantID:       tenantID,
		EmployeeID:     employeeID,
		Provider:       "google",
		CalendarID:     "primary",
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: expiry(ts),
		Active:         true,
	}
	if err := s.repo.Upsert(ctx, c); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "employee_id": employeeID}).Info("calendar connected")
	return nil
}

func (s *TokenStore) Connection(ctx context.Context, tenantID string, employeeID uint) (*models.CalendarConnection, error) {
	c, err := s.repo.GetActive(ctx, tenantID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	return c, nil
}

// AccessToken returns a usable token for the employee's calendar, refreshing
// it when it is about to expire. A grant the provider no longer honours is
// deactivated.
func (s *TokenStore) AccessToken(ctx context.Context, tenantID string, employeeID uint) (string, error) {
	c, err := s.Connection(ctx, tenantID, employeeID)
	if err != nil {
		return "", err
	}
	if c.TokenExpiresAt == nil || s.now().Add(refreshSkew).Before(*c.TokenExpiresAt) {
		return s.cipher.Decrypt(c.AccessToken)
	}

	v, err, _ := s.flights.Do(subject(tenantID, employeeID), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), c)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *TokenStore) refresh(ctx context.Context, c *models.CalendarConnection) (string, error) {
	var rt string
	if c.RefreshToken != "" {
		var err error
		if rt, err = s.cipher.Decrypt(c.RefreshToken); err != nil {
			return "", err
		}
	}

	log := s.log.WithFields(logrus.Fields{"tenant_id": c.TenantID, "employee_id": c.EmployeeID})

	ts, err := s.issuer.Refresh(ctx, rt)
	obs.TokenRefreshes.WithLabelValues("google", obs.Outcome(err)).Inc()
	if err != nil {
		if httperr.KindOf(err) == httperr.KindUpstreamAuth {
			if derr := s.repo.Deactivate(ctx, c.ID); derr != nil {
				log.WithError(derr).Error("failed to deactivate calendar connection")
			}
			log.Warn("calendar grant revoked, connection deactivated")
		}
		return "", err
	}

	access, refresh, err := s.seal(ts)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateTokens(ctx, c.ID, access, refresh, expiry(ts)); err != nil {
		return "", err
	}

	log.Info("calendar token refreshed")
	return ts.AccessToken, nil
}

func (s *TokenStore) Disconnect(ctx context.Context, tenantID string, employeeID uint) error {
	c, err := s.Connection(ctx, tenantID, employeeID)
	if err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, c.ID)
}

func (s *TokenStore) seal(ts *oauth.TokenSet) (string, string, error) {
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
