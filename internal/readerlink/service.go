// Package readerlink lists and manages the card readers paired with a
// tenant's Zettle account.
package readerlink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/retry"
	"github.com/BruksfildServices01/salon-platform/internal/zettle"
)

const (
	DefaultTTL      = 60 * time.Second
	DefaultLinkName = "Salon POS"
)

var ErrLinkNotFound = httperr.New(httperr.KindNotFound, "reader_link_not_found")

type API interface {
	ListLinks(ctx context.Context, accessToken string) ([]zettle.Link, error)
	CreateLink(ctx context.Context, accessToken, name string) (*zettle.Link, error)
	DeleteLink(ctx context.Context, accessToken, linkID string) error
}

// Tokens is the slice of the provider service this package needs.
type Tokens interface {
	AccessToken(ctx context.Context, tenantID, kind string) (string, error)
	ForceRefresh(ctx context.Context, tenantID, kind, stale string) (string, error)
	SaveReaderLinks(ctx context.Context, tenantID, kind string, links []models.ReaderLink) error
}

type Service struct {
	api       API
	tokens    Tokens
	cache     Cache
	ttl       time.Duration
	retry     retry.Policy
	onRemoved func(tenantID, linkID string)
	log       logrus.FieldLogger
}

type Option func(*Service)

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) { s.retry = p }
}

// OnRemoved runs after a link is deleted, e.g. to drop its live session.
func OnRemoved(fn func(tenantID, linkID string)) Option {
	return func(s *Service) { s.onRemoved = fn }
}

func NewService(api API, tokens Tokens, log logrus.FieldLogger, opts ...Option) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "readerlink")
	s := &Service{
		api:    api,
		tokens: tokens,
		cache:  NopCache{},
		ttl:    DefaultTTL,
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	if s.retry.Name == "" {
		s.retry = retry.DefaultPolicy("zettle_links", log)
	}
	return s
}

func cacheKey(tenantID string) string {
	return "readerlinks:" + tenantID
}

// List serves from cache when possible.
func (s *Service) List(ctx context.Context, tenantID string) ([]models.ReaderLink, error) {
	if b, ok, err := s.cache.Get(ctx, cacheKey(tenantID)); err != nil {
		s.log.WithError(err).Warn("reader link cache read failed")
	} else if ok {
		var links []models.ReaderLink
		if err := json.Unmarshal(b, &links); err == nil {
			return links, nil
		}
	}
	return s.Refresh(ctx, tenantID)
}

// Refresh always asks Zettle and updates the cache and the stored config.
func (s *Service) Refresh(ctx context.Context, tenantID string) ([]models.ReaderLink, error) {
	raw, err := withToken(ctx, s, tenantID, func(ctx context.Context, token string) ([]zettle.Link, error) {
		return retry.Do(ctx, s.retry, func(ctx context.Context) ([]zettle.Link, error) {
			return s.api.ListLinks(ctx, token)
		})
	})
	if err != nil {
		return nil, upstream(err)
	}

	links := make([]models.ReaderLink, 0, len(raw))
	for _, l := range raw {
		links = append(links, models.ReaderLink{
			LinkID:    l.LinkID,
			LinkName:  l.LinkName,
			CreatedAt: l.CreatedAt,
			Online:    l.Online,
		})
	}

	s.store(ctx, tenantID, links)
	return links, nil
}

func (s *Service) Create(ctx context.Context, tenantID, name string) (*models.ReaderLink, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultLinkName
	}

	link, err := withToken(ctx, s, tenantID, func(ctx context.Context, token string) (*zettle.Link, error) {
		return retry.Do(ctx, s.retry, func(ctx context.Context) (*zettle.Link, error) {
			return s.api.CreateLink(ctx, token, name)
		})
	})
	if err != nil {
		return nil, upstream(err)
	}

	s.invalidate(ctx, tenantID)
	if _, err := s.Refresh(ctx, tenantID); err != nil {
		s.log.WithError(err).WithField("tenant_id", tenantID).Warn("link list refresh after create failed")
	}

	return &models.ReaderLink{LinkID: link.LinkID, LinkName: link.LinkName, CreatedAt: link.CreatedAt}, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, linkID string) error {
	_, err := withToken(ctx, s, tenantID, func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, s.api.DeleteLink(ctx, token, linkID)
	})
	if err != nil {
		var apiErr *zettle.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return ErrLinkNotFound
		}
		return upstream(err)
	}

	if s.onRemoved != nil {
		s.onRemoved(tenantID, linkID)
	}

	s.invalidate(ctx, tenantID)
	if _, err := s.Refresh(ctx, tenantID); err != nil {
		s.log.WithError(err).WithField("tenant_id", tenantID).Warn("link list refresh after delete failed")
	}
	return nil
}

func (s *Service) store(ctx context.Context, tenantID string, links []models.ReaderLink) {
	if b, err := json.Marshal(links); err == nil {
		if err := s.cache.Set(ctx, cacheKey(tenantID), b, s.ttl); err != nil {
			s.log.WithError(err).Warn("reader link cache write failed")
		}
	}
	if err := s.tokens.SaveReaderLinks(ctx, tenantID, models.ProviderZettle, links); err != nil {
		s.log.WithError(err).WithField("tenant_id", tenantID).Warn("could not persist reader links")
	}
}

func (s *Service) invalidate(ctx context.Context, tenantID string) {
	if err := s.cache.Delete(ctx, cacheKey(tenantID)); err != nil {
		s.log.WithError(err).Warn("reader link cache delete failed")
	}
}

// withToken calls fn with the tenant's access token and retries once with a
// refreshed token if Zettle answers 401.
func withToken[T any](
	ctx context.Context,
	s *Service,
	tenantID string,
	fn func(ctx context.Context, token string) (T, error),
) (T, error) {

	var zero T
	token, err := s.tokens.AccessToken(ctx, tenantID, models.ProviderZettle)
	if err != nil {
		return zero, err
	}

	v, err := fn(ctx, token)
	var apiErr *zettle.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return v, err
	}

	s.log.WithField("tenant_id", tenantID).Info("zettle rejected token, refreshing")
	if token, err = s.tokens.ForceRefresh(ctx, tenantID, models.ProviderZettle, token); err != nil {
		return zero, err
	}
	return fn(ctx, token)
}

// upstream maps raw Zettle failures onto the error taxonomy.
func upstream(err error) error {
	var apiErr *zettle.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
		return httperr.Wrap(httperr.KindUpstreamAuth, "session_expired", err)
	case apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500:
		return httperr.Wrap(httperr.KindUpstreamTransient, "provider_unavailable", err)
	default:
		return httperr.Wrap(httperr.KindValidation, "provider_rejected", err)
	}
}
