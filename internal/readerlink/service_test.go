package readerlink

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/logging"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/retry"
	"github.com/BruksfildServices01/salon-platform/internal/zettle"
)

type fakeAPI struct {
	mu        sync.Mutex
	links     []zettle.Link
	lists     int
	listErrs  []error
	validTok  string
	createErr []error
	deleted   []string
}

func (f *fakeAPI) auth(token string) error {
	if f.validTok != "" && token != f.validTok {
		return &zettle.APIError{Op: "x", Status: http.StatusUnauthorized}
	}
	return nil
}

func (f *fakeAPI) ListLinks(_ context.Context, token string) ([]zettle.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if err := f.auth(token); err != nil {
		return nil, err
	}
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}
	return append([]zettle.Link(nil), f.links...), nil
}

func (f *fakeAPI) CreateLink(_ context.Context, token, name string) (*zettle.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.auth(token); err != nil {
		return nil, err
	}
	if len(f.createErr) > 0 {
		err := f.createErr[0]
		f.createErr = f.createErr[1:]
		return nil, err
	}
	l := zettle.Link{LinkID: "new", LinkName: name}
	f.links = append(f.links, l)
	return &l, nil
}

func (f *fakeAPI) DeleteLink(_ context.Context, token, linkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.auth(token); err != nil {
		return err
	}
	for i, l := range f.links {
		if l.LinkID == linkID {
			f.links = append(f.links[:i], f.links[i+1:]...)
			f.deleted = append(f.deleted, linkID)
			return nil
		}
	}
	return &zettle.APIError{Op: "delete link", Status: http.StatusNotFound}
}

type fakeTokens struct {
	token     string
	refreshed int
	saved     []models.ReaderLink
}

func (f *fakeTokens) AccessToken(context.Context, string, string) (string, error) {
	return f.token, nil
}

func (f *fakeTokens) ForceRefresh(_ context.Context, _, _, stale string) (string, error) {
	f.refreshed++
	f.token = stale + "-fresh"
	return f.token, nil
}

func (f *fakeTokens) SaveReaderLinks(_ context.Context, _, _ string, links []models.ReaderLink) error {
	f.saved = links
	return nil
}

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(_ context.Context, k string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[k]
	return b, ok, nil
}

func (c *mapCache) Set(_ context.Context, k string, v []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = v
	return nil
}

func (c *mapCache) Delete(_ context.Context, k string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, k)
	return nil
}

func newService(api *fakeAPI, tokens *fakeTokens, opts ...Option) (*Service, *[]time.Duration) {
	var delays []time.Duration
	p := retry.DefaultPolicy("test", logging.Discard())
	p.Sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	opts = append([]Option{WithRetryPolicy(p), WithCache(&mapCache{m: map[string][]byte{}}, time.Minute)}, opts...)
	return NewService(api, tokens, logging.Discard(), opts...), &delays
}

func TestListIsCached(t *testing.T) {
	api := &fakeAPI{links: []zettle.Link{{LinkID: "l1", LinkName: "Disk"}}}
	tokens := &fakeTokens{token: "tok"}
	svc, _ := newService(api, tokens)
	ctx := context.Background()

	links, err := svc.List(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []models.ReaderLink{{LinkID: "l1", LinkName: "Disk"}}, links)
	assert.Equal(t, links, tokens.saved)

	_, err = svc.List(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, api.lists)

	_, err = svc.Refresh(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.lists)
}

func TestListRetriesRateLimits(t *testing.T) {
	limited := &zettle.APIError{Op: "list links", Status: http.StatusTooManyRequests}
	api := &fakeAPI{listErrs: []error{limited, limited}}
	svc, delays := newService(api, &fakeTokens{token: "tok"})

	_, err := svc.Refresh(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, api.lists)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *delays)
}

func TestListGivesUpAfterRetries(t *testing.T) {
	limited := &zettle.APIError{Op: "list links", Status: http.StatusTooManyRequests}
	api := &fakeAPI{listErrs: []error{limited, limited, limited, limited, limited}}
	svc, delays := newService(api, &fakeTokens{token: "tok"})

	_, err := svc.Refresh(context.Background(), "t1")
	assert.True(t, httperr.IsBusiness(err, "provider_unavailable"))
	assert.Equal(t, 4, api.lists)
	assert.Len(t, *delays, 3)
}

func TestUnauthorizedRefreshesOnce(t *testing.T) {
	api := &fakeAPI{validTok: "tok-fresh", links: []zettle.Link{{LinkID: "l1"}}}
	tokens := &fakeTokens{token: "tok"}
	svc, _ := newService(api, tokens)

	links, err := svc.Refresh(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Equal(t, 1, tokens.refreshed)

	api.validTok = "never"
	_, err = svc.Refresh(context.Background(), "t1")
	assert.True(t, httperr.IsBusiness(err, "session_expired"))
	assert.Equal(t, 2, tokens.refreshed)
}

func TestCreateAndDelete(t *testing.T) {
	api := &fakeAPI{
		links:     []zettle.Link{{LinkID: "l1", LinkName: "Disk"}},
		createErr: []error{&zettle.APIError{Status: http.StatusTooManyRequests}},
	}
	tokens := &fakeTokens{token: "tok"}

	var removed []string
	svc, delays := newService(api, tokens, OnRemoved(func(tenantID, linkID string) {
		removed = append(removed, tenantID+":"+linkID)
	}))
	ctx := context.Background()

	_, err := svc.List(ctx, "t1")
	require.NoError(t, err)

	link, err := svc.Create(ctx, "t1", "  ")
	require.NoError(t, err)
	assert.Equal(t, DefaultLinkName, link.LinkName)
	assert.Equal(t, []time.Duration{2 * time.Second}, *delays)

	links, err := svc.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, links, 2)

	require.NoError(t, svc.Delete(ctx, "t1", "l1"))
	assert.Equal(t, []string{"t1:l1"}, removed)
	assert.Len(t, tokens.saved, 1)

	assert.ErrorIs(t, svc.Delete(ctx, "t1", "l1"), ErrLinkNotFound)
}
