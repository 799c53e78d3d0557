package calendar

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/infra/repository"
	"github.com/BruksfildServices01/salon-platform/internal/logging"
	"github.com/BruksfildServices01/salon-platform/internal/oauth"
	"github.com/BruksfildServices01/salon-platform/internal/testdb"
	"github.com/BruksfildServices01/salon-platform/internal/vault"
)

var tokenNow = time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

type googleIssuer struct {
	refreshes atomic.Int32
	fail      error
	gate      chan struct{}
	expiresIn time.Duration
}

func (g *googleIssuer) AuthorizationURL(subject string) (string, error) {
	st, err := oauth.NewState(subject, tokenNow)
	if err != nil {
		return "", err
	}
	raw, err := oauth.EncodeState(st)
	if err != nil {
		return "", err
	}
	return "https://accounts.example/o/oauth2/auth?state=" + raw, nil
}

func (g *googleIssuer) ExchangeCode(_ context.Context, code string) (*oauth.TokenSet, error) {
	return &oauth.TokenSet{
		AccessToken:  "ya29." + code,
		RefreshToken: "1//" + code,
		ExpiresAt:    tokenNow.Add(g.expiresIn),
	}, nil
}

func (g *googleIssuer) Refresh(_ context.Context, rt string) (*oauth.TokenSet, error) {
	g.refreshes.Add(1)
	if g.gate != nil {
		<-g.gate
	}
	if g.fail != nil {
		return nil, g.fail
	}
	return &oauth.TokenSet{AccessToken: "ya29.fresh", RefreshToken: rt, ExpiresAt: tokenNow.Add(time.Hour)}, nil
}

func newTokenStore(t *testing.T, iss *googleIssuer) (*TokenStore, *repository.CalendarGormRepository) {
	t.Helper()
	v, err := vault.New("calendar-secret")
	require.NoError(t, err)
	repo := repository.NewCalendarGormRepository(testdb.Open(t))

	s := NewTokenStore(repo, v, iss, logging.Discard())
	s.now = func() time.Time { return tokenNow }
	return s, repo
}

func TestTokenStoreCallbackState(t *testing.T) {
	s, _ := newTokenStore(t, &googleIssuer{})

	u, err := s.AuthorizationURL("tenant-a", 7)
	require.NoError(t, err)
	raw := u[len("https://accounts.example/o/oauth2/auth?state="):]

	tenantID, employeeID, err := s.ParseCallbackState(raw)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", tenantID)
	assert.Equal(t, uint(7), employeeID)

	s.now = func() time.Time { return tokenNow.Add(16 * time.Minute) }
	_, _, err = s.ParseCallbackState(raw)
	assert.ErrorIs(t, err, ErrStateExpired)

	for _, subj := range []string{"tenant-a", "tenant-a/", "tenant-a/x", "/7", "tenant-a/0"} {
		_, _, err := parseSubject(subj)
		assert.ErrorIs(t, err, oauth.ErrInvalidState, subj)
	}
}

func TestTokenStoreConnectEncrypts(t *testing.T) {
	s, repo := newTokenStore(t, &googleIssuer{expiresIn: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.Connect(ctx, "t1", 3, "abc"))

	row, err := repo.GetActive(ctx, "t1", 3)
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.abc", row.AccessToken)
	assert.Equal(t, "primary", row.CalendarID)

	tok, err := s.AccessToken(ctx, "t1", 3)
	require.NoError(t, err)
	assert.Equal(t, "ya29.abc", tok)

	_, err = s.AccessToken(ctx, "t1", 4)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTokenStoreRefreshesOnce(t *testing.T) {
	iss := &googleIssuer{expiresIn: time.Minute, gate: make(chan struct{})}
	s, _ := newTokenStore(t, iss)
	ctx := context.Background()
	require.NoError(t, s.Connect(ctx, "t1", 3, "abc"))

	var wg sync.WaitGroup
	tokens := make([]string, 4)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := s.AccessToken(ctx, "t1", 3)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}

	require.Eventually(t, func() bool { return iss.refreshes.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(iss.gate)
	wg.Wait()

	assert.Equal(t, int32(1), iss.refreshes.Load())
	for _, tok := range tokens {
		assert.Equal(t, "ya29.fresh", tok)
	}

	// The refreshed expiry is now beyond the skew.
	tok, err := s.AccessToken(ctx, "t1", 3)
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", tok)
	assert.Equal(t, int32(1), iss.refreshes.Load())
}

func TestTokenStoreRevokedGrantDeactivates(t *testing.T) {
	iss := &googleIssuer{
		expiresIn: time.Minute,
		fail:      httperr.New(httperr.KindUpstreamAuth, "session_expired"),
	}
	s, _ := newTokenStore(t, iss)
	ctx := context.Background()
	require.NoError(t, s.Connect(ctx, "t1", 3, "abc"))

	_, err := s.AccessToken(ctx, "t1", 3)
	assert.True(t, httperr.IsBusiness(err, "session_expired"))

	_, err = s.Connection(ctx, "t1", 3)
	assert.ErrorIs(t, err, ErrNotConnected)

	// Reconnecting reactivates the row.
	iss.expiresIn = time.Hour
	require.NoError(t, s.Connect(ctx, "t1", 3, "def"))
	tok, err := s.AccessToken(ctx, "t1", 3)
	require.NoError(t, err)
	assert.Equal(t, "ya29.def", tok)
}

func TestTokenStoreDisconnect(t *testing.T) {
	s, _ := newTokenStore(t, &googleIssuer{expiresIn: time.Hour})
	ctx := context.Background()

	assert.ErrorIs(t, s.Disconnect(ctx, "t1", 3), ErrNotConnected)

	require.NoError(t, s.Connect(ctx, "t1", 3, "abc"))
	require.NoError(t, s.Disconnect(ctx, "t1", 3))

	_, err := s.AccessToken(ctx, "t1", 3)
	assert.ErrorIs(t, err, ErrNotConnected)
}
