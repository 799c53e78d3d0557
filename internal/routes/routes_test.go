package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/salon-platform/internal/config"
	"github.com/BruksfildServices01/salon-platform/internal/logging"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/testdb"
)

const secret = "routes-test-secret"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.Open(t)
	require.NoError(t, db.Create(&models.Tenant{ID: "t1", Name: "KS", Subdomain: "ks"}).Error)
	require.NoError(t, db.Create(&models.User{ID: 1, TenantID: "t1", Name: "Kari", Email: "kari@ks.no", PasswordHash: "x", Role: models.RoleOwner}).Error)
	require.NoError(t, db.Create(&models.User{ID: 2, TenantID: "t1", Name: "Per", Email: "per@ks.no", PasswordHash: "x", Role: models.RoleEmployee}).Error)

	cfg := &config.Config{
		JWTSecret:                 secret,
		DefaultCancellationWindow: 24 * time.Hour,
		DefaultMaxReschedules:     2,
	}

	r := gin.New()
	RegisterRoutes(r, db, cfg, Services{}, logging.Discard())
	return r
}

func bearer(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"tenantId": "t1",
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func do(r http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/me", "Bearer not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/me", bearer(t, 1, models.RoleOwner), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"subdomain":"ks"`)
}

func TestOwnerOnlyRoutes(t *testing.T) {
	r := newRouter(t)
	body := `{"name":"KS Frisør"}`

	w := do(r, http.MethodPatch, "/api/me/tenant", bearer(t, 2, models.RoleEmployee), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPatch, "/api/me/tenant", bearer(t, 1, models.RoleOwner), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "KS Frisør")

	// Employees can still read.
	w = do(r, http.MethodGet, "/api/me/tenant", bearer(t, 2, models.RoleEmployee), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBackupsDisabledWithoutArchives(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/me/backups", bearer(t, 1, models.RoleOwner), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "backups_disabled")
}

func TestPublicRoutesResolveTenant(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodGet, "/api/public/ks/services", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/public/nope/services", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/public/bookings/unknown-token", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_token")
}
