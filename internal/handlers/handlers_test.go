package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/config"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/infra/repository"
	"github.com/BruksfildServices01/salon-platform/internal/logging"
	"github.com/BruksfildServices01/salon-platform/internal/middleware"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/oauth"
	"github.com/BruksfildServices01/salon-platform/internal/payment"
	"github.com/BruksfildServices01/salon-platform/internal/testdb"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
	"github.com/BruksfildServices01/salon-platform/internal/usecase/appointment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newDispatcher(t *testing.T, db *gorm.DB) *audit.Dispatcher {
	t.Helper()
	d := audit.NewDispatcher(audit.New(db), logging.Discard())
	t.Cleanup(d.Close)
	return d
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// asStaff fakes what AuthMiddleware puts in the context.
func asStaff(tenantID string, userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextTenantID, tenantID)
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, role)
		c.Next()
	}
}

func seedSalon(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Tenant{ID: "t1", Name: "KS Frisør", Subdomain: "ks", Timezone: "Europe/Oslo"}).Error)
	require.NoError(t, db.Create(&models.User{ID: 1, TenantID: "t1", Name: "Kari", Email: "kari@ks.no", PasswordHash: "x", Role: models.RoleOwner}).Error)
	require.NoError(t, db.Create(&models.Service{ID: 1, TenantID: "t1", Name: "Herreklipp", DurationMin: 30, Price: 450, Active: true}).Error)
	// Active has a column default, so false must be written after insert.
	require.NoError(t, db.Create(&models.Service{ID: 2, TenantID: "t1", Name: "Gammel", DurationMin: 30}).Error)
	require.NoError(t, db.Model(&models.Service{}).Where("id = ?", 2).Update("active", false).Error)
	for wd := 0; wd < 7; wd++ {
		require.NoError(t, db.Create(&models.WorkingHours{
			EmployeeID: 1, Weekday: wd, Active: true, StartTime: "09:00", EndTime: "17:00",
		}).Error)
	}
}

// ======================================================
// AUTH
// ======================================================

func newAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db := testdb.Open(t)
	h := NewAuthHandler(db, &config.Config{JWTSecret: "test-secret"}, logging.Discard())
	h.emailDomainOK = func(string) bool { return true }

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r, db
}

func TestRegisterCreatesTenantAndOwner(t *testing.T) {
	r, db := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/auth/register", gin.H{
		"salon_name":      "KS Frisør",
		"salon_subdomain": "KS-Frisor",
		"name":            "Kari",
		"email":           "Kari@KS.no",
		"password":        "hemmelig123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	tenant := body["tenant"].(map[string]any)
	assert.Equal(t, "ks-frisor", tenant["subdomain"])
	assert.Equal(t, timezone.DefaultTimezone, tenant["timezone"])

	var user models.User
	require.NoError(t, db.Where("email = ?", "kari@ks.no").First(&user).Error)
	assert.Equal(t, models.RoleOwner, user.Role)
	assert.Equal(t, tenant["id"], user.TenantID)
	assert.NotEqual(t, "hemmelig123", user.PasswordHash)

	w = doJSON(r, http.MethodPost, "/auth/register", gin.H{
		"salon_name":      "Copy",
		"salon_subdomain": "ks-frisor",
		"name":            "Per",
		"email":           "per@ks.no",
		"password":        "hemmelig123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "subdomain_already_exists", decode(t, w)["error_code"])
}

func TestRegisterRejectsBadSubdomain(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/auth/register", gin.H{
		"salon_name":      "KS",
		"salon_subdomain": "ks frisør!",
		"name":            "Kari",
		"email":           "kari@ks.no",
		"password":        "hemmelig123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_subdomain", decode(t, w)["error_code"])
}

func TestLogin(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/auth/register", gin.H{
		"salon_name":      "KS",
		"salon_subdomain": "ks",
		"name":            "Kari",
		"email":           "kari@ks.no",
		"password":        "hemmelig123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "KARI@ks.no", "password": "hemmelig123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["token"])

	w = doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "kari@ks.no", "password": "feil"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decode(t, w)["error_code"])
}

// ======================================================
// PUBLIC BOOKING
// ======================================================

func newPublicRouter(t *testing.T, now time.Time) (*gin.Engine, *gorm.DB) {
	db := testdb.Open(t)
	seedSalon(t, db)

	deps := appointment.Deps{
		Repo:   repository.NewAppointmentGormRepository(db),
		Audit:  newDispatcher(t, db),
		Policy: domain.Policy{CancellationWindow: 24 * time.Hour, MaxReschedules: 2},
		Now:    func() time.Time { return now },
		Log:    logging.Discard(),
	}
	h := NewPublicHandler(
		db,
		appointment.NewGetAvailability(deps),
		appointment.NewCreateBooking(deps),
		appointment.NewGetBookingByToken(deps),
		appointment.NewCancelBooking(deps),
		appointment.NewRescheduleBooking(deps),
		logging.Discard(),
	)

	r := gin.New()
	r.GET("/public/bookings/:token", h.GetBooking)
	r.POST("/public/bookings/:token/cancel", h.CancelBooking)
	r.POST("/public/bookings/:token/reschedule", h.RescheduleBooking)
	r.GET("/public/:tenant/services", h.ListServices)
	r.GET("/public/:tenant/availability", h.Availability)
	r.POST("/public/:tenant/bookings", h.CreateBooking)
	return r, db
}

func TestPublicServicesListsActiveOnly(t *testing.T) {
	r, _ := newPublicRouter(t, time.Now())

	w := doJSON(r, http.MethodGet, "/public/ks/services", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	services := body["services"].([]any)
	require.Len(t, services, 1)
	assert.Equal(t, "Herreklipp", services[0].(map[string]any)["name"])
	assert.Len(t, body["employees"], 1)

	w = doJSON(r, http.MethodGet, "/public/unknown/services", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicAvailability(t *testing.T) {
	now := time.Date(2030, 1, 7, 8, 0, 0, 0, timezone.Location("Europe/Oslo"))
	r, _ := newPublicRouter(t, now)

	w := doJSON(r, http.MethodGet, "/public/ks/availability?date=2030-01-09&service_id=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["slots"])

	w = doJSON(r, http.MethodGet, "/public/ks/availability?date=2030-01-09", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/public/ks/availability?date=2030-01-09&service_id=1&employee_id=99", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "employee_not_found", decode(t, w)["error_code"])
}

func TestPublicBookingLifecycle(t *testing.T) {
	now := time.Date(2030, 1, 7, 8, 0, 0, 0, timezone.Location("Europe/Oslo"))
	r, db := newPublicRouter(t, now)

	w := doJSON(r, http.MethodPost, "/public/ks/bookings", gin.H{
		"first_name": "Ola",
		"last_name":  "Nordmann",
		"phone":      "+47 912 34 567",
		"service_id": 1,
		"date":       "2030-01-09",
		"time":       "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := decode(t, w)["management_token"].(string)
	require.NotEmpty(t, token)

	w = doJSON(r, http.MethodGet, "/public/bookings/"+token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	details := decode(t, w)
	assert.Equal(t, "Herreklipp", details["service_name"])
	assert.Equal(t, true, details["can_cancel"])

	w = doJSON(r, http.MethodPost, "/public/bookings/"+token+"/reschedule", gin.H{"date": "2030-01-10", "time": "11:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ap models.Appointment
	require.NoError(t, db.Where("management_token = ?", token).First(&ap).Error)
	assert.Equal(t, 1, ap.RescheduleCount)

	w = doJSON(r, http.MethodPost, "/public/bookings/"+token+"/cancel", gin.H{"reason": "syk"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, "/public/bookings/"+token+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_canceled", decode(t, w)["error_code"])

	w = doJSON(r, http.MethodGet, "/public/bookings/not-a-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invalid_token", decode(t, w)["error_code"])
}

func TestPublicBookingConflict(t *testing.T) {
	now := time.Date(2030, 1, 7, 8, 0, 0, 0, timezone.Location("Europe/Oslo"))
	r, _ := newPublicRouter(t, now)

	req := gin.H{
		"first_name": "Ola",
		"phone":      "+4791234567",
		"service_id": 1,
		"date":       "2030-01-09",
		"time":       "10:00",
	}
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/public/ks/bookings", req).Code)

	req["phone"] = "+4798765432"
	w := doJSON(r, http.MethodPost, "/public/ks/bookings", req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "time_conflict", decode(t, w)["error_code"])
}

// ======================================================
// STAFF
// ======================================================

func TestPublicBookingTextLimits(t *testing.T) {
	now := time.Date(2030, 1, 7, 8, 0, 0, 0, timezone.Location("Europe/Oslo"))
	r, db := newPublicRouter(t, now)

	req := gin.H{
		"first_name": "Ola",
		"phone":      "+4791234567",
		"service_id": 1,
		"date":       "2030-01-09",
		"time":       "10:00",
		"notes":      strings.Repeat("n", 300),
	}
	w := doJSON(r, http.MethodPost, "/public/ks/bookings", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["error_code"])

	delete(req, "notes")
	w = doJSON(r, http.MethodPost, "/public/ks/bookings", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := decode(t, w)["management_token"].(string)

	w = doJSON(r, http.MethodPost, "/public/bookings/"+token+"/cancel", gin.H{"reason": strings.Repeat("r", 300)})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["error_code"])

	var ap models.Appointment
	require.NoError(t, db.Where("management_token = ?", token).First(&ap).Error)
	assert.Equal(t, "pending", ap.Status)
}

func TestWorkingHoursValidation(t *testing.T) {
	db := testdb.Open(t)
	h := NewWorkingHoursHandler(db, newDispatcher(t, db))

	r := gin.New()
	r.Use(asStaff("t1", 7, models.RoleEmployee))
	r.GET("/wh", h.Get)
	r.PUT("/wh", h.Update)

	w := doJSON(r, http.MethodPut, "/wh", gin.H{"days": []gin.H{
		{"weekday": 1, "active": true, "start_time": "17:00", "end_time": "09:00"},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_working_hours", decode(t, w)["error_code"])

	w = doJSON(r, http.MethodPut, "/wh", gin.H{"days": []gin.H{
		{"weekday": 1, "active": true, "start_time": "09:00", "end_time": "17:00", "lunch_start": "12:00", "lunch_end": "12:30"},
		{"weekday": 0, "active": false},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, "/wh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hours []models.WorkingHours
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hours))
	require.Len(t, hours, 2)
	assert.Equal(t, 0, hours[0].Weekday)
	assert.Equal(t, uint(7), hours[1].EmployeeID)
}

func TestServicesAreTenantScoped(t *testing.T) {
	db := testdb.Open(t)
	seedSalon(t, db)
	require.NoError(t, db.Create(&models.Service{TenantID: "t2", Name: "Fremmed", DurationMin: 30, Active: true}).Error)

	h := NewServiceHandler(db, newDispatcher(t, db))
	r := gin.New()
	r.Use(asStaff("t1", 1, models.RoleOwner))
	r.GET("/services", h.List)
	r.POST("/services", h.Create)
	r.PATCH("/services/:id", h.Update)

	w := doJSON(r, http.MethodGet, "/services?active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Service
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Herreklipp", list[0].Name)

	w = doJSON(r, http.MethodPost, "/services", gin.H{"name": "Farge", "duration_min": 90, "price": 1200})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var other models.Service
	require.NoError(t, db.Where("tenant_id = ?", "t2").First(&other).Error)
	w = doJSON(r, http.MethodPatch, "/services/"+strconv.FormatUint(uint64(other.ID), 10), gin.H{"name": "Kapret"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ======================================================
// BACKUPS
// ======================================================

func TestBackupsDisabled(t *testing.T) {
	h := NewBackupHandler(nil, nil, logging.Discard())
	r := gin.New()
	r.Use(asStaff("t1", 1, models.RoleOwner))
	r.POST("/backups", h.Create)

	w := doJSON(r, http.MethodPost, "/backups", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "backups_disabled", decode(t, w)["error_code"])
}

// ======================================================
// READERS
// ======================================================

type fakeReaderPayments struct {
	started  payment.StartInput
	stored   *models.Payment
	canceled string
}

func (f *fakeReaderPayments) StartReaderPayment(_ context.Context, tenantID, linkID string, in payment.StartInput) (*models.Payment, error) {
	f.started = in
	return &models.Payment{
		ID:       9,
		TenantID: tenantID,
		Provider: models.ProviderZettle,
		ReaderID: linkID,
		Status:   models.PaymentPending,
	}, nil
}

func (f *fakeReaderPayments) CancelReaderPayment(_ context.Context, _, _, traceID string) error {
	f.canceled = traceID
	return nil
}

func (f *fakeReaderPayments) GetPayment(_ context.Context, tenantID, reference string) (*models.Payment, error) {
	if f.stored == nil || f.stored.Reference != reference || f.stored.TenantID != tenantID {
		return nil, payment.ErrPaymentNotFound
	}
	return f.stored, nil
}

func newReaderRouter(payments ReaderPayments) *gin.Engine {
	h := NewReaderHandler(nil, payments, nil, logging.Discard())
	r := gin.New()
	r.Use(asStaff("t1", 1, models.RoleEmployee))
	r.POST("/readers/:link/payments", h.StartPayment)
	r.GET("/readers/:link/payments/:trace", h.GetPayment)
	r.POST("/readers/:link/payments/:trace/cancel", h.CancelPayment)
	return r
}

func TestReaderStartPayment(t *testing.T) {
	fake := &fakeReaderPayments{}
	r := newReaderRouter(fake)

	w := doJSON(r, http.MethodPost, "/readers/link-1/payments", gin.H{"amount": 450.5, "currency": " nok "})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "link-1", decode(t, w)["reader_id"])
	assert.Equal(t, 450.5, fake.started.Amount)
	assert.Equal(t, "NOK", fake.started.Currency)

	w = doJSON(r, http.MethodPost, "/readers/link-1/payments", gin.H{"currency": "NOK"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReaderGetPaymentChecksLink(t *testing.T) {
	fake := &fakeReaderPayments{stored: &models.Payment{
		ID: 3, TenantID: "t1", Reference: "trace-1", ReaderID: "link-1", Status: models.PaymentInProgress,
	}}
	r := newReaderRouter(fake)

	w := doJSON(r, http.MethodGet, "/readers/link-1/payments/trace-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentInProgress, decode(t, w)["status"])

	w = doJSON(r, http.MethodGet, "/readers/link-2/payments/trace-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "payment_not_found", decode(t, w)["error_code"])

	w = doJSON(r, http.MethodPost, "/readers/link-1/payments/trace-1/cancel", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "trace-1", fake.canceled)
}

// ======================================================
// PROVIDER OAUTH
// ======================================================

type fakeProviders struct {
	connectedTenant string
	connectedCode   string
}

func (f *fakeProviders) AuthorizationURL(tenantID, kind string) (string, error) {
	return "https://auth.example/" + kind + "?t=" + tenantID, nil
}

func (f *fakeProviders) ParseCallbackState(raw string) (oauth.State, error) {
	if raw != "signed" {
		return oauth.State{}, oauth.ErrInvalidState
	}
	return oauth.State{TenantID: "t1"}, nil
}

func (f *fakeProviders) Connect(_ context.Context, tenantID, kind, code string) (*models.PaymentProvider, error) {
	f.connectedTenant = tenantID
	f.connectedCode = code
	return &models.PaymentProvider{ID: 1, TenantID: tenantID, Provider: kind, ProviderAccountID: "org-1"}, nil
}

func (f *fakeProviders) Connection(context.Context, string, string) (*models.PaymentProvider, error) {
	return nil, httperr.New(httperr.KindUpstreamAuth, "provider_not_connected")
}

func (f *fakeProviders) Disconnect(context.Context, string, string) error { return nil }

func TestProviderCallback(t *testing.T) {
	fake := &fakeProviders{}
	h := NewProviderHandler(fake, nil, logging.Discard())
	r := gin.New()
	r.GET("/providers/:kind/callback", h.Callback)

	w := doJSON(r, http.MethodGet, "/providers/izettle/callback?error=access_denied", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "oauth_denied", decode(t, w)["error_code"])

	w = doJSON(r, http.MethodGet, "/providers/izettle/callback?state=signed", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_code", decode(t, w)["error_code"])

	w = doJSON(r, http.MethodGet, "/providers/izettle/callback?code=abc&state=forged", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fake.connectedCode)

	w = doJSON(r, http.MethodGet, "/providers/izettle/callback?code=abc&state=signed", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "t1", fake.connectedTenant)
	assert.Equal(t, "abc", fake.connectedCode)
	assert.Equal(t, "org-1", decode(t, w)["provider_account_id"])
}

func TestProviderListReportsDisconnected(t *testing.T) {
	h := NewProviderHandler(&fakeProviders{}, nil, logging.Discard())
	r := gin.New()
	r.Use(asStaff("t1", 1, models.RoleOwner))
	r.GET("/providers", h.List)

	w := doJSON(r, http.MethodGet, "/providers", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	for _, p := range out {
		assert.Equal(t, false, p["connected"])
	}
}

// ======================================================
// AUDIT LOGS
// ======================================================

func TestAuditLogsPagedAndScoped(t *testing.T) {
	db := testdb.Open(t)
	seedSalon(t, db)

	oslo := timezone.Location("Europe/Oslo")
	uid := uint(1)
	logs := []models.AuditLog{
		{TenantID: "t1", UserID: &uid, Action: "service_created", Entity: "service", CreatedAt: time.Date(2030, 1, 5, 23, 30, 0, 0, oslo).UTC()},
		{TenantID: "t1", UserID: &uid, Action: "service_updated", Entity: "service", CreatedAt: time.Date(2030, 1, 6, 9, 0, 0, 0, oslo).UTC()},
		{TenantID: "t1", Action: "booking_canceled", Entity: "appointment", CreatedAt: time.Date(2030, 1, 6, 12, 0, 0, 0, oslo).UTC()},
		{TenantID: "t2", Action: "service_created", Entity: "service", CreatedAt: time.Date(2030, 1, 6, 10, 0, 0, 0, oslo).UTC()},
	}
	require.NoError(t, db.Create(&logs).Error)

	h := NewAuditLogsHandler(db)
	r := gin.New()
	r.Use(asStaff("t1", 1, models.RoleOwner))
	r.GET("/audit-logs", h.List)

	w := doJSON(r, http.MethodGet, "/audit-logs?entity=service", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 2, body["total"])
	first := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "service_updated", first["action"])

	w = doJSON(r, http.MethodGet, "/audit-logs?from=2030-01-06&to=2030-01-06&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["data"], 1)
	assert.EqualValues(t, 1, body["limit"])

	w = doJSON(r, http.MethodGet, "/audit-logs?from=06.01.2030", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_from", decode(t, w)["error_code"])
}
