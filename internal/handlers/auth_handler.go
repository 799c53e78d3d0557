package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/config"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/ids"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
	"github.com/BruksfildServices01/salon-platform/internal/validators"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

type AuthHandler struct {
	db     *gorm.DB
	config *config.Config
	log    logrus.FieldLogger

	// emailDomainOK is swapped out in tests to avoid DNS lookups.
	emailDomainOK func(string) bool
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		db:            db,
		config:        cfg,
		log:           log,
		emailDomainOK: validators.IsEmailDomainValid,
	}
}

// --------- Requests ---------

type RegisterRequest struct {
	SalonName      string `json:"salon_name" binding:"required"`
	SalonSubdomain string `json:"salon_subdomain" binding:"required"`
	SalonPhone     string `json:"salon_phone"`
	SalonAddress   string `json:"salon_address"`
	SalonTimezone  string `json:"salon_timezone"`

	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// --------- Handlers ---------

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	subdomain := strings.ToLower(strings.TrimSpace(req.SalonSubdomain))
	if !subdomainPattern.MatchString(subdomain) {
		httperr.BadRequest(c, "invalid_subdomain", "Ugyldig subdomene.")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !h.emailDomainOK(email) {
		httperr.BadRequest(c, "invalid_email_domain", "E-postdomenet ser ikke ut til å være gyldig.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Noe gikk galt.")
		return
	}

	tz := req.SalonTimezone
	if !timezone.IsValid(tz) {
		tz = timezone.DefaultTimezone
	}

	tenant := models.Tenant{
		ID:        ids.New(),
		Name:      strings.TrimSpace(req.SalonName),
		Subdomain: subdomain,
		Phone:     req.SalonPhone,
		Address:   req.SalonAddress,
		Email:     email,
		Timezone:  tz,
	}

	user := models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hashed),
		Phone:        req.Phone,
		Role:         models.RoleOwner,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Tenant{}).Where("subdomain = ?", subdomain).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return httperr.ErrBusiness("subdomain_already_exists")
		}

		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return httperr.ErrBusiness("email_already_exists")
		}

		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		user.TenantID = tenant.ID
		return tx.Omit("Tenant").Create(&user).Error
	})
	if err != nil {
		switch {
		case httperr.IsBusiness(err, "subdomain_already_exists"):
			httperr.Write(c, http.StatusConflict, "subdomain_already_exists", "Subdomenet er allerede i bruk.")
		case httperr.IsBusiness(err, "email_already_exists"), httperr.IsUniqueViolation(err):
			httperr.Write(c, http.StatusConflict, "email_already_exists", "E-postadressen er allerede registrert.")
		default:
			h.log.WithError(err).Error("register failed")
			httperr.Internal(c, "failed_to_register", "Kunne ikke opprette salongen.")
		}
		return
	}

	token, err := h.generateToken(&user)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Noe gikk galt.")
		return
	}

	h.log.WithFields(logrus.Fields{"tenant_id": tenant.ID, "subdomain": subdomain}).Info("tenant registered")

	c.JSON(http.StatusCreated, gin.H{
		"user":   userJSON(&user),
		"tenant": tenantJSON(&tenant),
		"token":  token,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.db.Preload("Tenant").
		Where("email = ?", email).
		First(&user).Error; err != nil {

		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.Unauthorized(c, "invalid_credentials", "Feil e-post eller passord.")
			return
		}
		httperr.Internal(c, "internal_error", "Noe gikk galt.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httperr.Unauthorized(c, "invalid_credentials", "Feil e-post eller passord.")
		return
	}

	token, err := h.generateToken(&user)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Noe gikk galt.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   userJSON(&user),
		"tenant": tenantJSON(&user.Tenant),
		"token":  token,
	})
}

// --------- JWT ---------

func (h *AuthHandler) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"tenantId": user.TenantID,
		"role":     user.Role,
		"exp":      now.Add(24 * time.Hour).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.config.JWTSecret))
}

// --------- Views ---------

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"phone":     u.Phone,
		"role":      u.Role,
		"tenant_id": u.TenantID,
	}
}

func tenantJSON(t *models.Tenant) gin.H {
	return gin.H{
		"id":        t.ID,
		"name":      t.Name,
		"subdomain": t.Subdomain,
		"phone":     t.Phone,
		"address":   t.Address,
		"timezone":  t.Timezone,
	}
}
