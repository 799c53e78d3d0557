package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/BruksfildServices01/salon-platform/internal/archive"
	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/calendar"
	"github.com/BruksfildServices01/salon-platform/internal/config"
	dbpkg "github.com/BruksfildServices01/salon-platform/internal/db"
	"github.com/BruksfildServices01/salon-platform/internal/handlers"
	infraRepo "github.com/BruksfildServices01/salon-platform/internal/infra/repository"
	"github.com/BruksfildServices01/salon-platform/internal/logging"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/oauth"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
	"github.com/BruksfildServices01/salon-platform/internal/payment"
	"github.com/BruksfildServices01/salon-platform/internal/provider"
	"github.com/BruksfildServices01/salon-platform/internal/readerconnect"
	"github.com/BruksfildServices01/salon-platform/internal/readerlink"
	"github.com/BruksfildServices01/salon-platform/internal/reminder"
	"github.com/BruksfildServices01/salon-platform/internal/routes"
	"github.com/BruksfildServices01/salon-platform/internal/stripeterminal"
	ucAppointment "github.com/BruksfildServices01/salon-platform/internal/usecase/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/vault"
	"github.com/BruksfildServices01/salon-platform/internal/zettle"
)

func main() {

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := dbpkg.NewDB(cfg, log)
	obs.Init()

	box, err := vault.New(cfg.TokenSecret)
	if err != nil {
		log.WithError(err).Fatal("failed to init token vault")
	}

	auditDispatcher := audit.NewDispatcher(audit.New(db), log)
	appointmentRepo := infraRepo.NewAppointmentGormRepository(db)
	paymentRepo := infraRepo.NewPaymentGormRepository(db)

	// ======================================================
	// PAYMENT PROVIDERS
	// ======================================================
	zettleAPI := zettle.NewClient(zettle.WithBaseURLs(cfg.ZettleOAuthURL, cfg.ZettleReaderURL))

	zettleOAuth := oauth.NewManager(oauth.Config{
		ClientID:     cfg.Zettle.ClientID,
		ClientSecret: cfg.Zettle.ClientSecret,
		RedirectURL:  cfg.Zettle.RedirectURL,
		AuthURL:      cfg.ZettleOAuthURL + "/authorize",
		TokenURL:     cfg.ZettleOAuthURL + "/token",
		Scopes:       []string{"READ:PURCHASE", "WRITE:PURCHASE", "READ:FINANCE"},
	})

	stripeOAuth := oauth.NewManager(oauth.Config{
		ClientID:       cfg.StripeConnect.ClientID,
		ClientSecret:   cfg.StripeConnect.ClientSecret,
		RedirectURL:    cfg.StripeConnect.RedirectURL,
		AuthURL:        "https://connect.stripe.com/oauth/authorize",
		TokenURL:       "https://connect.stripe.com/oauth/token",
		Scopes:         []string{"read_write"},
		AccountIDField: "stripe_user_id",
	})

	providers := provider.NewService(
		infraRepo.NewProviderGormRepository(db),
		box,
		log,
		provider.WithProvider(models.ProviderZettle, zettleOAuth, zettleAPI.OrganizationID),
		provider.WithProvider(models.ProviderStripeConnect, stripeOAuth, nil),
	)

	// ======================================================
	// CARD READERS
	// ======================================================
	registry := readerconnect.NewRegistry(
		readerconnect.WebSocketDialer{},
		readerconnect.Config{BaseURL: cfg.ReaderWSURL},
		log,
	)
	readerPayments := payment.NewReaderService(providers, registry, paymentRepo, log)

	linkOpts := []readerlink.Option{readerlink.OnRemoved(readerPayments.DisconnectReader)}
	if cfg.RedisURL != "" {
		cache, err := readerlink.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("invalid REDIS_URL, reader links are not cached")
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := cache.Ping(pingCtx); err != nil {
				log.WithError(err).Warn("redis unreachable, cache calls will fail open")
			}
			cancel()
			defer cache.Close()
			linkOpts = append(linkOpts, readerlink.WithCache(cache, readerlink.DefaultTTL))
		}
	}
	readerLinks := readerlink.NewService(zettleAPI, providers, log, linkOpts...)

	terminal := payment.NewTerminalService(
		stripeterminal.NewClient(cfg.StripeSecretKey, nil),
		providers,
		paymentRepo,
		cfg.StripeCurrency,
		log,
	)

	// ======================================================
	// CALENDAR + REMINDERS
	// ======================================================
	googleOAuth := oauth.NewManager(oauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		AuthURL:      google.Endpoint.AuthURL,
		TokenURL:     google.Endpoint.TokenURL,
		Scopes:       []string{gcal.CalendarEventsScope},
		AuthParams:   map[string]string{"access_type": "offline", "prompt": "consent"},
	})
	calendarTokens := calendar.NewTokenStore(infraRepo.NewCalendarGormRepository(db), box, googleOAuth, log)
	syncer := calendar.NewSyncer(calendarTokens, calendar.NewAdapter(log), appointmentRepo, log)

	relay := reminder.NewRelay(cfg.KafkaBrokers, log)

	// ======================================================
	// BACKUPS
	// ======================================================
	var archives handlers.Archives
	if cfg.BackupEnabled() {
		archiver := archive.New(
			archive.NewS3Client(archive.S3Config{
				Bucket:    cfg.BackupBucket,
				Region:    cfg.BackupRegion,
				Endpoint:  cfg.BackupEndpoint,
				AccessKey: cfg.BackupAccessKey,
				SecretKey: cfg.BackupSecretKey,
			}),
			cfg.BackupBucket,
			appointmentRepo,
			log,
		)
		archives = archiver
		go pruneArchives(ctx, archiver, cfg.BackupRetention, log)
	} else {
		log.Info("backups disabled (no S3 bucket configured)")
	}

	// ======================================================
	// HTTP
	// ======================================================
	r := gin.New()
	r.Use(gin.Recovery(), obs.Instrument())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(obs.Handler()))

	hooks := ucAppointment.NewAsyncHooks(ucAppointment.MultiHooks{syncer, relay}, log)

	routes.RegisterRoutes(r, db, cfg, routes.Services{
		Audit:          auditDispatcher,
		Hooks:          hooks,
		Providers:      providers,
		ReaderLinks:    readerLinks,
		ReaderPayments: readerPayments,
		Terminal:       terminal,
		Calendars:      calendarTokens,
		Archives:       archives,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown error")
	}

	if err := hooks.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("booking hooks still running at shutdown")
	}
	registry.Close()
	if err := relay.Close(); err != nil {
		log.WithError(err).Warn("reminder relay close failed")
	}
	auditDispatcher.Close()

	log.Info("server stopped")
}

// pruneArchives drops expired tenant archives once a day.
func pruneArchives(ctx context.Context, a *archive.Archiver, retention time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		if _, err := a.Prune(ctx, retention); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("archive prune failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
