package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/config"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/handlers"
	infraRepo "github.com/BruksfildServices01/salon-platform/internal/infra/repository"
	"github.com/BruksfildServices01/salon-platform/internal/middleware"
	ucAppointment "github.com/BruksfildServices01/salon-platform/internal/usecase/appointment"
)

// Services are the long-lived components built in main.
type Services struct {
	Audit *audit.Dispatcher
	Hooks ucAppointment.Hooks

	Providers      handlers.ProviderConnections
	ReaderLinks    handlers.ReaderLinks
	ReaderPayments handlers.ReaderPayments
	Terminal       handlers.TerminalPayments
	Calendars      handlers.CalendarConnections

	// Archives is nil when backups are not configured.
	Archives handlers.Archives
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, svc Services, log logrus.FieldLogger) {

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// ======================================================
	// 🔧 INFRA (SINGLETONS)
	// ======================================================
	appointmentRepo := infraRepo.NewAppointmentGormRepository(db)

	deps := ucAppointment.Deps{
		Repo:  appointmentRepo,
		Audit: svc.Audit,
		Hooks: svc.Hooks,
		Policy: domain.Policy{
			CancellationWindow: cfg.DefaultCancellationWindow,
			MaxReschedules:     cfg.DefaultMaxReschedules,
		},
		Log: log,
	}

	// ======================================================
	// 🧠 USE CASES: APPOINTMENTS
	// ======================================================
	createBookingUC := ucAppointment.NewCreateBooking(deps)
	availabilityUC := ucAppointment.NewGetAvailability(deps)
	getBookingUC := ucAppointment.NewGetBookingByToken(deps)
	cancelBookingUC := ucAppointment.NewCancelBooking(deps)
	rescheduleBookingUC := ucAppointment.NewRescheduleBooking(deps)

	completeAppointmentUC := ucAppointment.NewCompleteAppointment(deps)
	noShowAppointmentUC := ucAppointment.NewMarkNoShow(deps)
	cancelAppointmentUC := ucAppointment.NewCancelAppointment(deps)
	listAppointmentsUC := ucAppointment.NewListAppointments(deps)

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, cfg, log)
	meHandler := handlers.NewMeHandler(db)
	tenantHandler := handlers.NewTenantHandler(db, svc.Audit)

	serviceHandler := handlers.NewServiceHandler(db, svc.Audit)
	customerHandler := handlers.NewCustomerHandler(db)
	workingHoursHandler := handlers.NewWorkingHoursHandler(db, svc.Audit)

	appointmentHandler := handlers.NewAppointmentHandler(
		createBookingUC,
		completeAppointmentUC,
		noShowAppointmentUC,
		cancelAppointmentUC,
		listAppointmentsUC,
		log,
	)

	auditLogsHandler := handlers.NewAuditLogsHandler(db)

	publicHandler := handlers.NewPublicHandler(
		db,
		availabilityUC,
		createBookingUC,
		getBookingUC,
		cancelBookingUC,
		rescheduleBookingUC,
		log,
	)

	providerHandler := handlers.NewProviderHandler(svc.Providers, svc.Audit, log)
	calendarHandler := handlers.NewCalendarHandler(svc.Calendars, svc.Audit, log)
	readerHandler := handlers.NewReaderHandler(svc.ReaderLinks, svc.ReaderPayments, svc.Audit, log)
	terminalHandler := handlers.NewTerminalHandler(svc.Terminal, svc.Audit, log)
	backupHandler := handlers.NewBackupHandler(svc.Archives, svc.Audit, log)

	publicLimiter := middleware.NewRateLimiter(cfg.PublicBookingsPerHour)

	// ======================================================
	// 🌐 API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// 🌍 PUBLIC
		// ------------------------------
		publicAPI := api.Group("/public")
		{
			publicAPI.GET("/bookings/:token", publicHandler.GetBooking)
			publicAPI.POST("/bookings/:token/cancel", publicLimiter.Middleware(), publicHandler.CancelBooking)
			publicAPI.POST("/bookings/:token/reschedule", publicLimiter.Middleware(), publicHandler.RescheduleBooking)

			publicAPI.GET("/:tenant/services", publicHandler.ListServices)
			publicAPI.GET("/:tenant/availability", publicHandler.Availability)
			publicAPI.POST("/:tenant/bookings", publicLimiter.Middleware(), publicHandler.CreateBooking)
		}

		// ------------------------------
		// 🔐 AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		// ------------------------------
		// 🔁 OAUTH CALLBACKS (tenant comes from the signed state)
		// ------------------------------
		api.GET("/providers/:kind/callback", providerHandler.Callback)
		api.GET("/calendar/callback", calendarHandler.Callback)

		// ------------------------------
		// 🔐 PRIVATE
		// ------------------------------
		secured := api.Group("/me")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			secured.GET("", meHandler.GetMe)

			secured.GET("/tenant", tenantHandler.GetMeTenant)

			secured.GET("/customers", customerHandler.List)

			secured.GET("/services", serviceHandler.List)

			secured.GET("/working-hours", workingHoursHandler.Get)
			secured.PUT("/working-hours", workingHoursHandler.Update)

			// ------------------------------
			// APPOINTMENTS
			// ------------------------------
			secured.POST("/appointments", appointmentHandler.Create)
			secured.GET("/appointments", appointmentHandler.ListByDate)
			secured.GET("/appointments/month", appointmentHandler.ListByMonth)
			secured.PATCH("/appointments/:id/cancel", appointmentHandler.Cancel)
			secured.PATCH("/appointments/:id/complete", appointmentHandler.Complete)
			secured.PATCH("/appointments/:id/no-show", appointmentHandler.NoShow)

			// ------------------------------
			// CALENDAR (per employee)
			// ------------------------------
			secured.GET("/calendar", calendarHandler.Status)
			secured.GET("/calendar/connect", calendarHandler.ConnectURL)
			secured.DELETE("/calendar", calendarHandler.Disconnect)

			// ------------------------------
			// READERS
			// ------------------------------
			secured.GET("/readers", readerHandler.List)
			secured.GET("/readers/:link/payments/:trace", readerHandler.GetPayment)
			secured.POST("/readers/:link/payments", readerHandler.StartPayment)
			secured.POST("/readers/:link/payments/:trace/cancel", readerHandler.CancelPayment)

			// ------------------------------
			// STRIPE TERMINAL
			// ------------------------------
			secured.POST("/terminal/connection-token", terminalHandler.ConnectionToken)
			secured.GET("/terminal/readers", terminalHandler.Readers)
			secured.POST("/terminal/payments", terminalHandler.StartPayment)
			secured.GET("/terminal/payments/:id", terminalHandler.GetPayment)
			secured.POST("/terminal/payments/:id/cancel", terminalHandler.CancelPayment)

			// ------------------------------
			// OWNER ONLY
			// ------------------------------
			owner := secured.Group("")
			owner.Use(middleware.RequireOwner())
			{
				owner.PATCH("/tenant", tenantHandler.UpdateMeTenant)

				owner.POST("/services", serviceHandler.Create)
				owner.PATCH("/services/:id", serviceHandler.Update)

				owner.GET("/providers", providerHandler.List)
				owner.GET("/providers/:kind/connect", providerHandler.ConnectURL)
				owner.DELETE("/providers/:kind", providerHandler.Disconnect)

				owner.POST("/readers", readerHandler.Create)
				owner.POST("/readers/refresh", readerHandler.Refresh)
				owner.DELETE("/readers/:link", readerHandler.Delete)

				owner.GET("/backups", backupHandler.List)
				owner.POST("/backups", backupHandler.Create)

				owner.GET("/audit-logs", auditLogsHandler.List)
			}
		}
	}
}
