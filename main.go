package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	"festival-tickets/config"
	"festival-tickets/handlers"
	"festival-tickets/internal/wallet"
	_ "festival-tickets/migrations"
	"festival-tickets/models"
	"festival-tickets/monitoring"
	"festival-tickets/security"
	"festival-tickets/services"
	"festival-tickets/store"
	"festival-tickets/utils"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// The scan feed only needs config; everything touching the database is
	// wired once the app has bootstrapped.
	scanFeed := services.NewScanFeedService(cfg)

	var monitor *monitoring.Monitor
	var metricsServer *http.Server

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Writes go through PocketBase's serialized write pool, reads
		// through the concurrent one.
		runInTx := func(fn store.TxFunc) error {
			return app.RunInTransaction(func(txApp core.App) error {
				return fn(txApp.DB())
			})
		}
		ticketStore := store.NewTicketStore(app.DB(), runInTx)
		scanLogStore := store.NewScanLogStore(app.DB(), runInTx)
		auditLogStore := store.NewAuditLogStore(app.DB(), runInTx)

		if cfg.EnableMetrics {
			monitor = monitoring.NewMonitor(ticketStore)
			metricsServer = monitoring.StartMetricsServer(cfg.MetricsPort)
		}

		tokenService, err := services.NewTokenService(cfg.QRSecretKey, cfg.TokenExpiry, ticketStore)
		if err != nil {
			return err
		}
		auditService := services.NewAuditService(scanLogStore, auditLogStore)
		validationService := services.NewValidationService(ticketStore, tokenService, auditService, scanFeed, monitor)
		galleryService := services.NewGalleryService(cfg, redisClient, monitor)

		walletRegistry := wallet.NewRegistry()
		if cfg.GoogleWalletIssuerID != "" && cfg.GoogleServiceAccountEmail != "" && cfg.GooglePrivateKey != "" {
			googlePass, err := wallet.NewGooglePass(cfg.GoogleWalletIssuerID, cfg.GoogleWalletClass,
				cfg.GoogleServiceAccountEmail, cfg.GooglePrivateKey)
			if err != nil {
				log.Printf("Google Wallet disabled: %v", err)
			} else {
				walletRegistry.Register(googlePass)
			}
		}

		limiter := security.NewRateLimiter(redisClient, monitor, cfg.RateLimitWindow, cfg.RateLimitMax)

		validateHandler := handlers.NewValidateHandler(validationService, auditService, cfg.GateKeyHash)
		ticketHandler := handlers.NewTicketHandler(ticketStore, tokenService, walletRegistry)
		adminHandler := handlers.NewAdminHandler(ticketStore, scanLogStore, tokenService, auditService, cfg.DefaultMaxScans)
		galleryHandler := handlers.NewGalleryHandler(galleryService)

		// Validation endpoint, registered for every method so scanners
		// always get the JSON verdict shape back
		e.Router.Any("/api/tickets/validate", validateHandler.Validate).
			BindFunc(limiter.RateLimit("validate"))

		// Ticket endpoints
		e.Router.GET("/api/tickets/{ticketId}", ticketHandler.Info)
		e.Router.GET("/api/tickets/{ticketId}/qr", ticketHandler.QR).
			BindFunc(limiter.RateLimit("qr"))
		e.Router.GET("/api/tickets/{ticketId}/wallet/google", ticketHandler.GoogleWallet)

		// Admin endpoints
		e.Router.POST("/api/admin/tickets", adminHandler.IssueTicket)
		e.Router.POST("/api/admin/tickets/{ticketId}/cancel", adminHandler.CancelTicket)
		e.Router.POST("/api/admin/tickets/{ticketId}/invalidate", adminHandler.InvalidateTicket)
		e.Router.POST("/api/admin/tickets/{ticketId}/restore", adminHandler.RestoreTicket)
		e.Router.GET("/api/admin/tickets/stats", adminHandler.Stats)
		e.Router.GET("/api/admin/scan-logs", adminHandler.ScanLogs)

		// Gallery endpoints
		e.Router.GET("/api/gallery", galleryHandler.Gallery).BindFunc(limiter.AntiBot())
		e.Router.GET("/api/featured-photos", galleryHandler.Featured).BindFunc(limiter.AntiBot())

		// Health check
		e.Router.GET("/api/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  utils.SanitizeError(err.Error()),
				})
			}
			var one int
			if err := app.DB().NewQuery("SELECT 1").Row(&one); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  "database unreachable",
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupTicketHooks(app, auditService)

		return e.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		log.Println("Shutting down background services...")
		scanFeed.Shutdown()
		if monitor != nil {
			monitor.Shutdown()
		}
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Error("metrics server shutdown", "error", err)
			}
		}
		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// setupTicketHooks audits ticket edits made through the PocketBase dashboard
// or record API, so manual changes land in the same trail as the dedicated
// admin endpoints.
func setupTicketHooks(app *pocketbase.PocketBase, audit *services.AuditService) {
	app.OnRecordUpdateRequest("tickets").BindFunc(func(e *core.RecordRequestEvent) error {
		original := e.Record.Original()
		if err := e.Next(); err != nil {
			return err
		}

		audit.RecordAdminAction(models.AuditTicketUpdated, e.Record.Id, recordActor(e.RequestEvent), map[string]any{
			"ticket_id":                  e.Record.GetString("ticket_id"),
			"previous_status":            original.GetString("status"),
			"previous_validation_status": original.GetString("validation_status"),
			"status":                     e.Record.GetString("status"),
			"validation_status":          e.Record.GetString("validation_status"),
		})
		return nil
	})

	app.OnRecordDeleteRequest("tickets").BindFunc(func(e *core.RecordRequestEvent) error {
		ticketRef := e.Record.Id
		ticketID := e.Record.GetString("ticket_id")
		if err := e.Next(); err != nil {
			return err
		}

		audit.RecordAdminAction(models.AuditTicketDeleted, ticketRef, recordActor(e.RequestEvent), map[string]any{
			"ticket_id": ticketID,
		})
		return nil
	})
}

func recordActor(e *core.RequestEvent) string {
	if e == nil || e.Auth == nil {
		return ""
	}
	if email := e.Auth.GetString("email"); email != "" {
		return email
	}
	return e.Auth.Id
}
