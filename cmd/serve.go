package cmd

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lodgeworks/ms-go-booking-payments/app/booking"
	"github.com/lodgeworks/ms-go-booking-payments/app/controller"
	"github.com/lodgeworks/ms-go-booking-payments/app/gateway"
	"github.com/lodgeworks/ms-go-booking-payments/app/notify"
	"github.com/lodgeworks/ms-go-booking-payments/app/repository"
	"github.com/lodgeworks/ms-go-booking-payments/app/service"
	"github.com/lodgeworks/ms-go-booking-payments/app/signature"
	"github.com/lodgeworks/ms-go-booking-payments/app/txid"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
	"github.com/lodgeworks/ms-go-booking-payments/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the booking payments service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	paymentController := controller.NewPaymentController(paymentService)
	e := setupHTTPServer(paymentController, cfg)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(paymentController *controller.PaymentController, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(requireRequestID(cfg.Gateway.WebhookPath))
	e.Use(requireAPIKey(cfg.App.APIKey, cfg.Gateway.WebhookPath))

	e.GET("/health", paymentController.Health)

	intents := e.Group("/payment-intents")
	intents.POST("", paymentController.CreatePaymentIntent)
	intents.GET("", paymentController.ListPaymentIntents)
	intents.GET("/:transactionId", paymentController.GetPaymentIntent)

	e.POST("/refunds", paymentController.InitiateRefund)

	// The gateway authenticates with the payload digest, not the mesh API
	// key, so the webhook route bypasses both guards above.
	e.POST(cfg.Gateway.WebhookPath, paymentController.HandleGatewayCallback)

	return e
}

func requireRequestID(webhookPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			path := ctx.Request().URL.Path
			if path == "/health" || path == webhookPath {
				return next(ctx)
			}

			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func requireAPIKey(apiKey, webhookPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if apiKey == "" {
				return next(ctx)
			}

			path := ctx.Request().URL.Path
			if path == "/health" || path == webhookPath {
				return next(ctx)
			}

			candidate := ctx.Request().Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(apiKey)) != 1 {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	intentRepo := repository.NewIntentRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	eventRepo := repository.NewIntentEventRepository(db)
	callbackRepo := repository.NewGatewayCallbackRepository(db)

	signer := signature.NewEngine(cfg.Gateway.KeyIndex)

	var backend gateway.Backend
	switch cfg.Gateway.Mode {
	case "sandbox":
		backend = gateway.NewSandboxBackend(gateway.SandboxConfig{
			Secret:      cfg.Gateway.Secret,
			WebhookPath: cfg.Gateway.WebhookPath,
		}, signer)
	default:
		backend = gateway.NewHTTPBackend(gateway.HTTPConfig{
			BaseURL:     cfg.Gateway.BaseURL,
			Secret:      cfg.Gateway.Secret,
			KeyIndex:    cfg.Gateway.KeyIndex,
			HTTPTimeout: cfg.Gateway.HTTPTimeout,
		}, signer)
	}

	gatewayClient := gateway.NewClient(backend, gateway.RetryConfig{
		Attempts:  cfg.Gateway.StatusAttempts,
		BaseDelay: cfg.Gateway.StatusBaseDelay,
		MaxDelay:  cfg.Gateway.StatusMaxDelay,
	})

	bookingDirectory := booking.NewHTTPDirectory(booking.HTTPConfig{
		BaseURL:     cfg.Booking.BaseURL,
		APIKey:      cfg.Booking.APIKey,
		HTTPTimeout: cfg.Booking.HTTPTimeout,
	})

	notifier := notify.NewHTTPNotifier(notify.HTTPConfig{
		BaseURL:     cfg.Notify.BaseURL,
		APIKey:      cfg.Notify.APIKey,
		HTTPTimeout: cfg.Notify.HTTPTimeout,
	})

	paymentService := service.NewPaymentService(
		service.Config{
			MinAmountCents:      cfg.Payments.MinAmountCents,
			MaxAmountCents:      cfg.Payments.MaxAmountCents,
			Secret:              cfg.Gateway.Secret,
			WebhookPath:         cfg.Gateway.WebhookPath,
			CallbackURL:         cfg.Gateway.CallbackURL(),
			BookingSyncAttempts: cfg.Payments.BookingSyncAttempts,
			ReconcileStaleAfter: cfg.Payments.ReconcileStaleAfter,
			ReconcileBatchSize:  cfg.Payments.JobBatchSize,
		},
		intentRepo,
		refundRepo,
		eventRepo,
		callbackRepo,
		gatewayClient,
		bookingDirectory,
		notifier,
		txid.NewGenerator(),
		signer,
		logrus.WithField("module", "payments-service"),
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, paymentService, cleanup
}
