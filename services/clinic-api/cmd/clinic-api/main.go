package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/odemir/clinicbook/libs/config"
	"github.com/odemir/clinicbook/libs/db"
	"github.com/odemir/clinicbook/libs/httpx"
	"github.com/odemir/clinicbook/libs/kafkax"
	otelx "github.com/odemir/clinicbook/libs/otel"
	"github.com/odemir/clinicbook/libs/runtime"
	"github.com/odemir/clinicbook/services/clinic-api/internal/handlers"
	"github.com/odemir/clinicbook/services/clinic-api/internal/metrics"
	"github.com/odemir/clinicbook/services/clinic-api/internal/outbox"
	"github.com/odemir/clinicbook/services/clinic-api/internal/sessions"
	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
)

const serviceName = "clinic-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logger := runtime.NewLogger(serviceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	port, err := config.Port("PORT", "8080")
	if err != nil {
		return err
	}
	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		return err
	}

	shutdownTracing, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	pool, err := db.Open(ctx, databaseURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer pool.Close()

	bookingMetrics := metrics.NewBookingMetrics(nil)

	appointmentRepo := storage.NewAppointmentRepository(pool)
	doctorRepo := storage.NewDoctorRepository(pool)
	adminUserRepo := storage.NewAdminUserRepository(pool)
	settingsRepo := storage.NewSettingsRepository(pool)
	refreshRepo := sessions.NewRefreshRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	publicHandler := handlers.NewPublicHandler(doctorRepo, appointmentRepo, settingsRepo, outboxRepo, bookingMetrics, logger)
	adminHandler := handlers.NewAdminHandler(appointmentRepo, publicHandler, outboxRepo, bookingMetrics, logger)
	doctorHandler := handlers.NewDoctorHandler(doctorRepo, logger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, logger)
	authHandler := handlers.NewAuthHandler(adminUserRepo, refreshRepo, logger, jwtSecret,
		config.Duration("ACCESS_TOKEN_TTL", 15*time.Minute),
		config.Duration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
	)

	readyChecks := []runtime.ReadyCheck{
		{Name: "postgres", Check: db.ReadyCheck(pool)},
	}

	// The public booking endpoints get a tighter rate limit than the rest of
	// the API. With Redis configured the window is shared across instances;
	// without it the in-process limiter covers the single-box setup.
	bookLimit := config.Int("BOOK_RATE_LIMIT", 10)
	bookWindow := config.Duration("BOOK_RATE_WINDOW", time.Minute)
	var bookLimiter httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer rdb.Close()
		bookLimiter = httpx.NewRedisRateLimiter(rdb, bookLimit, bookWindow, "clinicbook:book").
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		bookLimiter = httpx.NewRateLimiter(bookLimit, bookWindow).Middleware()
	}
	if publisher.Enabled() {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", promhttp.Handler())

	// Public booking site.
	mux.HandleFunc("/api/v1/doctors", publicHandler.Doctors)
	mux.HandleFunc("/api/v1/slots", publicHandler.Slots)
	mux.Handle("/api/v1/appointments/book", bookLimiter(http.HandlerFunc(publicHandler.Book)))
	mux.HandleFunc("/api/v1/site-info", publicHandler.SiteInfo)

	// Staff authentication.
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("/api/v1/auth/me", handlers.RequireAuth(jwtSecret, authHandler.Me))

	// Staff panel. Roster and settings writes stay admin-only; appointment
	// work is shared with doctor accounts, which the handlers scope to their
	// own calendar.
	mux.HandleFunc("/api/v1/admin/appointments", handlers.RequireAuth(jwtSecret, adminHandler.List))
	mux.HandleFunc("/api/v1/admin/appointments/create", handlers.RequireAuth(jwtSecret, adminHandler.Create))
	mux.HandleFunc("/api/v1/admin/appointments/status", handlers.RequireAuth(jwtSecret, adminHandler.UpdateStatus))
	mux.HandleFunc("/api/v1/admin/stats", handlers.RequireAuth(jwtSecret, adminHandler.Stats))
	mux.HandleFunc("/api/v1/admin/patients", handlers.RequireAuth(jwtSecret, adminHandler.Patients))
	mux.HandleFunc("/api/v1/admin/doctors", handlers.RequireAuth(jwtSecret, doctorHandler.List))
	mux.HandleFunc("/api/v1/admin/doctors/get", handlers.RequireAuth(jwtSecret, doctorHandler.Get))
	mux.HandleFunc("/api/v1/admin/doctors/create", handlers.RequireRole(jwtSecret, storage.RoleAdmin, doctorHandler.Create))
	mux.HandleFunc("/api/v1/admin/doctors/update", handlers.RequireRole(jwtSecret, storage.RoleAdmin, doctorHandler.Update))
	mux.HandleFunc("/api/v1/admin/doctors/active", handlers.RequireRole(jwtSecret, storage.RoleAdmin, doctorHandler.SetActive))
	mux.HandleFunc("/api/v1/admin/settings", handlers.RequireRole(jwtSecret, storage.RoleAdmin, settingsHandler.Handle))
	mux.HandleFunc("/api/v1/admin/users", handlers.RequireRole(jwtSecret, storage.RoleAdmin, authHandler.Users))
	mux.HandleFunc("/api/v1/admin/users/active", handlers.RequireRole(jwtSecret, storage.RoleAdmin, authHandler.SetUserActive))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitCSV(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
	)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func splitCSV(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
