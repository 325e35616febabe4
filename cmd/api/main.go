package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorlane/backend/internal/booking"
	"tutorlane/backend/internal/config"
	"tutorlane/backend/internal/db"
	"tutorlane/backend/internal/http/handlers"
	"tutorlane/backend/internal/http/middleware"
	"tutorlane/backend/internal/integrations/eway"
	"tutorlane/backend/internal/logging"
	"tutorlane/backend/internal/notify"
	"tutorlane/backend/internal/repository"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	logger = logger.With("service", "api")
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db error", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate error", "error", err)
		os.Exit(1)
	}

	repo := repository.New(pool)

	ewayClient := eway.NewClient(eway.Config{
		BaseURL:  cfg.Eway.BaseURL,
		APIKey:   cfg.Eway.APIKey,
		Password: cfg.Eway.Password,
	}, nil, logger)
	gateway := eway.NewGateway(ewayClient)

	if cfg.SMTP.Host == "" {
		logger.Warn("smtp_not_configured", "detail", "booking confirmations will fail to send")
	}
	sender := notify.NewSMTPEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	dispatcher := notify.NewDispatcher(sender, logger)

	engine := booking.NewEngine(gateway, repo, repo, repo, dispatcher, logger)
	initiator := booking.NewInitiator(gateway, logger)

	h := handlers.New(engine, initiator, repo, cfg, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/healthz", h.Healthz)

	r.Post("/bookings/quote", h.Quote)
	r.Post("/promo-codes/validate", h.ValidatePromoCode)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		r.Post("/payments/initiate", h.InitiatePayment)
		r.Post("/bookings/finalize", h.FinalizeBooking)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.Info("api_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown", "service", "api")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)

	// Let in-flight confirmation emails drain before exit.
	dispatcher.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
