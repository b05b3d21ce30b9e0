package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/rentalz-backend/api/routes"
	"github.com/angelmondragon/rentalz-backend/internal/auth"
	"github.com/angelmondragon/rentalz-backend/internal/bookmarks"
	"github.com/angelmondragon/rentalz-backend/internal/events"
	"github.com/angelmondragon/rentalz-backend/internal/favorites"
	"github.com/angelmondragon/rentalz-backend/internal/notifications"
	"github.com/angelmondragon/rentalz-backend/internal/openinghours"
	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/refunds"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/internal/testimonials"
	"github.com/angelmondragon/rentalz-backend/internal/users"
	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/internal/webhooks/eventguard"
	squarewebhook "github.com/angelmondragon/rentalz-backend/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/rentalz-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/rentalz-backend/pkg/auth/session"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/instance"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/angelmondragon/rentalz-backend/pkg/metrics"
	"github.com/angelmondragon/rentalz-backend/pkg/migrate"
	"github.com/angelmondragon/rentalz-backend/pkg/pubsub"
	"github.com/angelmondragon/rentalz-backend/pkg/redis"
)

const (
	webhookEventTTL = 72 * time.Hour
	shutdownTimeout = 20 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.FromConfig("api", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.ApplyOnBoot(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	exitOnErr(logg, "failed to create session manager", err)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	exitOnErr(logg, "failed to create auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	exitOnErr(logg, "failed to create register service", err)

	usersService, err := users.NewService(userRepo)
	exitOnErr(logg, "failed to create users service", err)

	// Events fan out to the notification inbox, the websocket hub and,
	// when configured, the domain events topic.
	hub := notifications.NewHub(logg, allowedOrigin(cfg.CORS.AllowedOrigins))
	defer hub.Close()
	notificationRepo := notifications.NewRepository(conn)
	dispatcher := events.NewDispatcher(logg, notifications.NewHook(notificationRepo, hub))

	var eventBus db.Pinger
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Warn(context.Background(), "pubsub unavailable, domain events stay local: "+err.Error())
		} else {
			defer psClient.Close()
			dispatcher.Register(events.NewPubSubHook(psClient))
			eventBus = psClient
		}
	}

	notificationsService, err := notifications.NewService(notificationRepo)
	exitOnErr(logg, "failed to create notifications service", err)

	vehicleRepo := vehicles.NewRepository(conn)
	ledger, err := vehicles.NewLedger(vehicleRepo, dbClient)
	exitOnErr(logg, "failed to create availability ledger", err)
	vehiclesService, err := vehicles.NewService(vehicleRepo, ledger)
	exitOnErr(logg, "failed to create vehicles service", err)

	gateways := buildGateways(context.Background(), cfg, logg)
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	reservationRepo := reservations.NewRepository(conn)
	paymentRepo := payments.NewRepository(conn)

	refundsService, err := refunds.NewService(refunds.ServiceParams{
		Repo:            refunds.NewRepository(conn),
		Payments:        paymentRepo,
		Reservations:    reservationRepo,
		Registry:        gateways.registry,
		Tx:              dbClient,
		Events:          dispatcher,
		Metrics:         paymentMetrics,
		Logger:          logg,
		ProviderTimeout: cfg.Payments.ProviderTimeout,
	})
	exitOnErr(logg, "failed to create refunds service", err)

	reservationsService, err := reservations.NewService(reservations.ServiceParams{
		Repo:     reservationRepo,
		Ledger:   ledger,
		Tx:       dbClient,
		Events:   dispatcher,
		Refunder: refundsService,
	})
	exitOnErr(logg, "failed to create reservations service", err)

	cache, closeCache, err := buildPaymentCache(cfg.Payments, redisClient)
	exitOnErr(logg, "failed to create payment idempotency cache", err)
	defer closeCache()

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:         paymentRepo,
		Reservations: reservationRepo,
		Registry:     gateways.registry,
		Tx:           dbClient,
		Cache:        cache,
		Events:       dispatcher,
		Metrics:      paymentMetrics,
		Logger:       logg,
		Config:       cfg.Payments,
	})
	exitOnErr(logg, "failed to create payments service", err)

	favoritesService, err := favorites.NewService(favorites.ServiceParams{
		Repo:     favorites.NewRepository(conn),
		Vehicles: vehicleRepo,
	})
	exitOnErr(logg, "failed to create favorites service", err)

	bookmarksService, err := bookmarks.NewService(bookmarks.NewRepository(conn), vehicleRepo)
	exitOnErr(logg, "failed to create bookmarks service", err)

	testimonialsService, err := testimonials.NewService(testimonials.NewRepository(conn), vehicleRepo)
	exitOnErr(logg, "failed to create testimonials service", err)

	openingHoursService, err := openinghours.NewService(conn)
	exitOnErr(logg, "failed to create opening hours service", err)

	deps := routes.Dependencies{
		DB:            dbClient,
		EventBus:      eventBus,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Metrics:       prometheus.DefaultGatherer,
		HTTPMetrics:   metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Auth:          authService,
		Register:      registerService,
		Users:         usersService,
		Vehicles:      vehiclesService,
		Reservations:  reservationsService,
		Payments:      paymentsService,
		Refunds:       refundsService,
		Favorites:     favoritesService,
		Bookmarks:     bookmarksService,
		Testimonials:  testimonialsService,
		OpeningHours:  openingHoursService,
		Notifications: notificationsService,
		Hub:           hub,
	}

	if gateways.stripe != nil {
		svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{Payments: paymentsService, Logger: logg})
		exitOnErr(logg, "failed to create stripe webhook service", err)
		guard, err := eventguard.New(redisClient, webhookEventTTL, "stripe-webhook")
		exitOnErr(logg, "failed to create stripe webhook guard", err)
		deps.Stripe = routes.StripeWebhook{Service: svc, Client: gateways.stripe, Guard: guard}
	}
	if gateways.square != nil && gateways.square.SigningSecret() != "" {
		svc, err := squarewebhook.NewService(squarewebhook.ServiceParams{Payments: paymentsService, Logger: logg})
		exitOnErr(logg, "failed to create square webhook service", err)
		guard, err := eventguard.New(redisClient, webhookEventTTL, "square-webhook")
		exitOnErr(logg, "failed to create square webhook guard", err)
		deps.Square = routes.SquareWebhook{Service: svc, Client: gateways.square, Guard: guard}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  instance.GetID(),
		"providers": gateways.registry.Names(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

func allowedOrigin(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
