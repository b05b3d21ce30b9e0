package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rentalz-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/rentalz-backend/api/controllers/webhooks"
	"github.com/angelmondragon/rentalz-backend/api/middleware"
	"github.com/angelmondragon/rentalz-backend/internal/auth"
	"github.com/angelmondragon/rentalz-backend/internal/bookmarks"
	"github.com/angelmondragon/rentalz-backend/internal/favorites"
	"github.com/angelmondragon/rentalz-backend/internal/notifications"
	"github.com/angelmondragon/rentalz-backend/internal/openinghours"
	"github.com/angelmondragon/rentalz-backend/internal/payments"
	"github.com/angelmondragon/rentalz-backend/internal/refunds"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/internal/testimonials"
	"github.com/angelmondragon/rentalz-backend/internal/users"
	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/pkg/auth/session"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/angelmondragon/rentalz-backend/pkg/metrics"
	"github.com/angelmondragon/rentalz-backend/pkg/redis"
)

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// StripeWebhook groups what the Stripe endpoint needs. The endpoint is only
// mounted when all three are present.
type StripeWebhook struct {
	Service webhookcontrollers.StripeWebhookService
	Client  interface{ SigningSecret() string }
	Guard   webhookGuard
}

func (s StripeWebhook) ready() bool {
	return s.Service != nil && s.Client != nil && s.Guard != nil
}

type SquareWebhook struct {
	Service webhookcontrollers.SquareWebhookService
	Client  interface {
		SigningSecret() string
		NotificationURL() string
	}
	Guard webhookGuard
}

func (s SquareWebhook) ready() bool {
	return s.Service != nil && s.Client != nil && s.Guard != nil
}

// Dependencies carries every collaborator the HTTP surface needs.
type Dependencies struct {
	DB       db.Pinger
	Redis    *redis.Client
	// EventBus is the pub/sub topic; nil when domain events stay local.
	EventBus db.Pinger
	Sessions session.AccessSessionChecker
	Metrics  prometheus.Gatherer

	// HTTPMetrics may be nil; request metrics are then skipped.
	HTTPMetrics *metrics.HTTPMetrics

	Auth          auth.Service
	Register      auth.RegisterService
	Users         users.Service
	Vehicles      vehicles.Service
	Reservations  reservations.Service
	Payments      payments.Service
	Refunds       refunds.Service
	Favorites     favorites.Service
	Bookmarks     bookmarks.Service
	Testimonials  testimonials.Service
	OpeningHours  openinghours.Service
	Notifications notifications.Service
	Hub           *notifications.Hub

	Stripe StripeWebhook
	Square SquareWebhook
}

// NewRouter assembles the chi router.
func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	// A nil *redis.Client must reach the middleware as a nil interface so the
	// limiters and the idempotency layer switch themselves off.
	var (
		counters    counterStore
		idempotency redis.IdempotencyStore
		readiness   []controllers.ReadinessCheck
	)
	if deps.DB != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "postgres", Pinger: deps.DB})
	}
	if deps.Redis != nil {
		counters = deps.Redis
		idempotency = deps.Redis
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis})
	}
	if deps.EventBus != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "pubsub", Pinger: deps.EventBus})
	}

	loginPolicy := middleware.ThrottlePolicy{
		Scope:      "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		PerIP:      cfg.AuthRateLimit.LoginIPLimit,
		PerAccount: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.ThrottlePolicy{
		Scope:      "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		PerIP:      cfg.AuthRateLimit.RegisterIPLimit,
		PerAccount: cfg.AuthRateLimit.RegisterEmailLimit,
	}

	once := func(ttl time.Duration) func(http.Handler) http.Handler {
		return middleware.Idempotent(idempotency, ttl, logg)
	}

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, readiness...))
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.Ping("public"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/enums", controllers.EnumsList())
		r.Get("/vehicles", controllers.VehicleList(deps.Vehicles, logg))
		r.Get("/vehicles/{vehicleId}", controllers.VehicleGet(deps.Vehicles, logg))
		r.Get("/vehicles/{vehicleId}/availability", controllers.VehicleAvailability(deps.Vehicles, logg))
		r.Get("/testimonials", controllers.TestimonialList(deps.Testimonials, logg))
		r.Get("/opening-hours", controllers.OpeningHoursList(deps.OpeningHours, logg))

		if deps.Stripe.ready() {
			r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.Stripe.Service, deps.Stripe.Client, deps.Stripe.Guard, logg))
		}
		if deps.Square.ready() {
			r.Post("/webhooks/square", webhookcontrollers.SquareWebhook(deps.Square.Service, deps.Square.Client, deps.Square.Guard, logg))
		}

		r.With(middleware.AuthThrottle(loginPolicy, counters, logg)).
			Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthThrottle(registerPolicy, counters, logg), once(middleware.ReplayDay)).
			Post("/auth/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/auth/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
		r.Post("/auth/refresh", controllers.AuthRefresh(deps.Auth, cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RateLimit(counters, cfg.AuthRateLimit.APIWindow, cfg.AuthRateLimit.APILimit, logg))

			r.Get("/ping", controllers.Ping("private"))
			r.Get("/ws/notifications", controllers.NotificationStream(deps.Hub, logg))

			r.Get("/users/me", controllers.UserMe(deps.Users, logg))
			r.Patch("/users/me", controllers.UserUpdateMe(deps.Users, logg))

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", controllers.ReservationList(deps.Reservations, logg))
				r.With(once(middleware.ReplayDay)).Post("/", controllers.ReservationCreate(deps.Reservations, logg))
				r.Get("/{reservationId}", controllers.ReservationGet(deps.Reservations, logg))
				r.With(once(middleware.ReplayWeek)).Post("/{reservationId}/cancel", controllers.ReservationCancel(deps.Reservations, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireStaff(logg))
					r.With(once(middleware.ReplayDay)).Post("/{reservationId}/confirm", controllers.ReservationConfirm(deps.Reservations, logg))
					r.With(once(middleware.ReplayDay)).Post("/{reservationId}/complete", controllers.ReservationComplete(deps.Reservations, logg))
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", controllers.PaymentProcess(deps.Payments, logg))
				r.Post("/sessions", controllers.PaymentCreateSession(deps.Payments, logg))
				r.With(middleware.RequireStaff(logg)).
					Post("/onsite", controllers.PaymentCompleteOnsite(deps.Payments, logg))
				r.Get("/{paymentId}", controllers.PaymentGet(deps.Payments, logg))
				r.With(once(middleware.ReplayWeek)).Post("/{paymentId}/refund", controllers.RefundCreate(deps.Refunds, logg))
				r.Get("/{paymentId}/refunds", controllers.RefundList(deps.Refunds, logg))
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", controllers.FavoriteList(deps.Favorites, logg))
				r.Get("/ids", controllers.FavoriteIDs(deps.Favorites, logg))
				r.Post("/", controllers.FavoriteAdd(deps.Favorites, logg))
				r.Delete("/{vehicleId}", controllers.FavoriteRemove(deps.Favorites, logg))
			})

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", controllers.BookmarkList(deps.Bookmarks, logg))
				r.Post("/", controllers.BookmarkAdd(deps.Bookmarks, logg))
				r.Patch("/{vehicleId}", controllers.BookmarkUpdateNote(deps.Bookmarks, logg))
				r.Delete("/{vehicleId}", controllers.BookmarkRemove(deps.Bookmarks, logg))
			})

			r.With(once(middleware.ReplayDay)).Post("/testimonials", controllers.TestimonialCreate(deps.Testimonials, logg))
			r.Delete("/testimonials/{testimonialId}", controllers.TestimonialDelete(deps.Testimonials, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
				r.With(once(middleware.ReplayDay)).Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
				r.With(once(middleware.ReplayDay)).Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			})

			// fleet
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Post("/vehicles", controllers.VehicleCreate(deps.Vehicles, logg))
				r.Patch("/vehicles/{vehicleId}", controllers.VehicleUpdate(deps.Vehicles, logg))
				r.Delete("/vehicles/{vehicleId}", controllers.VehicleDelete(deps.Vehicles, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Get("/ping", controllers.Ping("admin"))
				r.Post("/staff", controllers.AdminRegisterStaff(deps.Register, logg))
				r.Put("/opening-hours/{day}", controllers.OpeningHoursUpsert(deps.OpeningHours, logg))
			})
		})
	})

	return r
}
