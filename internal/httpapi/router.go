package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"gearrental/internal/api"
	"gearrental/internal/booking"
	"gearrental/internal/payment"
	"gearrental/pkg/config"
)

type Dependencies struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Logger   logrus.FieldLogger
	Notifier booking.Notifier
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(api.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(api.CORSMiddleware(api.CORSOptions{
		AllowedOrigins: deps.Cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAgeSeconds:  600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	bookingHandlers := booking.Handlers{
		Cfg:      deps.Cfg,
		Store:    booking.NewRepository(deps.DB),
		Notifier: deps.Notifier,
		Logger:   deps.Logger,
	}
	paymentWebhook := payment.WebhookHandler{
		Secret: deps.Cfg.PaymentWebhookSecret,
		Store:  payment.NewRepository(deps.DB),
		Logger: deps.Logger,
	}

	r.Route("/v1", func(r chi.Router) {
		// Public: status copy for UI surfaces.
		r.Get("/booking-statuses", booking.StatusCatalog)

		r.Group(func(r chi.Router) {
			r.Use(api.Authenticate(deps.Cfg, deps.Logger))

			r.Get("/bookings", bookingHandlers.List)
			r.Post("/bookings", bookingHandlers.Create)
			r.Get("/bookings/{id}", bookingHandlers.Get)
			r.Patch("/bookings/{id}/status", bookingHandlers.PatchStatus)
			r.Get("/bookings/{id}/events", bookingHandlers.Events)
		})

		// Signed by the processor, not by a user token.
		r.Post("/webhooks/payments", paymentWebhook.ServeHTTP)
	})

	return r
}
