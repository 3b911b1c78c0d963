package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// NewRouter builds the kiosk API. Every route is traced with otelhttp.
func NewRouter(h *SessionHandler, log *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/qr.png", h.QRCode)
		r.Get("/cart.csv", h.CartCSV)
		r.Get("/last", h.LastNotification)

		r.Post("/start", h.command(h.kiosk.Start))
		r.Post("/review", h.command(h.kiosk.Review))
		r.Post("/resume", h.command(h.kiosk.Resume))
		r.Delete("/cart/{uid}", h.RemoveItem)

		r.Post("/checkout", h.command(h.kiosk.ConfirmPurchase))
		r.Post("/checkout/accept", h.command(h.kiosk.Accept))
		r.Post("/checkout/decline", h.command(h.kiosk.Decline))

		r.Post("/payment/assisted", h.command(h.kiosk.NoSmartphone))
		r.Post("/payment/phone", h.SubmitPhone)
		r.Post("/payment/complete", h.command(h.kiosk.Complete))

		r.Post("/restart", h.command(h.kiosk.Restart))
	})

	return otelhttp.NewHandler(r, "kiosk-api")
}
