package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Bookings     BookingCoordinator
	Availability AvailabilityChecker
	Inventory    InventoryWriter
	Holdings     HoldingLister
	DB           Pinger
	APIKeys      map[string]string
	RateLimit    int
	CORSOrigins  []string
	Logger       *log.Logger
}

// NewRouter wires the full route tree. /health is unauthenticated;
// everything under /api/v1 requires an API key and is rate limited
// per key.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(deps.Logger))
	r.Use(CORS(deps.CORSOrigins))

	r.Get("/health", HealthHandler(deps.DB))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(deps.APIKeys))
		r.Use(RateLimit(deps.RateLimit))

		r.Get("/availability", HandleAvailability(deps.Availability))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", HandleCreateBooking(deps.Bookings))
			r.Get("/{id}", HandleGetBooking(deps.Bookings))
			r.Put("/{id}", HandleModifyBooking(deps.Bookings))
			r.Post("/{id}/cancel", HandleCancelBooking(deps.Bookings))
			r.Post("/{id}/confirm", HandleTransition(deps.Bookings.ConfirmBooking))
			r.Post("/{id}/check-in", HandleTransition(deps.Bookings.CheckIn))
			r.Post("/{id}/check-out", HandleTransition(deps.Bookings.CheckOut))
			r.Post("/{id}/no-show", HandleTransition(deps.Bookings.MarkNoShow))
		})

		r.Route("/hotels/{hotelID}/room-types/{roomTypeID}", func(r chi.Router) {
			r.Put("/restrictions", HandleSetRestrictions(deps.Inventory))
			r.Put("/capacity", HandleSetCapacity(deps.Inventory))
			r.Get("/holding", HandleListHolding(deps.Holdings))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})

	return r
}
