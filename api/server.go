/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestLog: Structured request logging (zap)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/customers/*   Customer management, allocation, settlement
  /api/stocks/*      Stock records
  /api/orders/*      Orders, items, returns
  /api/shipments/*   Stock movements
  /api/dashboard     Counters
  /api/seed          Demo data (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - logging.go: Request log middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLog(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Put("/{id}", h.UpdateCustomer)
			r.Delete("/{id}", h.DeleteCustomer)
			r.Get("/{id}/allocation", h.GetAllocation)
			r.Post("/{id}/settle", h.SettleAdvance)
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", h.ListStock)
			r.Post("/", h.CreateStock)
			r.Get("/{id}", h.GetStock)
			r.Put("/{id}", h.UpdateStock)
			r.Delete("/{id}", h.DeleteStock)
			r.Get("/{id}/items", h.GetStockItems)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}", h.EditOrder)
			r.Delete("/{id}", h.DeleteOrder)
			r.Post("/{id}/items", h.AddOrderItem)
			r.Post("/{id}/return", h.ReturnOrder)
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", h.ListShipments)
			r.Post("/", h.CreateShipment)
			r.Get("/{id}", h.GetShipment)
			r.Put("/{id}", h.EditShipment)
			r.Delete("/{id}", h.DeleteShipment)
		})

		r.Get("/dashboard", h.GetDashboard)
		r.Post("/seed", h.LoadSeed)
	})

	return r
}
