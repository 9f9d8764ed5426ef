package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/envirogo/envirogo-api/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса EnviroGo.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(custommiddleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/", h.Status)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/", h.Login)
		r.Post("/register", h.Register)
		r.With(h.authMiddleware.Middleware).Get("/validate", h.ValidateSession)
	})

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)

	r.Route("/payment", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/topup", h.TopUp)
			r.Post("/purchase/stripe", h.PurchaseStripe)
			r.Get("/history", h.ListTransactions)
			r.Get("/history/{id}", h.GetTransaction)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/user", h.GetUser)
		r.Put("/user", h.UpdateUser)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/", h.AddCartItem)
			r.Post("/checkout/confirm", h.Checkout)
			r.Put("/{id}", h.UpdateCartItem)
			r.Delete("/{id}", h.RemoveCartItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}", h.UpdateOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(custommiddleware.RequireAdmin)

			r.Get("/products", h.AdminListProducts)
			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)

			r.Get("/users", h.AdminListUsers)
			r.Post("/users", h.AdminCreateUser)
			r.Get("/users/{id}", h.AdminGetUser)
			r.Put("/users/{id}", h.AdminUpdateUser)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
