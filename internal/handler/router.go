package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sanapay/sanapay-system/internal/middleware"
)

// SetupRouter настраивает маршруты HTTP API.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.GzipMiddleware)
	r.Use(middleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/profile", h.GetProfile)

			r.Route("/ewallet", func(r chi.Router) {
				r.Get("/me", h.GetWallet)
				r.Post("/deposit", h.Deposit)
				r.Post("/withdraw", h.Withdraw)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Post("/transfer", h.Transfer)
				r.Get("/history", h.GetHistory)
				r.Get("/stats", h.GetStats)
			})

			r.Route("/bills", func(r chi.Router) {
				r.Post("/", h.CreateBill)
				r.Get("/", h.ListBills)

				r.Route("/{billID}", func(r chi.Router) {
					r.Get("/", h.GetBill)
					r.Put("/", h.UpdateBill)
					r.Delete("/", h.DeleteBill)
					r.Post("/pay", h.PayBill)
				})
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/summary", h.GetSummary)
				r.Get("/monthly", h.GetMonthly)
				r.Get("/yearly", h.GetYearly)
				r.Get("/categories", h.GetCategories)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
