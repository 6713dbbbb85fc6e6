package api

import (
	"net/http"

	"fintrack-server/src/handlers"
	"fintrack-server/src/middleware"
	"fintrack-server/src/util"

	"github.com/go-chi/chi/v5"
)

func NewRouter(d *handlers.Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CORS(d.Config.AllowedOrigins))
	r.Use(middleware.DemoMode(d.Config.DemoMode))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			util.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", handlers.Login(d))
		r.Post("/register", handlers.Register(d))
		r.Post("/logout", handlers.Logout(d))
		r.Post("/password/forgot", handlers.ForgotPassword(d))
		r.Post("/password/reset/{token}", handlers.ResetPassword(d))

		// Signed in, profile may be incomplete
		r.With(middleware.RequireAuthenticated(d.Tokens)).Group(func(r chi.Router) {
			r.Post("/profile/complete", handlers.CompleteProfile(d))
			r.Get("/profile", handlers.GetProfile(d))
			r.Put("/profile", handlers.UpdateProfile(d))
			r.Post("/user/change-password", handlers.ChangePassword(d))
			r.Delete("/user", handlers.DeleteUser(d))
		})

		// Signed in with a completed profile
		r.With(
			middleware.RequireAuthenticated(d.Tokens),
			middleware.RequireCompleteProfile(d.Store, d.Profiles),
		).Group(func(r chi.Router) {
			r.Get("/transactions", handlers.ListTransactions(d))
			r.Post("/transactions", handlers.CreateTransaction(d))
			r.Delete("/transactions/{transaction_id}", handlers.DeleteTransaction(d))
			r.Get("/summary", handlers.GetSummary(d))
			r.Get("/analytics", handlers.GetAnalytics(d))
		})
	})

	return r
}
