package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/festreg/app"
	"github.com/mbolis/festreg/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middlewares.AccessLog, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/register", Register(app))

	api.Get("/events", ListEvents(app))
	api.Get("/events/{param}", GetEvent(app))

	if app.TokenAuth != nil {
		api.Post("/login", Login(app))

		api.Route("/admin", func(r chi.Router) {
			r.Use(middlewares.Admin(app.TokenAuth))

			r.Get("/events/{param}/registrations", ListRegistrations(app))
		})
	}

	return api
}
