package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/dynaform/app"
	"github.com/mbolis/dynaform/metrics"
	"github.com/mbolis/dynaform/routes/middlewares"
)

const idPattern = `{id:^\d+$}`

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer, middleware.StripSlashes)
	if app.Metrics {
		root.Use(metrics.Middleware)
		root.Handle("/metrics", metrics.Handler())
	}

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	authenticated := middlewares.Authenticated(app.TokenSecret)
	admin := middlewares.Admin(app.TokenSecret)

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))
	api.Post("/signup", Signup(app))

	api.Route("/forms", func(r chi.Router) {
		r.Get("/", ListForms(app))
		r.Get("/"+idPattern, GetFormById(app))
		r.Get("/"+idPattern+"/responses", ListFormResponses(app))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", CreateForm(app))
			r.Patch("/"+idPattern, UpdateForm(app))
			r.Put("/"+idPattern, UpdateForm(app))
			r.Put("/"+idPattern+"/status", UpdateFormStatus(app))
			r.Post("/"+idPattern+"/submit", SubmitForm(app))
		})

		r.With(admin).Delete("/"+idPattern, DeleteForm(app))
	})

	api.Route("/responses", func(r chi.Router) {
		r.Get("/", ListResponses(app))
		r.Get("/"+idPattern, ListFormResponses(app))
		r.With(authenticated).Put("/"+idPattern+"/data", UpdateResponseData(app))
		r.With(admin).Post("/"+idPattern+"/clear", ClearResponses(app))
	})

	api.Route("/templates", func(r chi.Router) {
		r.Get("/", ListTemplates(app))
		r.Get("/"+idPattern+"/forms", ListTemplateForms(app))
		r.With(authenticated).Post("/", CreateTemplate(app))
		r.With(admin).Delete("/"+idPattern, DeleteTemplate(app))
	})

	return api
}
