package routes

import (
	"net/http"
	"path/filepath"

	"github.com/formden/formden/app"
	"github.com/formden/formden/model"
	"github.com/formden/formden/routes/middlewares"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	// uploaded thumbnails are served statically
	root.Mount("/uploads/forms",
		http.StripPrefix("/uploads/forms",
			http.FileServer(http.Dir(filepath.Join(app.UploadDir, "forms")))))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))
	api.Post("/register", Register(app))

	// public surface: respondents only hold a form id
	api.Get(`/forms/{id:^\d+$}/public`, PublicForm(app))
	api.Get(`/forms/{id:^\d+$}/fill`, FillRedirect(app))
	api.Post(`/forms/{id:^\d+$}/responses`, SubmitResponse(app))

	// anonymous feedback, reviewed by masters
	api.Post("/suggestions", CreateSuggestion(app))

	// owner-scoped form CRUD and results
	api.Route("/forms", func(r chi.Router) {
		r.Use(middlewares.Owner(app))

		r.With(middlewares.EnforceFreeLimit(app, model.ResourceForms, app.CountForms)).
			Post("/", CreateForm(app))
		r.Get("/", ListForms(app))
		r.Get(`/{id:^\d+$}`, GetForm(app))
		r.Put(`/{id:^\d+$}`, UpdateForm(app))
		r.Delete(`/{id:^\d+$}`, DeleteForm(app))

		r.Get(`/{id:^\d+$}/results`, FormResults(app))
		r.Get(`/{id:^\d+$}/export.csv`, ExportFormCSV(app))
	})

	api.Route("/tasks", func(r chi.Router) {
		r.Use(middlewares.Authenticated(app))

		r.With(middlewares.EnforceFreeLimit(app, model.ResourceTasks, app.CountTasks)).
			Post("/", CreateTask(app))
		r.Get("/", ListTasks(app))
		r.Put(`/{id:^\d+$}`, UpdateTask(app))
		r.Delete(`/{id:^\d+$}`, DeleteTask(app))
	})

	api.Route("/texts", func(r chi.Router) {
		r.Use(middlewares.Authenticated(app))

		r.With(middlewares.EnforceFreeLimit(app, model.ResourceTexts, app.CountTexts)).
			Post("/", CreateText(app))
		r.Get("/", ListTexts(app))
		r.Put(`/{id:^\d+$}`, UpdateText(app))
		r.Delete(`/{id:^\d+$}`, DeleteText(app))
	})

	api.Route("/master", func(r chi.Router) {
		r.Use(middlewares.Authenticated(app), middlewares.MasterOnly)

		r.Get("/summary", MasterSummary(app))
		r.Get("/limits", GetLimits(app))
		r.Put("/limits", UpdateLimits(app))

		r.Get("/suggestions", ListSuggestions(app))
		r.Get(`/suggestions/{id:^\d+$}`, GetSuggestion(app))
		r.Delete(`/suggestions/{id:^\d+$}`, DeleteSuggestion(app))
	})

	return api
}
