package api

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/echofeed/echofeed/internal/apikey"
	"github.com/echofeed/echofeed/internal/api/handler"
	"github.com/echofeed/echofeed/internal/api/middleware"
	"github.com/echofeed/echofeed/internal/identity"
	"github.com/echofeed/echofeed/internal/oauth"
	"github.com/echofeed/echofeed/internal/obs"
	"github.com/echofeed/echofeed/internal/org"
	"github.com/echofeed/echofeed/internal/session"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger handler.DBPinger
	Version  string

	Orgs     org.Repository
	Sessions *session.Service
	Identity *identity.Service
	Keys     *apikey.Service
	OAuth    *oauth.Service
}

// NewRouter creates and configures a Chi router with all middleware and
// routes. The external and embed endpoints are unauthenticated surfaces; the
// /orgs subtree requires an authenticated (never identified) member session.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(obs.Instrument)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Method("GET", "/metrics", obs.Handler())

	signInHandler := handler.NewSignInHandler(deps.Identity, deps.Sessions)
	r.Post("/auth/external/sign-in", signInHandler.SignIn)
	r.Post("/auth/sign-out", signInHandler.SignOut)

	embedHandler := handler.NewEmbedHandler(deps.Identity, deps.Sessions)
	r.Route("/embed", func(r chi.Router) {
		r.Post("/identify", embedHandler.Identify)
		r.Post("/session", embedHandler.Session)
	})

	keyHandler := handler.NewAPIKeyHandler(deps.Keys)
	oauthHandler := handler.NewOAuthHandler(deps.OAuth)
	r.Route("/orgs/{slug}", func(r chi.Router) {
		r.Use(middleware.RequireAdminSession(deps.Sessions, deps.Orgs))

		r.Route("/api-keys", func(r chi.Router) {
			r.Post("/", keyHandler.Create)
			r.Get("/", keyHandler.List)
			r.Patch("/{id}", keyHandler.Toggle)
			r.Delete("/{id}", keyHandler.Delete)
		})

		r.Route("/integrations/{provider}", func(r chi.Router) {
			r.Post("/connect", oauthHandler.Connect)
			r.Get("/status", oauthHandler.Status)
			r.Delete("/", oauthHandler.Disconnect)
		})
	})

	return r
}
