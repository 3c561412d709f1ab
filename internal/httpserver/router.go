package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/auth"
	"rbacadmin/internal/httpserver/handlers"
	"rbacadmin/internal/ratelimit"
)

const (
	apiName    = "RBAC Admin API"
	apiVersion = "1.0.0"
)

type Options struct {
	Tokens         *auth.Tokens
	LoginLimiter   *ratelimit.Limiter
	AllowedOrigins []string
	Environment    string
	Debug          bool
}

func NewRouter(db *gorm.DB, lg *zap.SugaredLogger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(lg), recoverer(lg, opts.Debug))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Process-Time", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(handlers.Debug(opts.Debug))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"message": apiName, "version": apiVersion})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "healthy", "environment": opts.Environment})
	})

	limitLogin := opts.LoginLimiter.Middleware(handlers.LoginLimited(lg))

	r.Route("/api/v1", func(api chi.Router) {
		api.With(limitLogin).Post("/auth/login", handlers.Login(db, lg, opts.Tokens))
		api.With(limitLogin).Post("/auth/login/json", handlers.LoginJSON(db, lg, opts.Tokens))

		api.Group(func(p chi.Router) {
			p.Use(auth.JWTAuth(db, opts.Tokens))
			su := p.With(auth.RequireSuperuser)

			p.Get("/auth/me", handlers.Me(lg))
			p.Post("/auth/logout", handlers.Logout(db, lg))
			p.Post("/auth/password", handlers.ChangePassword(db, lg))

			p.Get("/usuarios", handlers.ListUsers(db, lg))
			p.Get("/usuarios/{id}", handlers.GetUser(db, lg))
			p.Get("/usuarios/{id}/modulos", handlers.UserModules(db, lg))
			p.Put("/usuarios/{id}", handlers.UpdateUser(db, lg))
			su.Post("/usuarios", handlers.CreateUser(db, lg))
			su.Delete("/usuarios/{id}", handlers.DeleteUser(db, lg))
			su.Post("/usuarios/{id}/roles", handlers.AssignUserRoles(db, lg))

			p.Get("/roles", handlers.ListRoles(db, lg))
			p.Get("/roles/{id}", handlers.GetRole(db, lg))
			su.Post("/roles", handlers.CreateRole(db, lg))
			su.Put("/roles/{id}", handlers.UpdateRole(db, lg))
			su.Delete("/roles/{id}", handlers.DeleteRole(db, lg))
			su.Post("/roles/{id}/permisos", handlers.AssignRolePermissions(db, lg))
			su.Post("/roles/{id}/modulos", handlers.AssignRoleModules(db, lg))

			p.Get("/modulos", handlers.ListModules(db, lg))
			p.Get("/modulos/{id}", handlers.GetModule(db, lg))
			su.Post("/modulos", handlers.CreateModule(db, lg))
			su.Put("/modulos/{id}", handlers.UpdateModule(db, lg))
			su.Delete("/modulos/{id}", handlers.DeleteModule(db, lg))
			su.Post("/modulos/{id}/permisos", handlers.AssignModulePermissions(db, lg))

			p.Get("/permisos", handlers.ListPermissions(db, lg))
			p.Get("/permisos/{id}", handlers.GetPermission(db, lg))
			su.Post("/permisos", handlers.CreatePermission(db, lg))
			su.Put("/permisos/{id}", handlers.UpdatePermission(db, lg))
			su.Delete("/permisos/{id}", handlers.DeletePermission(db, lg))

			p.Get("/personas/me", handlers.GetPerson(db, lg))
			p.Post("/personas/me", handlers.CreatePerson(db, lg))
			p.Put("/personas/me", handlers.UpdatePerson(db, lg))
			p.Delete("/personas/me", handlers.DeletePerson(db, lg))
			p.Get("/personas/usuario/{id}", handlers.GetPerson(db, lg))
			p.Post("/personas/usuario/{id}", handlers.CreatePerson(db, lg))
			p.Put("/personas/usuario/{id}", handlers.UpdatePerson(db, lg))
			p.Delete("/personas/usuario/{id}", handlers.DeletePerson(db, lg))

			p.Get("/logs", handlers.MyLogs(db, lg))
		})
	})
	return r
}
