package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice/internal/audit"
	"backoffice/internal/auth"
	"backoffice/internal/authz"
	"backoffice/internal/config"
	"backoffice/internal/httpserver/handlers"
	"backoffice/internal/models"
	"backoffice/internal/obs"
)

// NewRouter wires the authorization core into the HTTP surface. Every
// protected route runs through token verification and live actor
// re-resolution before any role or scope check.
func NewRouter(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) http.Handler {
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	issuer := auth.NewIssuer(db, tokens)
	rec := audit.NewRecorder(db, lg)
	eval := authz.NewEvaluator(db)
	loginLimiter := handlers.NewLoginLimiter(cfg.LoginRate, cfg.LoginBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Post("/v1/auth/login", handlers.Login(issuer, loginLimiter, lg))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.Authenticate(db, tokens))

		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Post("/v1/auth/password", handlers.ChangePassword(db, rec, lg))

		protected.Get("/v1/products", handlers.ListProducts(db, lg))
		protected.Get("/v1/permissions", handlers.ListCapabilities())
		protected.Post("/v1/capabilities/check", handlers.CheckCapability(eval, lg))
		protected.Post("/v1/capabilities/mine", handlers.MyCapabilities(eval, lg))

		protected.Get("/v1/audit", handlers.ListAuditLogs(rec, lg))
		protected.Get("/v1/audit/stats", handlers.AuditStats(rec, lg))

		protected.Route("/v1/companies", func(companies chi.Router) {
			companies.Get("/", handlers.ListCompanies(db, lg))
			companies.Get("/{id}", handlers.GetCompany(db, lg))

			companies.Group(func(sa chi.Router) {
				sa.Use(auth.RequireRole(models.RoleSuperAdmin))
				sa.Post("/", handlers.CreateCompany(db, rec, lg))
				sa.Delete("/{id}", handlers.DeleteCompany(db, rec, lg))
			})
			companies.Group(func(admin chi.Router) {
				admin.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleAdmin))
				admin.Patch("/{id}", handlers.UpdateCompany(db, rec, lg))
				admin.Put("/{id}/products", handlers.ReconcileSubscriptions(db, rec, lg))
			})
		})

		protected.Route("/v1/users", func(users chi.Router) {
			users.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleAdmin))
			users.Get("/", handlers.ListUsers(db, lg))
			users.Post("/", handlers.CreateUser(db, rec, lg))
			users.Patch("/{id}", handlers.UpdateUser(db, rec, lg))
			users.Delete("/{id}", handlers.DeleteUser(db, rec, lg))
			users.Put("/{id}/permissions", handlers.ReplaceGrants(db, rec, lg))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", obs.Handler())
	return r
}
