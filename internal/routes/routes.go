package routes

import (
	"net/http"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/middleware"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Dependencies are the handlers and guards the API is assembled from
type Dependencies struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Roles        *handlers.RoleHandler
	LoginHistory *handlers.LoginHistoryHandler

	Tokens   auth.ClaimsVerifier
	Grants   auth.GrantLookup
	Accounts auth.AccountLookup
	// AdminPermission is the catalog code required for administrative routes. Empty
	// means any bearer may call them.
	AdminPermission string

	AuthRateLimit   middleware.RateLimitConfig
	CallerRateLimit middleware.RateLimitConfig
}

// RegisterRoutes mounts the API under /api/v1
func RegisterRoutes(router chi.Router, deps Dependencies) {
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "route not found")
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) { authRoutes(r, deps) })
		r.Route("/user", func(r chi.Router) { userRoutes(r, deps) })
		r.Route("/RolePermissions", func(r chi.Router) { roleRoutes(r, deps) })
		r.Post("/LoginHistory/create-login-history", deps.LoginHistory.Create)
	})
}

func authRoutes(r chi.Router, deps Dependencies) {
	h := deps.Auth

	// Credential and code endpoints are limited per client address
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(deps.AuthRateLimit))
		r.Post("/login", h.LoginDirect)
		r.Post("/login-v2", h.Login)
		r.Post("/reset-password", h.ResetPassword)
		r.Get("/generate-otp", h.GenerateOtp)
		r.Post("/verify-otp", h.VerifyOtp)
	})

	r.Get("/user-check", h.UserCheck)
	r.Get("/user-reset-check", h.UserResetCheck)
	r.Get("/get-reset-password-token", h.GetResetPasswordToken)
	r.Get("/get-access-token", h.GetAccessToken)
	r.Get("/get-user-roles-permissions", h.GetUserRolesPermissions)

	r.With(admin(deps)...).Post("/unlock", h.Unlock)
}

func userRoutes(r chi.Router, deps Dependencies) {
	h := deps.Users

	r.With(middleware.RateLimitByIP(deps.AuthRateLimit)).Post("/", h.Register)
	r.With(middleware.RateLimitByIP(deps.AuthRateLimit)).Post("/validate-otp", h.ValidateOtp)
	r.Get("/get-user-types-and-agencies", h.UserTypesAndAgencies)

	r.Group(func(r chi.Router) {
		r.Use(admin(deps)...)
		r.With(auth.RequireAdmin(deps.Accounts)).Post("/admin", h.RegisterAdmin)
		r.Post("/paginated", h.ListUsers)
	})
}

func roleRoutes(r chi.Router, deps Dependencies) {
	h := deps.Roles

	r.Use(admin(deps)...)
	r.Get("/user-group/simple", h.ListUserGroups)
	r.Post("/module-permissions", h.CreateModulePermission)
	r.Get("/modules", h.ListModules)
	r.Get("/role/next-code", h.NextRoleCode)
	r.Post("/role/paginated", h.ListRoles)
	r.Post("/", h.CreateRole)
	r.Get("/{id}", h.GetRole)
	r.Put("/{id}", h.UpdateRole)
}

// admin is the guard chain for administrative routes
func admin(deps Dependencies) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		auth.RequireBearer(deps.Tokens),
		middleware.RateLimitByCaller(deps.CallerRateLimit),
		auth.RequirePermission(deps.Grants, deps.AdminPermission),
	}
}
