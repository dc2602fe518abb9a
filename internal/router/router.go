package router

import (
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ProConnect-Lab/proconnect-backend/internal/admin"
	"github.com/ProConnect-Lab/proconnect-backend/internal/company"
	"github.com/ProConnect-Lab/proconnect-backend/internal/post"
	"github.com/ProConnect-Lab/proconnect-backend/internal/session"
	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	"github.com/ProConnect-Lab/proconnect-backend/internal/user"
)

// Config holds HTTP server settings.
type Config struct {
	Addr              string
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
}

// ConfigFromEnv reads HTTP_ADDR and CORS_ALLOWED_ORIGINS (comma separated).
func ConfigFromEnv() Config {
	cfg := Config{Addr: "0.0.0.0:8000", ReadHeaderTimeout: 10 * time.Second}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	return cfg
}

// Deps are the collaborators every route shares.
type Deps struct {
	Store   store.Store
	Session session.Config
	// Hasher defaults to bcrypt at its default cost.
	Hasher user.PasswordHasher
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, cfg Config, deps Deps) http.Handler {
	mux := http.NewServeMux()

	sessions := session.NewService(deps.Store, deps.Session, logger)
	mw := session.NewMiddleware(sessions, logger)
	users := user.NewService(deps.Store, deps.Hasher, logger)

	userHandler := user.NewHandler(users, sessions, logger)
	companyHandler := company.NewHandler(company.NewService(deps.Store, logger), logger)
	postHandler := post.NewHandler(post.NewService(deps.Store, logger), logger)
	adminHandler := admin.NewHandler(admin.NewService(deps.Store, logger), users, sessions, logger)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// member surface
	mux.HandleFunc("POST /register", userHandler.Register)
	mux.HandleFunc("POST /login", userHandler.Login)
	mux.Handle("POST /logout", mw.Member(userHandler.Logout))
	mux.Handle("GET /profile", mw.Member(userHandler.Profile))
	mux.Handle("PUT /profile", mw.Member(userHandler.UpdateProfile))

	mux.Handle("GET /companies", mw.Member(companyHandler.List))
	mux.Handle("POST /companies", mw.Member(companyHandler.Create))
	mux.Handle("PUT /companies/{id}", mw.Member(companyHandler.Update))
	mux.Handle("DELETE /companies/{id}", mw.Member(companyHandler.Delete))

	mux.Handle("GET /posts", mw.Member(postHandler.List))
	mux.Handle("POST /posts", mw.Member(postHandler.Create))
	mux.Handle("PUT /posts/{id}", mw.Member(postHandler.Update))
	mux.Handle("DELETE /posts/{id}", mw.Member(postHandler.Delete))

	// admin surface
	mux.HandleFunc("POST /admin/login", adminHandler.Login)
	mux.Handle("POST /admin/logout", mw.Admin(adminHandler.Logout))
	mux.Handle("GET /admin/me", mw.Admin(adminHandler.Me))
	mux.Handle("GET /admin/admins", mw.Admin(adminHandler.ListAdmins))
	mux.Handle("POST /admin/admins", mw.Admin(adminHandler.CreateAdmin))
	mux.Handle("GET /admin/stats", mw.Admin(adminHandler.Stats))

	mux.Handle("GET /admin/users", mw.Admin(adminHandler.Users))
	mux.Handle("DELETE /admin/users/{id}", mw.Admin(adminHandler.DeleteUser))

	mux.Handle("GET /admin/companies", mw.Admin(adminHandler.Companies))
	mux.Handle("GET /admin/companies/all", mw.Admin(adminHandler.AllCompanies))
	mux.Handle("DELETE /admin/companies/{id}", mw.Admin(adminHandler.DeleteCompany))

	mux.Handle("GET /admin/posts", mw.Admin(adminHandler.Posts))
	mux.Handle("POST /admin/posts", mw.Admin(adminHandler.CreatePost))
	mux.Handle("PUT /admin/posts/{id}", mw.Admin(adminHandler.UpdatePost))
	mux.Handle("DELETE /admin/posts/{id}", mw.Admin(adminHandler.DeletePost))

	// outermost first: request id, logging, recover, cors, security headers
	var handler http.Handler = mux
	handler = SecurityHeadersMiddleware()(handler)
	handler = CORSMiddleware(cfg.AllowedOrigins)(handler)
	handler = RecoverMiddleware(logger)(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
