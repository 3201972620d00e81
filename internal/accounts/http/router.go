package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/accounts/api/accounts" // Swagger docs
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	prefix         string
	buildVersion   string
	startTime      time.Time
	logger         *slog.Logger
	exposeInternal bool
	checks         []ReadinessCheck

	AuthService      *service.AuthService
	UserAdminService *service.UserAdminService

	// KeySet is set when tokens are JWTs and enables the JWKS endpoint.
	KeySet *jwtx.KeySet
}

// NewRouter builds an empty router. Routes are mounted under prefix ("" or
// e.g. "/api"). exposeInternal puts internal error causes in 500 bodies.
func NewRouter(prefix, buildVersion string, logger *slog.Logger, exposeInternal bool) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		prefix:         prefix,
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		logger:         logger,
		exposeInternal: exposeInternal,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// AddReadinessCheck registers a dependency for /readyz. Call it before
// ApplyRoutes.
func (r *Router) AddReadinessCheck(name string, check func(ctx context.Context) error) {
	r.checks = append(r.checks, ReadinessCheck{Name: name, Check: check})
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("GET "+r.prefix+"/metrics", promhttp.Handler())
	r.Mux.Handle(r.prefix+"/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Accounts API
//	@version					0.1.0
//	@description				User accounts: registration, bearer-token login and logout, and user administration.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/accounts
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token returned by /login. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn resolves bearer tokens through AuthService.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(httpx.AuthenticatorFunc(
		func(ctx context.Context, token string) (string, error) {
			user, err := r.AuthService.Authenticate(ctx, token)
			if service.KindOf(err) == service.KindUnauthorized {
				return "", httpx.ErrInvalidToken
			}
			if err != nil {
				return "", err
			}
			return user.ID, nil
		},
	))
}

func (r *Router) handle(method, path string, h http.Handler, mws ...httpx.Middleware) {
	chain := append([]httpx.Middleware{httpx.Instrument(path)}, mws...)
	r.Mux.Handle(method+" "+r.prefix+path, httpx.Chain(h, chain...))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, errs: r.errorWriter()}

	// Credential endpoints: strict, by IP and the username being tried.
	r.handle(http.MethodPost, "/register", http.HandlerFunc(h.HandleRegister),
		httpx.RateLimitByIPAndField(httpx.StrictLimit, "username"),
	)
	r.handle(http.MethodPost, "/login", http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIPAndField(httpx.StrictLimit, "username"),
	)

	r.handle(http.MethodPost, "/logout", http.HandlerFunc(h.HandleLogout),
		r.authn(),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserAdminService: r.UserAdminService, errs: r.errorWriter()}

	read := []httpx.Middleware{r.authn(), httpx.RateLimitByUser(httpx.LenientLimit)}
	write := []httpx.Middleware{r.authn(), httpx.RateLimitByUser(httpx.ModerateLimit)}

	r.handle(http.MethodGet, "/users", http.HandlerFunc(h.HandleList), read...)
	r.handle(http.MethodGet, "/users/{id}", http.HandlerFunc(h.HandleShow), read...)

	r.handle(http.MethodPost, "/users", http.HandlerFunc(h.HandleCreate), write...)
	r.handle(http.MethodPut, "/users/{id}", http.HandlerFunc(h.HandleUpdate), write...)
	r.handle(http.MethodPatch, "/users/{id}", http.HandlerFunc(h.HandleUpdate), write...)
	r.handle(http.MethodPatch, "/users/{id}/password", http.HandlerFunc(h.HandleUpdatePassword), write...)
	r.handle(http.MethodDelete, "/users/{id}", http.HandlerFunc(h.HandleDestroy), write...)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.handle(http.MethodGet, "/livez", LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)
	r.handle(http.MethodGet, "/readyz", ReadyzHandler(r.startTime, r.buildVersion, r.checks),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)

	if r.KeySet != nil {
		r.handle(http.MethodGet, "/.well-known/jwks.json", JWKSHandler(r.KeySet),
			httpx.RateLimitByIP(httpx.PublicLimit),
		)
	}
}

func (r *Router) errorWriter() *errorWriter {
	return &errorWriter{exposeInternal: r.exposeInternal}
}
