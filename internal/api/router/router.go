package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"gosementes/internal/api/chamber"
	"gosementes/internal/api/location"
	"gosementes/internal/api/product"
	"gosementes/internal/api/user"
	"gosementes/internal/api/withdrawal"
	"gosementes/internal/domain"
	"gosementes/internal/pkg/cache"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/pkg/metrics"
	"gosementes/internal/pkg/middleware"
)

// Handlers agrupa os Handlers já inicializados por injeção de dependências.
type Handlers struct {
	Product    *product.Handler
	Chamber    *chamber.Handler
	Location   *location.Handler
	Withdrawal *withdrawal.Handler
	User       *user.Handler
}

// Options configura os middlewares globais.
type Options struct {
	TokenService    middleware.TokenService
	Cache           cache.Client
	Metrics         *metrics.Metrics
	Logger          logger.Logger
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, opts Options) http.Handler {
	r := mux.NewRouter()

	// --- 1. Rotas operacionais ---
	r.HandleFunc("/ping", PingHandler).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// --- 2. Rotas públicas ---
	public := r.PathPrefix("/v1").Subrouter()
	public.HandleFunc("/login", h.User.LoginUserHandler).Methods(http.MethodPost)
	public.HandleFunc("/register", h.User.RegisterUserHandler).Methods(http.MethodPost)

	// --- 3. Rotas protegidas ---
	api := r.PathPrefix("/v1").Subrouter()
	api.Use(middleware.NewAuthMiddleware(opts.TokenService))

	admin := middleware.PermissionMiddleware(domain.RoleAdmin)
	operador := middleware.PermissionMiddleware(domain.RoleOperador)
	anyone := middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleOperador)

	route := func(path string, guard func(http.Handler) http.Handler, fn http.HandlerFunc, method string) {
		api.Handle(path, guard(fn)).Methods(method)
	}

	// Usuários
	route("/users", admin, h.User.CreateUserHandler, http.MethodPost)

	// Câmaras
	route("/chambers", admin, h.Chamber.CreateChamberHandler, http.MethodPost)
	route("/chambers", anyone, h.Chamber.ListChambersHandler, http.MethodGet)
	route("/chambers/{id}", anyone, h.Chamber.GetChamberHandler, http.MethodGet)
	route("/chambers/{id}/conditions", admin, h.Chamber.UpdateConditionsHandler, http.MethodPatch)
	route("/chambers/{id}/locations", anyone, h.Chamber.ListLocationsHandler, http.MethodGet)
	route("/chambers/{id}/locations:generate", admin, h.Chamber.GenerateLocationsHandler, http.MethodPost)

	// Localizações (available antes de {id})
	route("/locations/available", anyone, h.Location.AvailableHandler, http.MethodGet)
	route("/locations/{id}", anyone, h.Location.GetLocationHandler, http.MethodGet)
	route("/locations/{id}/movements", anyone, h.Location.LocationMovementsHandler, http.MethodGet)

	// Produtos
	route("/products", anyone, h.Product.CreateProductHandler, http.MethodPost)
	route("/products", anyone, h.Product.ListProductsHandler, http.MethodGet)
	route("/products/{id}", anyone, h.Product.GetProductHandler, http.MethodGet)
	route("/products/{id}/allocations", anyone, h.Product.AllocationsHandler, http.MethodGet)
	route("/products/{id}/movements", anyone, h.Location.ProductMovementsHandler, http.MethodGet)
	route("/products/{id}/replay", anyone, h.Location.ReplayHandler, http.MethodGet)
	route("/products/{id}/intake-complete", anyone, h.Product.CompleteIntakeHandler, http.MethodPost)
	route("/products/{id}/locate", operador, h.Product.LocateHandler, http.MethodPost)
	route("/products/{id}/locate-optimal", operador, h.Product.LocateOptimalHandler, http.MethodPost)
	route("/products/{id}/move", operador, h.Product.MoveHandler, http.MethodPost)
	route("/products/{id}/partial-move", operador, h.Product.PartialMoveHandler, http.MethodPost)
	route("/products/{id}/add-stock", admin, h.Product.AddStockHandler, http.MethodPost)
	route("/products/{id}/partial-exit", admin, h.Product.PartialExitHandler, http.MethodPost)
	route("/products/{id}/remove", admin, h.Product.RemoveHandler, http.MethodPost)

	// Movimentações
	route("/movements", anyone, h.Location.ListMovementsHandler, http.MethodGet)

	// Retiradas
	route("/withdrawals", admin, h.Withdrawal.RequestHandler, http.MethodPost)
	route("/withdrawals", anyone, h.Withdrawal.ListHandler, http.MethodGet)
	route("/withdrawals/{id}", anyone, h.Withdrawal.GetHandler, http.MethodGet)
	route("/withdrawals/{id}/confirm", operador, h.Withdrawal.ConfirmHandler, http.MethodPost)
	route("/withdrawals/{id}/cancel", admin, h.Withdrawal.CancelHandler, http.MethodPost)

	// --- 4. Middlewares globais (o primeiro registrado é o mais externo) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(opts.Logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	if opts.Cache != nil && opts.RateLimit > 0 {
		r.Use(middleware.RateLimiter(opts.Cache, opts.RateLimit, opts.RateLimitWindow, opts.Logger))
	}

	return r
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
