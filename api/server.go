// Package api is the HTTP boundary of the catalog: it translates
// requests into catalog and insights calls and maps their outcomes onto
// status codes. All domain logic lives below it.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/csousa/bookdata-api/auth"
	"github.com/csousa/bookdata-api/catalog"
	"github.com/csousa/bookdata-api/config"
)

// Server wires the catalog store, auth services and routes behind a gin
// engine.
type Server struct {
	router  *gin.Engine
	store   *catalog.Store
	users   *auth.UserStore
	tokens  *auth.TokenService
	cfg     *config.APIConfig
	metrics *Metrics
}

// NewServer builds the HTTP server around an already-loaded store.
func NewServer(cfg *config.APIConfig, store *catalog.Store) (*Server, error) {
	users, err := auth.NewUserStore()
	if err != nil {
		return nil, err
	}

	gin.SetMode(cfg.Mode)
	s := &Server{
		router:  gin.New(),
		store:   store,
		users:   users,
		tokens:  auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		cfg:     cfg,
		metrics: NewMetrics(),
	}
	s.metrics.SetCatalogSize(store.Len())

	s.router.Use(gin.Recovery())
	s.router.Use(RequestLogger())
	s.router.Use(s.metrics.Handler())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	v1.GET("/health", s.health)

	books := v1.Group("/books")
	books.GET("", s.listBooks)
	books.GET("/search", s.searchBooks)
	books.GET("/top-rated", s.topRated)
	books.GET("/price-range", s.priceRange)
	books.GET("/:id", s.getBook)

	v1.GET("/categories", s.listCategories)

	stats := v1.Group("/stats")
	stats.GET("/overview", s.statsOverview)
	stats.GET("/categories", s.statsByCategory)

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", auth.Middleware(s.tokens, s.users), s.refresh)

	admin := v1.Group("/admin", auth.Middleware(s.tokens, s.users))
	admin.POST("/reload", s.reload)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the listener and blocks until it fails.
func (s *Server) Run() error {
	return s.router.Run(s.cfg.Addr)
}
