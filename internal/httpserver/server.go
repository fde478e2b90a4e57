package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerui "github.com/swaggest/swgui/v5emb"

	"github.com/linkmint/linkmint/internal/auth"
	"github.com/linkmint/linkmint/internal/cachestore"
	"github.com/linkmint/linkmint/internal/core"
	"github.com/linkmint/linkmint/internal/shortener"
)

const docsURL = "/docs/"

// UserStore is the slice of the datastore the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the optional parts of the HTTP surface.
type Options struct {
	Addr          string
	PublicBaseURL string
	SwaggerJSON   []byte
	Limiter       *cachestore.RateLimiter
	HealthPingers []Pinger
}

// Server is the REST surface plus the root-level redirect route.
type Server struct {
	server  *http.Server
	logger  *slog.Logger
	svc     *shortener.Service
	users   UserStore
	auth    auth.Manager
	baseURL string
	pingers []Pinger
}

func NewServer(logger *slog.Logger, svc *shortener.Service, users UserStore, authMgr auth.Manager, opts Options) *Server {
	s := &Server{
		logger:  logger,
		svc:     svc,
		users:   users,
		auth:    authMgr,
		baseURL: opts.PublicBaseURL,
		pingers: opts.HealthPingers,
	}
	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: s.registerEndpoints(opts),
	}
	return s
}

func (s *Server) registerEndpoints(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	api := router.Group("/api")
	if opts.Limiter != nil {
		api.Use(opts.Limiter.Middleware())
	}

	api.POST("/auth/register", s.registerHandler)
	api.POST("/auth/login", s.loginHandler)

	urls := api.Group("/urls", s.auth.Middleware())
	urls.POST("/shorten", s.shortenHandler)
	urls.GET("/my-urls", s.myURLsHandler)
	urls.DELETE("/:shortUrl", s.deleteHandler)

	router.GET("/healthz", s.healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if len(opts.SwaggerJSON) > 0 {
		router.GET("/swagger.json", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", opts.SwaggerJSON)
		})
		router.GET("/docs/*any", gin.WrapH(swaggerui.New("linkmint API", "/swagger.json", docsURL)))
	}

	// Everything else is a candidate short code.
	router.NoRoute(s.redirectHandler)

	return router
}

// Run starts the listener and wires graceful shutdown to ctx.
func (s *Server) Run(ctx context.Context, wg *sync.WaitGroup) error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.Info("starting http service", "addr", s.server.Addr)
		if serveErr := s.server.Serve(lis); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("http server failed to serve", "error", serveErr)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := s.server.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error("http server graceful shutdown failed", "error", shutdownErr)
		}
	}()

	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not serving"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "serving"})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
