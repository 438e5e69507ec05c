package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"market-gateway/src/gateway"
	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

var _ interfaces.IDataExchanger = (*APIServer)(nil)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Gateway  *gateway.Gateway
	Provider string

	engine     *gin.Engine
	httpServer *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, gw *gateway.Gateway, providerName string, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:   cfg,
		Logger:   logger,
		Gateway:  gw,
		Provider: providerName,
		engine:   gin.New(),
	}

	s.engine.Use(gin.Recovery(), s.accessLog())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	s.engine.GET("/stocks/:symbol", s.getStock)
	s.engine.GET("/stocks/options/:optionTicker", s.getOption)
	s.engine.GET("/api/health", s.getHealth)
}

// Handler exposes the routed engine (tests, embedding).
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks until the listener fails or Stop is called.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop drains in-flight requests, bounded by shutdownTimeout.
func (s *APIServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Logger.Info("Stopping server...")
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getStock(c *gin.Context) {
	body, err := s.Gateway.GetInstrument(c.Request.Context(), c.Param("symbol"), c.Query("apiKey"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getOption(c *gin.Context) {
	contract, err := s.Gateway.GetOption(c.Request.Context(), c.Param("optionTicker"), c.Query("apiKey"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": s.Provider,
		"store":    s.Config.Storage.DBType,
	})
}

// -----------------------------------------------------------------------------

// statusFor maps the error taxonomy to HTTP. Store and upstream failures surface as 404.
func statusFor(kind helpers.ErrorKind) int {
	switch kind {
	case helpers.KindBadRequest:
		return http.StatusBadRequest
	case helpers.KindUnauthorized:
		return http.StatusForbidden
	case helpers.KindNotFound, helpers.KindStoreUnavailable, helpers.KindUpstreamUnavailable:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) writeError(c *gin.Context, err error) {
	message := "Internal server error"
	var gwErr *helpers.GatewayError
	if errors.As(err, &gwErr) {
		message = gwErr.Message
	} else {
		s.Logger.Error("Unclassified error on %s: %v", c.FullPath(), err)
	}
	c.JSON(statusFor(helpers.KindOf(err)), gin.H{"error": message})
}

// -----------------------------------------------------------------------------

// accessLog records the route pattern, never the raw URL, so API keys stay out of logs.
func (s *APIServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.Logger.Zerolog().Info().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
