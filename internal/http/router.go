// Package httpapi wires the HTTP transport (Gin) to the book service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Every response body, including router fallbacks, is produced by the
// response package so clients always see the same envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-books-backend/docs"
	"github.com/tbourn/go-books-backend/internal/config"
	"github.com/tbourn/go-books-backend/internal/failure"
	"github.com/tbourn/go-books-backend/internal/http/handlers"
	"github.com/tbourn/go-books-backend/internal/http/middleware"
	"github.com/tbourn/go-books-backend/internal/http/response"
	"github.com/tbourn/go-books-backend/internal/repo"
	"github.com/tbourn/go-books-backend/internal/services"
)

const (
	routeNotFoundMessage  = "Route not found"
	methodNotAllowedMsg   = "Method not allowed"
	healthStatusOK        = "ok"
	corsMaxAge            = 12 * time.Hour
	idempotencyKeyMaxLen  = 200
	swaggerRoute          = "/swagger/*any"
	prometheusMetricsPath = "/metrics"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	corsExpose  = []string{"X-Request-ID", "Content-Length", middleware.HeaderIdempotencyReplayed}
)

// idempotencyLookup adapts the service's idempotency store to the
// middleware's lookup signature. A missing or expired record is a miss.
func idempotencyLookup(store services.IdempotencyStore) middleware.IdempotencyLookup {
	if store == nil {
		return nil
	}
	return func(ctx context.Context, key string, now time.Time) (bool, error) {
		rec, err := store.GetIdempotency(ctx, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		return rec != nil, nil
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the book API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with redaction
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, svc *services.BookService, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	// Trailing-slash variants fall through to NoRoute instead of a 301.
	r.RedirectTrailingSlash = false

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET(prometheusMetricsPath, gin.WrapH(promhttp.Handler()))

	r.Use(compress(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{prometheusMetricsPath}))))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: idempotencyKeyMaxLen},
		idempotencyLookup(svc.Idem),
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, failure.New(failure.NotFound, routeNotFoundMessage))
	})
	r.NoMethod(func(c *gin.Context) {
		response.Fail(c, failure.New(failure.MethodNotAllowed, methodNotAllowedMsg))
	})

	r.GET("/health", Health)

	if cfg.SwaggerEnabled {
		r.GET(swaggerRoute, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var opts []handlers.Option
	if cfg.RejectUnknownParams {
		opts = append(opts, handlers.WithRejectUnknownParams())
	}
	h := handlers.New(svc, opts...)
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/books", h.ListBooks)
		api.POST("/books", h.CreateBook)
		api.GET("/books/:id", h.GetBook)
		api.PUT("/books/:id", h.ReplaceBook)
		api.PATCH("/books/:id", h.PatchBook)
		api.DELETE("/books/:id", h.DeleteBook)
	}
}

// Health godoc
// @ID          health
// @Summary     Liveness check
// @Tags        Health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, map[string]any{"status": healthStatusOK})
}

// useCORS installs the CORS posture: allow all origins when none are
// configured, otherwise echo allowlisted origins.
func useCORS(r *gin.Engine, origins []string) {
	if len(origins) == 0 {
		// Force ACAO: * even without an Origin header so plain GETs see it.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           corsMaxAge,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExpose,
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}))
}

// compress runs gz except on DELETE, whose 204 carries no body to encode.
func compress(gz gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodDelete {
			c.Next()
			return
		}
		gz(c)
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
