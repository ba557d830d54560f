package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/swap-info", h.SwapInfo)
	v1.GET("/mints/:symbol", h.Mint)
	v1.GET("/destinations/:mint", h.Destinations)
	v1.GET("/routes", h.Routes)
	v1.GET("/quote", h.Quote)
	v1.POST("/fees", h.Fees)
	v1.GET("/swaps/recent", h.RecentSwaps)
	v1.GET("/swaps/owner/:owner", h.OwnerSwaps)

	// Swap submission is rate limited: each call signs and submits real
	// transactions
	swapGroup := v1.Group("/swap")
	swapGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.SwapRateLimit),
		Burst:     cfg.SwapRateBurst,
		ExpiresIn: 2 * time.Minute,
	})))
	swapGroup.POST("", h.SwapExecute)

	// Feature gates CRUD endpoints
	gateGroup := v1.Group("/gates")
	gateGroup.GET("", h.GatesList)
	gateGroup.POST("", h.GatesSet)
	gateGroup.GET("/:key", h.GatesGet)
	gateGroup.PUT("/:key", h.GatesUpdate)
	gateGroup.DELETE("/:key", h.GatesDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
