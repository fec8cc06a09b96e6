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
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	aiRate := cfg.AIRateLimit
	if aiRate <= 0 {
		aiRate = 0.2
	}

	// API v1 routes; slippage and max-quantity are stateless
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/catalog", h.Catalog)
	v1.POST("/slippage", h.Slippage)
	v1.POST("/max-quantity", h.MaxQuantity)

	// Game-scoped market data
	games := v1.Group("/games/:game")
	games.GET("/locations/:location/markets", h.Markets)
	games.GET("/locations/:location/markets/:drug/limits", h.Limits)
	games.GET("/locations/:location/markets/:drug/quote", h.Quote)
	games.POST("/orders", h.CreateOrder)
	games.POST("/trades", h.ConfirmTrade)

	// Player history
	hist := games.Group("/players/:player/history")
	hist.GET("", h.History)
	hist.DELETE("", h.ResetHistory)
	hist.GET("/archive", h.ArchivedHistory)
	hist.POST("/trades", h.AddHistoryTrade)
	hist.POST("/encounters", h.AddEncounter)
	hist.POST("/turns", h.EndTurn)

	// AI endpoints with rate limiting
	aigroup := v1.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(aiRate),
		Burst:     2,               // Allow burst of 2 requests
		ExpiresIn: 2 * time.Minute, // Rate limit window
	})))
	aigroup.POST("/ask", h.AIAsk)        // Natural language to SQL endpoint
	aigroup.POST("/reports", h.AIReport) // Built-in game reports

	// Operator switches
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
