package server

import (
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/aman-zulfiqar/hustler-market/internal/trade"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps domain errors onto HTTP status codes.
// Anything unrecognised came from an upstream collaborator.
func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrInvalidArgument),
		errors.Is(err, trade.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, trade.ErrUnknownDrug),
		errors.Is(err, trade.ErrUnknownLocation):
		return http.StatusNotFound
	case errors.Is(err, trade.ErrZeroQuantity),
		errors.Is(err, trade.ErrExceedsLimit),
		errors.Is(err, trade.ErrRiskRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
