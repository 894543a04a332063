package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"xanalytics/models"
)

// GetPrice returns the token price ticker. A failed upstream yields zeros.
func (h *Handler) GetPrice(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	price := h.Price.FetchPrice(ctx).ValueOr(models.XandPrice{})
	return c.JSON(http.StatusOK, price)
}
