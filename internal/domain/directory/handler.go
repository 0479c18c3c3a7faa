package directory

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/platform/apperr"
	"github.com/carebridge/carebridge/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/my/profile", h.Profile)
}

func (h *Handler) Profile(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	u, err := h.svc.Profile(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, u)
}
