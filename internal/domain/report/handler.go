package report

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/platform/apperr"
	"github.com/carebridge/carebridge/internal/platform/auth"
	"github.com/carebridge/carebridge/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.GET("/patients/:id/reports", h.ListForPatient)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.GET("/my/reports", h.ListMine)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	reports, total, err := h.svc.ListForPatient(c.Request().Context(), doctorID, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListMine(c echo.Context) error {
	patientID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	reports, total, err := h.svc.ListMine(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, pg.Limit, pg.Offset))
}
