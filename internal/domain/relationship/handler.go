package relationship

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
	doctors.POST("/patients/:email/assign", h.AssignPatient)
	doctors.DELETE("/patients/:email/assign", h.RemovePatient)
	doctors.GET("/patients", h.ListPatients)
	doctors.GET("/patients/search", h.SearchPatients)
	doctors.GET("/patients/:id/colleagues", h.ListColleagues)
}

func (h *Handler) AssignPatient(c echo.Context) error {
	doctorID := auth.UserIDFromContext(c.Request().Context())
	u, err := h.svc.AssignPatient(c.Request().Context(), doctorID, c.Param("email"))
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) RemovePatient(c echo.Context) error {
	doctorID := auth.UserIDFromContext(c.Request().Context())
	if _, err := h.svc.RemovePatient(c.Request().Context(), doctorID, c.Param("email")); err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatients(c echo.Context) error {
	doctorID := auth.UserIDFromContext(c.Request().Context())
	users, err := h.svc.ListPatients(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.SearchPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListColleagues(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	users, err := h.svc.ListColleagues(c.Request().Context(), doctorID, patientID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, users)
}
