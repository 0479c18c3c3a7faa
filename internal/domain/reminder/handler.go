package reminder

import (
	"net/http"

	"github.com/google/uuid"
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
	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.POST("/patients/:id/reminders", h.Create)
	doctors.GET("/patients/:id/reminders", h.ListForPatient)
	doctors.PUT("/reminders/:id", h.Update)
	doctors.POST("/reminders/:id/complete", h.Complete)
	doctors.DELETE("/reminders/:id", h.Delete)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.GET("/my/reminders", h.ListMine)
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	p, err := h.svc.Create(c.Request().Context(), doctorID, patientID, in)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	plans, err := h.svc.ListForPatient(c.Request().Context(), doctorID, patientID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *Handler) ListMine(c echo.Context) error {
	patientID := auth.UserIDFromContext(c.Request().Context())
	plans, err := h.svc.ListMine(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *Handler) Update(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reminder id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	p, err := h.svc.Update(c.Request().Context(), doctorID, planID, in)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Complete(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reminder id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	successor, err := h.svc.Complete(c.Request().Context(), doctorID, planID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, successor)
}

func (h *Handler) Delete(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reminder id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), doctorID, planID); err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.NoContent(http.StatusNoContent)
}
