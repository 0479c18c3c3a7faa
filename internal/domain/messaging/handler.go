package messaging

import (
	"net/http"
	"strconv"
	"strings"

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
	doctors.POST("/patients/:id/messages", h.SendToPatient)
	doctors.POST("/reports/:id/alert", h.SendAlert)
	doctors.POST("/patients/:patientId/doctors/:otherId/messages", h.SendToDoctor)
	doctors.PUT("/my/read/patient/:patientId", h.MarkPatientRead)
	doctors.PUT("/my/read/peer/:patientId/:otherId", h.MarkPeerRead)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.POST("/my/messages", h.SendFromPatient)
	patients.PUT("/my/read/doctor/:doctorId", h.MarkDoctorRead)
	patients.GET("/my/timeline", h.Timeline)

	everyone := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	everyone.GET("/my/messages", h.ListMine)
	everyone.GET("/my/threads", h.Threads)
	everyone.GET("/my/unread-count", h.UnreadCounts)
	everyone.PUT("/my/read/report/:reportId", h.MarkReportRead)
}

type sendMessageRequest struct {
	Text       string     `json:"text"`
	ReportID   *uuid.UUID `json:"report_id"`
	ToDoctorID *uuid.UUID `json:"to_doctor_id"`
}

type alertRequest struct {
	Severity string `json:"severity"`
	Text     string `json:"text"`
}

func (h *Handler) SendToPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	m, err := h.svc.SendChatToPatient(c.Request().Context(), doctorID, patientID, req.Text, req.ReportID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) SendFromPatient(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID := auth.UserIDFromContext(c.Request().Context())
	m, err := h.svc.SendChatFromPatient(c.Request().Context(), patientID, req.Text, req.ReportID, req.ToDoctorID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) SendAlert(c echo.Context) error {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	var req alertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	m, err := h.svc.SendAlert(c.Request().Context(), doctorID, reportID, req.Severity, req.Text)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) SendToDoctor(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	otherID, err := uuid.Parse(c.Param("otherId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	m, err := h.svc.SendDoctorToDoctor(c.Request().Context(), doctorID, patientID, otherID, req.Text)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMine(c echo.Context) error {
	viewerID := auth.UserIDFromContext(c.Request().Context())
	views, err := h.svc.ListMine(c.Request().Context(), viewerID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) Threads(c echo.Context) error {
	ctx := c.Request().Context()
	threads, err := h.svc.Threads(ctx, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, threads)
}

func (h *Handler) UnreadCounts(c echo.Context) error {
	viewerID := auth.UserIDFromContext(c.Request().Context())
	counts, err := h.svc.UnreadCounts(c.Request().Context(), viewerID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handler) MarkReportRead(c echo.Context) error {
	reportID, err := uuid.Parse(c.Param("reportId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	viewerID := auth.UserIDFromContext(c.Request().Context())
	n, err := h.svc.MarkReportRead(c.Request().Context(), viewerID, reportID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) MarkPatientRead(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	n, err := h.svc.MarkPatientRead(c.Request().Context(), doctorID, patientID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) MarkDoctorRead(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	patientID := auth.UserIDFromContext(c.Request().Context())
	n, err := h.svc.MarkDoctorRead(c.Request().Context(), patientID, doctorID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) MarkPeerRead(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	otherID, err := uuid.Parse(c.Param("otherId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	doctorID := auth.UserIDFromContext(c.Request().Context())
	n, err := h.svc.MarkPeerRead(c.Request().Context(), doctorID, patientID, otherID)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) Timeline(c echo.Context) error {
	var types []string
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	patientID := auth.UserIDFromContext(c.Request().Context())
	views, err := h.svc.Timeline(c.Request().Context(), patientID, types, limit)
	if err != nil {
		return echo.NewHTTPError(apperr.StatusCode(err), apperr.PublicMessage(err))
	}
	return c.JSON(http.StatusOK, views)
}
