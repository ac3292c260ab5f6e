package recovery

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler provides REST endpoints for recovery scoring.
type Handler struct {
	svc *Service
}

// NewHandler creates a new recovery handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers recovery routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/recovery/score", h.ScoreSubject)
	api.POST("/recovery/score/batch", h.ScoreBatch)
}

// ScoreSubject handles POST /api/v1/recovery/score
func (h *Handler) ScoreSubject(c echo.Context) error {
	var in SubjectInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.Subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject is required")
	}
	result, err := h.svc.ScoreSubject(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// BatchRequest is the body of POST /api/v1/recovery/score/batch.
type BatchRequest struct {
	Subjects []SubjectInput `json:"subjects"`
}

// ScoreBatch handles POST /api/v1/recovery/score/batch
func (h *Handler) ScoreBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Subjects) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "subjects is required")
	}
	results, err := h.svc.ScoreBatch(c.Request().Context(), req.Subjects)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}
