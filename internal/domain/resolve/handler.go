package resolve

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler provides REST endpoints for term resolution.
type Handler struct {
	svc *Service
}

// NewHandler creates a new resolve handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers resolution routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/resolve", h.ResolveTerm)
	api.POST("/resolve/batch", h.ResolveBatch)
	api.GET("/concepts/:id/codes", h.ConceptCodes)
}

func getLimit(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > 50 {
		limit = 50
	}
	return limit
}

// ResolveTerm handles GET /api/v1/resolve?term=...&limit=...
func (h *Handler) ResolveTerm(c echo.Context) error {
	term := c.QueryParam("term")
	if term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'term' is required")
	}
	mappings, err := h.svc.ResolveTerm(c.Request().Context(), term, getLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if mappings == nil {
		mappings = []ResolvedMapping{}
	}
	return c.JSON(http.StatusOK, mappings)
}

// BatchRequest is the body of POST /api/v1/resolve/batch.
type BatchRequest struct {
	Terms []string `json:"terms"`
	Limit int      `json:"limit,omitempty"`
}

// ResolveBatch handles POST /api/v1/resolve/batch
func (h *Handler) ResolveBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Terms) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "terms is required")
	}
	mappings, err := h.svc.ResolveBatch(c.Request().Context(), req.Terms, req.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, mappings)
}

// ConceptCodes handles GET /api/v1/concepts/:id/codes
func (h *Handler) ConceptCodes(c echo.Context) error {
	result, err := h.svc.MapConcept(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if result == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no code mapping reachable for concept")
	}
	return c.JSON(http.StatusOK, result)
}
