package recommendation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labcore/labcore/internal/platform/auth"
	"github.com/labcore/labcore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/recommendations")
	g.POST("", h.generate)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/send", h.send)
	g.PATCH("/:id", h.updateText)
}

type generateReq struct {
	PatientNumber string `json:"hn_number"`
	TestDate      string `json:"test_date"`
	DoctorID      int64  `json:"doctor_id"`
}

func (h *Handler) generate(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hn_number is required")
	}
	if req.DoctorID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	testDate, err := time.Parse("2006-01-02", req.TestDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "test_date must be YYYY-MM-DD")
	}

	rec, err := h.svc.Generate(c.Request().Context(), req.PatientNumber, testDate, req.DoctorID,
		auth.UserIDFromContext(c.Request().Context()))
	switch {
	case errors.Is(err, ErrNoData):
		return echo.NewHTTPError(http.StatusNotFound, "no lab results for patient and date")
	case errors.Is(err, ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "recommendation already exists")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{
		PatientNumber: c.QueryParam("hn_number"),
		Status:        c.QueryParam("status"),
	}

	recs, total, err := h.svc.List(c.Request().Context(), filter, p)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, p.Limit, p.Offset))
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recommendation id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "recommendation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) approve(c echo.Context) error {
	return h.doTransition(c, h.svc.Approve)
}

func (h *Handler) send(c echo.Context) error {
	return h.doTransition(c, h.svc.Send)
}

func (h *Handler) doTransition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Recommendation, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recommendation id")
	}
	rec, err := fn(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "recommendation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

type updateTextReq struct {
	Text string `json:"text"`
}

func (h *Handler) updateText(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recommendation id")
	}
	var req updateTextReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := h.svc.UpdateText(c.Request().Context(), id, req.Text)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "recommendation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}
