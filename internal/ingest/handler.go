package ingest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/labcore/labcore/internal/platform/auth"
)

type Handler struct {
	pipeline *Pipeline
}

func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/lab-results/upload", h.upload)
}

func (h *Handler) upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()

	summary, err := h.pipeline.Run(c.Request().Context(), f, fileHeader.Filename,
		auth.UserIDFromContext(c.Request().Context()))
	if errors.Is(err, ErrNoData) {
		body := map[string]interface{}{"error": "file contains no usable lab results"}
		if summary != nil && len(summary.Warnings) > 0 {
			body["warnings"] = summary.Warnings
		}
		return c.JSON(http.StatusBadRequest, body)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}
