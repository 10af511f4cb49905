package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/panels", h.ListPanels)
	api.GET("/panels/:id/items", h.GetPanelItems)
}

func (h *Handler) ListPanels(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Panels())
}

func (h *Handler) GetPanelItems(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid panel id")
	}
	p, ok := h.catalog.PanelByID(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "panel not found")
	}
	return c.JSON(http.StatusOK, p.Items)
}
