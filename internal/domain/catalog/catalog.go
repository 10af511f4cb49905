package catalog

import (
	"context"
	"fmt"
)

// Catalog is an immutable in-memory view of the panel reference data, loaded
// once at startup and passed by reference to the ingestion pipeline. Keeping
// the lookup in memory makes completeness checks pure functions and avoids a
// store round-trip per uploaded row.
type Catalog struct {
	panels   []*Panel
	byID     map[int64]*Panel
	byColumn map[string]Item
}

// Load reads all panels through the repository and builds the lookup tables.
func Load(ctx context.Context, repo Repository) (*Catalog, error) {
	panels, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load panel catalog: %w", err)
	}
	if len(panels) == 0 {
		return nil, fmt.Errorf("panel catalog is empty")
	}
	return New(panels), nil
}

// New builds a Catalog from already-loaded panels.
func New(panels []*Panel) *Catalog {
	c := &Catalog{
		panels:   panels,
		byID:     make(map[int64]*Panel, len(panels)),
		byColumn: make(map[string]Item),
	}
	for _, p := range panels {
		c.byID[p.ID] = p
		for _, item := range p.Items {
			c.byColumn[item.Name] = item
		}
	}
	return c
}

// Panels returns every panel in id order.
func (c *Catalog) Panels() []*Panel {
	return c.panels
}

// PanelByID returns the panel with the given id.
func (c *Catalog) PanelByID(id int64) (*Panel, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// ItemByColumn resolves an uploaded column name to a measurement item. Column
// names match an item's canonical name exactly; anything else is not a
// measurement column.
func (c *Catalog) ItemByColumn(name string) (Item, bool) {
	item, ok := c.byColumn[name]
	return item, ok
}

// Complete reports whether every required item id has a stored value. It is
// the single completeness rule shared by all ingestion paths.
func Complete(required, stored []int64) bool {
	have := make(map[int64]bool, len(stored))
	for _, id := range stored {
		have[id] = true
	}
	for _, id := range required {
		if !have[id] {
			return false
		}
	}
	return true
}
