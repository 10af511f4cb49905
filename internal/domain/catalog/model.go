package catalog

// Item is a single named quantity within a panel (e.g. cholesterol).
// Demographic items (gender) are stored alongside lab values but are never
// sent for classification.
type Item struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Unit        string `db:"unit" json:"unit"`
	Demographic bool   `db:"demographic" json:"demographic"`
}

// Panel is a named group of measurements ordered together (e.g. lipid
// profile). A test instance of the panel is complete when every item has a
// stored value.
type Panel struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Items []Item `json:"items"`
}

// RequiredItemIDs returns the ids of every item the panel requires.
func (p *Panel) RequiredItemIDs() []int64 {
	ids := make([]int64, len(p.Items))
	for i, item := range p.Items {
		ids[i] = item.ID
	}
	return ids
}

// DemographicItem returns the panel's demographic item, if it has one.
func (p *Panel) DemographicItem() (Item, bool) {
	for _, item := range p.Items {
		if item.Demographic {
			return item, true
		}
	}
	return Item{}, false
}
