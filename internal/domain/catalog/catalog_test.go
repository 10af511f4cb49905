package catalog

import "testing"

func testPanels() []*Panel {
	return []*Panel{
		{ID: 1, Name: "Blood Pressure", Items: []Item{
			{ID: 1, Name: "Systolic", Unit: "mmHg"},
			{ID: 2, Name: "Diastolic", Unit: "mmHg"},
		}},
		{ID: 5, Name: "Uric Acid", Items: []Item{
			{ID: 18, Name: "Uric Acid", Unit: "mg/dL"},
			{ID: 9, Name: "Gender", Demographic: true},
		}},
	}
}

func TestPanelByID(t *testing.T) {
	c := New(testPanels())

	p, ok := c.PanelByID(5)
	if !ok {
		t.Fatal("expected panel 5")
	}
	if p.Name != "Uric Acid" {
		t.Errorf("unexpected panel name %q", p.Name)
	}
	if _, ok := c.PanelByID(99); ok {
		t.Error("expected lookup miss for unknown panel")
	}
}

func TestItemByColumn(t *testing.T) {
	c := New(testPanels())

	item, ok := c.ItemByColumn("Uric Acid")
	if !ok || item.ID != 18 {
		t.Fatalf("expected item 18, got %+v (ok=%v)", item, ok)
	}
	if _, ok := c.ItemByColumn("uric acid"); ok {
		t.Error("column matching must be exact")
	}
	if _, ok := c.ItemByColumn("Comment"); ok {
		t.Error("unrecognized columns must not resolve")
	}
}

func TestDemographicItem(t *testing.T) {
	panels := testPanels()

	if _, ok := panels[0].DemographicItem(); ok {
		t.Error("blood pressure panel has no demographic item")
	}
	item, ok := panels[1].DemographicItem()
	if !ok || item.Name != "Gender" {
		t.Errorf("expected Gender item, got %+v (ok=%v)", item, ok)
	}
}

func TestComplete(t *testing.T) {
	required := []int64{1, 2, 9}

	if !Complete(required, []int64{2, 9, 1}) {
		t.Error("all required items stored: expected complete")
	}
	if Complete(required, []int64{1, 2}) {
		t.Error("missing item 9: expected incomplete")
	}
	if !Complete(required, []int64{1, 2, 9, 42}) {
		t.Error("extra stored items must not affect completeness")
	}
	if !Complete(nil, nil) {
		t.Error("empty requirement is trivially complete")
	}
}
