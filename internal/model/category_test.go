package model

import "testing"

func TestAllCategoriesClosedSet(t *testing.T) {
	cats := AllCategories()

	// 27 defined categories plus the catch-all.
	if len(cats) != 28 {
		t.Fatalf("expected 28 categories, got %d", len(cats))
	}

	seen := make(map[Category]bool, len(cats))
	for _, c := range cats {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true

		if !c.Valid() {
			t.Errorf("category %q should be valid", c)
		}
	}

	if !seen[CategoryOther] {
		t.Error("enumeration must include the catch-all category")
	}
}

func TestCategoryValid(t *testing.T) {
	if Category("made_up_category").Valid() {
		t.Error("unknown category should not be valid")
	}
	if Category("").Valid() {
		t.Error("empty category should not be valid")
	}
	if !CategoryDepreciation.Valid() {
		t.Error("depreciation should be valid")
	}
}
