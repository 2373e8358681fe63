package sync

import "fmt"

// Category identifies one synchronized database. Every category lives in
// its own SQLite file with its own change log and watermark, and patch
// files never mix categories.
type Category string

const (
	CategoryBookmarks    Category = "bookmarks"
	CategoryReadingPlans Category = "readingplans"
	CategoryWorkspaces   Category = "workspaces"
)

// TableDef describes one synchronized table: its name and the column(s)
// forming the entity key recorded in the change log. KeyColumn2 is empty
// for tables with a single-column key.
type TableDef struct {
	Name       string
	KeyColumn  string
	KeyColumn2 string
}

// Composite reports whether the table uses a two-column entity key.
func (t TableDef) Composite() bool {
	return t.KeyColumn2 != ""
}

// CategoryDef lists the synchronized tables of one category. Tables are
// ordered parents before children so that merge and repair passes can walk
// them in foreign key order.
type CategoryDef struct {
	Category    Category
	Description string
	Tables      []TableDef
}

// Table returns the definition of the named table.
func (d CategoryDef) Table(name string) (TableDef, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableDef{}, false
}

// TableNames returns the table names in registry order.
func (d CategoryDef) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}

var categories = []CategoryDef{
	{
		Category:    CategoryBookmarks,
		Description: "Bookmarks, labels and study pads",
		Tables: []TableDef{
			{Name: "labels", KeyColumn: "id"},
			{Name: "bookmarks", KeyColumn: "id"},
			{Name: "bookmark_labels", KeyColumn: "bookmark_id", KeyColumn2: "label_id"},
			{Name: "study_pad_entries", KeyColumn: "id"},
		},
	},
	{
		Category:    CategoryReadingPlans,
		Description: "Reading plan progress",
		Tables: []TableDef{
			{Name: "reading_plans", KeyColumn: "id"},
			{Name: "reading_plan_statuses", KeyColumn: "id"},
		},
	},
	{
		Category:    CategoryWorkspaces,
		Description: "Workspace and window layout",
		Tables: []TableDef{
			{Name: "workspaces", KeyColumn: "id"},
			{Name: "windows", KeyColumn: "id"},
			{Name: "page_managers", KeyColumn: "window_id"},
		},
	},
}

// Categories returns all synchronized categories in a stable order.
func Categories() []CategoryDef {
	defs := make([]CategoryDef, len(categories))
	copy(defs, categories)
	return defs
}

// Lookup returns the definition of a category.
func Lookup(c Category) (CategoryDef, bool) {
	for _, def := range categories {
		if def.Category == c {
			return def, true
		}
	}
	return CategoryDef{}, false
}

// ParseCategory validates a category name from user input.
func ParseCategory(s string) (CategoryDef, error) {
	if def, ok := Lookup(Category(s)); ok {
		return def, nil
	}
	return CategoryDef{}, fmt.Errorf("unknown sync category %q", s)
}
