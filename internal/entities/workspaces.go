package entities

// Entities of the workspaces database: named window layouts and the page
// state of each window.

type Workspace struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:255" json:"name"`
	OrderNumber int    `json:"order_number"`

	CreatedAt     int64 `gorm:"autoCreateTime:milli" json:"created_at"`
	LastUpdatedOn int64 `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

type Window struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	WorkspaceID    string    `gorm:"size:36;index" json:"workspace_id"`
	Workspace      Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
	OrderNumber    int       `json:"order_number"`
	IsPinned       bool      `json:"is_pinned"`
	IsSynchronized bool      `json:"is_synchronized"` // scrolls with sibling windows

	CreatedAt     int64 `gorm:"autoCreateTime:milli" json:"created_at"`
	LastUpdatedOn int64 `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

// PageManager holds the current page of a window. Keyed by the window id
// (one page state per window), which is also its sync entity key.
type PageManager struct {
	WindowID        string `gorm:"primaryKey;size:36;column:window_id" json:"window_id"`
	Window          Window `gorm:"foreignKey:WindowID;constraint:OnDelete:CASCADE" json:"-"`
	CurrentDocument string `gorm:"size:100" json:"current_document"` // e.g. "ESV"
	CurrentKey      string `gorm:"size:255" json:"current_key"`      // e.g. "John.3.16"

	LastUpdatedOn int64 `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

func (Workspace) TableName() string {
	return "workspaces"
}

func (Window) TableName() string {
	return "windows"
}

func (PageManager) TableName() string {
	return "page_managers"
}
