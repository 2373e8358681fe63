// Package workspaces provides database operations for workspaces, windows
// and their page state.
//
// This package implements the WorkspaceStore interface defined in
// internal/http.
//
// # Usage
//
//	repo := workspaces.NewRepository(db)
//	workspace, err := repo.CreateWorkspace("Morning study", 0)
package workspaces

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/entities"
)

// Repository handles all workspace database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new workspaces repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWorkspace creates a new workspace.
func (r *Repository) CreateWorkspace(name string, orderNumber int) (*entities.Workspace, error) {
	workspace := &entities.Workspace{
		ID:          uuid.NewString(),
		Name:        name,
		OrderNumber: orderNumber,
	}
	if err := r.db.Create(workspace).Error; err != nil {
		return nil, err
	}
	return workspace, nil
}

// GetWorkspace retrieves a workspace by id.
func (r *Repository) GetWorkspace(id string) (*entities.Workspace, error) {
	var workspace entities.Workspace
	err := r.db.First(&workspace, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &workspace, nil
}

// ListWorkspaces retrieves all workspaces in display order.
func (r *Repository) ListWorkspaces() ([]entities.Workspace, error) {
	var workspaces []entities.Workspace
	err := r.db.Order("order_number, name").Find(&workspaces).Error
	return workspaces, err
}

// RenameWorkspace changes the name of a workspace.
func (r *Repository) RenameWorkspace(id, name string) error {
	return r.db.Model(&entities.Workspace{}).Where("id = ?", id).Update("name", name).Error
}

// DeleteWorkspace removes a workspace; its windows and their page state
// cascade.
func (r *Repository) DeleteWorkspace(id string) error {
	return r.db.Delete(&entities.Workspace{}, "id = ?", id).Error
}

// CreateWindow adds a window to a workspace.
func (r *Repository) CreateWindow(workspaceID string, orderNumber int, pinned, synchronized bool) (*entities.Window, error) {
	window := &entities.Window{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		OrderNumber:    orderNumber,
		IsPinned:       pinned,
		IsSynchronized: synchronized,
	}
	if err := r.db.Create(window).Error; err != nil {
		return nil, err
	}
	return window, nil
}

// WindowsForWorkspace retrieves the windows of a workspace in order.
func (r *Repository) WindowsForWorkspace(workspaceID string) ([]entities.Window, error) {
	var windows []entities.Window
	err := r.db.Where("workspace_id = ?", workspaceID).Order("order_number").Find(&windows).Error
	return windows, err
}

// DeleteWindow removes a window and its page state.
func (r *Repository) DeleteWindow(id string) error {
	return r.db.Delete(&entities.Window{}, "id = ?", id).Error
}

// SetPage stores what a window is showing, creating the page state row on
// first use.
func (r *Repository) SetPage(windowID, document, key string) error {
	var page entities.PageManager
	result := r.db.Where("window_id = ?", windowID).First(&page)

	if result.Error == gorm.ErrRecordNotFound {
		page = entities.PageManager{
			WindowID:        windowID,
			CurrentDocument: document,
			CurrentKey:      key,
		}
		return r.db.Create(&page).Error
	} else if result.Error != nil {
		return result.Error
	}

	page.CurrentDocument = document
	page.CurrentKey = key
	return r.db.Save(&page).Error
}

// PageForWindow retrieves the page state of a window.
func (r *Repository) PageForWindow(windowID string) (*entities.PageManager, error) {
	var page entities.PageManager
	err := r.db.Where("window_id = ?", windowID).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}
