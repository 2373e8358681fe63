// Package bookmarks provides database operations for bookmarks, labels and
// study pad entries.
//
// This package implements the BookmarkStore interface defined in
// internal/http.
//
// # Usage
//
//	repo := bookmarks.NewRepository(db)
//	label, err := repo.CreateLabel("Greek words", 0xFF8800)
package bookmarks

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/entities"
)

// Repository handles all bookmark database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new bookmarks repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateLabel creates a new label.
func (r *Repository) CreateLabel(name string, color int) (*entities.Label, error) {
	label := &entities.Label{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
	}
	if err := r.db.Create(label).Error; err != nil {
		return nil, err
	}
	return label, nil
}

// GetLabel retrieves a label by id.
func (r *Repository) GetLabel(id string) (*entities.Label, error) {
	var label entities.Label
	err := r.db.First(&label, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &label, nil
}

// ListLabels retrieves all labels ordered by name.
func (r *Repository) ListLabels() ([]entities.Label, error) {
	var labels []entities.Label
	err := r.db.Order("name").Find(&labels).Error
	return labels, err
}

// RenameLabel changes the name of a label.
func (r *Repository) RenameLabel(id, name string) error {
	return r.db.Model(&entities.Label{}).Where("id = ?", id).Update("name", name).Error
}

// DeleteLabel removes a label. Bookmark mappings and study pad entries
// cascade; bookmarks using it as their primary label fall back to none.
func (r *Repository) DeleteLabel(id string) error {
	return r.db.Delete(&entities.Label{}, "id = ?", id).Error
}

// CreateBookmark stores a new bookmark, assigning an id when the caller
// left it empty.
func (r *Repository) CreateBookmark(bookmark *entities.Bookmark) error {
	if bookmark.ID == "" {
		bookmark.ID = uuid.NewString()
	}
	return r.db.Create(bookmark).Error
}

// GetBookmark retrieves a bookmark with its primary label.
func (r *Repository) GetBookmark(id string) (*entities.Bookmark, error) {
	var bookmark entities.Bookmark
	err := r.db.Preload("PrimaryLabel").First(&bookmark, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// ListBookmarks retrieves all bookmarks in verse order.
func (r *Repository) ListBookmarks() ([]entities.Bookmark, error) {
	var bookmarks []entities.Bookmark
	err := r.db.Preload("PrimaryLabel").Order("ordinal_start, ordinal_end").Find(&bookmarks).Error
	return bookmarks, err
}

// UpdateNotes replaces the notes of a bookmark.
func (r *Repository) UpdateNotes(id, notes string) error {
	return r.db.Model(&entities.Bookmark{}).Where("id = ?", id).Update("notes", notes).Error
}

// DeleteBookmark removes a bookmark and its label mappings.
func (r *Repository) DeleteBookmark(id string) error {
	return r.db.Delete(&entities.Bookmark{}, "id = ?", id).Error
}

// AddLabel attaches a label to a bookmark, updating the position when the
// mapping already exists.
func (r *Repository) AddLabel(bookmarkID, labelID string, orderNumber int) error {
	var mapping entities.BookmarkToLabel
	result := r.db.Where("bookmark_id = ? AND label_id = ?", bookmarkID, labelID).First(&mapping)

	if result.Error == gorm.ErrRecordNotFound {
		mapping = entities.BookmarkToLabel{
			BookmarkID:  bookmarkID,
			LabelID:     labelID,
			OrderNumber: orderNumber,
		}
		return r.db.Create(&mapping).Error
	} else if result.Error != nil {
		return result.Error
	}

	mapping.OrderNumber = orderNumber
	return r.db.Save(&mapping).Error
}

// RemoveLabel detaches a label from a bookmark.
func (r *Repository) RemoveLabel(bookmarkID, labelID string) error {
	return r.db.Delete(&entities.BookmarkToLabel{}, "bookmark_id = ? AND label_id = ?", bookmarkID, labelID).Error
}

// LabelsForBookmark retrieves the labels of a bookmark in mapping order.
func (r *Repository) LabelsForBookmark(bookmarkID string) ([]entities.Label, error) {
	var labels []entities.Label
	err := r.db.
		Joins("JOIN bookmark_labels ON bookmark_labels.label_id = labels.id").
		Where("bookmark_labels.bookmark_id = ?", bookmarkID).
		Order("bookmark_labels.order_number").
		Find(&labels).Error
	return labels, err
}

// CreateStudyPadEntry appends a study pad entry under a label.
func (r *Repository) CreateStudyPadEntry(labelID, text string, orderNumber, indentLevel int) (*entities.StudyPadEntry, error) {
	entry := &entities.StudyPadEntry{
		ID:          uuid.NewString(),
		LabelID:     labelID,
		Text:        text,
		OrderNumber: orderNumber,
		IndentLevel: indentLevel,
	}
	if err := r.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// EntriesForLabel retrieves the study pad entries of a label in order.
func (r *Repository) EntriesForLabel(labelID string) ([]entities.StudyPadEntry, error) {
	var entries []entities.StudyPadEntry
	err := r.db.Where("label_id = ?", labelID).Order("order_number").Find(&entries).Error
	return entries, err
}

// UpdateStudyPadEntryText replaces the text of a study pad entry.
func (r *Repository) UpdateStudyPadEntryText(id, text string) error {
	return r.db.Model(&entities.StudyPadEntry{}).Where("id = ?", id).Update("text", text).Error
}

// DeleteStudyPadEntry removes a study pad entry.
func (r *Repository) DeleteStudyPadEntry(id string) error {
	return r.db.Delete(&entities.StudyPadEntry{}, "id = ?", id).Error
}

// CountBookmarks returns the number of stored bookmarks.
func (r *Repository) CountBookmarks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Bookmark{}).Count(&count).Error
	return count, err
}
