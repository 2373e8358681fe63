package entities

// Entities of the bookmarks database. Every table here participates in
// device sync; primary keys are UUID strings so rows created on different
// devices never collide, and timestamps are epoch milliseconds so they
// compare identically on every device.

type Label struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	Name           string `gorm:"size:100" json:"name"`
	Color          int    `json:"color"` // packed ARGB
	UnderlineStyle bool   `json:"underline_style"`
	MarkerStyle    bool   `json:"marker_style"`
	CreatedAt      int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	LastUpdatedOn  int64  `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

type Bookmark struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	OrdinalStart  int    `gorm:"index" json:"ordinal_start"` // KJV-ordered verse ordinal
	OrdinalEnd    int    `json:"ordinal_end"`
	Versification string `gorm:"size:40" json:"versification"`
	WholeVerse    bool   `json:"whole_verse"`
	Notes         string `gorm:"type:text" json:"notes,omitempty"`

	// Optional highlight label; cleared when the label is deleted.
	PrimaryLabelID *string `gorm:"size:36;index" json:"primary_label_id,omitempty"`
	PrimaryLabel   *Label  `gorm:"foreignKey:PrimaryLabelID;constraint:OnDelete:SET NULL" json:"-"`

	CreatedAt     int64 `gorm:"autoCreateTime:milli" json:"created_at"`
	LastUpdatedOn int64 `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

// BookmarkToLabel is the bookmark/label association. The composite primary
// key is the sync entity key (entityId1, entityId2).
type BookmarkToLabel struct {
	BookmarkID  string `gorm:"primaryKey;size:36" json:"bookmark_id"`
	LabelID     string `gorm:"primaryKey;size:36" json:"label_id"`
	OrderNumber int    `json:"order_number"`

	Bookmark Bookmark `gorm:"foreignKey:BookmarkID;constraint:OnDelete:CASCADE" json:"-"`
	Label    Label    `gorm:"foreignKey:LabelID;constraint:OnDelete:CASCADE" json:"-"`
}

// StudyPadEntry is a block of free-form study text attached to a label's
// study pad, ordered within the pad.
type StudyPadEntry struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	LabelID     string `gorm:"size:36;index" json:"label_id"`
	Label       Label  `gorm:"foreignKey:LabelID;constraint:OnDelete:CASCADE" json:"-"`
	Text        string `gorm:"type:text" json:"text"`
	OrderNumber int    `json:"order_number"`
	IndentLevel int    `json:"indent_level"`

	CreatedAt     int64 `gorm:"autoCreateTime:milli" json:"created_at"`
	LastUpdatedOn int64 `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

func (Label) TableName() string {
	return "labels"
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

func (BookmarkToLabel) TableName() string {
	return "bookmark_labels"
}

func (StudyPadEntry) TableName() string {
	return "study_pad_entries"
}
