package entities

// Entities of the reading plans database.

type ReadingPlan struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	PlanCode   string `gorm:"uniqueIndex;size:100" json:"plan_code"` // e.g. "y1ntpspr"
	StartDate  int64  `json:"start_date"`                            // epoch millis of day one
	CurrentDay int    `json:"current_day"`

	CreatedAt     int64 `gorm:"autoCreateTime:milli" json:"created_at"`
	LastUpdatedOn int64 `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

// ReadingPlanStatus records which readings of a plan day have been completed,
// as a bitmask over the day's reading list.
type ReadingPlanStatus struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	PlanCode    string `gorm:"index:idx_plan_day,unique;size:100" json:"plan_code"`
	PlanDay     int    `gorm:"index:idx_plan_day,unique" json:"plan_day"`
	ReadingDone int    `json:"reading_done"`

	CreatedAt     int64 `gorm:"autoCreateTime:milli" json:"created_at"`
	LastUpdatedOn int64 `gorm:"autoUpdateTime:milli" json:"last_updated_on"`
}

func (ReadingPlan) TableName() string {
	return "reading_plans"
}

func (ReadingPlanStatus) TableName() string {
	return "reading_plan_statuses"
}
