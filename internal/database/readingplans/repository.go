// Package readingplans provides database operations for reading plan
// progress.
//
// This package implements the ReadingPlanStore interface defined in
// internal/http.
//
// # Usage
//
//	repo := readingplans.NewRepository(db)
//	plan, err := repo.StartPlan("y1ntpspr", time.Now().UnixMilli())
package readingplans

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/entities"
)

// Repository handles all reading plan database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reading plans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// StartPlan begins tracking a plan, or returns the existing record when the
// plan was already started.
func (r *Repository) StartPlan(planCode string, startDate int64) (*entities.ReadingPlan, error) {
	var plan entities.ReadingPlan
	err := r.db.Where("plan_code = ?", planCode).First(&plan).Error
	if err == gorm.ErrRecordNotFound {
		plan = entities.ReadingPlan{
			ID:         uuid.NewString(),
			PlanCode:   planCode,
			StartDate:  startDate,
			CurrentDay: 1,
		}
		if err := r.db.Create(&plan).Error; err != nil {
			return nil, err
		}
		return &plan, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetPlanByCode retrieves a plan by its code.
func (r *Repository) GetPlanByCode(planCode string) (*entities.ReadingPlan, error) {
	var plan entities.ReadingPlan
	err := r.db.Where("plan_code = ?", planCode).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans retrieves all started plans.
func (r *Repository) ListPlans() ([]entities.ReadingPlan, error) {
	var plans []entities.ReadingPlan
	err := r.db.Order("plan_code").Find(&plans).Error
	return plans, err
}

// SetCurrentDay moves the plan pointer to the given day.
func (r *Repository) SetCurrentDay(planCode string, day int) error {
	return r.db.Model(&entities.ReadingPlan{}).Where("plan_code = ?", planCode).
		Update("current_day", day).Error
}

// MarkDayRead stores the reading-done bitmask for one day of a plan,
// creating the status row on first touch.
func (r *Repository) MarkDayRead(planCode string, day, readingDone int) error {
	var status entities.ReadingPlanStatus
	result := r.db.Where("plan_code = ? AND plan_day = ?", planCode, day).First(&status)

	if result.Error == gorm.ErrRecordNotFound {
		status = entities.ReadingPlanStatus{
			ID:          uuid.NewString(),
			PlanCode:    planCode,
			PlanDay:     day,
			ReadingDone: readingDone,
		}
		return r.db.Create(&status).Error
	} else if result.Error != nil {
		return result.Error
	}

	status.ReadingDone = readingDone
	return r.db.Save(&status).Error
}

// StatusForDay retrieves the status row of one day.
func (r *Repository) StatusForDay(planCode string, day int) (*entities.ReadingPlanStatus, error) {
	var status entities.ReadingPlanStatus
	err := r.db.Where("plan_code = ? AND plan_day = ?", planCode, day).First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// StatusesForPlan retrieves all day statuses of a plan in day order.
func (r *Repository) StatusesForPlan(planCode string) ([]entities.ReadingPlanStatus, error) {
	var statuses []entities.ReadingPlanStatus
	err := r.db.Where("plan_code = ?", planCode).Order("plan_day").Find(&statuses).Error
	return statuses, err
}

// DeletePlan removes a plan and all its day statuses. The two tables are
// linked by plan code, not a foreign key, so both are cleared explicitly.
func (r *Repository) DeletePlan(planCode string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entities.ReadingPlanStatus{}, "plan_code = ?", planCode).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.ReadingPlan{}, "plan_code = ?", planCode).Error
	})
}
