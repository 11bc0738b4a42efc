package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

var validate = validator.New()

// CreateSlotRequest параметры создания еженедельного клиник-слота
type CreateSlotRequest struct {
	BranchID int64 `validate:"required"`
	Weekday  int   `validate:"min=0,max=6"`
	StartMin int   `validate:"min=0,max=1439"`
	EndMin   int   `validate:"min=1,max=1440"`
	Capacity int   `validate:"min=1"`
}

// UpdateSlotRequest параметры изменения клиник-слота
type UpdateSlotRequest struct {
	Weekday  int `validate:"min=0,max=6"`
	StartMin int `validate:"min=0,max=1439"`
	EndMin   int `validate:"min=1,max=1440"`
	Capacity int `validate:"min=1"`
}

// CreateEmergencySessionRequest параметры внеплановой сессии без шаблона
type CreateEmergencySessionRequest struct {
	TeacherID int64     `validate:"required"`
	BranchID  int64     `validate:"required"`
	Date      time.Time `validate:"required"`
	StartMin  int       `validate:"min=0,max=1439"`
	EndMin    int       `validate:"min=1,max=1440"`
	Capacity  int       `validate:"min=1"`
}

// validateRequest прогоняет структуру через validator и проверяет временной диапазон
func validateRequest(req interface{}, startMin, endMin int) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", model.ErrBadRequest, err)
	}
	if startMin >= endMin {
		return fmt.Errorf("%w: end time must be after start time", model.ErrBadRequest)
	}
	return nil
}
