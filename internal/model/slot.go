package model

import "time"

type SlotStatus string

const (
	SlotStatusActive  SlotStatus = "active"
	SlotStatusDeleted SlotStatus = "deleted"
)

// ClinicSlot представляет шаблон еженедельного клиник-слота учителя
type ClinicSlot struct {
	ID        int64      `json:"id"`
	TeacherID int64      `json:"teacher_id"`
	BranchID  int64      `json:"branch_id"`
	CreatorID int64      `json:"creator_id"`
	Weekday   int        `json:"weekday"`   // 0 = Sunday, 6 = Saturday
	StartMin  int        `json:"start_min"` // минуты от полуночи
	EndMin    int        `json:"end_min"`   // конец не включается
	Capacity  int        `json:"capacity"`
	Status    SlotStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Overlaps проверяет пересекается ли слот с другим слотом по дню недели и времени
func (s *ClinicSlot) Overlaps(other *ClinicSlot) bool {
	if s.Weekday != other.Weekday {
		return false
	}
	return RangesOverlap(s.StartMin, s.EndMin, other.StartMin, other.EndMin)
}

// RangesOverlap проверяет пересечение двух полуинтервалов [aStart, aEnd) и [bStart, bEnd)
func RangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
