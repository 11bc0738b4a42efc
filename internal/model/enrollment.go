package model

import "time"

type RecordStatus string

const (
	RecordStatusActive  RecordStatus = "active"
	RecordStatusDeleted RecordStatus = "deleted"
)

// CourseRecord запись ученика на курс (принадлежит внешней подсистеме записей)
type CourseRecord struct {
	ID            int64        `json:"id"`
	StudentID     int64        `json:"student_id"`
	CourseID      int64        `json:"course_id"`
	Status        RecordStatus `json:"status"`
	DefaultSlotID *int64       `json:"default_slot_id"` // привязка к дефолтному клиник-слоту
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (r *CourseRecord) IsActive() bool {
	return r != nil && r.Status == RecordStatusActive
}

type CourseStatus string

const (
	CourseStatusActive  CourseStatus = "active"
	CourseStatusDeleted CourseStatus = "deleted"
)

// Course курс учителя в филиале
type Course struct {
	ID        int64        `json:"id"`
	TeacherID int64        `json:"teacher_id"`
	BranchID  int64        `json:"branch_id"`
	Status    CourseStatus `json:"status"`
}

func (c *Course) IsActive() bool {
	return c != nil && c.Status == CourseStatusActive
}
