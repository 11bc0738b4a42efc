package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

// SlotStore хранилище шаблонов клиник-слотов
type SlotStore interface {
	Create(ctx context.Context, slot *model.ClinicSlot) error
	GetByID(ctx context.Context, id int64) (*model.ClinicSlot, error)
	Update(ctx context.Context, slot *model.ClinicSlot) error
	GetActiveByTeacher(ctx context.Context, teacherID int64) ([]*model.ClinicSlot, error)
	GetActiveByBranch(ctx context.Context, branchID int64) ([]*model.ClinicSlot, error)
	GetAllActive(ctx context.Context) ([]*model.ClinicSlot, error)
}

// SessionStore хранилище датированных сессий.
// Create возвращает model.ErrDuplicated, если regular-сессия для (slot, date)
// уже существует; Cancel сравнивает версию и возвращает model.ErrVersionConflict
// при проигрыше конкурирующей записи.
type SessionStore interface {
	Create(ctx context.Context, session *model.ClinicSession) error
	GetByID(ctx context.Context, id int64) (*model.ClinicSession, error)
	GetBySlotAndDate(ctx context.Context, slotID int64, date time.Time) (*model.ClinicSession, error)
	GetByTeacherAndRange(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.SessionWithCount, error)
	Cancel(ctx context.Context, id, version int64) error
}

// AttendanceStore хранилище записей на сессии. Add и Move выполняются в
// транзакции с блокировкой строки сессии, поэтому проверка вместимости,
// дубликата и пересечения по времени сериализована с конкурентными записями.
// Возможные ошибки: model.ErrDuplicated, model.ErrSessionFull, model.ErrTimeOverlap.
type AttendanceStore interface {
	Add(ctx context.Context, sessionID, recordID int64) (*model.ClinicAttendance, error)
	Move(ctx context.Context, fromSessionID, toSessionID, recordID int64) (*model.ClinicAttendance, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.ClinicAttendance, error)
	GetBySession(ctx context.Context, sessionID int64) ([]*model.ClinicAttendance, error)
	CountBySession(ctx context.Context, sessionID int64) (int, error)
	StudentAttendances(ctx context.Context, studentID int64, from, to time.Time) ([]*model.StudentAttendance, error)
}

// StaffDirectory факты о филиалах и назначениях персонала (внешняя подсистема)
type StaffDirectory interface {
	IsBranchVerified(ctx context.Context, branchID int64) (bool, error)
	IsTeacherAssigned(ctx context.Context, teacherID, branchID int64) (bool, error)
	IsAssistantAssigned(ctx context.Context, teacherID, assistantID int64) (bool, error)
}

// MemberDirectory факты об участниках (внешняя подсистема)
type MemberDirectory interface {
	GetStudent(ctx context.Context, studentID int64) (*model.Student, error)
}

// EnrollmentDirectory факты о записях на курсы и их привязках к дефолтным
// слотам (внешняя подсистема записей)
type EnrollmentDirectory interface {
	GetRecord(ctx context.Context, recordID int64) (*model.CourseRecord, error)
	GetCourse(ctx context.Context, courseID int64) (*model.Course, error)
	ActiveRecordsByStudent(ctx context.Context, studentID int64) ([]*model.CourseRecord, error)
	ActiveRecordsWithTeacher(ctx context.Context, studentID, teacherID int64) ([]*model.CourseRecord, error)
	RecordsByDefaultSlot(ctx context.Context, slotID int64) ([]*model.CourseRecord, error)
	CountByDefaultSlot(ctx context.Context, slotID int64) (int, error)
	SetDefaultSlot(ctx context.Context, recordID int64, slotID *int64) error
	ClearDefaultSlotForSlot(ctx context.Context, slotID int64) (int64, error)
}
