package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/policy"
)

// DefaultSlotAssigner привязывает запись ученика на курс к дефолтному слоту,
// по которому еженедельная развёртка записывает его автоматически
type DefaultSlotAssigner struct {
	slotStore       SlotStore
	sessionStore    SessionStore
	attendanceStore AttendanceStore
	enrollments     EnrollmentDirectory
	logger          *zap.Logger
	now             func() time.Time
}

func NewDefaultSlotAssigner(
	slotStore SlotStore,
	sessionStore SessionStore,
	attendanceStore AttendanceStore,
	enrollments EnrollmentDirectory,
	logger *zap.Logger,
) *DefaultSlotAssigner {
	return &DefaultSlotAssigner{
		slotStore:       slotStore,
		sessionStore:    sessionStore,
		attendanceStore: attendanceStore,
		enrollments:     enrollments,
		logger:          logger,
		now:             time.Now,
	}
}

// ApplyDefaultSlot привязывает запись к слоту. При самой первой привязке
// записи ученик сразу записывается на ещё не начавшиеся сессии слота на
// текущей неделе; смена одного дефолтного слота на другой автоматических
// записей не создаёт.
func (s *DefaultSlotAssigner) ApplyDefaultSlot(ctx context.Context, recordID, slotID int64) error {
	record, err := s.enrollments.GetRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if !record.IsActive() {
		return model.ErrNotFound
	}

	course, err := s.enrollments.GetCourse(ctx, record.CourseID)
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	if !course.IsActive() {
		return model.ErrNotFound
	}

	slot, err := s.slotStore.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || slot.Status != model.SlotStatusActive {
		return model.ErrNotFound
	}

	// Повторная привязка того же слота к той же записи — ошибка, а не no-op
	if record.DefaultSlotID != nil && *record.DefaultSlotID == slotID {
		return model.ErrDuplicated
	}

	// Слот обязан принадлежать учителю и филиалу курса
	if slot.TeacherID != course.TeacherID || slot.BranchID != course.BranchID {
		return model.ErrForbidden
	}

	// Слот не должен дублировать или пересекать другой дефолтный слот ученика
	if err := s.ensureNoStudentConflict(ctx, record, slot); err != nil {
		return err
	}

	// Среди текущих дефолтеров должно оставаться свободное место
	count, err := s.enrollments.CountByDefaultSlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("count defaulters: %w", err)
	}
	if count >= slot.Capacity {
		return model.ErrCapacityConflict
	}

	firstEver := record.DefaultSlotID == nil

	if err := s.enrollments.SetDefaultSlot(ctx, recordID, &slotID); err != nil {
		return fmt.Errorf("set default slot: %w", err)
	}

	s.logger.Info("Default slot applied",
		zap.Int64("record_id", recordID),
		zap.Int64("slot_id", slotID),
		zap.Bool("first_ever", firstEver),
	)

	if firstEver {
		record.DefaultSlotID = &slotID
		if err := s.CreateAttendancesForCurrentWeekIfPossible(ctx, record, course); err != nil {
			// Привязка уже состоялась, недельная развёртка добукает позже
			s.logger.Error("Failed to book current week after first binding",
				zap.Int64("record_id", recordID),
				zap.Int64("slot_id", slotID),
				zap.Error(err))
		}
	}

	return nil
}

// CreateAttendancesForCurrentWeekIfPossible идемпотентно записывает запись на
// ещё не начавшиеся сессии её дефолтного слота на текущей неделе. No-op если
// запись или курс удалены, слот отсутствует или больше не совпадает с курсом.
func (s *DefaultSlotAssigner) CreateAttendancesForCurrentWeekIfPossible(ctx context.Context, record *model.CourseRecord, course *model.Course) error {
	if !record.IsActive() || !course.IsActive() || record.DefaultSlotID == nil {
		return nil
	}

	slot, err := s.slotStore.GetByID(ctx, *record.DefaultSlotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || slot.Status != model.SlotStatusActive {
		return nil
	}
	if slot.TeacherID != course.TeacherID || slot.BranchID != course.BranchID {
		return nil
	}

	now := s.now()
	week := policy.ResolveWeek(now)
	date := policy.OccurrenceInWeek(week, slot.Weekday)

	session, err := s.sessionStore.GetBySlotAndDate(ctx, slot.ID, date)
	if err != nil {
		return fmt.Errorf("get session by slot and date: %w", err)
	}
	if session == nil || session.Status == model.SessionStatusCanceled {
		return nil
	}

	// Начавшиеся сессии задним числом не бронируются
	if !now.Before(session.StartAt()) {
		return nil
	}

	_, err = s.attendanceStore.Add(ctx, session.ID, record.ID)
	if errors.Is(err, model.ErrDuplicated) ||
		errors.Is(err, model.ErrSessionFull) ||
		errors.Is(err, model.ErrTimeOverlap) {
		// Обычные условия пропуска, не ошибки
		return nil
	}
	if err != nil {
		return fmt.Errorf("add attendance: %w", err)
	}

	s.logger.Info("Current week auto-booked",
		zap.Int64("record_id", record.ID),
		zap.Int64("session_id", session.ID),
	)

	return nil
}

// ensureNoStudentConflict отклоняет слот, дублирующий или пересекающий по
// времени другой дефолтный слот того же ученика
func (s *DefaultSlotAssigner) ensureNoStudentConflict(ctx context.Context, record *model.CourseRecord, slot *model.ClinicSlot) error {
	records, err := s.enrollments.ActiveRecordsByStudent(ctx, record.StudentID)
	if err != nil {
		return fmt.Errorf("get student records: %w", err)
	}

	for _, other := range records {
		if other.ID == record.ID || other.DefaultSlotID == nil {
			continue
		}
		if *other.DefaultSlotID == slot.ID {
			return model.ErrDuplicated
		}

		otherSlot, err := s.slotStore.GetByID(ctx, *other.DefaultSlotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if otherSlot == nil || otherSlot.Status != model.SlotStatusActive {
			continue
		}
		if slot.Overlaps(otherSlot) {
			return model.ErrTimeOverlap
		}
	}

	return nil
}
