package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

// SlotService управляет шаблонами еженедельных клиник-слотов
type SlotService struct {
	slotStore   SlotStore
	enrollments EnrollmentDirectory
	perm        *permissionValidator
	batch       *BatchGenerator
	logger      *zap.Logger
	now         func() time.Time
}

func NewSlotService(
	slotStore SlotStore,
	enrollments EnrollmentDirectory,
	staff StaffDirectory,
	batch *BatchGenerator,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		slotStore:   slotStore,
		enrollments: enrollments,
		perm:        &permissionValidator{staff: staff},
		batch:       batch,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateSlot создаёт слот учителя и сразу разворачивает его на остаток текущей недели
func (s *SlotService) CreateSlot(ctx context.Context, teacherID int64, req CreateSlotRequest) (*model.ClinicSlot, error) {
	if err := validateRequest(req, req.StartMin, req.EndMin); err != nil {
		return nil, err
	}

	if err := s.perm.EnsureTeacherAtBranch(ctx, teacherID, req.BranchID); err != nil {
		return nil, err
	}

	slot := &model.ClinicSlot{
		TeacherID: teacherID,
		BranchID:  req.BranchID,
		CreatorID: teacherID,
		Weekday:   req.Weekday,
		StartMin:  req.StartMin,
		EndMin:    req.EndMin,
		Capacity:  req.Capacity,
		Status:    model.SlotStatusActive,
	}

	// Два активных слота одного учителя не могут пересекаться по дню и времени
	if err := s.ensureNoOverlap(ctx, slot, 0); err != nil {
		return nil, err
	}

	if err := s.slotStore.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	// Добираем текущую неделю: сессия и записи дефолтеров, если время ещё не прошло
	if err := s.batch.GenerateRemainingSessionsForSlot(ctx, slot, s.now()); err != nil {
		// Слот уже создан, развёртка недели догонится еженедельным проходом
		s.logger.Error("Failed to backfill current week for new slot",
			zap.Int64("slot_id", slot.ID),
			zap.Error(err))
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("teacher_id", teacherID),
		zap.Int("weekday", slot.Weekday),
	)

	return slot, nil
}

// UpdateSlot изменяет расписание или вместимость слота. Любое изменение
// расписания рвёт еженедельную идентичность слота, поэтому все привязки
// дефолтеров к нему сбрасываются; уже созданные записи не трогаются.
func (s *SlotService) UpdateSlot(ctx context.Context, teacherID, slotID int64, req UpdateSlotRequest) (*model.ClinicSlot, error) {
	if err := validateRequest(req, req.StartMin, req.EndMin); err != nil {
		return nil, err
	}

	slot, err := s.slotStore.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || slot.Status != model.SlotStatusActive {
		return nil, model.ErrNotFound
	}
	if slot.TeacherID != teacherID {
		return nil, model.ErrForbidden
	}

	scheduleChanged := slot.Weekday != req.Weekday ||
		slot.StartMin != req.StartMin ||
		slot.EndMin != req.EndMin

	if !scheduleChanged && req.Capacity < slot.Capacity {
		// Нельзя ужать вместимость ниже числа уже привязанных дефолтеров
		count, err := s.enrollments.CountByDefaultSlot(ctx, slotID)
		if err != nil {
			return nil, fmt.Errorf("count defaulters: %w", err)
		}
		if req.Capacity < count {
			return nil, model.ErrCapacityConflict
		}
	}

	slot.Weekday = req.Weekday
	slot.StartMin = req.StartMin
	slot.EndMin = req.EndMin
	slot.Capacity = req.Capacity

	if scheduleChanged {
		if err := s.ensureNoOverlap(ctx, slot, slotID); err != nil {
			return nil, err
		}
	}

	if err := s.slotStore.Update(ctx, slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}

	if scheduleChanged {
		cleared, err := s.enrollments.ClearDefaultSlotForSlot(ctx, slotID)
		if err != nil {
			return nil, fmt.Errorf("clear default slot bindings: %w", err)
		}
		s.logger.Info("Default slot bindings cleared after schedule change",
			zap.Int64("slot_id", slotID),
			zap.Int64("cleared", cleared),
		)

		// Новое время слота добираем на текущей неделе, если оно ещё впереди
		if err := s.batch.GenerateRemainingSessionsForSlot(ctx, slot, s.now()); err != nil {
			s.logger.Error("Failed to backfill current week for updated slot",
				zap.Int64("slot_id", slot.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Slot updated",
		zap.Int64("slot_id", slotID),
		zap.Bool("schedule_changed", scheduleChanged),
	)

	return slot, nil
}

// DeleteSlot мягко удаляет слот и сбрасывает привязки дефолтеров.
// Существующие сессии и записи — исторический факт, они не трогаются.
func (s *SlotService) DeleteSlot(ctx context.Context, teacherID, slotID int64) error {
	slot, err := s.slotStore.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || slot.Status != model.SlotStatusActive {
		return model.ErrNotFound
	}
	if slot.TeacherID != teacherID {
		return model.ErrForbidden
	}

	slot.Status = model.SlotStatusDeleted
	if err := s.slotStore.Update(ctx, slot); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	cleared, err := s.enrollments.ClearDefaultSlotForSlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("clear default slot bindings: %w", err)
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("teacher_id", teacherID),
		zap.Int64("bindings_cleared", cleared),
	)

	return nil
}

// GetSlots возвращает слоты в зависимости от роли вызывающего:
// учитель видит слоты своего филиала, ассистент — слоты назначенного учителя,
// ученик — слоты учителей своих активных курсов
func (s *SlotService) GetSlots(ctx context.Context, principal model.Principal, teacherID, branchID int64) ([]*model.ClinicSlot, error) {
	switch principal.Role {
	case model.RoleSuperAdmin:
		if teacherID == 0 {
			return nil, fmt.Errorf("%w: teacher id is required", model.ErrBadRequest)
		}
		return s.slotStore.GetActiveByTeacher(ctx, teacherID)

	case model.RoleTeacher:
		if err := s.perm.EnsureTeacherAtBranch(ctx, principal.ID, branchID); err != nil {
			return nil, err
		}
		return s.slotStore.GetActiveByBranch(ctx, branchID)

	case model.RoleAssistant:
		if err := s.perm.EnsureStaffForTeacher(ctx, principal, teacherID); err != nil {
			return nil, err
		}
		return s.slotStore.GetActiveByTeacher(ctx, teacherID)

	case model.RoleStudent:
		records, err := s.enrollments.ActiveRecordsByStudent(ctx, principal.ID)
		if err != nil {
			return nil, fmt.Errorf("get student records: %w", err)
		}

		var result []*model.ClinicSlot
		seen := make(map[int64]bool)
		for _, record := range records {
			course, err := s.enrollments.GetCourse(ctx, record.CourseID)
			if err != nil {
				return nil, fmt.Errorf("get course: %w", err)
			}
			if !course.IsActive() {
				continue
			}
			slots, err := s.slotStore.GetActiveByTeacher(ctx, course.TeacherID)
			if err != nil {
				return nil, fmt.Errorf("get slots by teacher: %w", err)
			}
			for _, slot := range slots {
				if slot.BranchID == course.BranchID && !seen[slot.ID] {
					seen[slot.ID] = true
					result = append(result, slot)
				}
			}
		}
		return result, nil

	default:
		return nil, model.ErrForbidden
	}
}

// ensureNoOverlap отклоняет слот, пересекающийся с другим активным слотом
// того же учителя; excludeID исключает сам изменяемый слот
func (s *SlotService) ensureNoOverlap(ctx context.Context, slot *model.ClinicSlot, excludeID int64) error {
	existing, err := s.slotStore.GetActiveByTeacher(ctx, slot.TeacherID)
	if err != nil {
		return fmt.Errorf("get teacher slots: %w", err)
	}

	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		if slot.Overlaps(other) {
			return model.ErrSlotOverlap
		}
	}

	return nil
}
