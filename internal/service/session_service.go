package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

// SessionService жизненный цикл датированных клиник-сессий
type SessionService struct {
	slotStore    SlotStore
	sessionStore SessionStore
	enrollments  EnrollmentDirectory
	perm         *permissionValidator
	logger       *zap.Logger
	now          func() time.Time
}

func NewSessionService(
	slotStore SlotStore,
	sessionStore SessionStore,
	enrollments EnrollmentDirectory,
	staff StaffDirectory,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		slotStore:    slotStore,
		sessionStore: sessionStore,
		enrollments:  enrollments,
		perm:         &permissionValidator{staff: staff},
		logger:       logger,
		now:          time.Now,
	}
}

// CreateRegularSession вручную создаёт regular-сессию слота на конкретную дату.
// Время и вместимость копируются из слота на момент создания.
func (s *SessionService) CreateRegularSession(ctx context.Context, teacherID, slotID int64, date time.Time) (*model.ClinicSession, error) {
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

	existing, err := s.sessionStore.GetBySlotAndDate(ctx, slotID, date)
	if err != nil {
		return nil, fmt.Errorf("get session by slot and date: %w", err)
	}
	if existing != nil {
		return nil, model.ErrDuplicated
	}

	session := &model.ClinicSession{
		SlotID:    &slot.ID,
		TeacherID: slot.TeacherID,
		BranchID:  slot.BranchID,
		Kind:      model.SessionKindRegular,
		Date:      date,
		StartMin:  slot.StartMin,
		EndMin:    slot.EndMin,
		Capacity:  slot.Capacity,
		Status:    model.SessionStatusScheduled,
	}

	if err := s.sessionStore.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("Regular session created",
		zap.Int64("session_id", session.ID),
		zap.Int64("slot_id", slotID),
		zap.Time("date", date),
	)

	return session, nil
}

// CreateEmergencySession создаёт внеплановую сессию без шаблона.
// Доступно учителю и назначенному ассистенту.
func (s *SessionService) CreateEmergencySession(ctx context.Context, principal model.Principal, req CreateEmergencySessionRequest) (*model.ClinicSession, error) {
	if !principal.IsStaff() && principal.Role != model.RoleSuperAdmin {
		return nil, model.ErrForbidden
	}

	if err := validateRequest(req, req.StartMin, req.EndMin); err != nil {
		return nil, err
	}

	if err := s.perm.EnsureStaffForTeacher(ctx, principal, req.TeacherID); err != nil {
		return nil, err
	}
	if err := s.perm.EnsureTeacherAtBranch(ctx, req.TeacherID, req.BranchID); err != nil {
		return nil, err
	}

	creatorID := principal.ID
	session := &model.ClinicSession{
		TeacherID: req.TeacherID,
		BranchID:  req.BranchID,
		Kind:      model.SessionKindEmergency,
		CreatorID: &creatorID,
		Date:      req.Date,
		StartMin:  req.StartMin,
		EndMin:    req.EndMin,
		Capacity:  req.Capacity,
		Status:    model.SessionStatusScheduled,
	}

	if err := s.sessionStore.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create emergency session: %w", err)
	}

	s.logger.Info("Emergency session created",
		zap.Int64("session_id", session.ID),
		zap.Int64("teacher_id", req.TeacherID),
		zap.Int64("creator_id", creatorID),
		zap.Time("date", req.Date),
	)

	return session, nil
}

// GetSessions возвращает сессии учителя за период вместе с актуальным числом
// записей. Учитель неявно ограничен собой; ассистент и ученик обязаны указать
// учителя, и право на него проверяется.
func (s *SessionService) GetSessions(ctx context.Context, principal model.Principal, teacherID int64, from, to time.Time) ([]*model.SessionWithCount, error) {
	switch principal.Role {
	case model.RoleSuperAdmin:
		if teacherID == 0 {
			return nil, fmt.Errorf("%w: teacher id is required", model.ErrBadRequest)
		}

	case model.RoleTeacher:
		teacherID = principal.ID

	case model.RoleAssistant:
		if teacherID == 0 {
			return nil, fmt.Errorf("%w: teacher id is required", model.ErrBadRequest)
		}
		if err := s.perm.EnsureStaffForTeacher(ctx, principal, teacherID); err != nil {
			return nil, err
		}

	case model.RoleStudent:
		if teacherID == 0 {
			return nil, fmt.Errorf("%w: teacher id is required", model.ErrBadRequest)
		}
		records, err := s.enrollments.ActiveRecordsWithTeacher(ctx, principal.ID, teacherID)
		if err != nil {
			return nil, fmt.Errorf("get student records with teacher: %w", err)
		}
		if len(records) == 0 {
			return nil, model.ErrForbidden
		}

	default:
		return nil, model.ErrForbidden
	}

	sessions, err := s.sessionStore.GetByTeacherAndRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get sessions by teacher: %w", err)
	}

	return sessions, nil
}

// CancelSession отменяет сессию. Разрешено только персоналу и только пока
// сессия не началась; отмена терминальна.
func (s *SessionService) CancelSession(ctx context.Context, principal model.Principal, sessionID int64) error {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return model.ErrNotFound
	}

	if err := s.perm.EnsureStaffForTeacher(ctx, principal, session.TeacherID); err != nil {
		return err
	}

	if session.Status == model.SessionStatusCanceled {
		return model.ErrCanceled
	}

	if !s.now().Before(session.StartAt()) {
		return model.ErrLocked
	}

	// Версия защищает от гонки с конкурирующей отменой или развёрткой
	if err := s.sessionStore.Cancel(ctx, sessionID, session.Version); err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}

	s.logger.Info("Session canceled",
		zap.Int64("session_id", sessionID),
		zap.Int64("principal_id", principal.ID),
	)

	return nil
}
