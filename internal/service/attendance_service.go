package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/policy"
)

// AttendanceService жизненный цикл записей на сессии. Каждая мутация заново
// проверяет, по порядку: сессия существует и не отменена -> вызывающий
// авторизован -> окно политики открыто -> запись на курс активна и совпадает
// с учителем и филиалом сессии.
type AttendanceService struct {
	sessionStore    SessionStore
	attendanceStore AttendanceStore
	enrollments     EnrollmentDirectory
	members         MemberDirectory
	perm            *permissionValidator
	window          *policy.WindowPolicy
	logger          *zap.Logger
	now             func() time.Time
}

func NewAttendanceService(
	sessionStore SessionStore,
	attendanceStore AttendanceStore,
	enrollments EnrollmentDirectory,
	members MemberDirectory,
	staff StaffDirectory,
	window *policy.WindowPolicy,
	logger *zap.Logger,
) *AttendanceService {
	return &AttendanceService{
		sessionStore:    sessionStore,
		attendanceStore: attendanceStore,
		enrollments:     enrollments,
		members:         members,
		perm:            &permissionValidator{staff: staff},
		window:          window,
		logger:          logger,
		now:             time.Now,
	}
}

// AddAttendance записывает ученика на сессию от имени персонала
func (s *AttendanceService) AddAttendance(ctx context.Context, principal model.Principal, sessionID, recordID int64) (*model.ClinicAttendance, error) {
	session, err := s.loadOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.perm.EnsureStaffForTeacher(ctx, principal, session.TeacherID); err != nil {
		return nil, err
	}

	return s.book(ctx, session, recordID)
}

// RequestAttendance самостоятельная запись ученика на сессию
func (s *AttendanceService) RequestAttendance(ctx context.Context, principal model.Principal, sessionID, recordID int64) (*model.ClinicAttendance, error) {
	if principal.Role != model.RoleStudent {
		return nil, model.ErrForbidden
	}

	session, err := s.loadOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	record, err := s.enrollments.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, model.ErrNotFound
	}
	if record.StudentID != principal.ID {
		return nil, model.ErrForbidden
	}

	return s.book(ctx, session, recordID)
}

// book общая часть записи: окно, активность и принадлежность записи, затем
// персист под блокировкой строки сессии
func (s *AttendanceService) book(ctx context.Context, session *model.ClinicSession, recordID int64) (*model.ClinicAttendance, error) {
	if s.window.IsLocked(session, s.now()) {
		return nil, model.ErrLocked
	}

	if err := s.ensureRecordMatches(ctx, recordID, session); err != nil {
		return nil, err
	}

	attendance, err := s.attendanceStore.Add(ctx, session.ID, recordID)
	if err != nil {
		return nil, fmt.Errorf("add attendance: %w", err)
	}

	s.logger.Info("Attendance created",
		zap.Int64("attendance_id", attendance.ID),
		zap.Int64("session_id", session.ID),
		zap.Int64("record_id", recordID),
	)

	return attendance, nil
}

// DeleteAttendance снимает запись с сессии от имени персонала
func (s *AttendanceService) DeleteAttendance(ctx context.Context, principal model.Principal, attendanceID int64) error {
	attendance, err := s.attendanceStore.GetByID(ctx, attendanceID)
	if err != nil {
		return fmt.Errorf("get attendance: %w", err)
	}
	if attendance == nil {
		return model.ErrNotFound
	}

	session, err := s.loadOpenSession(ctx, attendance.SessionID)
	if err != nil {
		return err
	}

	if err := s.perm.EnsureStaffForTeacher(ctx, principal, session.TeacherID); err != nil {
		return err
	}

	if s.window.IsLocked(session, s.now()) {
		return model.ErrLocked
	}

	if err := s.attendanceStore.Delete(ctx, attendanceID); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}

	s.logger.Info("Attendance deleted",
		zap.Int64("attendance_id", attendanceID),
		zap.Int64("session_id", session.ID),
		zap.Int64("principal_id", principal.ID),
	)

	return nil
}

// MoveAttendance переносит собственную запись ученика на другую сессию той же
// недели. Выполняется как удаление плюс создание, а не как правка на месте:
// все инварианты назначения проверяются заново под блокировкой.
func (s *AttendanceService) MoveAttendance(ctx context.Context, principal model.Principal, recordID, fromSessionID, toSessionID int64) (*model.ClinicAttendance, error) {
	if principal.Role != model.RoleStudent {
		return nil, model.ErrForbidden
	}

	from, err := s.loadOpenSession(ctx, fromSessionID)
	if err != nil {
		return nil, err
	}
	to, err := s.loadOpenSession(ctx, toSessionID)
	if err != nil {
		return nil, err
	}

	record, err := s.enrollments.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if record == nil {
		return nil, model.ErrNotFound
	}
	if record.StudentID != principal.ID {
		return nil, model.ErrForbidden
	}

	// Окно переноса строже окна записи и считается от исходной сессии
	if !s.window.IsMoveAllowed(from, s.now()) {
		return nil, model.ErrMoveForbidden
	}

	// Перенос только внутри одной календарной недели
	if !policy.ResolveWeek(from.Date).Equal(policy.ResolveWeek(to.Date)) {
		return nil, model.ErrMoveForbidden
	}

	if err := s.ensureRecordMatches(ctx, recordID, to); err != nil {
		return nil, err
	}

	attendance, err := s.attendanceStore.Move(ctx, fromSessionID, toSessionID, recordID)
	if err != nil {
		return nil, fmt.Errorf("move attendance: %w", err)
	}

	s.logger.Info("Attendance moved",
		zap.Int64("record_id", recordID),
		zap.Int64("from_session_id", fromSessionID),
		zap.Int64("to_session_id", toSessionID),
	)

	return attendance, nil
}

// GetAttendanceDetails возвращает ростер сессии для персонала,
// включая возраст учеников на текущую дату
func (s *AttendanceService) GetAttendanceDetails(ctx context.Context, principal model.Principal, sessionID int64) ([]*model.AttendanceDetail, error) {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, model.ErrNotFound
	}

	if err := s.perm.EnsureStaffForTeacher(ctx, principal, session.TeacherID); err != nil {
		return nil, err
	}

	attendances, err := s.attendanceStore.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get attendances by session: %w", err)
	}

	details := make([]*model.AttendanceDetail, 0, len(attendances))
	for _, attendance := range attendances {
		record, err := s.enrollments.GetRecord(ctx, attendance.RecordID)
		if err != nil {
			return nil, fmt.Errorf("get record: %w", err)
		}
		if record == nil {
			continue
		}

		student, err := s.members.GetStudent(ctx, record.StudentID)
		if err != nil {
			return nil, fmt.Errorf("get student: %w", err)
		}
		if student == nil {
			continue
		}

		details = append(details, &model.AttendanceDetail{
			AttendanceID: attendance.ID,
			RecordID:     record.ID,
			StudentID:    student.ID,
			StudentName:  student.Name,
			StudentAge:   student.Age(s.now()),
		})
	}

	return details, nil
}

// GetStudentAttendances возвращает собственные записи ученика за период
func (s *AttendanceService) GetStudentAttendances(ctx context.Context, principal model.Principal, from, to time.Time) ([]*model.StudentAttendance, error) {
	if principal.Role != model.RoleStudent {
		return nil, model.ErrForbidden
	}

	attendances, err := s.attendanceStore.StudentAttendances(ctx, principal.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get student attendances: %w", err)
	}

	return attendances, nil
}

// loadOpenSession возвращает существующую неотменённую сессию
func (s *AttendanceService) loadOpenSession(ctx context.Context, sessionID int64) (*model.ClinicSession, error) {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, model.ErrNotFound
	}
	if session.Status == model.SessionStatusCanceled {
		return nil, model.ErrCanceled
	}
	return session, nil
}

// ensureRecordMatches проверяет что запись на курс активна и её курс ведёт
// тот же учитель в том же филиале, что и сессия
func (s *AttendanceService) ensureRecordMatches(ctx context.Context, recordID int64, session *model.ClinicSession) error {
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

	if course.TeacherID != session.TeacherID || course.BranchID != session.BranchID {
		return model.ErrForbidden
	}

	return nil
}
