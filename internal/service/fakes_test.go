package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

// fakeStore in-memory реализация всех хранилищ и справочников для тестов.
// Инварианты Add/Move повторяют поведение pgx-репозитория.
type fakeStore struct {
	slotSeq    int64
	sessionSeq int64
	attSeq     int64

	slots       map[int64]*model.ClinicSlot
	sessions    map[int64]*model.ClinicSession
	attendances map[int64]*model.ClinicAttendance
	records     map[int64]*model.CourseRecord
	courses     map[int64]*model.Course
	students    map[int64]*model.Student

	verifiedBranches  map[int64]bool
	teacherBranches   map[[2]int64]bool
	teacherAssistants map[[2]int64]bool

	// createSessionErr подменяет результат Create для сессий слота,
	// чтобы проверять устойчивость развёртки к сбоям на одном слоте
	createSessionErr map[int64]error
	// addErr подменяет результат Add для конкретной записи
	addErr map[int64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slots:             make(map[int64]*model.ClinicSlot),
		sessions:          make(map[int64]*model.ClinicSession),
		attendances:       make(map[int64]*model.ClinicAttendance),
		records:           make(map[int64]*model.CourseRecord),
		courses:           make(map[int64]*model.Course),
		students:          make(map[int64]*model.Student),
		verifiedBranches:  make(map[int64]bool),
		teacherBranches:   make(map[[2]int64]bool),
		teacherAssistants: make(map[[2]int64]bool),
		createSessionErr:  make(map[int64]error),
		addErr:            make(map[int64]error),
	}
}

// --- SlotStore ---

func (f *fakeStore) Create(ctx context.Context, slot *model.ClinicSlot) error {
	f.slotSeq++
	slot.ID = f.slotSeq
	f.slots[slot.ID] = slot
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*model.ClinicSlot, error) {
	return f.slots[id], nil
}

func (f *fakeStore) Update(ctx context.Context, slot *model.ClinicSlot) error {
	if _, ok := f.slots[slot.ID]; !ok {
		return model.ErrNotFound
	}
	f.slots[slot.ID] = slot
	return nil
}

func (f *fakeStore) GetActiveByTeacher(ctx context.Context, teacherID int64) ([]*model.ClinicSlot, error) {
	var result []*model.ClinicSlot
	for _, slot := range f.slots {
		if slot.TeacherID == teacherID && slot.Status == model.SlotStatusActive {
			result = append(result, slot)
		}
	}
	return result, nil
}

func (f *fakeStore) GetActiveByBranch(ctx context.Context, branchID int64) ([]*model.ClinicSlot, error) {
	var result []*model.ClinicSlot
	for _, slot := range f.slots {
		if slot.BranchID == branchID && slot.Status == model.SlotStatusActive {
			result = append(result, slot)
		}
	}
	return result, nil
}

func (f *fakeStore) GetAllActive(ctx context.Context) ([]*model.ClinicSlot, error) {
	var result []*model.ClinicSlot
	for i := int64(1); i <= f.slotSeq; i++ {
		if slot, ok := f.slots[i]; ok && slot.Status == model.SlotStatusActive {
			result = append(result, slot)
		}
	}
	return result, nil
}

// --- SessionStore ---

// sessionStoreFacade отдельный тип, потому что сигнатуры Create и GetByID
// для сессий конфликтуют со SlotStore
type sessionStoreFacade struct{ f *fakeStore }

func (s sessionStoreFacade) Create(ctx context.Context, session *model.ClinicSession) error {
	if session.SlotID != nil {
		if err := s.f.createSessionErr[*session.SlotID]; err != nil {
			return err
		}
	}
	if session.Kind == model.SessionKindRegular && session.SlotID != nil {
		for _, existing := range s.f.sessions {
			if existing.Kind == model.SessionKindRegular &&
				existing.SlotID != nil && *existing.SlotID == *session.SlotID &&
				existing.SameDate(session.Date) {
				return model.ErrDuplicated
			}
		}
	}
	s.f.sessionSeq++
	session.ID = s.f.sessionSeq
	s.f.sessions[session.ID] = session
	return nil
}

func (s sessionStoreFacade) GetByID(ctx context.Context, id int64) (*model.ClinicSession, error) {
	return s.f.sessions[id], nil
}

func (s sessionStoreFacade) GetBySlotAndDate(ctx context.Context, slotID int64, date time.Time) (*model.ClinicSession, error) {
	for _, session := range s.f.sessions {
		if session.Kind == model.SessionKindRegular &&
			session.SlotID != nil && *session.SlotID == slotID &&
			session.SameDate(date) {
			return session, nil
		}
	}
	return nil, nil
}

func (s sessionStoreFacade) GetByTeacherAndRange(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.SessionWithCount, error) {
	var result []*model.SessionWithCount
	for i := int64(1); i <= s.f.sessionSeq; i++ {
		session, ok := s.f.sessions[i]
		if !ok || session.TeacherID != teacherID {
			continue
		}
		if session.Date.Before(from) || session.Date.After(to) {
			continue
		}
		count, _ := attendanceStoreFacade{s.f}.CountBySession(ctx, session.ID)
		result = append(result, &model.SessionWithCount{Session: session, AttendanceCount: count})
	}
	return result, nil
}

func (s sessionStoreFacade) Cancel(ctx context.Context, id, version int64) error {
	session, ok := s.f.sessions[id]
	if !ok || session.Version != version || session.Status != model.SessionStatusScheduled {
		return model.ErrVersionConflict
	}
	session.Status = model.SessionStatusCanceled
	session.Version++
	return nil
}

// --- AttendanceStore ---

type attendanceStoreFacade struct{ f *fakeStore }

func (a attendanceStoreFacade) Add(ctx context.Context, sessionID, recordID int64) (*model.ClinicAttendance, error) {
	if err := a.f.addErr[recordID]; err != nil {
		return nil, err
	}

	session, ok := a.f.sessions[sessionID]
	if !ok {
		return nil, model.ErrNotFound
	}

	count := 0
	for _, att := range a.f.attendances {
		if att.SessionID == sessionID {
			if att.RecordID == recordID {
				return nil, model.ErrDuplicated
			}
			count++
		}
	}
	if count >= session.Capacity {
		return nil, model.ErrSessionFull
	}

	for _, att := range a.f.attendances {
		if att.RecordID != recordID {
			continue
		}
		other := a.f.sessions[att.SessionID]
		if other == nil || other.Status != model.SessionStatusScheduled {
			continue
		}
		if other.SameDate(session.Date) &&
			model.RangesOverlap(session.StartMin, session.EndMin, other.StartMin, other.EndMin) {
			return nil, model.ErrTimeOverlap
		}
	}

	a.f.attSeq++
	attendance := &model.ClinicAttendance{ID: a.f.attSeq, SessionID: sessionID, RecordID: recordID}
	a.f.attendances[attendance.ID] = attendance
	return attendance, nil
}

func (a attendanceStoreFacade) Move(ctx context.Context, fromSessionID, toSessionID, recordID int64) (*model.ClinicAttendance, error) {
	var source *model.ClinicAttendance
	for _, att := range a.f.attendances {
		if att.SessionID == fromSessionID && att.RecordID == recordID {
			source = att
			break
		}
	}
	if source == nil {
		return nil, model.ErrNotFound
	}

	delete(a.f.attendances, source.ID)

	attendance, err := a.Add(ctx, toSessionID, recordID)
	if err != nil {
		// Атомарность: неудавшийся перенос возвращает исходную запись
		a.f.attendances[source.ID] = source
		return nil, err
	}

	return attendance, nil
}

func (a attendanceStoreFacade) Delete(ctx context.Context, id int64) error {
	if _, ok := a.f.attendances[id]; !ok {
		return model.ErrNotFound
	}
	delete(a.f.attendances, id)
	return nil
}

func (a attendanceStoreFacade) GetByID(ctx context.Context, id int64) (*model.ClinicAttendance, error) {
	return a.f.attendances[id], nil
}

func (a attendanceStoreFacade) GetBySession(ctx context.Context, sessionID int64) ([]*model.ClinicAttendance, error) {
	var result []*model.ClinicAttendance
	for i := int64(1); i <= a.f.attSeq; i++ {
		if att, ok := a.f.attendances[i]; ok && att.SessionID == sessionID {
			result = append(result, att)
		}
	}
	return result, nil
}

func (a attendanceStoreFacade) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	count := 0
	for _, att := range a.f.attendances {
		if att.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (a attendanceStoreFacade) StudentAttendances(ctx context.Context, studentID int64, from, to time.Time) ([]*model.StudentAttendance, error) {
	var result []*model.StudentAttendance
	for i := int64(1); i <= a.f.attSeq; i++ {
		att, ok := a.f.attendances[i]
		if !ok {
			continue
		}
		record := a.f.records[att.RecordID]
		if record == nil || record.StudentID != studentID {
			continue
		}
		session := a.f.sessions[att.SessionID]
		if session == nil || session.Date.Before(from) || session.Date.After(to) {
			continue
		}
		result = append(result, &model.StudentAttendance{
			AttendanceID: att.ID,
			SessionID:    session.ID,
			TeacherID:    session.TeacherID,
			Date:         session.Date,
			StartMin:     session.StartMin,
			EndMin:       session.EndMin,
			Status:       session.Status,
		})
	}
	return result, nil
}

// --- EnrollmentDirectory ---

type enrollmentFacade struct{ f *fakeStore }

func (e enrollmentFacade) GetRecord(ctx context.Context, recordID int64) (*model.CourseRecord, error) {
	return e.f.records[recordID], nil
}

func (e enrollmentFacade) GetCourse(ctx context.Context, courseID int64) (*model.Course, error) {
	return e.f.courses[courseID], nil
}

func (e enrollmentFacade) ActiveRecordsByStudent(ctx context.Context, studentID int64) ([]*model.CourseRecord, error) {
	var result []*model.CourseRecord
	for _, record := range e.f.records {
		if record.StudentID == studentID && record.Status == model.RecordStatusActive {
			result = append(result, record)
		}
	}
	return result, nil
}

func (e enrollmentFacade) ActiveRecordsWithTeacher(ctx context.Context, studentID, teacherID int64) ([]*model.CourseRecord, error) {
	var result []*model.CourseRecord
	for _, record := range e.f.records {
		if record.StudentID != studentID || record.Status != model.RecordStatusActive {
			continue
		}
		course := e.f.courses[record.CourseID]
		if course != nil && course.TeacherID == teacherID && course.Status == model.CourseStatusActive {
			result = append(result, record)
		}
	}
	return result, nil
}

func (e enrollmentFacade) RecordsByDefaultSlot(ctx context.Context, slotID int64) ([]*model.CourseRecord, error) {
	var result []*model.CourseRecord
	for _, record := range e.f.records {
		if record.Status == model.RecordStatusActive &&
			record.DefaultSlotID != nil && *record.DefaultSlotID == slotID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (e enrollmentFacade) CountByDefaultSlot(ctx context.Context, slotID int64) (int, error) {
	records, _ := e.RecordsByDefaultSlot(ctx, slotID)
	return len(records), nil
}

func (e enrollmentFacade) SetDefaultSlot(ctx context.Context, recordID int64, slotID *int64) error {
	record, ok := e.f.records[recordID]
	if !ok {
		return model.ErrNotFound
	}
	record.DefaultSlotID = slotID
	return nil
}

func (e enrollmentFacade) ClearDefaultSlotForSlot(ctx context.Context, slotID int64) (int64, error) {
	var cleared int64
	for _, record := range e.f.records {
		if record.DefaultSlotID != nil && *record.DefaultSlotID == slotID {
			record.DefaultSlotID = nil
			cleared++
		}
	}
	return cleared, nil
}

// --- StaffDirectory / MemberDirectory ---

type directoryFacade struct{ f *fakeStore }

func (d directoryFacade) IsBranchVerified(ctx context.Context, branchID int64) (bool, error) {
	return d.f.verifiedBranches[branchID], nil
}

func (d directoryFacade) IsTeacherAssigned(ctx context.Context, teacherID, branchID int64) (bool, error) {
	return d.f.teacherBranches[[2]int64{teacherID, branchID}], nil
}

func (d directoryFacade) IsAssistantAssigned(ctx context.Context, teacherID, assistantID int64) (bool, error) {
	return d.f.teacherAssistants[[2]int64{teacherID, assistantID}], nil
}

func (d directoryFacade) GetStudent(ctx context.Context, studentID int64) (*model.Student, error) {
	return d.f.students[studentID], nil
}

// --- хелперы сборки тестовых данных ---

func (f *fakeStore) addSlot(teacherID, branchID int64, weekday, startMin, endMin, capacity int) *model.ClinicSlot {
	f.slotSeq++
	slot := &model.ClinicSlot{
		ID:        f.slotSeq,
		TeacherID: teacherID,
		BranchID:  branchID,
		CreatorID: teacherID,
		Weekday:   weekday,
		StartMin:  startMin,
		EndMin:    endMin,
		Capacity:  capacity,
		Status:    model.SlotStatusActive,
	}
	f.slots[slot.ID] = slot
	return slot
}

func (f *fakeStore) addSession(slot *model.ClinicSlot, date time.Time) *model.ClinicSession {
	f.sessionSeq++
	session := &model.ClinicSession{
		ID:        f.sessionSeq,
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
	f.sessions[session.ID] = session
	return session
}

func (f *fakeStore) addRecord(id, studentID, courseID int64) *model.CourseRecord {
	record := &model.CourseRecord{
		ID:        id,
		StudentID: studentID,
		CourseID:  courseID,
		Status:    model.RecordStatusActive,
	}
	f.records[id] = record
	return record
}

func (f *fakeStore) addCourse(id, teacherID, branchID int64) *model.Course {
	course := &model.Course{
		ID:        id,
		TeacherID: teacherID,
		BranchID:  branchID,
		Status:    model.CourseStatusActive,
	}
	f.courses[id] = course
	return course
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
