package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

func newDefaultSlotAssigner(f *fakeStore, now time.Time) *DefaultSlotAssigner {
	s := NewDefaultSlotAssigner(f, sessionStoreFacade{f}, attendanceStoreFacade{f}, enrollmentFacade{f}, testLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestApplyDefaultSlotFirstBindingBooksCurrentWeek(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	s := newDefaultSlotAssigner(f, now)

	slot := f.addSlot(1, 1, 1, 1080, 1140, 3)
	f.addSession(slot, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC))
	f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)

	require.NoError(t, s.ApplyDefaultSlot(ctx, record.ID, slot.ID))
	require.NotNil(t, record.DefaultSlotID)
	require.Equal(t, slot.ID, *record.DefaultSlotID)

	// Самая первая привязка сразу бронирует сессию текущей недели
	require.Len(t, f.attendances, 1)
}

func TestApplyDefaultSlotRebindDoesNotBook(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	s := newDefaultSlotAssigner(f, now)

	old := f.addSlot(1, 1, 2, 1080, 1140, 3)
	slot := f.addSlot(1, 1, 3, 1080, 1140, 3)
	f.addSession(slot, time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))
	f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)
	record.DefaultSlotID = &old.ID

	// Смена одного дефолтного слота на другой автоматики не запускает
	require.NoError(t, s.ApplyDefaultSlot(ctx, record.ID, slot.ID))
	require.Equal(t, slot.ID, *record.DefaultSlotID)
	require.Empty(t, f.attendances)
}

func TestApplyDefaultSlotSameSlotRejected(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	s := newDefaultSlotAssigner(f, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC))

	slot := f.addSlot(1, 1, 1, 1080, 1140, 3)
	f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)
	record.DefaultSlotID = &slot.ID

	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, record.ID, slot.ID), model.ErrDuplicated)
}

func TestApplyDefaultSlotCourseMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	s := newDefaultSlotAssigner(f, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC))

	foreignTeacher := f.addSlot(2, 1, 1, 1080, 1140, 3)
	foreignBranch := f.addSlot(1, 2, 1, 1080, 1140, 3)
	f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)

	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, record.ID, foreignTeacher.ID), model.ErrForbidden)
	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, record.ID, foreignBranch.ID), model.ErrForbidden)
	require.Nil(t, record.DefaultSlotID)
}

func TestApplyDefaultSlotStudentConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	s := newDefaultSlotAssigner(f, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC))

	taken := f.addSlot(1, 1, 1, 1080, 1140, 3)
	overlapping := f.addSlot(1, 1, 1, 1110, 1170, 3)
	free := f.addSlot(1, 1, 3, 1080, 1140, 3)

	f.addCourse(10, 1, 1)
	f.addCourse(11, 1, 1)
	first := f.addRecord(1000, 100, 10)
	first.DefaultSlotID = &taken.ID
	second := f.addRecord(1001, 100, 11)

	// Тот же слот уже является дефолтным у другой записи ученика
	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, second.ID, taken.ID), model.ErrDuplicated)

	// Пересечение по времени с дефолтным слотом другой записи
	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, second.ID, overlapping.ID), model.ErrTimeOverlap)

	// Непересекающийся день — можно
	require.NoError(t, s.ApplyDefaultSlot(ctx, second.ID, free.ID))
}

func TestApplyDefaultSlotCapacityAmongDefaulters(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	s := newDefaultSlotAssigner(f, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC))

	slot := f.addSlot(1, 1, 1, 1080, 1140, 2)
	f.addCourse(10, 1, 1)
	for _, id := range []int64{100, 101} {
		record := f.addRecord(id, id, 10)
		record.DefaultSlotID = &slot.ID
	}
	late := f.addRecord(1002, 102, 10)

	// Все места слота уже разобраны дефолтерами
	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, late.ID, slot.ID), model.ErrCapacityConflict)
}

func TestApplyDefaultSlotInactiveTargets(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	s := newDefaultSlotAssigner(f, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC))

	slot := f.addSlot(1, 1, 1, 1080, 1140, 3)
	deletedSlot := f.addSlot(1, 1, 2, 1080, 1140, 3)
	deletedSlot.Status = model.SlotStatusDeleted

	f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)

	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, record.ID, deletedSlot.ID), model.ErrNotFound)
	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, 999, slot.ID), model.ErrNotFound)

	record.Status = model.RecordStatusDeleted
	require.ErrorIs(t, s.ApplyDefaultSlot(ctx, record.ID, slot.ID), model.ErrNotFound)
}

func TestCreateAttendancesForCurrentWeekSkipsStartedSession(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	// 18:30 — сессия 18:00 уже идёт
	now := time.Date(2024, time.March, 4, 18, 30, 0, 0, time.UTC)
	s := newDefaultSlotAssigner(f, now)

	slot := f.addSlot(1, 1, 1, 1080, 1140, 3)
	f.addSession(slot, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC))
	course := f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)
	record.DefaultSlotID = &slot.ID

	require.NoError(t, s.CreateAttendancesForCurrentWeekIfPossible(ctx, record, course))
	require.Empty(t, f.attendances)
}

func TestCreateAttendancesForCurrentWeekIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	s := newDefaultSlotAssigner(f, now)

	slot := f.addSlot(1, 1, 1, 1080, 1140, 3)
	f.addSession(slot, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC))
	course := f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)
	record.DefaultSlotID = &slot.ID

	require.NoError(t, s.CreateAttendancesForCurrentWeekIfPossible(ctx, record, course))
	require.NoError(t, s.CreateAttendancesForCurrentWeekIfPossible(ctx, record, course))
	require.Len(t, f.attendances, 1)
}

func TestCreateAttendancesForCurrentWeekNoSession(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	s := newDefaultSlotAssigner(f, now)

	slot := f.addSlot(1, 1, 1, 1080, 1140, 3)
	course := f.addCourse(10, 1, 1)
	record := f.addRecord(1000, 100, 10)
	record.DefaultSlotID = &slot.ID

	// Сессии на этой неделе нет — тихий no-op, добукает недельная развёртка
	require.NoError(t, s.CreateAttendancesForCurrentWeekIfPossible(ctx, record, course))
	require.Empty(t, f.attendances)
}
