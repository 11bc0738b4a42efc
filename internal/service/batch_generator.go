package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/policy"
)

// BatchGenerator еженедельная развёртка: шаблоны слотов -> сессии недели ->
// автоматические записи дефолтеров. Каждая единица работы (слот, запись)
// независима: конфликт логируется и пропускается, проход никогда не прерывается.
type BatchGenerator struct {
	slotStore       SlotStore
	sessionStore    SessionStore
	attendanceStore AttendanceStore
	enrollments     EnrollmentDirectory
	logger          *zap.Logger
}

func NewBatchGenerator(
	slotStore SlotStore,
	sessionStore SessionStore,
	attendanceStore AttendanceStore,
	enrollments EnrollmentDirectory,
	logger *zap.Logger,
) *BatchGenerator {
	return &BatchGenerator{
		slotStore:       slotStore,
		sessionStore:    sessionStore,
		attendanceStore: attendanceStore,
		enrollments:     enrollments,
		logger:          logger,
	}
}

// GenerateWeeklySessions разворачивает каждый активный слот в сессию недели,
// содержащей date. Повторный запуск за ту же неделю не создаёт дубликатов.
func (g *BatchGenerator) GenerateWeeklySessions(ctx context.Context, date time.Time) error {
	runID := uuid.New()
	week := policy.ResolveWeek(date)

	slots, err := g.slotStore.GetAllActive(ctx)
	if err != nil {
		return fmt.Errorf("get all active slots: %w", err)
	}

	created := 0
	skipped := 0
	for _, slot := range slots {
		ok, err := g.ensureSessionForSlot(ctx, slot, week)
		if err != nil {
			// Конфликт или сбой на одном слоте не останавливает развёртку
			g.logger.Warn("Failed to generate session for slot",
				zap.String("run_id", runID.String()),
				zap.Int64("slot_id", slot.ID),
				zap.Error(err))
			skipped++
			continue
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}

	g.logger.Info("Weekly session generation completed",
		zap.String("run_id", runID.String()),
		zap.Time("week_start", week.Start),
		zap.Int("total_slots", len(slots)),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)

	return nil
}

// ensureSessionForSlot создаёт regular-сессию слота на его день в указанной
// неделе, если её ещё нет. Возвращает true если сессия была создана.
func (g *BatchGenerator) ensureSessionForSlot(ctx context.Context, slot *model.ClinicSlot, week model.WeekRange) (bool, error) {
	// Структурно сломанный шаблон пропускаем молча
	if slot.Capacity < 1 || slot.StartMin >= slot.EndMin {
		g.logger.Warn("Skipping structurally invalid slot",
			zap.Int64("slot_id", slot.ID))
		return false, nil
	}

	date := policy.OccurrenceInWeek(week, slot.Weekday)

	existing, err := g.sessionStore.GetBySlotAndDate(ctx, slot.ID, date)
	if err != nil {
		return false, fmt.Errorf("get session by slot and date: %w", err)
	}
	if existing != nil {
		return false, nil
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

	err = g.sessionStore.Create(ctx, session)
	if errors.Is(err, model.ErrDuplicated) || errors.Is(err, model.ErrVersionConflict) {
		// Конкурирующая развёртка успела первой — считаем цель достигнутой
		g.logger.Debug("Session already created concurrently, skipping",
			zap.Int64("slot_id", slot.ID),
			zap.Time("date", date))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create session: %w", err)
	}

	return true, nil
}

// GenerateWeeklyAttendances записывает каждого дефолтера слота на сессию
// недели, содержащей date. Заполненные, пересекающиеся и уже существующие
// записи пропускаются как обычные условия, а не ошибки.
func (g *BatchGenerator) GenerateWeeklyAttendances(ctx context.Context, date time.Time) error {
	runID := uuid.New()
	week := policy.ResolveWeek(date)

	slots, err := g.slotStore.GetAllActive(ctx)
	if err != nil {
		return fmt.Errorf("get all active slots: %w", err)
	}

	booked := 0
	for _, slot := range slots {
		count, err := g.bookDefaultersForSlot(ctx, slot, week)
		if err != nil {
			g.logger.Warn("Failed to book defaulters for slot",
				zap.String("run_id", runID.String()),
				zap.Int64("slot_id", slot.ID),
				zap.Error(err))
			continue
		}
		booked += count
	}

	g.logger.Info("Weekly attendance generation completed",
		zap.String("run_id", runID.String()),
		zap.Time("week_start", week.Start),
		zap.Int("total_slots", len(slots)),
		zap.Int("booked", booked),
	)

	return nil
}

// bookDefaultersForSlot записывает дефолтеров одного слота на его сессию недели
func (g *BatchGenerator) bookDefaultersForSlot(ctx context.Context, slot *model.ClinicSlot, week model.WeekRange) (int, error) {
	date := policy.OccurrenceInWeek(week, slot.Weekday)

	session, err := g.sessionStore.GetBySlotAndDate(ctx, slot.ID, date)
	if err != nil {
		return 0, fmt.Errorf("get session by slot and date: %w", err)
	}
	if session == nil || session.Status == model.SessionStatusCanceled {
		return 0, nil
	}

	records, err := g.enrollments.RecordsByDefaultSlot(ctx, slot.ID)
	if err != nil {
		return 0, fmt.Errorf("get records by default slot: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	current, err := g.attendanceStore.CountBySession(ctx, session.ID)
	if err != nil {
		return 0, fmt.Errorf("count attendances: %w", err)
	}

	// Остаток вместимости ведём локально: чтение и запись разных записей
	// между собой иначе не сериализованы
	remaining := session.Capacity - current

	booked := 0
	for _, record := range records {
		if !record.IsActive() {
			continue
		}
		if remaining <= 0 {
			g.logger.Debug("Session is full, skipping remaining defaulters",
				zap.Int64("session_id", session.ID))
			break
		}

		_, err := g.attendanceStore.Add(ctx, session.ID, record.ID)
		switch {
		case errors.Is(err, model.ErrDuplicated):
			// Уже записан — цель достигнута
			continue
		case errors.Is(err, model.ErrSessionFull), errors.Is(err, model.ErrTimeOverlap):
			g.logger.Debug("Defaulter skipped",
				zap.Int64("session_id", session.ID),
				zap.Int64("record_id", record.ID),
				zap.Error(err))
			continue
		case err != nil:
			// Сбой на одной записи не останавливает остальных
			g.logger.Warn("Failed to book defaulter",
				zap.Int64("session_id", session.ID),
				zap.Int64("record_id", record.ID),
				zap.Error(err))
			continue
		}

		remaining--
		booked++
	}

	return booked, nil
}

// GenerateRemainingSessionsForSlot разворачивает один только что созданный или
// изменённый слот на остаток текущей недели. Если время слота на этой неделе
// уже прошло — no-op: задним числом сессии не создаются.
func (g *BatchGenerator) GenerateRemainingSessionsForSlot(ctx context.Context, slot *model.ClinicSlot, now time.Time) error {
	week := policy.ResolveWeek(now)
	date := policy.OccurrenceInWeek(week, slot.Weekday)
	startAt := date.Add(time.Duration(slot.StartMin) * time.Minute)

	if !now.Before(startAt) {
		g.logger.Debug("Slot occurrence already passed this week, nothing to generate",
			zap.Int64("slot_id", slot.ID),
			zap.Time("start_at", startAt))
		return nil
	}

	if _, err := g.ensureSessionForSlot(ctx, slot, week); err != nil {
		return fmt.Errorf("ensure session for slot: %w", err)
	}

	if _, err := g.bookDefaultersForSlot(ctx, slot, week); err != nil {
		return fmt.Errorf("book defaulters for slot: %w", err)
	}

	return nil
}
