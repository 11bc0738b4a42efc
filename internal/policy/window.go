package policy

import (
	"time"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

// WindowPolicy чистые правила временных окон клиник-расписания.
// Никогда не читает системные часы: момент "сейчас" всегда передаётся явно.
type WindowPolicy struct {
	lockBefore time.Duration // за сколько до начала сессии закрывается запись/отмена
	moveBefore time.Duration // за сколько до начала закрывается перенос (строже lockBefore)
}

// NewWindowPolicy создаёт политику окон. moveBefore должен быть больше lockBefore,
// т.е. окно переноса закрывается раньше окна записи.
func NewWindowPolicy(lockBefore, moveBefore time.Duration) *WindowPolicy {
	return &WindowPolicy{
		lockBefore: lockBefore,
		moveBefore: moveBefore,
	}
}

// ResolveWeek возвращает календарную неделю (понедельник..воскресенье), содержащую дату
func ResolveWeek(date time.Time) model.WeekRange {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, date.Location())

	// Понедельник — начало недели: смещение от понедельника в днях
	offset := (int(day.Weekday()) + 6) % 7

	start := day.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)

	return model.WeekRange{Start: start, End: end}
}

// OccurrenceInWeek возвращает дату в неделе week, приходящуюся на weekday (0 = Sunday)
func OccurrenceInWeek(week model.WeekRange, weekday int) time.Time {
	// Понедельник = 1 в нумерации time.Weekday, неделя начинается с понедельника
	offset := (weekday + 6) % 7
	return week.Start.AddDate(0, 0, offset)
}

// IsLocked сообщает закрыто ли окно записи/отмены для сессии.
// Монотонно по времени: однажды закрывшись, окно не открывается снова.
func (p *WindowPolicy) IsLocked(session *model.ClinicSession, now time.Time) bool {
	return !now.Before(session.StartAt().Add(-p.lockBefore))
}

// IsMoveAllowed сообщает открыто ли ещё окно переноса записи с этой сессии
func (p *WindowPolicy) IsMoveAllowed(session *model.ClinicSession, now time.Time) bool {
	return now.Before(session.StartAt().Add(-p.moveBefore))
}
