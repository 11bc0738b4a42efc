package model

import "time"

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCanceled  SessionStatus = "canceled"
)

type SessionKind string

const (
	SessionKindRegular   SessionKind = "regular"
	SessionKindEmergency SessionKind = "emergency"
)

// ClinicSession представляет датированный экземпляр клиник-слота
type ClinicSession struct {
	ID        int64         `json:"id"`
	SlotID    *int64        `json:"slot_id"` // nil для emergency-сессий
	TeacherID int64         `json:"teacher_id"`
	BranchID  int64         `json:"branch_id"`
	Kind      SessionKind   `json:"kind"`
	CreatorID *int64        `json:"creator_id"` // заполняется только для emergency
	Date      time.Time     `json:"date"`       // полночь в часовом поясе клиники
	StartMin  int           `json:"start_min"`
	EndMin    int           `json:"end_min"`
	Capacity  int           `json:"capacity"` // копия capacity слота на момент генерации
	Status    SessionStatus `json:"status"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StartAt возвращает момент начала сессии
func (s *ClinicSession) StartAt() time.Time {
	return s.Date.Add(time.Duration(s.StartMin) * time.Minute)
}

// EndAt возвращает момент окончания сессии
func (s *ClinicSession) EndAt() time.Time {
	return s.Date.Add(time.Duration(s.EndMin) * time.Minute)
}

// SameDate проверяет что сессия проходит в тот же календарный день
func (s *ClinicSession) SameDate(date time.Time) bool {
	y1, m1, d1 := s.Date.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// SessionWithCount сессия вместе с актуальным количеством записей
type SessionWithCount struct {
	Session         *ClinicSession `json:"session"`
	AttendanceCount int            `json:"attendance_count"`
}
