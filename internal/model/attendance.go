package model

import "time"

// ClinicAttendance представляет запись ученика на конкретную сессию
type ClinicAttendance struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	RecordID  int64     `json:"record_id"` // запись ученика на курс (enrollment record)
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceDetail строка ростера сессии для персонала
type AttendanceDetail struct {
	AttendanceID int64  `json:"attendance_id"`
	RecordID     int64  `json:"record_id"`
	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name"`
	StudentAge   int    `json:"student_age"`
}

// StudentAttendance собственная запись ученика вместе с фактами сессии
type StudentAttendance struct {
	AttendanceID int64         `json:"attendance_id"`
	SessionID    int64         `json:"session_id"`
	TeacherID    int64         `json:"teacher_id"`
	Date         time.Time     `json:"date"`
	StartMin     int           `json:"start_min"`
	EndMin       int           `json:"end_min"`
	Status       SessionStatus `json:"status"`
}
