package model

import "time"

type Role string

const (
	RoleTeacher    Role = "teacher"
	RoleAssistant  Role = "assistant"
	RoleStudent    Role = "student"
	RoleSuperAdmin Role = "super_admin"
)

// Principal аутентифицированный участник, от имени которого выполняется операция
type Principal struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleTeacher || p.Role == RoleAssistant
}

// Student профиль ученика из внешней подсистемы участников
type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
}

// Age возвращает полный возраст ученика на указанную дату
func (s *Student) Age(on time.Time) int {
	age := on.Year() - s.BirthDate.Year()
	if on.Month() < s.BirthDate.Month() ||
		(on.Month() == s.BirthDate.Month() && on.Day() < s.BirthDate.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age
}
