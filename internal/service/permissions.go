package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
)

// permissionValidator проверяет права персонала на операции с клиник-расписанием
// по фактам из внешних подсистем (назначения, верификация филиала)
type permissionValidator struct {
	staff StaffDirectory
}

// EnsureStaffForTeacher проверяет что principal вправе действовать от имени
// расписания учителя: сам учитель, назначенный ассистент или супер-админ
func (v *permissionValidator) EnsureStaffForTeacher(ctx context.Context, principal model.Principal, teacherID int64) error {
	switch principal.Role {
	case model.RoleSuperAdmin:
		return nil
	case model.RoleTeacher:
		if principal.ID != teacherID {
			return model.ErrForbidden
		}
		return nil
	case model.RoleAssistant:
		assigned, err := v.staff.IsAssistantAssigned(ctx, teacherID, principal.ID)
		if err != nil {
			return fmt.Errorf("check assistant assignment: %w", err)
		}
		if !assigned {
			return model.ErrForbidden
		}
		return nil
	default:
		return model.ErrForbidden
	}
}

// EnsureTeacherAtBranch проверяет что филиал верифицирован и у учителя есть
// активное назначение в него
func (v *permissionValidator) EnsureTeacherAtBranch(ctx context.Context, teacherID, branchID int64) error {
	verified, err := v.staff.IsBranchVerified(ctx, branchID)
	if err != nil {
		return fmt.Errorf("check branch verification: %w", err)
	}
	if !verified {
		return model.ErrForbidden
	}

	assigned, err := v.staff.IsTeacherAssigned(ctx, teacherID, branchID)
	if err != nil {
		return fmt.Errorf("check teacher assignment: %w", err)
	}
	if !assigned {
		return model.ErrForbidden
	}

	return nil
}
