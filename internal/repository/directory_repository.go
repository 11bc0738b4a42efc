package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/repository/base"
)

// StaffRepository факты о филиалах и назначениях персонала
type StaffRepository struct {
	pool *pgxpool.Pool
}

func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// IsBranchVerified проверяет что филиал активен и верифицирован
func (r *StaffRepository) IsBranchVerified(ctx context.Context, branchID int64) (bool, error) {
	var verified bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM branches WHERE id = $1 AND status = 'verified')`,
		branchID,
	).Scan(&verified)
	if err != nil {
		return false, fmt.Errorf("check branch verified: %w", err)
	}

	return verified, nil
}

// IsTeacherAssigned проверяет активное назначение учителя в филиал
func (r *StaffRepository) IsTeacherAssigned(ctx context.Context, teacherID, branchID int64) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM teacher_branches WHERE teacher_id = $1 AND branch_id = $2 AND status = 'active')`,
		teacherID, branchID,
	).Scan(&assigned)
	if err != nil {
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}

	return assigned, nil
}

// IsAssistantAssigned проверяет активное назначение ассистента к учителю
func (r *StaffRepository) IsAssistantAssigned(ctx context.Context, teacherID, assistantID int64) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM teacher_assistants WHERE teacher_id = $1 AND assistant_id = $2 AND status = 'active')`,
		teacherID, assistantID,
	).Scan(&assigned)
	if err != nil {
		return false, fmt.Errorf("check assistant assignment: %w", err)
	}

	return assigned, nil
}

// MemberRepository факты об участниках академии
type MemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// GetStudent получает профиль ученика
func (r *MemberRepository) GetStudent(ctx context.Context, studentID int64) (*model.Student, error) {
	student := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, birth_date FROM members WHERE id = $1 AND role = 'student'`,
		studentID,
	).Scan(&student.ID, &student.Name, &student.BirthDate)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return student, nil
}
