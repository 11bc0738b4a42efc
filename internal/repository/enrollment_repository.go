package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/repository/base"
)

// EnrollmentRepository факты подсистемы записей на курсы: сами записи, курсы
// и привязки записей к дефолтным клиник-слотам
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

const recordColumns = `id, student_id, course_id, status, default_slot_id, created_at, updated_at`

// GetRecord получает запись на курс по ID
func (r *EnrollmentRepository) GetRecord(ctx context.Context, recordID int64) (*model.CourseRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM course_records WHERE id = $1`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, recordID))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record by id: %w", err)
	}

	return record, nil
}

// GetCourse получает курс по ID
func (r *EnrollmentRepository) GetCourse(ctx context.Context, courseID int64) (*model.Course, error) {
	course := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, teacher_id, branch_id, status FROM courses WHERE id = $1`,
		courseID,
	).Scan(&course.ID, &course.TeacherID, &course.BranchID, &course.Status)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	return course, nil
}

// ActiveRecordsByStudent получает активные записи ученика
func (r *EnrollmentRepository) ActiveRecordsByStudent(ctx context.Context, studentID int64) ([]*model.CourseRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM course_records
		WHERE student_id = $1 AND status = 'active'
		ORDER BY id
	`

	return r.queryRecords(ctx, query, studentID)
}

// ActiveRecordsWithTeacher получает активные записи ученика на курсы учителя
func (r *EnrollmentRepository) ActiveRecordsWithTeacher(ctx context.Context, studentID, teacherID int64) ([]*model.CourseRecord, error) {
	query := `
		SELECT r.id, r.student_id, r.course_id, r.status, r.default_slot_id, r.created_at, r.updated_at
		FROM course_records r
		JOIN courses c ON c.id = r.course_id
		WHERE r.student_id = $1 AND r.status = 'active'
		  AND c.teacher_id = $2 AND c.status = 'active'
		ORDER BY r.id
	`

	return r.queryRecords(ctx, query, studentID, teacherID)
}

// RecordsByDefaultSlot получает активные записи, привязанные к слоту как к дефолтному
func (r *EnrollmentRepository) RecordsByDefaultSlot(ctx context.Context, slotID int64) ([]*model.CourseRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM course_records
		WHERE default_slot_id = $1 AND status = 'active'
		ORDER BY id
	`

	return r.queryRecords(ctx, query, slotID)
}

// CountByDefaultSlot считает активные привязки к слоту
func (r *EnrollmentRepository) CountByDefaultSlot(ctx context.Context, slotID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM course_records WHERE default_slot_id = $1 AND status = 'active'`,
		slotID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by default slot: %w", err)
	}

	return count, nil
}

// SetDefaultSlot привязывает запись к дефолтному слоту (nil — сброс привязки)
func (r *EnrollmentRepository) SetDefaultSlot(ctx context.Context, recordID int64, slotID *int64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE course_records SET default_slot_id = $1, updated_at = now() WHERE id = $2`,
		slotID, recordID,
	)
	if err != nil {
		return fmt.Errorf("set default slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// ClearDefaultSlotForSlot сбрасывает привязки всех записей к слоту и
// возвращает число сброшенных
func (r *EnrollmentRepository) ClearDefaultSlotForSlot(ctx context.Context, slotID int64) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE course_records SET default_slot_id = NULL, updated_at = now() WHERE default_slot_id = $1`,
		slotID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear default slot bindings: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *EnrollmentRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*model.CourseRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*model.CourseRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*model.CourseRecord, error) {
	record := &model.CourseRecord{}
	err := row.Scan(
		&record.ID,
		&record.StudentID,
		&record.CourseID,
		&record.Status,
		&record.DefaultSlotID,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}
