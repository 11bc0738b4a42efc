package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/repository/base"
)

// AttendanceRepository хранит записи учеников на сессии. Мутации, зависящие от
// вместимости, выполняются в транзакции с блокировкой строки сессии: проверка
// и вставка сериализованы между конкурентными бронирующими.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Add записывает запись на сессию под блокировкой строки сессии.
// Возвращает model.ErrDuplicated, model.ErrSessionFull или model.ErrTimeOverlap.
func (r *AttendanceRepository) Add(ctx context.Context, sessionID, recordID int64) (*model.ClinicAttendance, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	attendance, err := r.insertGuarded(ctx, tx, sessionID, recordID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return attendance, nil
}

// Move атомарно переносит запись между сессиями: удаление плюс вставка в
// одной транзакции, обе строки сессий блокируются в порядке возрастания ID
// чтобы исключить взаимную блокировку встречных переносов
func (r *AttendanceRepository) Move(ctx context.Context, fromSessionID, toSessionID, recordID int64) (*model.ClinicAttendance, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := fromSessionID, toSessionID
	if second < first {
		first, second = second, first
	}
	if _, err := lockSession(ctx, tx, first); err != nil {
		return nil, err
	}
	if _, err := lockSession(ctx, tx, second); err != nil {
		return nil, err
	}

	result, err := tx.Exec(ctx,
		`DELETE FROM clinic_attendances WHERE session_id = $1 AND record_id = $2`,
		fromSessionID, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete source attendance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, model.ErrNotFound
	}

	attendance, err := r.insertGuarded(ctx, tx, toSessionID, recordID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return attendance, nil
}

// insertGuarded вставляет запись после проверок дубликата, вместимости и
// пересечения по времени; строка сессии к этому моменту заблокирована
func (r *AttendanceRepository) insertGuarded(ctx context.Context, tx pgx.Tx, sessionID, recordID int64) (*model.ClinicAttendance, error) {
	session, err := lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM clinic_attendances WHERE session_id = $1 AND record_id = $2)`,
		sessionID, recordID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return nil, model.ErrDuplicated
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM clinic_attendances WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count attendances: %w", err)
	}
	if count >= session.capacity {
		return nil, model.ErrSessionFull
	}

	// Другая запись того же ученика, пересекающаяся в тот же день по времени
	var overlaps bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM clinic_attendances a
			JOIN clinic_sessions s ON s.id = a.session_id
			WHERE a.record_id = $1
			  AND s.date = $2
			  AND s.status = 'scheduled'
			  AND s.start_min < $4
			  AND $3 < s.end_min
		)`,
		recordID, session.date, session.startMin, session.endMin,
	).Scan(&overlaps)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlaps {
		return nil, model.ErrTimeOverlap
	}

	attendance := &model.ClinicAttendance{
		SessionID: sessionID,
		RecordID:  recordID,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO clinic_attendances (session_id, record_id) VALUES ($1, $2) RETURNING id, created_at`,
		sessionID, recordID,
	).Scan(&attendance.ID, &attendance.CreatedAt)

	if base.IsUniqueViolation(err) {
		return nil, model.ErrDuplicated
	}
	if err != nil {
		return nil, fmt.Errorf("insert attendance: %w", err)
	}

	return attendance, nil
}

// lockedSession поля сессии, нужные проверкам под блокировкой
type lockedSession struct {
	capacity int
	date     time.Time
	startMin int
	endMin   int
}

func lockSession(ctx context.Context, tx pgx.Tx, sessionID int64) (*lockedSession, error) {
	session := &lockedSession{}
	err := tx.QueryRow(ctx,
		`SELECT capacity, date, start_min, end_min FROM clinic_sessions WHERE id = $1 FOR UPDATE`,
		sessionID,
	).Scan(&session.capacity, &session.date, &session.startMin, &session.endMin)

	if base.IsNotFound(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}

	return session, nil
}

// Delete удаляет запись по ID
func (r *AttendanceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM clinic_attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// GetByID получает запись по ID
func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*model.ClinicAttendance, error) {
	attendance := &model.ClinicAttendance{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, record_id, created_at FROM clinic_attendances WHERE id = $1`,
		id,
	).Scan(&attendance.ID, &attendance.SessionID, &attendance.RecordID, &attendance.CreatedAt)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance by id: %w", err)
	}

	return attendance, nil
}

// GetBySession получает все записи сессии
func (r *AttendanceRepository) GetBySession(ctx context.Context, sessionID int64) ([]*model.ClinicAttendance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, record_id, created_at FROM clinic_attendances WHERE session_id = $1 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get attendances by session: %w", err)
	}
	defer rows.Close()

	var attendances []*model.ClinicAttendance
	for rows.Next() {
		attendance := &model.ClinicAttendance{}
		err := rows.Scan(&attendance.ID, &attendance.SessionID, &attendance.RecordID, &attendance.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		attendances = append(attendances, attendance)
	}

	return attendances, rows.Err()
}

// CountBySession считает записи сессии
func (r *AttendanceRepository) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM clinic_attendances WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendances: %w", err)
	}

	return count, nil
}

// StudentAttendances получает записи ученика за период вместе с фактами сессий
func (r *AttendanceRepository) StudentAttendances(ctx context.Context, studentID int64, from, to time.Time) ([]*model.StudentAttendance, error) {
	query := `
		SELECT a.id, a.session_id, s.teacher_id, s.date, s.start_min, s.end_min, s.status
		FROM clinic_attendances a
		JOIN clinic_sessions s ON s.id = a.session_id
		JOIN course_records r ON r.id = a.record_id
		WHERE r.student_id = $1 AND s.date >= $2 AND s.date <= $3
		ORDER BY s.date, s.start_min
	`

	rows, err := r.pool.Query(ctx, query, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get student attendances: %w", err)
	}
	defer rows.Close()

	var result []*model.StudentAttendance
	for rows.Next() {
		item := &model.StudentAttendance{}
		err := rows.Scan(
			&item.AttendanceID,
			&item.SessionID,
			&item.TeacherID,
			&item.Date,
			&item.StartMin,
			&item.EndMin,
			&item.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan student attendance: %w", err)
		}
		result = append(result, item)
	}

	return result, rows.Err()
}
