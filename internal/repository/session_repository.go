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

// SessionRepository хранит датированные клиник-сессии. Колонка date имеет тип
// DATE, поэтому при чтении дата нормализуется в часовой пояс клиники.
type SessionRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewSessionRepository(pool *pgxpool.Pool, loc *time.Location) *SessionRepository {
	return &SessionRepository{pool: pool, loc: loc}
}

const sessionColumns = `id, slot_id, teacher_id, branch_id, kind, creator_id, date, start_min, end_min, capacity, status, version, created_at, updated_at`

// Create создаёт сессию. Частичный уникальный индекс на (slot_id, date)
// превращает гонку конкурирующих развёрток в model.ErrDuplicated.
func (r *SessionRepository) Create(ctx context.Context, session *model.ClinicSession) error {
	query := `
		INSERT INTO clinic_sessions (slot_id, teacher_id, branch_id, kind, creator_id, date, start_min, end_min, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, version, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		session.SlotID,
		session.TeacherID,
		session.BranchID,
		session.Kind,
		session.CreatorID,
		session.Date,
		session.StartMin,
		session.EndMin,
		session.Capacity,
		session.Status,
	).Scan(&session.ID, &session.Version, &session.CreatedAt, &session.UpdatedAt)

	if base.IsUniqueViolation(err) {
		return model.ErrDuplicated
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID получает сессию по ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.ClinicSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM clinic_sessions WHERE id = $1`

	session, err := r.scanSession(r.pool.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// GetBySlotAndDate получает сессию слота на дату независимо от статуса:
// отменённая сессия всё ещё занимает свою пару (slot, date)
func (r *SessionRepository) GetBySlotAndDate(ctx context.Context, slotID int64, date time.Time) (*model.ClinicSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM clinic_sessions
		WHERE slot_id = $1 AND date = $2 AND kind = 'regular'
	`

	session, err := r.scanSession(r.pool.QueryRow(ctx, query, slotID, date))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by slot and date: %w", err)
	}

	return session, nil
}

// GetByTeacherAndRange получает сессии учителя за период вместе с живым
// количеством записей на каждую
func (r *SessionRepository) GetByTeacherAndRange(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.SessionWithCount, error) {
	query := `
		SELECT s.id, s.slot_id, s.teacher_id, s.branch_id, s.kind, s.creator_id, s.date,
		       s.start_min, s.end_min, s.capacity, s.status, s.version, s.created_at, s.updated_at,
		       count(a.id)
		FROM clinic_sessions s
		LEFT JOIN clinic_attendances a ON a.session_id = s.id
		WHERE s.teacher_id = $1 AND s.date >= $2 AND s.date <= $3
		GROUP BY s.id
		ORDER BY s.date, s.start_min
	`

	rows, err := r.pool.Query(ctx, query, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get sessions by teacher: %w", err)
	}
	defer rows.Close()

	var result []*model.SessionWithCount
	for rows.Next() {
		session := &model.ClinicSession{}
		var count int
		err := rows.Scan(
			&session.ID,
			&session.SlotID,
			&session.TeacherID,
			&session.BranchID,
			&session.Kind,
			&session.CreatorID,
			&session.Date,
			&session.StartMin,
			&session.EndMin,
			&session.Capacity,
			&session.Status,
			&session.Version,
			&session.CreatedAt,
			&session.UpdatedAt,
			&count,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session.Date = r.normalizeDate(session.Date)
		result = append(result, &model.SessionWithCount{Session: session, AttendanceCount: count})
	}

	return result, rows.Err()
}

// Cancel отменяет сессию compare-and-swap'ом по версии. Проигрыш гонки
// конкурирующей записи возвращается как model.ErrVersionConflict.
func (r *SessionRepository) Cancel(ctx context.Context, id, version int64) error {
	query := `
		UPDATE clinic_sessions
		SET status = 'canceled', version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND status = 'scheduled'
	`

	result, err := r.pool.Exec(ctx, query, id, version)
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrVersionConflict
	}

	return nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (*model.ClinicSession, error) {
	session := &model.ClinicSession{}
	err := row.Scan(
		&session.ID,
		&session.SlotID,
		&session.TeacherID,
		&session.BranchID,
		&session.Kind,
		&session.CreatorID,
		&session.Date,
		&session.StartMin,
		&session.EndMin,
		&session.Capacity,
		&session.Status,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	session.Date = r.normalizeDate(session.Date)
	return session, nil
}

// normalizeDate переводит полночь DATE-колонки в часовой пояс клиники
func (r *SessionRepository) normalizeDate(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}
