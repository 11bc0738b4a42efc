package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/clinic_scheduler/internal/model"
	"github.com/Freeeeeet/clinic_scheduler/internal/repository/base"
)

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

const slotColumns = `id, teacher_id, branch_id, creator_id, weekday, start_min, end_min, capacity, status, created_at, updated_at`

// Create создаёт новый клиник-слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.ClinicSlot) error {
	query := `
		INSERT INTO clinic_slots (teacher_id, branch_id, creator_id, weekday, start_min, end_min, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.TeacherID,
		slot.BranchID,
		slot.CreatorID,
		slot.Weekday,
		slot.StartMin,
		slot.EndMin,
		slot.Capacity,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.ClinicSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM clinic_slots WHERE id = $1`

	slot, err := scanSlot(r.pool.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// Update сохраняет расписание, вместимость и статус слота
func (r *SlotRepository) Update(ctx context.Context, slot *model.ClinicSlot) error {
	query := `
		UPDATE clinic_slots
		SET weekday = $1, start_min = $2, end_min = $3, capacity = $4, status = $5, updated_at = now()
		WHERE id = $6
	`

	result, err := r.pool.Exec(ctx, query,
		slot.Weekday,
		slot.StartMin,
		slot.EndMin,
		slot.Capacity,
		slot.Status,
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// GetActiveByTeacher получает активные слоты учителя
func (r *SlotRepository) GetActiveByTeacher(ctx context.Context, teacherID int64) ([]*model.ClinicSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM clinic_slots
		WHERE teacher_id = $1 AND status = 'active'
		ORDER BY weekday, start_min
	`

	return r.querySlots(ctx, query, teacherID)
}

// GetActiveByBranch получает активные слоты филиала
func (r *SlotRepository) GetActiveByBranch(ctx context.Context, branchID int64) ([]*model.ClinicSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM clinic_slots
		WHERE branch_id = $1 AND status = 'active'
		ORDER BY weekday, start_min
	`

	return r.querySlots(ctx, query, branchID)
}

// GetAllActive получает все активные слоты для еженедельной развёртки
func (r *SlotRepository) GetAllActive(ctx context.Context) ([]*model.ClinicSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM clinic_slots
		WHERE status = 'active'
		ORDER BY id
	`

	return r.querySlots(ctx, query)
}

func (r *SlotRepository) querySlots(ctx context.Context, query string, args ...interface{}) ([]*model.ClinicSlot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.ClinicSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

func scanSlot(row pgx.Row) (*model.ClinicSlot, error) {
	slot := &model.ClinicSlot{}
	err := row.Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.BranchID,
		&slot.CreatorID,
		&slot.Weekday,
		&slot.StartMin,
		&slot.EndMin,
		&slot.Capacity,
		&slot.Status,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return slot, nil
}
