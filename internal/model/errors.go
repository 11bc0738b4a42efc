package model

import "errors"

// Доменные ошибки клиник-расписания. Каждая операция возвращает стабильный
// вид ошибки, чтобы вызывающая сторона могла отличить конфликт от невалидного
// запроса и от отказа в доступе.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrDuplicated       = errors.New("duplicated")
	ErrSessionFull      = errors.New("session full")
	ErrTimeOverlap      = errors.New("time overlap")
	ErrLocked           = errors.New("booking window locked")
	ErrMoveForbidden    = errors.New("move forbidden")
	ErrCanceled         = errors.New("session canceled")
	ErrSlotOverlap      = errors.New("slot overlap")
	ErrCapacityConflict = errors.New("capacity conflict")

	// ErrVersionConflict конкурирующая запись успела первой: для batch-прохода
	// это повод пропустить единицу работы, а не падать
	ErrVersionConflict = errors.New("version conflict")
)
