package base

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Error("pgx.ErrNoRows must be classified as not found")
	}
	// Обёртки через %w сохраняют классификацию
	if !IsNotFound(fmt.Errorf("get slot by id: %w", pgx.ErrNoRows)) {
		t.Error("wrapped pgx.ErrNoRows must be classified as not found")
	}
	if IsNotFound(errors.New("connection refused")) {
		t.Error("unrelated error classified as not found")
	}
	if IsNotFound(nil) {
		t.Error("nil classified as not found")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !IsUniqueViolation(unique) {
		t.Error("23505 must be classified as unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert attendance: %w", unique)) {
		t.Error("wrapped 23505 must be classified as unique violation")
	}
	// Другой код Postgres-ошибки (нарушение внешнего ключа)
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 classified as unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil classified as unique violation")
	}
}
