package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullString(t *testing.T) {
	if nullString("") != nil {
		t.Error("expected nil for empty string")
	}
	if s := nullString("x"); s == nil || *s != "x" {
		t.Errorf("expected pointer to 'x', got %v", s)
	}
}

func TestNullUUID(t *testing.T) {
	if nullUUID(nil) != nil {
		t.Error("expected nil for nil pointer")
	}
	empty := uuid.Nil
	if nullUUID(&empty) != nil {
		t.Error("expected nil for uuid.Nil")
	}
	id := uuid.New()
	if got := nullUUID(&id); got == nil || *got != id {
		t.Errorf("expected %s, got %v", id, got)
	}
}
