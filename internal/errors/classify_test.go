package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"pq unique", &pq.Error{Code: "23505"}, KindUniqueViolation},
		{"pq foreign key", fmt.Errorf("insert ride: %w", &pq.Error{Code: "23503"}), KindForeignKey},
		{"pq permission", &pq.Error{Code: "42501"}, KindPermissionDenied},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, KindUniqueViolation},
		{"pgx connection class", &pgconn.PgError{Code: "08001"}, KindNetwork},
		{"bad conn", driver.ErrBadConn, KindNetwork},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"refused text", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), KindNetwork},
		{"fetch text", errors.New("TypeError: Failed to fetch"), KindNetwork},
		{"jwt", errors.New("JWT expired"), KindSessionExpired},
		{"not found", NotFound("corrida"), KindNotFound},
		{"validation", Validation([]string{"x"}, nil), KindValidation},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(driver.ErrBadConn) {
		t.Error("bad connection should be transient")
	}
	if IsTransient(&pq.Error{Code: "23505"}) {
		t.Error("unique violation should not be transient")
	}
	if IsTransient(BadRequest("x")) {
		t.Error("API errors should not be transient")
	}
}

func TestUserMessageIsPortuguese(t *testing.T) {
	if got := UserMessage(KindNetwork); got != "Erro de conexão. Verifique sua internet e tente novamente." {
		t.Errorf("UserMessage(network) = %q", got)
	}
	if UserMessage(KindNone) != "" {
		t.Error("UserMessage(none) should be empty")
	}
	if UserMessage(Kind("weird")) == "" {
		t.Error("unknown kinds should still produce a message")
	}
}

func TestNotFoundUnwrapsToSentinel(t *testing.T) {
	if !errors.Is(NotFound("motorista"), ErrNotFound) {
		t.Error("NotFound should wrap ErrNotFound")
	}
	if !errors.Is(InvalidTransition("completed", "in_progress"), ErrInvalidTransition) {
		t.Error("InvalidTransition should wrap ErrInvalidTransition")
	}
}

func TestNewGeolocationError(t *testing.T) {
	for _, code := range []GeolocationCode{GeoPermissionDenied, GeoPositionUnavailable, GeoTimeout, 99} {
		gerr := NewGeolocationError(code)
		if gerr.Hint == "" || gerr.Message == "" {
			t.Errorf("code %d: missing message or hint", code)
		}
	}
}
