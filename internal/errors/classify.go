package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Kind is the category of a failed remote call.
type Kind string

const (
	KindNone             Kind = ""
	KindNetwork          Kind = "network"
	KindUniqueViolation  Kind = "unique_violation"
	KindForeignKey       Kind = "foreign_key_violation"
	KindPermissionDenied Kind = "permission_denied"
	KindSessionExpired   Kind = "session_expired"
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation"
	KindUnknown          Kind = "unknown"
)

// SQLSTATE codes the classifier understands.
const (
	sqlStateUniqueViolation    = "23505"
	sqlStateForeignKey         = "23503"
	sqlStateInsufficientPriv   = "42501"
	sqlStateInvalidAuthSpec    = "28000"
	sqlStateInvalidPassword    = "28P01"
	sqlStateConnectionFailure  = "08006"
	sqlStateConnectionDoesNotX = "08003"
	sqlStateAdminShutdown      = "57P01"
)

var networkMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"failed to fetch",
	"bad connection",
}

// Classify sniffs an error returned by the database, Redis or an HTTP call.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return kindFromSQLState(string(pqErr.Code))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return kindFromSQLState(pgErr.Code)
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return KindNetwork
		}
	}
	if strings.Contains(msg, "jwt expired") || strings.Contains(msg, "session expired") {
		return KindSessionExpired
	}
	if strings.Contains(msg, "permission denied") {
		return KindPermissionDenied
	}
	return KindUnknown
}

func kindFromSQLState(code string) Kind {
	switch code {
	case sqlStateUniqueViolation:
		return KindUniqueViolation
	case sqlStateForeignKey:
		return KindForeignKey
	case sqlStateInsufficientPriv:
		return KindPermissionDenied
	case sqlStateInvalidAuthSpec, sqlStateInvalidPassword:
		return KindSessionExpired
	case sqlStateConnectionFailure, sqlStateConnectionDoesNotX, sqlStateAdminShutdown:
		return KindNetwork
	}
	if strings.HasPrefix(code, "08") {
		return KindNetwork
	}
	return KindUnknown
}

// IsNetwork reports whether err looks like a connectivity failure.
func IsNetwork(err error) bool {
	return Classify(err) == KindNetwork
}

// IsTransient reports whether retrying the same call may succeed.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	switch Classify(err) {
	case KindNetwork, KindUnknown:
		return true
	}
	return false
}

// UserMessage is the toast text shown for an error kind.
func UserMessage(kind Kind) string {
	switch kind {
	case KindNetwork:
		return "Erro de conexão. Verifique sua internet e tente novamente."
	case KindUniqueViolation:
		return "Este registro já existe."
	case KindForeignKey:
		return "Registro relacionado não encontrado."
	case KindPermissionDenied:
		return "Você não tem permissão para realizar esta ação."
	case KindSessionExpired:
		return "Sua sessão expirou. Faça login novamente."
	case KindNotFound:
		return "Registro não encontrado."
	case KindValidation:
		return "Dados inválidos. Verifique os campos e tente novamente."
	case KindNone:
		return ""
	}
	return "Ocorreu um erro inesperado. Tente novamente."
}
