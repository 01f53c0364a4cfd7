// Package apperr defines the error-kind sentinels shared by the session
// gateway, HTTP handlers, and judge dispatch, plus a mapper onto HTTP status
// codes.
package apperr

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrBadInput covers missing/invalid fields and unsupported languages.
	ErrBadInput = errors.New("bad input")
	// ErrUnauthorized covers a missing, expired, or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden covers a user acting outside a scope they don't belong to,
	// such as submitting to a contest they never joined.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound covers missing contests, problems, users, jobs, and rooms.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers double submission, already-queued, and
	// already-in-a-match states.
	ErrConflict = errors.New("conflict")
	// ErrInternal covers store failures and other unexpected errors.
	ErrInternal = errors.New("internal error")
)

// HTTPStatus maps an error produced anywhere in the core onto the status
// code the HTTP transport should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}
