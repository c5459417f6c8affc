package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPassesThroughTypedErrors(t *testing.T) {
	orig := Conflict("already exists")

	got := From(orig)
	assert.Same(t, orig, got)

	wrapped := fmt.Errorf("outer: %w", orig)
	got = From(wrapped)
	assert.Same(t, orig, got)
}

func TestFromClassifiesUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}

	got := From(fmt.Errorf("insert user: %w", pgErr))
	assert.Equal(t, http.StatusConflict, got.StatusCode)
	assert.NotEmpty(t, got.Stack())
}

func TestFromClassifiesOtherPostgresErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23502", Message: "null value"}

	got := From(pgErr)
	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("boom")

	got := From(cause)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.Equal(t, "boom", got.Message)
	assert.ErrorIs(t, got, cause)
	assert.NotEmpty(t, got.Stack())
}

func TestEnvelopeShape(t *testing.T) {
	env := Validation("all fields are required").Envelope(false)

	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
	assert.Nil(t, env.Data)
	assert.False(t, env.Success)
	require.NotNil(t, env.Errors)
	assert.Empty(t, env.Stack)
}

func TestEnvelopeStackOnlyWhenRequested(t *testing.T) {
	appErr := From(errors.New("boom"))

	assert.Empty(t, appErr.Envelope(false).Stack)
	assert.NotEmpty(t, appErr.Envelope(true).Stack)
}
