package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCode(t *testing.T) {
	err := NewLimitExceeded("too many", nil)
	assert.True(t, IsCode(err, "LIMIT_EXCEEDED"))
	assert.False(t, IsCode(err, "NOT_FOUND"))
	assert.False(t, IsCode(errors.New("plain"), "LIMIT_EXCEEDED"))
	assert.False(t, IsCode(nil, "LIMIT_EXCEEDED"))
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", mapped.Code)
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
}

func TestToDomainErrorPassesThrough(t *testing.T) {
	err := NewValidationError("bad input", map[string]any{"field": "title"})
	mapped := ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", mapped.Code)
	assert.Equal(t, http.StatusBadRequest, mapped.HTTPStatus)
	assert.Equal(t, "title", mapped.Details["field"])
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	mapped := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
	assert.Equal(t, http.StatusInternalServerError, mapped.HTTPStatus)
}

func TestDomainErrorUnwrap(t *testing.T) {
	inner := errors.New("disk gone")
	err := NewStorageError(inner)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.ErrorIs(t, err, inner)
}
