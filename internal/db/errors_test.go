package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsInvalidInput(t *testing.T) {
	malformed := &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation, Message: `invalid input syntax for type uuid: "abc"`}

	assert.True(t, IsInvalidInput(malformed))
	assert.True(t, IsInvalidInput(fmt.Errorf("get reservation: %w", malformed)))
	assert.False(t, IsInvalidInput(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, IsInvalidInput(errors.New("connection reset")))
	assert.False(t, IsInvalidInput(nil))
}
