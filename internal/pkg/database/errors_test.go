package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"gosementes/internal/pkg/database"
)

func TestConstraintHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "uq_location_code"})
	foreign := &pq.Error{Code: "23503", Constraint: "movements_product_id_fkey"}
	plain := errors.New("conexão recusada")

	assert.True(t, database.IsUniqueViolation(unique))
	assert.False(t, database.IsForeignKeyViolation(unique))
	assert.Equal(t, "uq_location_code", database.ConstraintName(unique))

	assert.True(t, database.IsForeignKeyViolation(foreign))
	assert.False(t, database.IsUniqueViolation(foreign))

	assert.False(t, database.IsUniqueViolation(plain))
	assert.Empty(t, database.ConstraintName(plain))
}
