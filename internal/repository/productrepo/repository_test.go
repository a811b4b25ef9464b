package productrepo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/repository/productrepo"
)

// IDs fora do formato UUID não chegam ao banco: o PostgreSQL recusaria o cast.
func TestInvalidIDs_SkipDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := productrepo.NewProductRepository(sqlx.NewDb(db, "postgres"), nil, time.Minute, time.Second, logger.NewNop())
	ctx := context.Background()

	_, err = repo.FindByID(ctx, "abc")
	var notFound *apperror.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	products, err := repo.FindAll(ctx, domain.ProductFilter{ChamberID: "camara-x"})
	require.NoError(t, err)
	assert.Empty(t, products)

	assert.NoError(t, mock.ExpectationsWereMet())
}
