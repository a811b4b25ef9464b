package chamberservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/repository/memstore"
	"gosementes/internal/service/chamberservice"
	"gosementes/internal/service/locationservice"
)

var (
	admin    = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	operador = domain.Actor{ID: "op-1", Role: domain.RoleOperador}
)

func newTestService() (*memstore.Store, *chamberservice.Service) {
	store := memstore.New()
	log := logger.NewNop()
	locations := locationservice.NewService(store, domain.DefaultLocationLimits(), log)
	return store, chamberservice.NewService(store, locations, log)
}

func TestCreateChamber_Success_WithLocations(t *testing.T) {
	store, svc := newTestService()
	ctx := context.Background()

	chamber, gen, err := svc.CreateChamber(ctx, admin, domain.ChamberCreate{
		Name:               "  Câmara Sul ",
		Dimensions:         domain.ChamberDimensions{Quadras: 2, Lados: 2, Filas: 2, Andares: 2},
		LocationCapacityKg: decimal.NewFromInt(800),
		Temperature:        decimal.NewNullDecimal(decimal.NewFromInt(10)),
		GenerateLocations:  true,
	})

	require.NoError(t, err)
	assert.Equal(t, "Câmara Sul", chamber.Name)
	require.NotNil(t, gen)
	assert.Equal(t, 16, gen.Created)

	locs, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	assert.Len(t, locs, 16)
	assert.True(t, locs[0].MaxCapacityKg.Equal(decimal.NewFromInt(800)))
}

func TestCreateChamber_Success_DefaultCapacityNoLocations(t *testing.T) {
	store, svc := newTestService()
	ctx := context.Background()

	chamber, gen, err := svc.CreateChamber(ctx, admin, domain.ChamberCreate{
		Name:       "Câmara Leste",
		Dimensions: domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1},
	})

	require.NoError(t, err)
	assert.Nil(t, gen)
	assert.True(t, chamber.LocationCapacityKg.Equal(domain.DefaultLocationLimits().DefaultCapacityKg))
	locs, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestCreateChamber_Fail_InvalidName(t *testing.T) {
	_, svc := newTestService()

	_, _, err := svc.CreateChamber(context.Background(), admin, domain.ChamberCreate{
		Name:       " ",
		Dimensions: domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1},
	})

	var validation *apperror.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestCreateChamber_Fail_InvalidDimensions(t *testing.T) {
	_, svc := newTestService()

	_, _, err := svc.CreateChamber(context.Background(), admin, domain.ChamberCreate{
		Name:       "Câmara X",
		Dimensions: domain.ChamberDimensions{Quadras: 1, Lados: 0, Filas: 1, Andares: 1},
	})

	var dimErr *apperror.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestCreateChamber_Fail_DuplicateName(t *testing.T) {
	_, svc := newTestService()
	input := domain.ChamberCreate{Name: "Câmara Y", Dimensions: domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1}}
	_, _, err := svc.CreateChamber(context.Background(), admin, input)
	require.NoError(t, err)

	_, _, err = svc.CreateChamber(context.Background(), admin, input)

	var conflict *apperror.ConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestCreateChamber_Fail_OperadorNotAllowed(t *testing.T) {
	_, svc := newTestService()

	_, _, err := svc.CreateChamber(context.Background(), operador, domain.ChamberCreate{
		Name:       "Câmara Z",
		Dimensions: domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1},
	})

	var unauthorized *apperror.UnauthorizedTransitionError
	assert.True(t, errors.As(err, &unauthorized))
}

func TestGetChamber_Fail_InvalidID(t *testing.T) {
	_, svc := newTestService()

	_, err := svc.GetChamber(context.Background(), "invalid-uuid")

	var validation *apperror.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestGetChamber_Fail_NotFound(t *testing.T) {
	_, svc := newTestService()

	_, err := svc.GetChamber(context.Background(), uuid.New().String())

	var notFound *apperror.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestUpdateConditions_Success(t *testing.T) {
	_, svc := newTestService()
	ctx := context.Background()
	chamber, _, err := svc.CreateChamber(ctx, admin, domain.ChamberCreate{
		Name: "Câmara W", Dimensions: domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateConditions(ctx, admin, chamber.ID, domain.ChamberConditions{
		Temperature: decimal.NewNullDecimal(decimal.RequireFromString("4.5")),
		Humidity:    decimal.NewNullDecimal(decimal.NewFromInt(35)),
	})

	require.NoError(t, err)
	assert.True(t, updated.Temperature.Decimal.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, updated.Humidity.Decimal.Equal(decimal.NewFromInt(35)))

	listed, err := svc.ListChambers(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Humidity.Valid)
}

func TestUpdateConditions_Fail_HumidityOutOfRange(t *testing.T) {
	_, svc := newTestService()

	_, err := svc.UpdateConditions(context.Background(), admin, uuid.New().String(), domain.ChamberConditions{
		Humidity: decimal.NewNullDecimal(decimal.NewFromInt(101)),
	})

	var validation *apperror.ValidationError
	assert.True(t, errors.As(err, &validation))
}
