package locationservice_test

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
	"gosementes/internal/service/locationservice"
)

var admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

func setup(t *testing.T, dims domain.ChamberDimensions) (*memstore.Store, *locationservice.Service, domain.Chamber) {
	t.Helper()
	store := memstore.New()
	chamber, err := store.Chambers().Create(context.Background(), domain.Chamber{
		Name:               "Câmara Norte",
		ChamberDimensions:  dims,
		LocationCapacityKg: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	return store, locationservice.NewService(store, domain.DefaultLocationLimits(), logger.NewNop()), chamber
}

func TestGenerate_Success(t *testing.T) {
	store, svc, chamber := setup(t, domain.ChamberDimensions{Quadras: 2, Lados: 3, Filas: 2, Andares: 2})
	ctx := context.Background()

	result, err := svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})

	require.NoError(t, err)
	assert.Equal(t, 24, result.Total)
	assert.Equal(t, 24, result.Created)
	assert.Equal(t, 0, result.Removed)

	locs, err := svc.ListByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	require.Len(t, locs, 24)
	assert.Equal(t, "Q1-LA-F1-A1", locs[0].Code)
	assert.Equal(t, "Q2-LC-F2-A2", locs[23].Code)
	for _, l := range locs {
		assert.False(t, l.IsOccupied)
		assert.True(t, l.MaxCapacityKg.Equal(decimal.NewFromInt(200)))
		assert.True(t, l.CurrentWeightKg.IsZero())
	}

	// Regerar com as mesmas dimensões é idempotente.
	again, err := svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	all, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	assert.Len(t, all, 24)
}

func TestGenerate_ShrinkRemovesFreeLocations(t *testing.T) {
	store, svc, chamber := setup(t, domain.ChamberDimensions{Quadras: 2, Lados: 1, Filas: 1, Andares: 2})
	ctx := context.Background()
	_, err := svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})
	require.NoError(t, err)

	smaller := domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 2}
	result, err := svc.Generate(ctx, admin, chamber.ID, smaller)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Removed)
	assert.Equal(t, 0, result.Created)

	updated, err := store.Chambers().FindByID(ctx, chamber.ID)
	require.NoError(t, err)
	assert.Equal(t, smaller, updated.ChamberDimensions)
}

func TestGenerate_Fail_ShrinkWithOccupiedOutside(t *testing.T) {
	store, svc, chamber := setup(t, domain.ChamberDimensions{Quadras: 2, Lados: 1, Filas: 1, Andares: 1})
	ctx := context.Background()
	_, err := svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})
	require.NoError(t, err)

	locs, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	_, err = store.Locations().ClaimIfFree(ctx, locs[1].ID, uuid.New().String(), decimal.NewFromInt(10), 1)
	require.NoError(t, err)

	_, err = svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1})

	var conflict *apperror.ConflictError
	assert.True(t, errors.As(err, &conflict))
	after, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	assert.Len(t, after, 2)
	unchanged, err := store.Chambers().FindByID(ctx, chamber.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.Quadras)
}

func TestGenerate_LadoFormatChangeRecodesInPlace(t *testing.T) {
	store, svc, chamber := setup(t, domain.ChamberDimensions{Quadras: 1, Lados: 2, Filas: 1, Andares: 1})
	ctx := context.Background()
	_, err := svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})
	require.NoError(t, err)

	before, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)
	productID := uuid.New().String()
	_, err = store.Locations().ClaimIfFree(ctx, before[1].ID, productID, decimal.NewFromInt(10), 1)
	require.NoError(t, err)

	numeric := domain.DefaultLocationLimits()
	numeric.LadoAsLetter = false
	result, err := locationservice.NewService(store, numeric, logger.NewNop()).Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Recoded)

	after, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[1].ID, after[1].ID)
	assert.Equal(t, "Q1-L1-F1-A1", after[0].Code)
	assert.Equal(t, "Q1-L2-F1-A1", after[1].Code)
	assert.False(t, after[0].IsOccupied)
	assert.True(t, after[1].IsOccupied)
	assert.Equal(t, productID, after[1].ProductID)

	// Voltar ao formato em letras também não duplica.
	back, err := svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})
	require.NoError(t, err)
	assert.Equal(t, 0, back.Created)
	assert.Equal(t, 2, back.Recoded)
	final, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	require.Len(t, final, 2)
	assert.Equal(t, "Q1-LB-F1-A1", final[1].Code)
}

func TestGenerate_Fail_DimensionLimits(t *testing.T) {
	_, svc, chamber := setup(t, domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1})

	_, err := svc.Generate(context.Background(), admin, chamber.ID, domain.ChamberDimensions{Quadras: 1, Lados: 25, Filas: 1, Andares: 1})

	var dimErr *apperror.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestGenerate_Fail_OperadorNotAllowed(t *testing.T) {
	_, svc, chamber := setup(t, domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1})

	_, err := svc.Generate(context.Background(), domain.Actor{ID: "op", Role: domain.RoleOperador}, chamber.ID, domain.ChamberDimensions{})

	var unauthorized *apperror.UnauthorizedTransitionError
	assert.True(t, errors.As(err, &unauthorized))
}

func TestGenerate_Fail_UnknownChamber(t *testing.T) {
	_, svc, _ := setup(t, domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1})

	_, err := svc.Generate(context.Background(), admin, uuid.New().String(), domain.ChamberDimensions{})

	var notFound *apperror.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestFindAvailable_OrderedAndFiltered(t *testing.T) {
	store, svc, chamber := setup(t, domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 3})
	ctx := context.Background()
	_, err := svc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})
	require.NoError(t, err)
	locs, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	_, err = store.Locations().ClaimIfFree(ctx, locs[0].ID, "p-1", decimal.NewFromInt(50), 5)
	require.NoError(t, err)

	free, err := svc.FindAvailable(ctx, domain.LocationFilter{ChamberID: chamber.ID, MinCapacityKg: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Equal(t, locs[1].ID, free[0].ID)
	assert.Equal(t, locs[2].ID, free[1].ID)

	withOwn, err := svc.FindAvailable(ctx, domain.LocationFilter{ChamberID: chamber.ID, MinCapacityKg: decimal.NewFromInt(100), ProductID: "p-1"})
	require.NoError(t, err)
	assert.Len(t, withOwn, 3, "a alocação do próprio produto tem 150 kg de folga")

	none, err := svc.FindAvailable(ctx, domain.LocationFilter{ChamberID: chamber.ID, MinCapacityKg: decimal.NewFromInt(201)})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.FindAvailable(ctx, domain.LocationFilter{MinCapacityKg: decimal.NewFromInt(-1)})
	assert.Error(t, err)
}

func TestGetLocation_Fail_InvalidID(t *testing.T) {
	_, svc, _ := setup(t, domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 1})

	_, err := svc.GetLocation(context.Background(), "abc")

	var validation *apperror.ValidationError
	assert.True(t, errors.As(err, &validation))
}
