package productservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/repository/memstore"
	"gosementes/internal/service/locationservice"
	"gosementes/internal/service/productservice"
)

var (
	admin    = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	operador = domain.Actor{ID: "op-1", Role: domain.RoleOperador}
)

// recordingPublisher guarda as routing keys publicadas.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	fail error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey, _ string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fixture struct {
	ctx       context.Context
	store     *memstore.Store
	svc       *productservice.Service
	publisher *recordingPublisher
	chamber   domain.Chamber
	locs      []domain.Location
}

// newFixture cria uma câmara com quatro localizações de 150 kg (Q1-LA-F1-A1..A4).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	log := logger.NewNop()

	chamber, err := store.Chambers().Create(ctx, domain.Chamber{
		Name:               "Câmara 1",
		ChamberDimensions:  domain.ChamberDimensions{Quadras: 1, Lados: 1, Filas: 1, Andares: 4},
		LocationCapacityKg: decimal.NewFromInt(150),
	})
	require.NoError(t, err)

	locSvc := locationservice.NewService(store, domain.DefaultLocationLimits(), log)
	_, err = locSvc.Generate(ctx, admin, chamber.ID, domain.ChamberDimensions{})
	require.NoError(t, err)

	locs, err := store.Locations().FindByChamber(ctx, chamber.ID)
	require.NoError(t, err)
	require.Len(t, locs, 4)

	pub := &recordingPublisher{}
	return &fixture{
		ctx:       ctx,
		store:     store,
		svc:       productservice.NewService(store, pub, nil, log, 0),
		publisher: pub,
		chamber:   chamber,
		locs:      locs,
	}
}

// newProduct cadastra um lote pronto para locação: qty unidades de 10 kg.
func (f *fixture) newProduct(t *testing.T, qty int) domain.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(f.ctx, operador, domain.ProductCreate{
		Name:             "Soja BRS 1010",
		SeedTypeID:       "soja",
		Lot:              "L-2026-01",
		Quantity:         qty,
		WeightPerUnit:    decimal.NewFromInt(10),
		ReadyForLocation: true,
	})
	require.NoError(t, err)
	return p
}

// located cadastra e loca o produto na localização idx.
func (f *fixture) located(t *testing.T, qty, idx int) domain.Product {
	t.Helper()
	p := f.newProduct(t, qty)
	res, err := f.svc.Locate(f.ctx, operador, p.ID, domain.LocateRequest{LocationID: f.locs[idx].ID})
	require.NoError(t, err)
	return res.Product
}

func (f *fixture) location(t *testing.T, idx int) domain.Location {
	t.Helper()
	l, err := f.store.Locations().FindByID(f.ctx, f.locs[idx].ID)
	require.NoError(t, err)
	return l
}

func (f *fixture) product(t *testing.T, id string) domain.Product {
	t.Helper()
	p, err := f.store.Products().FindByID(f.ctx, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) movements(t *testing.T, productID string) []domain.Movement {
	t.Helper()
	movs, err := f.store.Movements().FindByProduct(f.ctx, productID)
	require.NoError(t, err)
	return movs
}

// assertConserved verifica que as alocações somam exatamente o saldo e o peso do produto.
func (f *fixture) assertConserved(t *testing.T, productID string) {
	t.Helper()
	p := f.product(t, productID)
	allocs, err := f.store.Locations().FindByProduct(f.ctx, productID)
	require.NoError(t, err)

	qty, weight := 0, decimal.Zero
	for _, l := range allocs {
		qty += l.StoredQuantity
		weight = weight.Add(l.CurrentWeightKg)
		assert.True(t, l.CurrentWeightKg.LessThanOrEqual(l.MaxCapacityKg), "localização %s acima da capacidade", l.Code)
	}
	if p.Status.HoldsLocation() {
		assert.Equal(t, p.Quantity, qty)
		assert.True(t, weight.Equal(p.TotalWeight()), "peso alocado %s != %s", weight, p.TotalWeight())
		require.NotNil(t, p.LocationID)
		primary, err := f.store.Locations().FindByID(f.ctx, *p.LocationID)
		require.NoError(t, err)
		assert.Equal(t, productID, primary.ProductID)
	} else {
		assert.Empty(t, allocs)
		assert.Nil(t, p.LocationID)
	}
}

func isErr[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// --- Cadastro ---

func TestCreateProduct_Success(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.CreateProduct(f.ctx, admin, domain.ProductCreate{
		Name: "Milho", SeedTypeID: "milho", Lot: "L1", Quantity: 5, WeightPerUnit: decimal.RequireFromString("20.5"),
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.StatusCadastrado, p.Status)
	assert.Equal(t, admin.ID, p.CreatedBy)
	assert.Nil(t, p.LocationID)
	assert.Empty(t, f.movements(t, p.ID))
}

func TestCreateProduct_Fail_InvalidWeight(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProduct(f.ctx, admin, domain.ProductCreate{
		Name: "Milho", SeedTypeID: "milho", Lot: "L1", Quantity: 5, WeightPerUnit: decimal.RequireFromString("0.0001"),
	})

	assert.True(t, isErr[*apperror.ValidationError](err))
}

func TestCompleteIntake_Success(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProduct(f.ctx, operador, domain.ProductCreate{
		Name: "Trigo", SeedTypeID: "trigo", Lot: "L1", Quantity: 1, WeightPerUnit: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	res, err := f.svc.CompleteIntake(f.ctx, admin, p.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusAguardandoLocacao, res.Product.Status)
	assert.Nil(t, res.Movement)
	assert.Equal(t, p.Version+1, res.Product.Version)
}

func TestListProducts_Fail_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListProducts(f.ctx, domain.ProductFilter{Status: "PERDIDO"})
	assert.True(t, isErr[*apperror.ValidationError](err))
}

func TestListProducts_ByChamber(t *testing.T) {
	f := newFixture(t)
	locado := f.located(t, 5, 0)
	f.newProduct(t, 5)

	products, err := f.svc.ListProducts(f.ctx, domain.ProductFilter{ChamberID: f.chamber.ID})

	assert.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, locado.ID, products[0].ID)
}

// --- Locação ---

func TestLocate_Success(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 10)

	res, err := f.svc.Locate(f.ctx, operador, p.ID, domain.LocateRequest{LocationID: f.locs[0].ID})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocado, res.Product.Status)
	assert.Equal(t, f.locs[0].ID, res.Product.PrimaryLocation())
	require.NotNil(t, res.Movement)
	assert.Equal(t, domain.MovementEntry, res.Movement.Type)
	assert.Equal(t, 10, res.Movement.Quantity)
	assert.True(t, res.Movement.Weight.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, operador.ID, res.Movement.ActorID)
	assert.Equal(t, domain.StatusLocado, res.Movement.StatusAfter)

	loc := f.location(t, 0)
	assert.True(t, loc.IsOccupied)
	assert.Equal(t, p.ID, loc.ProductID)
	assert.True(t, loc.CurrentWeightKg.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{"movement.recorded"}, f.publisher.published())
	f.assertConserved(t, p.ID)
}

func TestLocate_Fail_Occupied(t *testing.T) {
	f := newFixture(t)
	f.located(t, 5, 0)
	other := f.newProduct(t, 5)

	_, err := f.svc.Locate(f.ctx, operador, other.ID, domain.LocateRequest{LocationID: f.locs[0].ID})

	assert.True(t, isErr[*apperror.LocationOccupiedError](err))
	assert.Equal(t, domain.StatusAguardandoLocacao, f.product(t, other.ID).Status)
	assert.Empty(t, f.movements(t, other.ID))
}

func TestLocate_Fail_CapacityExceeded(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 16) // 160 kg > 150 kg

	_, err := f.svc.Locate(f.ctx, operador, p.ID, domain.LocateRequest{LocationID: f.locs[0].ID})

	assert.True(t, isErr[*apperror.CapacityExceededError](err))
	assert.False(t, f.location(t, 0).IsOccupied)
}

func TestLocate_Fail_AdminNotAllowed(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 1)

	_, err := f.svc.Locate(f.ctx, admin, p.ID, domain.LocateRequest{LocationID: f.locs[0].ID})

	assert.True(t, isErr[*apperror.UnauthorizedTransitionError](err))
	assert.Equal(t, domain.StatusAguardandoLocacao, f.product(t, p.ID).Status)
}

func TestLocate_Fail_NotReady(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProduct(f.ctx, operador, domain.ProductCreate{
		Name: "Arroz", SeedTypeID: "arroz", Lot: "L1", Quantity: 1, WeightPerUnit: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = f.svc.Locate(f.ctx, operador, p.ID, domain.LocateRequest{LocationID: f.locs[0].ID})

	assert.True(t, isErr[*apperror.InvalidStateTransitionError](err))
}

func TestLocate_Fail_ProductNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Locate(f.ctx, operador, "inexistente", domain.LocateRequest{LocationID: f.locs[0].ID})
	assert.True(t, isErr[*apperror.NotFoundError](err))
}

func TestLocate_Fail_InfrastructureRollsBack(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 10)
	f.store.FailOn("Movements.Append", errors.New("disco cheio"))

	_, err := f.svc.Locate(f.ctx, operador, p.ID, domain.LocateRequest{LocationID: f.locs[0].ID})

	assert.True(t, isErr[*apperror.InternalError](err))
	assert.False(t, f.location(t, 0).IsOccupied)
	assert.Equal(t, domain.StatusAguardandoLocacao, f.product(t, p.ID).Status)
	assert.Empty(t, f.movements(t, p.ID))
	assert.Empty(t, f.publisher.published())
}

func TestLocate_ConcurrentClaimsSingleWinner(t *testing.T) {
	f := newFixture(t)
	const contenders = 8

	products := make([]domain.Product, contenders)
	for i := range products {
		products[i] = f.newProduct(t, 3)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for _, p := range products {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Locate(f.ctx, operador, id, domain.LocateRequest{LocationID: f.locs[0].ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case isErr[*apperror.LocationOccupiedError](err):
				conflict++
			}
		}(p.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, conflict)

	loc := f.location(t, 0)
	assert.True(t, loc.IsOccupied)
	assert.True(t, loc.CurrentWeightKg.Equal(decimal.NewFromInt(30)))

	all, err := f.store.Movements().FindAll(f.ctx, domain.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLocateOptimal_PicksFirstFreeWithCapacity(t *testing.T) {
	f := newFixture(t)
	f.located(t, 5, 0)
	p := f.newProduct(t, 10)

	res, err := f.svc.LocateOptimal(f.ctx, operador, p.ID, domain.LocateOptimalRequest{ChamberID: f.chamber.ID})

	require.NoError(t, err)
	assert.Equal(t, f.locs[1].ID, res.Product.PrimaryLocation())
	assert.Equal(t, "Q1-LA-F1-A2", res.Locations[0].Code)
}

func TestLocateOptimal_Fail_NoCandidate(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 20) // 200 kg não cabe em nenhuma

	_, err := f.svc.LocateOptimal(f.ctx, operador, p.ID, domain.LocateOptimalRequest{ChamberID: f.chamber.ID})

	assert.True(t, isErr[*apperror.NotFoundError](err))
	assert.Equal(t, domain.StatusAguardandoLocacao, f.product(t, p.ID).Status)
}

func TestLocateOptimal_ContinuesPastFirstPage(t *testing.T) {
	f := newFixture(t)
	svc := productservice.NewService(f.store, f.publisher, nil, logger.NewNop(), 1)
	p := f.newProduct(t, 10)
	f.store.FailOn("Locations.ClaimIfFree", apperror.NewLocationOccupiedError(f.locs[0].ID, "ocupada por outra reivindicação."))

	res, err := svc.LocateOptimal(f.ctx, operador, p.ID, domain.LocateOptimalRequest{ChamberID: f.chamber.ID})

	require.NoError(t, err)
	assert.Equal(t, f.locs[1].ID, res.Product.PrimaryLocation())
	assert.False(t, f.location(t, 0).IsOccupied)
	assert.Len(t, f.movements(t, p.ID), 1)
}

func TestLocateOptimal_Fail_ProductNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.LocateOptimal(f.ctx, operador, "inexistente", domain.LocateOptimalRequest{ChamberID: f.chamber.ID})
	assert.True(t, isErr[*apperror.NotFoundError](err))
}

// --- Movimentação ---

func TestMove_Success(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	res, err := f.svc.Move(f.ctx, operador, p.ID, domain.MoveRequest{ToLocationID: f.locs[2].ID, Reason: "reorganização"})

	require.NoError(t, err)
	assert.Equal(t, f.locs[2].ID, res.Product.PrimaryLocation())
	assert.Equal(t, domain.MovementTransfer, res.Movement.Type)
	assert.Equal(t, f.locs[0].ID, *res.Movement.FromLocationID)
	assert.Equal(t, f.locs[2].ID, *res.Movement.ToLocationID)
	assert.Equal(t, "reorganização", res.Movement.Reason)

	assert.False(t, f.location(t, 0).IsOccupied)
	assert.True(t, f.location(t, 0).CurrentWeightKg.IsZero())
	assert.True(t, f.location(t, 2).CurrentWeightKg.Equal(decimal.NewFromInt(100)))
	f.assertConserved(t, p.ID)
}

func TestMove_Fail_DestinationOccupiedKeepsSource(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	f.located(t, 2, 1)

	_, err := f.svc.Move(f.ctx, operador, p.ID, domain.MoveRequest{ToLocationID: f.locs[1].ID})

	assert.True(t, isErr[*apperror.LocationOccupiedError](err))
	src := f.location(t, 0)
	assert.True(t, src.IsOccupied)
	assert.Equal(t, p.ID, src.ProductID)
	assert.Len(t, f.movements(t, p.ID), 1)
	f.assertConserved(t, p.ID)
}

func TestMove_Fail_SameLocation(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	_, err := f.svc.Move(f.ctx, operador, p.ID, domain.MoveRequest{ToLocationID: f.locs[0].ID})

	assert.True(t, isErr[*apperror.ValidationError](err))
}

func TestPartialMove_Success(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	res, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 4, ToLocationID: f.locs[1].ID})

	require.NoError(t, err)
	assert.Equal(t, f.locs[0].ID, res.Product.PrimaryLocation())
	assert.Equal(t, 10, res.Product.Quantity)
	assert.Equal(t, domain.MovementPartialTransfer, res.Movement.Type)
	assert.True(t, res.Movement.Weight.Equal(decimal.NewFromInt(40)))

	assert.Equal(t, 6, f.location(t, 0).StoredQuantity)
	assert.True(t, f.location(t, 0).CurrentWeightKg.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, 4, f.location(t, 1).StoredQuantity)
	f.assertConserved(t, p.ID)

	// Segunda movimentação parcial para o mesmo destino ajusta a alocação existente.
	_, err = f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 2, ToLocationID: f.locs[1].ID})
	require.NoError(t, err)
	assert.Equal(t, 6, f.location(t, 1).StoredQuantity)
	f.assertConserved(t, p.ID)
}

func TestPartialMove_WholeSourceMovesPrimary(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	res, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 10, ToLocationID: f.locs[3].ID})

	require.NoError(t, err)
	assert.Equal(t, f.locs[3].ID, res.Product.PrimaryLocation())
	assert.False(t, f.location(t, 0).IsOccupied)
	f.assertConserved(t, p.ID)
}

func TestPartialMove_Fail_MoreThanStored(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 11, ToLocationID: f.locs[1].ID})

	assert.True(t, isErr[*apperror.ValidationError](err))
	f.assertConserved(t, p.ID)
}

func TestPartialMove_Fail_DestinationCapacity(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	f.located(t, 12, 1) // 120 kg, sobra 30 kg

	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 4, ToLocationID: f.locs[1].ID})

	assert.Error(t, err)
	assert.Equal(t, 10, f.location(t, 0).StoredQuantity)
	f.assertConserved(t, p.ID)
}

// --- Estoque ---

func TestAddStock_Success(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	res, err := f.svc.AddStock(f.ctx, admin, p.ID, domain.AddStockRequest{Quantity: 5})

	require.NoError(t, err)
	assert.Equal(t, 15, res.Product.Quantity)
	assert.Equal(t, domain.MovementStockAdd, res.Movement.Type)
	assert.True(t, f.location(t, 0).CurrentWeightKg.Equal(decimal.NewFromInt(150)))
	f.assertConserved(t, p.ID)
}

func TestAddStock_Fail_CapacityExceeded(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 15, 0)

	_, err := f.svc.AddStock(f.ctx, admin, p.ID, domain.AddStockRequest{Quantity: 1})

	assert.True(t, isErr[*apperror.CapacityExceededError](err))
	assert.Equal(t, 15, f.product(t, p.ID).Quantity)
	f.assertConserved(t, p.ID)
}

func TestAddStock_Fail_OperadorNotAllowed(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 1, 0)

	_, err := f.svc.AddStock(f.ctx, operador, p.ID, domain.AddStockRequest{Quantity: 1})

	assert.True(t, isErr[*apperror.UnauthorizedTransitionError](err))
}

func TestAddStock_ConcurrentKeepsWeightConsistent(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 1, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.AddStock(f.ctx, admin, p.ID, domain.AddStockRequest{Quantity: 1})
		}()
	}
	wg.Wait()

	stored := f.product(t, p.ID)
	assert.Equal(t, 15, stored.Quantity, "capacidade de 150 kg limita o saldo a 15 unidades")
	f.assertConserved(t, p.ID)
	assert.Len(t, f.movements(t, p.ID), 15)
}

func TestPartialExit_Success(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	res, err := f.svc.PartialExit(f.ctx, admin, p.ID, domain.PartialExitRequest{Quantity: 3, Reason: "venda"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocado, res.Product.Status)
	assert.Equal(t, 7, res.Product.Quantity)
	assert.Equal(t, domain.MovementExit, res.Movement.Type)
	assert.Equal(t, 3, res.Movement.Quantity)
	assert.True(t, f.location(t, 0).CurrentWeightKg.Equal(decimal.NewFromInt(70)))
	f.assertConserved(t, p.ID)
}

func TestPartialExit_WholeBalanceRemovesProduct(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 3, ToLocationID: f.locs[1].ID})
	require.NoError(t, err)

	res, err := f.svc.PartialExit(f.ctx, admin, p.ID, domain.PartialExitRequest{Quantity: 10, Reason: "descarte"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRemovido, res.Product.Status)
	assert.Equal(t, 0, res.Product.Quantity)
	assert.Nil(t, res.Product.LocationID)
	assert.Equal(t, 10, res.Movement.Quantity)
	assert.False(t, f.location(t, 0).IsOccupied)
	assert.False(t, f.location(t, 1).IsOccupied)
	f.assertConserved(t, p.ID)
}

func TestPartialExit_Fail_MoreThanBalance(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)

	_, err := f.svc.PartialExit(f.ctx, admin, p.ID, domain.PartialExitRequest{Quantity: 11, Reason: "erro"})

	assert.True(t, isErr[*apperror.ValidationError](err))
	assert.Equal(t, domain.StatusLocado, f.product(t, p.ID).Status)
}

func TestPartialExit_EmptyingPrimaryPromotesNext(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 4, ToLocationID: f.locs[2].ID})
	require.NoError(t, err)

	res, err := f.svc.PartialExit(f.ctx, admin, p.ID, domain.PartialExitRequest{Quantity: 6, Reason: "venda"})

	require.NoError(t, err)
	assert.Equal(t, f.locs[2].ID, res.Product.PrimaryLocation())
	assert.Equal(t, 4, res.Product.Quantity)
	assert.False(t, f.location(t, 0).IsOccupied)
	f.assertConserved(t, p.ID)
}

func TestPartialExit_SpansAllocations(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 6, ToLocationID: f.locs[1].ID})
	require.NoError(t, err)

	// A primária guarda 4; as 5 unidades saem 4 dela e 1 da seguinte.
	res, err := f.svc.PartialExit(f.ctx, admin, p.ID, domain.PartialExitRequest{Quantity: 5, Reason: "venda"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusLocado, res.Product.Status)
	assert.Equal(t, 5, res.Product.Quantity)
	assert.Equal(t, f.locs[1].ID, res.Product.PrimaryLocation())
	require.Len(t, res.Movements, 2)
	assert.Equal(t, f.locs[0].ID, *res.Movements[0].FromLocationID)
	assert.Equal(t, 4, res.Movements[0].Quantity)
	assert.Equal(t, f.locs[1].ID, *res.Movements[1].FromLocationID)
	assert.Equal(t, 1, res.Movements[1].Quantity)
	assert.True(t, res.Movements[1].Weight.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, res.Movements[0].ID, res.Movement.ID)

	assert.False(t, f.location(t, 0).IsOccupied)
	assert.Equal(t, 5, f.location(t, 1).StoredQuantity)
	assert.Len(t, f.movements(t, p.ID), 4)
	f.assertConserved(t, p.ID)

	snap := domain.Replay(f.movements(t, p.ID))
	assert.Equal(t, 5, snap.Quantity)
	assert.Equal(t, map[string]int{f.locs[1].ID: 5}, snap.Allocations)
	assert.Equal(t, f.locs[1].ID, *snap.LocationID)
}

func TestPartialExit_Fail_MoreThanNamedAllocation(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 6, ToLocationID: f.locs[1].ID})
	require.NoError(t, err)

	_, err = f.svc.PartialExit(f.ctx, admin, p.ID, domain.PartialExitRequest{Quantity: 5, FromLocationID: f.locs[0].ID, Reason: "venda"})

	assert.True(t, isErr[*apperror.ValidationError](err))
	assert.Equal(t, 4, f.location(t, 0).StoredQuantity)
	f.assertConserved(t, p.ID)
}

func TestPartialExit_FromSecondaryAllocation(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 4, ToLocationID: f.locs[1].ID})
	require.NoError(t, err)

	res, err := f.svc.PartialExit(f.ctx, admin, p.ID, domain.PartialExitRequest{Quantity: 4, FromLocationID: f.locs[1].ID, Reason: "venda"})

	require.NoError(t, err)
	assert.Equal(t, f.locs[0].ID, res.Product.PrimaryLocation())
	assert.False(t, f.location(t, 1).IsOccupied)
	f.assertConserved(t, p.ID)
}

// --- Remoção ---

func TestRemove_BeforeLocationRecordsNoMovement(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 10)

	res, err := f.svc.Remove(f.ctx, admin, p.ID, domain.RemoveRequest{Reason: "cadastro duplicado"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRemovido, res.Product.Status)
	assert.Equal(t, 10, res.Product.Quantity)
	assert.Nil(t, res.Movement)
	assert.Empty(t, f.movements(t, p.ID))
}

func TestRemove_LocatedReleasesEveryAllocation(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	_, err := f.svc.PartialMove(f.ctx, operador, p.ID, domain.PartialMoveRequest{Quantity: 5, ToLocationID: f.locs[3].ID})
	require.NoError(t, err)

	res, err := f.svc.Remove(f.ctx, admin, p.ID, domain.RemoveRequest{Reason: "contaminação"})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRemovido, res.Product.Status)
	assert.Len(t, res.Locations, 2)
	assert.Equal(t, domain.MovementExit, res.Movement.Type)
	assert.Equal(t, f.locs[0].ID, *res.Movement.FromLocationID)
	for _, idx := range []int{0, 3} {
		assert.False(t, f.location(t, idx).IsOccupied)
	}
	f.assertConserved(t, p.ID)
}

func TestTerminalProduct_RejectsEveryOperation(t *testing.T) {
	f := newFixture(t)
	p := f.located(t, 10, 0)
	_, err := f.svc.Remove(f.ctx, admin, p.ID, domain.RemoveRequest{})
	require.NoError(t, err)

	_, err = f.svc.Move(f.ctx, operador, p.ID, domain.MoveRequest{ToLocationID: f.locs[1].ID})
	assert.True(t, isErr[*apperror.InvalidStateTransitionError](err))
	_, err = f.svc.AddStock(f.ctx, admin, p.ID, domain.AddStockRequest{Quantity: 1})
	assert.True(t, isErr[*apperror.InvalidStateTransitionError](err))
	_, err = f.svc.Remove(f.ctx, admin, p.ID, domain.RemoveRequest{})
	assert.True(t, isErr[*apperror.InvalidStateTransitionError](err))
}

func TestAfterCommit_PublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 1)
	f.publisher.fail = errors.New("broker fora do ar")

	res, err := f.svc.Locate(f.ctx, operador, p.ID, domain.LocateRequest{LocationID: f.locs[0].ID})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusLocado, res.Product.Status)
}
