package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// --- Contratos de persistência ---

// ProductRepository persiste produtos com controle de versão otimista.
type ProductRepository interface {
	Create(ctx context.Context, product Product) (Product, error)
	FindByID(ctx context.Context, id string) (Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)
	// Update só grava se a versão armazenada for igual a product.Version;
	// caso contrário retorna ConflictError. Retorna o produto com a nova versão.
	Update(ctx context.Context, product Product) (Product, error)
}

// LocationRepository expõe as escritas condicionais (CAS) sobre localizações.
// Uma escrita que não afeta nenhuma linha é diagnosticada como NotFound,
// LocationOccupied ou CapacityExceeded.
type LocationRepository interface {
	// CreateBatch insere as localizações ignorando coordenadas já existentes na câmara;
	// retorna quantas foram criadas.
	CreateBatch(ctx context.Context, locations []Location) (int, error)
	// Recode troca o código de uma localização existente, sem tocar na ocupação.
	Recode(ctx context.Context, id, code string) (Location, error)
	FindByID(ctx context.Context, id string) (Location, error)
	FindByChamber(ctx context.Context, chamberID string) ([]Location, error)
	// FindByProduct retorna as alocações do produto, ordenadas por código.
	FindByProduct(ctx context.Context, productID string) ([]Location, error)
	FindAvailable(ctx context.Context, filter LocationFilter) ([]Location, error)

	ClaimIfFree(ctx context.Context, id, productID string, weightKg decimal.Decimal, quantity int) (Location, error)
	AdjustIfWithinCapacity(ctx context.Context, id, productID string, deltaKg decimal.Decimal, deltaQty int) (Location, error)
	ReleaseIfOccupant(ctx context.Context, id, productID string) (Location, error)

	// CountOccupiedOutside conta localizações ocupadas fora das dimensões informadas.
	CountOccupiedOutside(ctx context.Context, chamberID string, dims ChamberDimensions) (int, error)
	// DeleteFreeOutside remove localizações livres fora das dimensões informadas.
	DeleteFreeOutside(ctx context.Context, chamberID string, dims ChamberDimensions) (int, error)
}

// MovementRepository é o livro de movimentações: somente inserção.
type MovementRepository interface {
	Append(ctx context.Context, movement Movement) (Movement, error)
	FindByProduct(ctx context.Context, productID string) ([]Movement, error)
	FindByLocation(ctx context.Context, locationID string) ([]Movement, error)
	FindAll(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// WithdrawalRepository persiste pedidos de retirada.
type WithdrawalRepository interface {
	// Create falha com ConflictError se já houver pedido PENDENTE para o produto.
	Create(ctx context.Context, request WithdrawalRequest) (WithdrawalRequest, error)
	FindByID(ctx context.Context, id string) (WithdrawalRequest, error)
	FindAll(ctx context.Context, filter WithdrawalFilter) ([]WithdrawalRequest, error)
	// Resolve grava a resolução apenas se o pedido ainda estiver PENDENTE.
	Resolve(ctx context.Context, request WithdrawalRequest) (WithdrawalRequest, error)
}

// ChamberRepository persiste as câmaras (dado de referência).
type ChamberRepository interface {
	Create(ctx context.Context, chamber Chamber) (Chamber, error)
	FindByID(ctx context.Context, id string) (Chamber, error)
	FindAll(ctx context.Context) ([]Chamber, error)
	Update(ctx context.Context, chamber Chamber) (Chamber, error)
}

// Repositories agrupa os repositórios ligados a uma mesma transação.
type Repositories struct {
	Products    ProductRepository
	Locations   LocationRepository
	Movements   MovementRepository
	Withdrawals WithdrawalRepository
	Chambers    ChamberRepository
}

// Store é a unidade de trabalho. As leituras fora de WithinTx não são transacionais;
// tudo que fn grava é confirmado junto ou descartado junto.
type Store interface {
	Products() ProductRepository
	Locations() LocationRepository
	Movements() MovementRepository
	Withdrawals() WithdrawalRepository
	Chambers() ChamberRepository
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
