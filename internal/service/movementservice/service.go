package movementservice

import (
	"context"
	"fmt"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
)

const maxPageSize = 500

// Service expõe as consultas ao livro de movimentações. As inserções acontecem
// apenas dentro das transações da máquina de estados.
type Service struct {
	store  domain.Store
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Movimentações.
func NewService(store domain.Store, logger logger.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ByProduct retorna a trilha do produto em ordem cronológica.
func (s *Service) ByProduct(ctx context.Context, productID string) ([]domain.Movement, error) {
	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.Movements().FindByProduct(ctx, productID)
}

// ByLocation retorna as movimentações que entraram ou saíram da localização.
func (s *Service) ByLocation(ctx context.Context, locationID string) ([]domain.Movement, error) {
	if _, err := s.store.Locations().FindByID(ctx, locationID); err != nil {
		return nil, err
	}
	return s.store.Movements().FindByLocation(ctx, locationID)
}

// List consulta o livro por tipo, ator e período.
func (s *Service) List(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	switch filter.Type {
	case "", domain.MovementEntry, domain.MovementExit, domain.MovementTransfer,
		domain.MovementPartialTransfer, domain.MovementStockAdd:
	default:
		return nil, apperror.NewValidationError(fmt.Sprintf("tipo de movimentação desconhecido: %s.", filter.Type))
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperror.NewValidationError("o fim do período deve ser posterior ao início.")
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.Movements().FindAll(ctx, filter)
}

// Replay reconstrói o produto a partir do livro e compara com o estado armazenado.
func (s *Service) Replay(ctx context.Context, productID string) (domain.ReplayReport, error) {
	product, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return domain.ReplayReport{}, err
	}
	movements, err := s.store.Movements().FindByProduct(ctx, productID)
	if err != nil {
		return domain.ReplayReport{}, err
	}
	allocations, err := s.store.Locations().FindByProduct(ctx, productID)
	if err != nil {
		return domain.ReplayReport{}, err
	}

	stored := domain.ProductSnapshot{
		Status:      product.Status,
		LocationID:  product.LocationID,
		Quantity:    product.Quantity,
		Allocations: map[string]int{},
	}
	for _, l := range allocations {
		stored.Allocations[l.ID] = l.StoredQuantity
	}

	snapshot := domain.Replay(movements)
	report := domain.ReplayReport{
		ProductID:  productID,
		Movements:  len(movements),
		Snapshot:   snapshot,
		Stored:     stored,
		Consistent: consistent(snapshot, stored, len(movements)),
	}
	if !report.Consistent {
		s.logger.Warn("Replay divergente do estado armazenado.", map[string]interface{}{
			"product_id": productID,
			"movements":  len(movements),
			"status":     product.Status,
		})
	}
	return report, nil
}

// consistent compara o snapshot reconstruído com o armazenado. O livro só registra
// eventos físicos: antes da primeira entrada não há saldo a comparar, e um pedido
// de retirada pendente não muda a posição do produto.
func consistent(snap, stored domain.ProductSnapshot, movements int) bool {
	if movements == 0 {
		return stored.LocationID == nil && len(stored.Allocations) == 0
	}
	if snap.Quantity != stored.Quantity || !sameLocation(snap.LocationID, stored.LocationID) {
		return false
	}
	if len(snap.Allocations) != len(stored.Allocations) {
		return false
	}
	for id, qty := range snap.Allocations {
		if stored.Allocations[id] != qty {
			return false
		}
	}
	return physicalStatus(snap.Status) == physicalStatus(stored.Status)
}

func physicalStatus(s domain.ProductStatus) domain.ProductStatus {
	if s == domain.StatusAguardandoRetirada {
		return domain.StatusLocado
	}
	return s
}

func sameLocation(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
