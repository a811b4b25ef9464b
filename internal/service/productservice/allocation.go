package productservice

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
)

// Efeitos sobre as localizações. Toda escrita passa pelas operações condicionais
// do repositório; a leitura prévia serve só para escolher entre reivindicar e ajustar.

// putInto coloca qty unidades (weight kg) do produto no destino: ajusta a alocação
// se o produto já ocupa o destino, senão reivindica a localização livre.
func putInto(ctx context.Context, locs domain.LocationRepository, p *domain.Product, destID string, weight decimal.Decimal, qty int) (domain.Location, error) {
	dest, err := locs.FindByID(ctx, destID)
	if err != nil {
		return domain.Location{}, err
	}
	if dest.IsOccupied && dest.ProductID == p.ID {
		return locs.AdjustIfWithinCapacity(ctx, destID, p.ID, weight, qty)
	}
	return locs.ClaimIfFree(ctx, destID, p.ID, weight, qty)
}

// takeFrom retira qty unidades da alocação de origem, liberando-a quando esvazia.
// Retorna a localização resultante e o peso efetivamente retirado.
func takeFrom(ctx context.Context, locs domain.LocationRepository, p *domain.Product, srcID string, qty int) (domain.Location, decimal.Decimal, error) {
	src, err := locs.FindByID(ctx, srcID)
	if err != nil {
		return domain.Location{}, decimal.Zero, err
	}
	if !src.IsOccupied || src.ProductID != p.ID {
		return domain.Location{}, decimal.Zero, apperror.NewValidationError(
			fmt.Sprintf("o produto não ocupa a localização %s.", src.Code))
	}
	if qty > src.StoredQuantity {
		return domain.Location{}, decimal.Zero, apperror.NewValidationError(
			fmt.Sprintf("a localização %s guarda apenas %d unidades do produto.", src.Code, src.StoredQuantity))
	}

	if qty == src.StoredQuantity {
		released, err := locs.ReleaseIfOccupant(ctx, srcID, p.ID)
		return released, src.CurrentWeightKg, err
	}

	weight := p.WeightOf(qty)
	adjusted, err := locs.AdjustIfWithinCapacity(ctx, srcID, p.ID, weight.Neg(), -qty)
	return adjusted, weight, err
}

// promote elege nova alocação primária quando a atual foi esvaziada: a primeira
// alocação restante em ordem de coordenadas, ou nenhuma.
func promote(ctx context.Context, locs domain.LocationRepository, p *domain.Product, emptiedID string) error {
	if p.PrimaryLocation() != emptiedID {
		return nil
	}
	remaining, err := locs.FindByProduct(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		p.LocationID = nil
		return nil
	}
	next := remaining[0].ID
	p.LocationID = &next
	return nil
}

// releaseAll libera todas as alocações do produto.
func releaseAll(ctx context.Context, locs domain.LocationRepository, p *domain.Product) ([]domain.Location, error) {
	held, err := locs.FindByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	released := make([]domain.Location, 0, len(held))
	for _, l := range held {
		r, err := locs.ReleaseIfOccupant(ctx, l.ID, p.ID)
		if err != nil {
			return nil, err
		}
		released = append(released, r)
	}
	return released, nil
}

// sourceOf resolve a origem informada ou cai na alocação primária.
func sourceOf(p *domain.Product, fromID string) (string, error) {
	if fromID != "" {
		return fromID, nil
	}
	if p.LocationID == nil {
		return "", apperror.NewValidationError("o produto não possui alocação primária.")
	}
	return *p.LocationID, nil
}

// terminalExit esvazia o produto: libera todas as alocações e registra uma única
// saída com a quantidade total, a partir da alocação primária.
func terminalExit(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
	released, err := releaseAll(ctx, repos.Locations, p)
	if err != nil {
		return nil, nil, err
	}

	mov := domain.Movement{
		Type:           domain.MovementExit,
		FromLocationID: p.LocationID,
		Quantity:       p.Quantity,
		Weight:         p.TotalWeight(),
	}
	p.Quantity = 0
	p.LocationID = nil
	return []domain.Movement{mov}, released, nil
}

// partialExit retira qty unidades sem encerrar o produto. Com origem informada, a
// saída sai só dela. Sem origem, consome a primária e depois as demais alocações
// em ordem de coordenadas, com uma saída por alocação tocada.
func partialExit(ctx context.Context, repos domain.Repositories, p *domain.Product, fromID string, qty int) ([]domain.Movement, []domain.Location, error) {
	if qty <= 0 {
		return nil, nil, apperror.NewValidationError("a quantidade deve ser maior que zero.")
	}
	if qty >= p.Quantity {
		return nil, nil, apperror.NewValidationError(
			fmt.Sprintf("a saída parcial deve ser menor que o saldo do produto (%d).", p.Quantity))
	}

	var sources []domain.Location
	if fromID != "" {
		sources = []domain.Location{{ID: fromID, StoredQuantity: qty}}
	} else {
		held, err := repos.Locations.FindByProduct(ctx, p.ID)
		if err != nil {
			return nil, nil, err
		}
		sources = drawOrder(held, p.PrimaryLocation())
	}

	primary := p.PrimaryLocation()
	primaryEmptied := false
	remaining := qty
	var (
		movs    []domain.Movement
		touched []domain.Location
	)
	for _, alloc := range sources {
		if remaining == 0 {
			break
		}
		n := alloc.StoredQuantity
		if n > remaining {
			n = remaining
		}
		if n <= 0 {
			continue
		}

		src, weight, err := takeFrom(ctx, repos.Locations, p, alloc.ID, n)
		if err != nil {
			return nil, nil, err
		}
		srcID := alloc.ID
		movs = append(movs, domain.Movement{
			Type:           domain.MovementExit,
			FromLocationID: &srcID,
			Quantity:       n,
			Weight:         weight,
		})
		touched = append(touched, src)
		if !src.IsOccupied && srcID == primary {
			primaryEmptied = true
		}
		remaining -= n
	}
	if remaining > 0 {
		return nil, nil, apperror.NewValidationError(
			fmt.Sprintf("as alocações do produto não cobrem a saída de %d unidades.", qty))
	}

	if primaryEmptied {
		if err := promote(ctx, repos.Locations, p, primary); err != nil {
			return nil, nil, err
		}
	}
	p.Quantity -= qty
	return movs, touched, nil
}

// drawOrder põe a alocação primária à frente das demais, que mantêm a ordem de coordenadas.
func drawOrder(held []domain.Location, primary string) []domain.Location {
	ordered := make([]domain.Location, 0, len(held))
	for _, l := range held {
		if l.ID == primary {
			ordered = append(ordered, l)
		}
	}
	for _, l := range held {
		if l.ID != primary {
			ordered = append(ordered, l)
		}
	}
	return ordered
}
