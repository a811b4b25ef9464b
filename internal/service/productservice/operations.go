package productservice

import (
	"context"
	"errors"
	"fmt"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
)

// CompleteIntake conclui o cadastro: CADASTRADO → AGUARDANDO_LOCACAO.
func (s *Service) CompleteIntake(ctx context.Context, actor domain.Actor, productID string) (domain.OperationResult, error) {
	return s.run(ctx, actor, productID, command{op: domain.OpCompleteIntake})
}

// Locate aloca o produto inteiro numa localização livre escolhida pelo operador.
func (s *Service) Locate(ctx context.Context, actor domain.Actor, productID string, req domain.LocateRequest) (domain.OperationResult, error) {
	return s.run(ctx, actor, productID, command{
		op: domain.OpLocate,
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			if req.LocationID == "" {
				return nil, nil, apperror.NewValidationError("a localização de destino é obrigatória.")
			}
			claimed, err := repos.Locations.ClaimIfFree(ctx, req.LocationID, p.ID, p.TotalWeight(), p.Quantity)
			if err != nil {
				return nil, nil, err
			}
			p.LocationID = &claimed.ID

			return []domain.Movement{{
				Type:         domain.MovementEntry,
				ToLocationID: &claimed.ID,
				Quantity:     p.Quantity,
				Weight:       p.TotalWeight(),
			}}, []domain.Location{claimed}, nil
		},
	})
}

// LocateOptimal escolhe a primeira localização livre (em ordem de coordenadas) com
// capacidade para o peso total do produto. Candidatas que perdem a corrida para
// outra reivindicação são puladas; esgotada a página, a busca segue para a próxima.
func (s *Service) LocateOptimal(ctx context.Context, actor domain.Actor, productID string, req domain.LocateOptimalRequest) (domain.OperationResult, error) {
	if err := domain.Authorize(actor.Role, domain.OpLocate); err != nil {
		return domain.OperationResult{}, s.reject(domain.OpLocate, productID, err)
	}

	p, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return domain.OperationResult{}, s.reject(domain.OpLocate, productID, err)
	}
	if _, err := domain.NextStatus(p.Status, domain.OpLocate); err != nil {
		return domain.OperationResult{}, s.reject(domain.OpLocate, productID, err)
	}

	filter := domain.LocationFilter{
		ChamberID:     req.ChamberID,
		MinCapacityKg: p.TotalWeight(),
		Limit:         s.maxCandidates,
	}
	for {
		candidates, err := s.store.Locations().FindAvailable(ctx, filter)
		if err != nil {
			return domain.OperationResult{}, s.reject(domain.OpLocate, productID, err)
		}

		for _, candidate := range candidates {
			result, err := s.Locate(ctx, actor, productID, domain.LocateRequest{LocationID: candidate.ID})
			if err == nil {
				return result, nil
			}
			var occupied *apperror.LocationOccupiedError
			if errors.As(err, &occupied) {
				s.logger.Debug("Localização candidata perdida para outra reivindicação.", map[string]interface{}{
					"product_id":  productID,
					"location_id": candidate.ID,
				})
				continue
			}
			return domain.OperationResult{}, err
		}

		if len(candidates) < filter.Limit {
			break
		}
		last := candidates[len(candidates)-1]
		filter.After = &last
	}

	return domain.OperationResult{}, s.reject(domain.OpLocate, productID, apperror.NewNotFoundError(
		fmt.Sprintf("nenhuma localização livre comporta %s kg.", p.TotalWeight())))
}

// Move transfere toda a alocação de origem (padrão: a primária) para o destino.
func (s *Service) Move(ctx context.Context, actor domain.Actor, productID string, req domain.MoveRequest) (domain.OperationResult, error) {
	return s.run(ctx, actor, productID, command{
		op:     domain.OpMove,
		reason: req.Reason,
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			srcID, err := sourceOf(p, req.FromLocationID)
			if err != nil {
				return nil, nil, err
			}
			if srcID == req.ToLocationID {
				return nil, nil, apperror.NewValidationError("origem e destino devem ser diferentes.")
			}

			src, err := repos.Locations.FindByID(ctx, srcID)
			if err != nil {
				return nil, nil, err
			}
			if !src.IsOccupied || src.ProductID != p.ID {
				return nil, nil, apperror.NewValidationError(
					fmt.Sprintf("o produto não ocupa a localização %s.", src.Code))
			}

			released, err := repos.Locations.ReleaseIfOccupant(ctx, srcID, p.ID)
			if err != nil {
				return nil, nil, err
			}
			dest, err := putInto(ctx, repos.Locations, p, req.ToLocationID, src.CurrentWeightKg, src.StoredQuantity)
			if err != nil {
				return nil, nil, err
			}
			if p.PrimaryLocation() == srcID {
				p.LocationID = &dest.ID
			}

			return []domain.Movement{{
				Type:           domain.MovementTransfer,
				FromLocationID: &srcID,
				ToLocationID:   &dest.ID,
				Quantity:       src.StoredQuantity,
				Weight:         src.CurrentWeightKg,
			}}, []domain.Location{released, dest}, nil
		},
	})
}

// PartialMove transfere parte das unidades de uma alocação para outra localização.
func (s *Service) PartialMove(ctx context.Context, actor domain.Actor, productID string, req domain.PartialMoveRequest) (domain.OperationResult, error) {
	return s.run(ctx, actor, productID, command{
		op:     domain.OpPartialMove,
		reason: req.Reason,
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			if req.Quantity <= 0 {
				return nil, nil, apperror.NewValidationError("a quantidade deve ser maior que zero.")
			}
			srcID, err := sourceOf(p, req.FromLocationID)
			if err != nil {
				return nil, nil, err
			}
			if srcID == req.ToLocationID {
				return nil, nil, apperror.NewValidationError("origem e destino devem ser diferentes.")
			}

			src, weight, err := takeFrom(ctx, repos.Locations, p, srcID, req.Quantity)
			if err != nil {
				return nil, nil, err
			}
			dest, err := putInto(ctx, repos.Locations, p, req.ToLocationID, weight, req.Quantity)
			if err != nil {
				return nil, nil, err
			}
			if !src.IsOccupied && p.PrimaryLocation() == srcID {
				p.LocationID = &dest.ID
			}

			return []domain.Movement{{
				Type:           domain.MovementPartialTransfer,
				FromLocationID: &srcID,
				ToLocationID:   &dest.ID,
				Quantity:       req.Quantity,
				Weight:         weight,
			}}, []domain.Location{src, dest}, nil
		},
	})
}

// AddStock acrescenta unidades na alocação primária, respeitando a capacidade.
func (s *Service) AddStock(ctx context.Context, actor domain.Actor, productID string, req domain.AddStockRequest) (domain.OperationResult, error) {
	return s.run(ctx, actor, productID, command{
		op:     domain.OpAddStock,
		reason: req.Reason,
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			if req.Quantity <= 0 {
				return nil, nil, apperror.NewValidationError("a quantidade deve ser maior que zero.")
			}
			primary, err := sourceOf(p, "")
			if err != nil {
				return nil, nil, err
			}

			weight := p.WeightOf(req.Quantity)
			adjusted, err := repos.Locations.AdjustIfWithinCapacity(ctx, primary, p.ID, weight, req.Quantity)
			if err != nil {
				return nil, nil, err
			}
			p.Quantity += req.Quantity

			return []domain.Movement{{
				Type:         domain.MovementStockAdd,
				ToLocationID: &adjusted.ID,
				Quantity:     req.Quantity,
				Weight:       weight,
			}}, []domain.Location{adjusted}, nil
		},
	})
}

// PartialExit registra a saída de parte do estoque. Uma saída igual ao saldo
// encerra o produto (SAIDA_TOTAL → REMOVIDO).
func (s *Service) PartialExit(ctx context.Context, actor domain.Actor, productID string, req domain.PartialExitRequest) (domain.OperationResult, error) {
	return s.run(ctx, actor, productID, command{
		op:     domain.OpPartialExit,
		reason: req.Reason,
		pick: func(p domain.Product) domain.Operation {
			if req.Quantity >= p.Quantity {
				return domain.OpExitAll
			}
			return domain.OpPartialExit
		},
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			if req.Quantity > p.Quantity {
				return nil, nil, apperror.NewValidationError(
					fmt.Sprintf("quantidade solicitada (%d) maior que o saldo (%d).", req.Quantity, p.Quantity))
			}
			if req.Quantity == p.Quantity {
				return terminalExit(ctx, repos, p)
			}
			return partialExit(ctx, repos, p, req.FromLocationID, req.Quantity)
		},
	})
}

// Remove encerra o produto. Se estiver locado, libera as alocações e registra a saída.
func (s *Service) Remove(ctx context.Context, actor domain.Actor, productID string, req domain.RemoveRequest) (domain.OperationResult, error) {
	return s.run(ctx, actor, productID, command{
		op:     domain.OpRemove,
		reason: req.Reason,
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			if p.Status != domain.StatusLocado {
				return nil, nil, nil
			}
			return terminalExit(ctx, repos, p)
		},
	})
}
