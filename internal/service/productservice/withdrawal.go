package productservice

import (
	"context"
	"fmt"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
)

// Lado do produto no fluxo de retirada. Estes métodos rodam dentro da transação
// do chamador (o serviço de retiradas), que também grava o pedido; AfterCommit
// deve ser chamado por ele depois do commit.

// RequestWithdrawalTx aplica SOLICITAR_RETIRADA e devolve o pedido preenchido,
// ainda não persistido. Não gera movimentação.
func (s *Service) RequestWithdrawalTx(ctx context.Context, repos domain.Repositories, actor domain.Actor, input domain.WithdrawalCreate) (domain.WithdrawalRequest, domain.OperationResult, domain.Transition, error) {
	if err := domain.Authorize(actor.Role, domain.OpRequestWithdrawal); err != nil {
		return domain.WithdrawalRequest{}, domain.OperationResult{}, domain.Transition{}, err
	}

	var request domain.WithdrawalRequest
	result, tr, err := s.execute(ctx, repos, actor, input.ProductID, command{
		op: domain.OpRequestWithdrawal,
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			qty := p.Quantity
			switch input.Type {
			case domain.WithdrawalTotal:
			case domain.WithdrawalParcial:
				if input.Quantity <= 0 || input.Quantity >= p.Quantity {
					return nil, nil, apperror.NewValidationError(
						fmt.Sprintf("a retirada parcial deve estar entre 1 e %d unidades.", p.Quantity-1))
				}
				qty = input.Quantity
			default:
				return nil, nil, apperror.NewValidationError(fmt.Sprintf("tipo de retirada desconhecido: %s.", input.Type))
			}

			var from *string
			if p.LocationID != nil {
				id := *p.LocationID
				from = &id
			}
			request = domain.WithdrawalRequest{
				ProductID:         p.ID,
				Type:              input.Type,
				RequestedQuantity: qty,
				FromLocationID:    from,
				Reason:            input.Reason,
				Status:            domain.WithdrawalPendente,
				RequestedBy:       actor.ID,
			}
			return nil, nil, nil
		},
	})
	if err != nil {
		return domain.WithdrawalRequest{}, domain.OperationResult{}, domain.Transition{}, err
	}
	return request, result, tr, nil
}

// ConfirmWithdrawalTx executa a saída física do pedido: total encerra o produto
// (RETIRADO), parcial consome as alocações a partir da primária e volta a LOCADO.
func (s *Service) ConfirmWithdrawalTx(ctx context.Context, repos domain.Repositories, actor domain.Actor, req domain.WithdrawalRequest) (domain.OperationResult, domain.Transition, error) {
	op := domain.OpConfirmTotal
	if req.Type == domain.WithdrawalParcial {
		op = domain.OpConfirmPartial
	}
	if err := domain.Authorize(actor.Role, op); err != nil {
		return domain.OperationResult{}, domain.Transition{}, err
	}

	return s.execute(ctx, repos, actor, req.ProductID, command{
		op:     op,
		reason: req.Reason,
		apply: func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error) {
			if req.Type == domain.WithdrawalTotal {
				return terminalExit(ctx, repos, p)
			}
			// FromLocationID é a primária no momento do pedido, que não muda enquanto
			// o produto aguarda retirada; a saída pode seguir para as demais alocações.
			return partialExit(ctx, repos, p, "", req.RequestedQuantity)
		},
	})
}

// CancelWithdrawalTx devolve o produto a LOCADO sem efeitos físicos.
func (s *Service) CancelWithdrawalTx(ctx context.Context, repos domain.Repositories, actor domain.Actor, req domain.WithdrawalRequest) (domain.OperationResult, domain.Transition, error) {
	if err := domain.Authorize(actor.Role, domain.OpCancelWithdrawal); err != nil {
		return domain.OperationResult{}, domain.Transition{}, err
	}
	return s.execute(ctx, repos, actor, req.ProductID, command{op: domain.OpCancelWithdrawal, reason: req.Reason})
}
