package withdrawalservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/events"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/pkg/metrics"
)

// ProductMachine é o lado do produto no fluxo de retirada (implementado pelo productservice).
type ProductMachine interface {
	RequestWithdrawalTx(ctx context.Context, repos domain.Repositories, actor domain.Actor, input domain.WithdrawalCreate) (domain.WithdrawalRequest, domain.OperationResult, domain.Transition, error)
	ConfirmWithdrawalTx(ctx context.Context, repos domain.Repositories, actor domain.Actor, req domain.WithdrawalRequest) (domain.OperationResult, domain.Transition, error)
	CancelWithdrawalTx(ctx context.Context, repos domain.Repositories, actor domain.Actor, req domain.WithdrawalRequest) (domain.OperationResult, domain.Transition, error)
	AfterCommit(ctx context.Context, actor domain.Actor, tr domain.Transition, result domain.OperationResult)
}

// Service coordena o pedido de retirada em duas fases: o admin solicita,
// o operador confirma (ou o admin cancela). Pedido e produto mudam na mesma transação.
type Service struct {
	store     domain.Store
	products  ProductMachine
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Retiradas.
func NewService(store domain.Store, products ProductMachine, publisher events.Publisher, m *metrics.Metrics, logger logger.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:     store,
		products:  products,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Request cria um pedido PENDENTE e leva o produto a AGUARDANDO_RETIRADA.
func (s *Service) Request(ctx context.Context, actor domain.Actor, input domain.WithdrawalCreate) (domain.OperationResult, error) {
	if input.ProductID == "" {
		return domain.OperationResult{}, apperror.NewValidationError("O ID do produto é obrigatório.")
	}

	var (
		result domain.OperationResult
		tr     domain.Transition
	)
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		draft, res, t, err := s.products.RequestWithdrawalTx(ctx, repos, actor, input)
		if err != nil {
			return err
		}
		created, err := repos.Withdrawals.Create(ctx, draft)
		if err != nil {
			return err
		}
		res.Withdrawal = &created
		result, tr = res, t
		return nil
	})
	if err != nil {
		return domain.OperationResult{}, s.reject(domain.OpRequestWithdrawal, input.ProductID, err)
	}

	s.afterCommit(ctx, actor, events.WithdrawalRequested, tr, result)
	return result, nil
}

// Confirm executa a saída física do pedido pendente. Só o primeiro confirmador vence.
func (s *Service) Confirm(ctx context.Context, actor domain.Actor, requestID string) (domain.OperationResult, error) {
	return s.resolve(ctx, actor, requestID, domain.OpConfirmTotal, events.WithdrawalConfirmed,
		func(repos domain.Repositories, req domain.WithdrawalRequest) (domain.WithdrawalRequest, domain.OperationResult, domain.Transition, error) {
			res, tr, err := s.products.ConfirmWithdrawalTx(ctx, repos, actor, req)
			if err != nil {
				return req, res, tr, err
			}
			req.Status = domain.WithdrawalConfirmado
			req.ConfirmedBy = &actor.ID
			if res.Movement != nil {
				req.MovementID = &res.Movement.ID
			}
			return req, res, tr, nil
		})
}

// Cancel cancela o pedido pendente e devolve o produto a LOCADO.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, requestID string) (domain.OperationResult, error) {
	return s.resolve(ctx, actor, requestID, domain.OpCancelWithdrawal, events.WithdrawalCancelled,
		func(repos domain.Repositories, req domain.WithdrawalRequest) (domain.WithdrawalRequest, domain.OperationResult, domain.Transition, error) {
			res, tr, err := s.products.CancelWithdrawalTx(ctx, repos, actor, req)
			if err != nil {
				return req, res, tr, err
			}
			req.Status = domain.WithdrawalCancelado
			req.CancelledBy = &actor.ID
			return req, res, tr, nil
		})
}

type resolution func(repos domain.Repositories, req domain.WithdrawalRequest) (domain.WithdrawalRequest, domain.OperationResult, domain.Transition, error)

func (s *Service) resolve(ctx context.Context, actor domain.Actor, requestID string, op domain.Operation, routingKey string, fn resolution) (domain.OperationResult, error) {
	if requestID == "" {
		return domain.OperationResult{}, apperror.NewValidationError("O ID do pedido de retirada é obrigatório.")
	}

	var (
		result    domain.OperationResult
		tr        domain.Transition
		productID string
	)
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		req, err := repos.Withdrawals.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		productID = req.ProductID
		if err := req.CheckPending(op); err != nil {
			return err
		}

		updated, res, t, err := fn(repos, req)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		updated.ResolvedAt = &now

		resolved, err := repos.Withdrawals.Resolve(ctx, updated)
		if err != nil {
			return err
		}
		res.Withdrawal = &resolved
		result, tr = res, t
		return nil
	})
	if err != nil {
		return domain.OperationResult{}, s.reject(op, productID, err)
	}

	s.afterCommit(ctx, actor, routingKey, tr, result)
	return result, nil
}

// Get busca um pedido pelo ID.
func (s *Service) Get(ctx context.Context, id string) (domain.WithdrawalRequest, error) {
	return s.store.Withdrawals().FindByID(ctx, id)
}

// List lista pedidos por status e produto.
func (s *Service) List(ctx context.Context, filter domain.WithdrawalFilter) ([]domain.WithdrawalRequest, error) {
	switch filter.Status {
	case "", domain.WithdrawalPendente, domain.WithdrawalConfirmado, domain.WithdrawalCancelado:
	default:
		return nil, apperror.NewValidationError(fmt.Sprintf("status de retirada desconhecido: %s.", filter.Status))
	}
	return s.store.Withdrawals().FindAll(ctx, filter)
}

func (s *Service) afterCommit(ctx context.Context, actor domain.Actor, routingKey string, tr domain.Transition, result domain.OperationResult) {
	s.products.AfterCommit(ctx, actor, tr, result)
	if result.Withdrawal == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, actor.ID, result.Withdrawal); err != nil {
		s.logger.Warn("Falha ao publicar evento de retirada.", map[string]interface{}{"withdrawal_id": result.Withdrawal.ID, "error": err.Error()})
	}
	s.logger.Info("Pedido de retirada atualizado.", map[string]interface{}{
		"withdrawal_id": result.Withdrawal.ID,
		"status":        result.Withdrawal.Status,
		"product_id":    result.Withdrawal.ProductID,
	})
}

func (s *Service) reject(op domain.Operation, productID string, err error) error {
	var appErr apperror.AppError
	if !errors.As(err, &appErr) {
		err = apperror.NewInternalError(fmt.Sprintf("Falha interna na operação %s.", op), err)
		appErr = err.(apperror.AppError)
	}
	if !apperror.IsBusiness(err) {
		s.logger.Error(fmt.Sprintf("Falha de infraestrutura na operação %s do produto %s.", op, productID), err)
		return err
	}
	s.metrics.ObserveRejection(string(op), appErr.Category())
	s.logger.Warn("Operação de retirada rejeitada.", map[string]interface{}{
		"operation":  op,
		"product_id": productID,
		"category":   appErr.Category(),
		"reason":     err.Error(),
	})
	return err
}
