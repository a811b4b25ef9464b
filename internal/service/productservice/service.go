package productservice

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

// Service é a máquina de estados do produto. Toda operação que muda estado passa
// por run → execute: autoriza, consulta a tabela de transições, aplica os efeitos
// nas localizações, grava o produto (OCC) e a movimentação numa única transação.
type Service struct {
	store         domain.Store
	publisher     events.Publisher
	metrics       *metrics.Metrics
	logger        logger.Logger
	maxCandidates int
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(store domain.Store, publisher events.Publisher, m *metrics.Metrics, logger logger.Logger, maxCandidates int) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if maxCandidates <= 0 {
		maxCandidates = 20
	}
	return &Service{
		store:         store,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
		maxCandidates: maxCandidates,
	}
}

// effect aplica os efeitos colaterais de uma operação sobre o produto carregado na
// transação. Pode alterar Quantity e LocationID; devolve os rascunhos das
// movimentações (vazio quando a operação não registra movimento) e as localizações tocadas.
type effect func(ctx context.Context, repos domain.Repositories, p *domain.Product) ([]domain.Movement, []domain.Location, error)

// command é uma operação da máquina de estados.
type command struct {
	op     domain.Operation
	reason string
	// pick escolhe a operação efetiva a partir do produto (ex.: saída parcial de
	// todo o saldo vira saída total). Opcional.
	pick  func(p domain.Product) domain.Operation
	apply effect
}

// run autoriza, executa o comando numa transação e dispara os efeitos pós-commit.
func (s *Service) run(ctx context.Context, actor domain.Actor, productID string, cmd command) (domain.OperationResult, error) {
	s.logger.Debug("Iniciando operação de produto.", map[string]interface{}{
		"operation":  cmd.op,
		"product_id": productID,
		"actor_id":   actor.ID,
	})

	if err := domain.Authorize(actor.Role, cmd.op); err != nil {
		return domain.OperationResult{}, s.reject(cmd.op, productID, err)
	}

	var (
		result domain.OperationResult
		tr     domain.Transition
	)
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		result, tr, err = s.execute(ctx, repos, actor, productID, cmd)
		return err
	})
	if err != nil {
		return domain.OperationResult{}, s.reject(cmd.op, productID, err)
	}

	s.AfterCommit(ctx, actor, tr, result)
	return result, nil
}

// execute é o único caminho de transição: carrega, consulta a tabela, aplica, grava.
func (s *Service) execute(ctx context.Context, repos domain.Repositories, actor domain.Actor, productID string, cmd command) (domain.OperationResult, domain.Transition, error) {
	p, err := repos.Products.FindByID(ctx, productID)
	if err != nil {
		return domain.OperationResult{}, domain.Transition{}, err
	}

	op := cmd.op
	if cmd.pick != nil {
		op = cmd.pick(p)
	}

	to, err := domain.NextStatus(p.Status, op)
	if err != nil {
		return domain.OperationResult{}, domain.Transition{}, err
	}
	tr := domain.Transition{Operation: op, From: p.Status, To: to}

	var (
		drafts  []domain.Movement
		touched []domain.Location
	)
	if cmd.apply != nil {
		drafts, touched, err = cmd.apply(ctx, repos, &p)
		if err != nil {
			return domain.OperationResult{}, domain.Transition{}, err
		}
	}

	p.Status = to
	if !to.HoldsLocation() {
		p.LocationID = nil
	}

	updated, err := repos.Products.Update(ctx, p)
	if err != nil {
		return domain.OperationResult{}, domain.Transition{}, err
	}

	result := domain.OperationResult{Product: updated, Locations: touched}
	now := time.Now().UTC()
	for _, draft := range drafts {
		draft.ProductID = updated.ID
		draft.ActorID = actor.ID
		draft.Reason = cmd.reason
		draft.StatusAfter = updated.Status
		draft.LocationAfter = updated.LocationID
		draft.Timestamp = now

		mov, err := repos.Movements.Append(ctx, draft)
		if err != nil {
			return domain.OperationResult{}, domain.Transition{}, err
		}
		result.Movements = append(result.Movements, mov)
	}
	if len(result.Movements) > 0 {
		result.Movement = &result.Movements[0]
	}
	return result, tr, nil
}

// AfterCommit registra métricas, publica a movimentação e loga a transição.
// Só deve ser chamado depois que a transação confirmou.
func (s *Service) AfterCommit(ctx context.Context, actor domain.Actor, tr domain.Transition, result domain.OperationResult) {
	s.metrics.ObserveTransition(string(tr.Operation), string(tr.From), string(tr.To))

	fields := map[string]interface{}{
		"operation":  tr.Operation,
		"product_id": result.Product.ID,
		"from":       tr.From,
		"to":         tr.To,
		"quantity":   result.Product.Quantity,
		"version":    result.Product.Version,
	}
	if result.Movement != nil {
		fields["movement_id"] = result.Movement.ID
		fields["movements"] = len(result.Movements)
	}
	for _, mov := range result.Movements {
		s.metrics.ObserveMovement(string(mov.Type))
		if err := s.publisher.Publish(ctx, events.MovementRecorded, actor.ID, mov); err != nil {
			s.logger.Warn("Falha ao publicar evento de movimentação.", map[string]interface{}{"movement_id": mov.ID, "error": err.Error()})
		}
	}
	s.logger.Info("Transição de produto concluída.", fields)
}

// reject classifica e registra o erro de uma operação antes de devolvê-lo.
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

	var occupied *apperror.LocationOccupiedError
	if errors.As(err, &occupied) {
		s.metrics.ObserveClaimConflict()
	}
	s.metrics.ObserveRejection(string(op), appErr.Category())
	s.logger.Warn("Operação de produto rejeitada.", map[string]interface{}{
		"operation":  op,
		"product_id": productID,
		"category":   appErr.Category(),
		"reason":     err.Error(),
	})
	return err
}

// --- Cadastro e consultas ---

// CreateProduct cadastra um lote em CADASTRADO (ou AGUARDANDO_LOCACAO quando já pronto para locação).
func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, input domain.ProductCreate) (domain.Product, error) {
	if err := domain.Authorize(actor.Role, domain.OpCreateProduct); err != nil {
		return domain.Product{}, s.reject(domain.OpCreateProduct, "", err)
	}
	if err := input.Validate(); err != nil {
		return domain.Product{}, err
	}

	status := domain.StatusCadastrado
	if input.ReadyForLocation {
		status = domain.StatusAguardandoLocacao
	}

	product, err := s.store.Products().Create(ctx, domain.Product{
		Name:           input.Name,
		SeedTypeID:     input.SeedTypeID,
		ClientID:       input.ClientID,
		Lot:            input.Lot,
		ExpirationDate: input.ExpirationDate,
		Status:         status,
		Quantity:       input.Quantity,
		WeightPerUnit:  input.WeightPerUnit,
		CreatedBy:      actor.ID,
	})
	if err != nil {
		return domain.Product{}, s.reject(domain.OpCreateProduct, "", err)
	}

	s.logger.Info("Produto cadastrado.", map[string]interface{}{"id": product.ID, "status": product.Status, "lot": product.Lot})
	return product, nil
}

// GetProduct busca um produto pelo ID.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, apperror.NewValidationError("O ID do produto é obrigatório.")
	}
	return s.store.Products().FindByID(ctx, id)
}

// ListProducts lista produtos por status/câmara/lote/tipo de semente.
func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("status desconhecido: %s.", filter.Status))
	}
	return s.store.Products().FindAll(ctx, filter)
}

// Allocations retorna as localizações ocupadas pelo produto.
func (s *Service) Allocations(ctx context.Context, productID string) ([]domain.Location, error) {
	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.Locations().FindByProduct(ctx, productID)
}
