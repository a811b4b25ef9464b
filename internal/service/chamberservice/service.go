package chamberservice

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
)

// LocationGenerator gera as localizações de uma câmara dentro de uma transação.
type LocationGenerator interface {
	GenerateTx(ctx context.Context, repos domain.Repositories, chamber domain.Chamber, dims domain.ChamberDimensions) (domain.GenerationResult, error)
	Limits() domain.LocationLimits
}

// Service é o catálogo de câmaras frias.
type Service struct {
	store     domain.Store
	generator LocationGenerator
	logger    logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Câmaras.
func NewService(store domain.Store, generator LocationGenerator, logger logger.Logger) *Service {
	return &Service{store: store, generator: generator, logger: logger}
}

// CreateChamber cadastra a câmara e, se pedido, gera suas localizações na mesma transação.
func (s *Service) CreateChamber(ctx context.Context, actor domain.Actor, input domain.ChamberCreate) (domain.Chamber, *domain.GenerationResult, error) {
	s.logger.Debug("Iniciando criação de câmara no serviço.", map[string]interface{}{"name": input.Name})

	if err := domain.Authorize(actor.Role, domain.OpManageChamber); err != nil {
		s.logger.Warn("Criação de câmara não autorizada.", map[string]interface{}{"actor_id": actor.ID, "role": actor.Role})
		return domain.Chamber{}, nil, err
	}
	if err := s.validateChamberName(input.Name); err != nil {
		s.logger.Warn("Falha na validação do nome da câmara.", map[string]interface{}{"name": input.Name, "error": err.Error()})
		return domain.Chamber{}, nil, err
	}

	limits := s.generator.Limits()
	if err := input.Dimensions.Validate(limits); err != nil {
		s.logger.Warn("Dimensões de câmara inválidas.", map[string]interface{}{"name": input.Name, "error": err.Error()})
		return domain.Chamber{}, nil, err
	}

	capacity := input.LocationCapacityKg
	if capacity.IsNegative() {
		return domain.Chamber{}, nil, apperror.NewValidationError("a capacidade por localização deve ser maior que zero.")
	}
	if capacity.IsZero() {
		capacity = limits.DefaultCapacityKg
	}

	chamber := domain.Chamber{
		ID:                 uuid.New().String(),
		Name:               strings.TrimSpace(input.Name),
		ChamberDimensions:  input.Dimensions,
		LocationCapacityKg: capacity,
		Temperature:        input.Temperature,
		Humidity:           input.Humidity,
	}

	var generation *domain.GenerationResult
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		created, err := repos.Chambers.Create(ctx, chamber)
		if err != nil {
			return err
		}
		chamber = created
		if !input.GenerateLocations {
			return nil
		}
		result, err := s.generator.GenerateTx(ctx, repos, created, created.ChamberDimensions)
		if err != nil {
			return err
		}
		generation = &result
		return nil
	})
	if err != nil {
		if apperror.IsBusiness(err) {
			s.logger.Warn("Criação de câmara rejeitada.", map[string]interface{}{"name": input.Name, "error": err.Error()})
			return domain.Chamber{}, nil, err
		}
		s.logger.Error("Falha ao criar câmara.", err)
		return domain.Chamber{}, nil, err
	}

	s.logger.Info("Câmara criada com sucesso.", map[string]interface{}{"id": chamber.ID, "name": chamber.Name})
	return chamber, generation, nil
}

// GetChamber busca uma câmara pelo ID após validações de formato.
func (s *Service) GetChamber(ctx context.Context, id string) (domain.Chamber, error) {
	s.logger.Debug("Iniciando busca de câmara por ID no serviço.", map[string]interface{}{"id": id})

	if _, err := uuid.Parse(id); err != nil {
		s.logger.Warn("ID de câmara inválido fornecido.", map[string]interface{}{"id": id, "error": err.Error()})
		return domain.Chamber{}, apperror.NewValidationError("O ID da câmara deve ser um UUID válido.")
	}

	chamber, err := s.store.Chambers().FindByID(ctx, id)
	if err != nil {
		return domain.Chamber{}, err // Erros do repositório já são NotFoundError ou DBError
	}
	return chamber, nil
}

// ListChambers busca todas as câmaras.
func (s *Service) ListChambers(ctx context.Context) ([]domain.Chamber, error) {
	chambers, err := s.store.Chambers().FindAll(ctx)
	if err != nil {
		s.logger.Error("Falha ao buscar todas as câmaras no repositório.", err)
		return nil, err
	}

	s.logger.Info("Todas as câmaras encontradas com sucesso.", map[string]interface{}{"count": len(chambers)})
	return chambers, nil
}

// UpdateConditions grava temperatura e umidade. São campos de leitura/escrita;
// nenhuma regra depende deles.
func (s *Service) UpdateConditions(ctx context.Context, actor domain.Actor, id string, conditions domain.ChamberConditions) (domain.Chamber, error) {
	if err := domain.Authorize(actor.Role, domain.OpManageChamber); err != nil {
		s.logger.Warn("Atualização de condições não autorizada.", map[string]interface{}{"actor_id": actor.ID, "role": actor.Role})
		return domain.Chamber{}, err
	}
	if conditions.Humidity.Valid && (conditions.Humidity.Decimal.IsNegative() || conditions.Humidity.Decimal.GreaterThan(hundred)) {
		return domain.Chamber{}, apperror.NewValidationError("a umidade deve estar entre 0 e 100.")
	}

	chamber, err := s.GetChamber(ctx, id)
	if err != nil {
		return domain.Chamber{}, err
	}
	chamber.Temperature = conditions.Temperature
	chamber.Humidity = conditions.Humidity

	updated, err := s.store.Chambers().Update(ctx, chamber)
	if err != nil {
		return domain.Chamber{}, err
	}

	s.logger.Info("Condições da câmara atualizadas.", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

// validateChamberName é uma função auxiliar para validar o nome da câmara.
func (s *Service) validateChamberName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.NewValidationError("O nome da câmara não pode ser vazio.")
	}
	if len(name) < 2 || len(name) > 100 {
		return apperror.NewValidationError("O nome da câmara deve ter entre 2 e 100 caracteres.")
	}
	return nil
}

var hundred = decimal.NewFromInt(100)
