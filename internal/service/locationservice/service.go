package locationservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
)

// Service é o registro de localizações: gera a hierarquia de coordenadas de uma
// câmara e expõe as consultas de ocupação/capacidade.
type Service struct {
	store  domain.Store
	limits domain.LocationLimits
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Localizações.
func NewService(store domain.Store, limits domain.LocationLimits, logger logger.Logger) *Service {
	return &Service{store: store, limits: limits, logger: logger}
}

// Limits retorna os tetos de geração em uso.
func (s *Service) Limits() domain.LocationLimits {
	return s.limits
}

// Generate (re)gera as localizações da câmara com as dimensões informadas.
// Dimensões vazias reaproveitam as atuais da câmara.
func (s *Service) Generate(ctx context.Context, actor domain.Actor, chamberID string, dims domain.ChamberDimensions) (domain.GenerationResult, error) {
	if err := domain.Authorize(actor.Role, domain.OpGenerateLocations); err != nil {
		s.logger.Warn("Geração de localizações não autorizada.", map[string]interface{}{"actor_id": actor.ID, "role": actor.Role})
		return domain.GenerationResult{}, err
	}

	var result domain.GenerationResult
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		chamber, err := repos.Chambers.FindByID(ctx, chamberID)
		if err != nil {
			return err
		}
		if dims == (domain.ChamberDimensions{}) {
			dims = chamber.ChamberDimensions
		}
		result, err = s.GenerateTx(ctx, repos, chamber, dims)
		return err
	})
	if err != nil {
		if apperror.IsBusiness(err) {
			s.logger.Warn("Geração de localizações rejeitada.", map[string]interface{}{"chamber_id": chamberID, "error": err.Error()})
		} else {
			s.logger.Error("Falha ao gerar localizações.", err)
		}
		return domain.GenerationResult{}, err
	}

	s.logger.Info("Localizações geradas.", map[string]interface{}{
		"chamber_id": result.ChamberID,
		"total":      result.Total,
		"created":    result.Created,
		"removed":    result.Removed,
	})
	return result, nil
}

// GenerateTx roda a geração dentro da transação do chamador. É idempotente: códigos
// existentes são mantidos, faltantes são criados, livres fora dos novos limites são
// removidos. Se alguma localização ocupada ficaria de fora, falha com ConflictError.
func (s *Service) GenerateTx(ctx context.Context, repos domain.Repositories, chamber domain.Chamber, dims domain.ChamberDimensions) (domain.GenerationResult, error) {
	slots, err := domain.EnumerateCoordinates(dims, s.limits)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	occupied, err := repos.Locations.CountOccupiedOutside(ctx, chamber.ID, dims)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if occupied > 0 {
		return domain.GenerationResult{}, apperror.NewConflictError(
			fmt.Sprintf("%d localizações ocupadas ficariam fora das novas dimensões da câmara %s.", occupied, chamber.Name))
	}

	removed, err := repos.Locations.DeleteFreeOutside(ctx, chamber.ID, dims)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	// Posições que sobrevivem mantêm ID e ocupação; só o código acompanha o formato atual.
	codes := make(map[domain.Coordinates]string, len(slots))
	for _, slot := range slots {
		codes[slot.Coordinates] = slot.Code
	}
	existing, err := repos.Locations.FindByChamber(ctx, chamber.ID)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	recoded := 0
	for _, loc := range existing {
		code, ok := codes[loc.Coordinates]
		if !ok || code == loc.Code {
			continue
		}
		if _, err := repos.Locations.Recode(ctx, loc.ID, code); err != nil {
			return domain.GenerationResult{}, err
		}
		recoded++
	}

	capacity := chamber.LocationCapacityKg
	if !capacity.IsPositive() {
		capacity = s.limits.DefaultCapacityKg
	}
	locations := make([]domain.Location, 0, len(slots))
	for _, slot := range slots {
		locations = append(locations, domain.Location{
			ID:              uuid.New().String(),
			ChamberID:       chamber.ID,
			Code:            slot.Code,
			Coordinates:     slot.Coordinates,
			MaxCapacityKg:   capacity,
			CurrentWeightKg: decimal.Zero,
		})
	}
	created, err := repos.Locations.CreateBatch(ctx, locations)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	if chamber.ChamberDimensions != dims {
		chamber.ChamberDimensions = dims
		if _, err := repos.Chambers.Update(ctx, chamber); err != nil {
			return domain.GenerationResult{}, err
		}
	}

	return domain.GenerationResult{
		ChamberID:  chamber.ID,
		Dimensions: dims,
		Total:      len(slots),
		Created:    created,
		Removed:    removed,
		Recoded:    recoded,
	}, nil
}

// GetLocation busca uma localização pelo ID.
func (s *Service) GetLocation(ctx context.Context, id string) (domain.Location, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Location{}, apperror.NewValidationError("O ID da localização deve ser um UUID válido.")
	}
	return s.store.Locations().FindByID(ctx, id)
}

// ListByChamber lista as localizações da câmara em ordem de coordenadas.
func (s *Service) ListByChamber(ctx context.Context, chamberID string) ([]domain.Location, error) {
	if _, err := s.store.Chambers().FindByID(ctx, chamberID); err != nil {
		return nil, err
	}
	return s.store.Locations().FindByChamber(ctx, chamberID)
}

// FindAvailable lista localizações livres (ou do próprio produto, com folga) em
// ordem ascendente de coordenadas.
func (s *Service) FindAvailable(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error) {
	if filter.MinCapacityKg.IsNegative() {
		return nil, apperror.NewValidationError("a capacidade mínima não pode ser negativa.")
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	return s.store.Locations().FindAvailable(ctx, filter)
}
