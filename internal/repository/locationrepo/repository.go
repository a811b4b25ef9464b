package locationrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/database"
	"gosementes/internal/pkg/logger"
)

const locationColumns = `id, chamber_id, code, quadra, lado, fila, andar, max_capacity_kg, current_weight_kg,
        is_occupied, COALESCE(product_id::text, '') AS product_id, stored_quantity, created_at, updated_at`

// insertBatchSize mantém cada INSERT abaixo do limite de 65535 parâmetros do PostgreSQL.
const insertBatchSize = 1000

// LocationRepository implementa domain.LocationRepository. Ocupação e peso só mudam
// por UPDATEs condicionais de uma única instrução (compare-and-swap).
type LocationRepository struct {
	DB        sqlx.ExtContext
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewLocationRepository cria e retorna uma nova instância do Repositório de Localizações.
func NewLocationRepository(db sqlx.ExtContext, dbTimeout time.Duration, logger logger.Logger) *LocationRepository {
	return &LocationRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia ligada à transação.
func (r *LocationRepository) WithTx(tx *sqlx.Tx) *LocationRepository {
	return NewLocationRepository(tx, r.DBTimeout, r.logger)
}

// CreateBatch insere as localizações, ignorando coordenadas já existentes na câmara.
func (r *LocationRepository) CreateBatch(ctx context.Context, locations []domain.Location) (int, error) {
	r.logger.Debug("Iniciando CreateBatch de localizações.", map[string]interface{}{"count": len(locations)})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	now := time.Now().UTC()
	for i := range locations {
		if locations[i].ID == "" {
			locations[i].ID = uuid.New().String()
		}
		locations[i].CreatedAt = now
		locations[i].UpdatedAt = now
	}

	query := `
        INSERT INTO locations (id, chamber_id, code, quadra, lado, fila, andar, max_capacity_kg,
                               current_weight_kg, is_occupied, stored_quantity, created_at, updated_at)
        VALUES (:id, :chamber_id, :code, :quadra, :lado, :fila, :andar, :max_capacity_kg,
                0, false, 0, :created_at, :updated_at)
        ON CONFLICT (chamber_id, quadra, lado, fila, andar) DO NOTHING`

	created := 0
	for start := 0; start < len(locations); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(locations) {
			end = len(locations)
		}

		result, err := sqlx.NamedExecContext(ctxTimeout, r.DB, query, locations[start:end])
		if err != nil {
			r.logger.Error("Falha ao inserir lote de localizações.", err)
			return 0, apperror.NewDBError("Falha ao gerar localizações", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
		}
		created += int(n)
	}

	r.logger.Info("Lote de localizações inserido.", map[string]interface{}{"requested": len(locations), "created": created})
	return created, nil
}

// Recode troca o código de uma localização existente.
func (r *LocationRepository) Recode(ctx context.Context, id, code string) (domain.Location, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Location{}, notFound(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var loc domain.Location
	err := sqlx.GetContext(ctxTimeout, r.DB, &loc, `
        UPDATE locations SET code = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+locationColumns, id, code, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, notFound(id)
	}
	if database.IsUniqueViolation(err) {
		return domain.Location{}, apperror.NewConflictError(fmt.Sprintf("o código %s já existe na câmara.", code))
	}
	if err != nil {
		r.logger.Error("Falha ao recodificar localização.", err)
		return domain.Location{}, apperror.NewDBError("Falha ao recodificar localização", err)
	}
	return loc, nil
}

// FindByID busca uma localização pelo ID.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (domain.Location, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Location{}, notFound(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var loc domain.Location
	err := sqlx.GetContext(ctxTimeout, r.DB, &loc, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, notFound(id)
	}
	if err != nil {
		r.logger.Error("Falha ao buscar localização no DB.", err)
		return domain.Location{}, apperror.NewDBError("Falha ao buscar localização", err)
	}
	return loc, nil
}

// FindByChamber lista as localizações de uma câmara em ordem de coordenadas.
func (r *LocationRepository) FindByChamber(ctx context.Context, chamberID string) ([]domain.Location, error) {
	if _, err := uuid.Parse(chamberID); err != nil {
		return []domain.Location{}, nil
	}
	return r.selectLocations(ctx, `SELECT `+locationColumns+` FROM locations
        WHERE chamber_id = $1 ORDER BY quadra, lado, fila, andar`, chamberID)
}

// FindByProduct lista as alocações de um produto em ordem de coordenadas.
func (r *LocationRepository) FindByProduct(ctx context.Context, productID string) ([]domain.Location, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return []domain.Location{}, nil
	}
	return r.selectLocations(ctx, `SELECT `+locationColumns+` FROM locations
        WHERE product_id = $1 ORDER BY chamber_id, quadra, lado, fila, andar`, productID)
}

// FindAvailable retorna localizações livres (ou do próprio produto, com folga) em ordem
// ascendente de coordenadas, para que a busca automática seja reproduzível.
func (r *LocationRepository) FindAvailable(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ChamberID != "" {
		if _, err := uuid.Parse(filter.ChamberID); err != nil {
			return []domain.Location{}, nil
		}
		where = append(where, "chamber_id = "+arg(filter.ChamberID))
	}
	if filter.After != nil {
		c := filter.After.Coordinates
		where = append(where, fmt.Sprintf("(chamber_id, quadra, lado, fila, andar) > (%s, %s, %s, %s, %s)",
			arg(filter.After.ChamberID), arg(c.Quadra), arg(c.Lado), arg(c.Fila), arg(c.Andar)))
	}

	minCapacity := arg(filter.MinCapacityKg)
	avail := fmt.Sprintf("(is_occupied = false AND max_capacity_kg >= %s)", minCapacity)
	if filter.ProductID != "" {
		if _, err := uuid.Parse(filter.ProductID); err != nil {
			return []domain.Location{}, nil
		}
		avail = fmt.Sprintf("(%s OR (product_id = %s AND max_capacity_kg - current_weight_kg >= %s))",
			avail, arg(filter.ProductID), minCapacity)
	}
	where = append(where, avail)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + locationColumns + ` FROM locations WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY chamber_id, quadra, lado, fila, andar LIMIT ` + arg(limit)

	return r.selectLocations(ctx, query, args...)
}

// ClaimIfFree ocupa a localização somente se ela estiver livre e comportar o peso.
func (r *LocationRepository) ClaimIfFree(ctx context.Context, id, productID string, weightKg decimal.Decimal, quantity int) (domain.Location, error) {
	r.logger.Debug("Tentando reivindicar localização.", map[string]interface{}{"location_id": id, "product_id": productID, "weight_kg": weightKg.String()})

	if !weightKg.IsPositive() {
		return domain.Location{}, apperror.NewValidationError("o peso reivindicado deve ser maior que zero.")
	}

	query := `
        UPDATE locations
        SET is_occupied = true, product_id = $2, current_weight_kg = $3, stored_quantity = $4, updated_at = $5
        WHERE id = $1 AND is_occupied = false AND max_capacity_kg >= $3
        RETURNING ` + locationColumns

	loc, err := r.conditional(ctx, id, query, id, productID, weightKg, quantity, time.Now().UTC())
	if err != nil {
		return domain.Location{}, err
	}
	if loc != nil {
		return *loc, nil
	}
	return domain.Location{}, r.diagnose(ctx, id, func(current domain.Location) error {
		return current.CheckClaim(weightKg)
	})
}

// AdjustIfWithinCapacity soma deltaKg/deltaQty a uma localização ocupada pelo produto,
// somente se o peso resultante ficar em [0, max_capacity_kg].
func (r *LocationRepository) AdjustIfWithinCapacity(ctx context.Context, id, productID string, deltaKg decimal.Decimal, deltaQty int) (domain.Location, error) {
	r.logger.Debug("Ajustando peso da localização.", map[string]interface{}{"location_id": id, "delta_kg": deltaKg.String(), "delta_qty": deltaQty})

	query := `
        UPDATE locations
        SET current_weight_kg = current_weight_kg + $3, stored_quantity = stored_quantity + $4, updated_at = $5
        WHERE id = $1 AND is_occupied = true AND product_id = $2
          AND current_weight_kg + $3 BETWEEN 0 AND max_capacity_kg
          AND stored_quantity + $4 >= 0
        RETURNING ` + locationColumns

	loc, err := r.conditional(ctx, id, query, id, productID, deltaKg, deltaQty, time.Now().UTC())
	if err != nil {
		return domain.Location{}, err
	}
	if loc != nil {
		return *loc, nil
	}
	return domain.Location{}, r.diagnose(ctx, id, func(current domain.Location) error {
		return current.CheckAdjust(productID, deltaKg, deltaQty)
	})
}

// ReleaseIfOccupant libera a localização somente se o produto for o ocupante atual.
func (r *LocationRepository) ReleaseIfOccupant(ctx context.Context, id, productID string) (domain.Location, error) {
	r.logger.Debug("Liberando localização.", map[string]interface{}{"location_id": id, "product_id": productID})

	query := `
        UPDATE locations
        SET is_occupied = false, product_id = NULL, current_weight_kg = 0, stored_quantity = 0, updated_at = $3
        WHERE id = $1 AND is_occupied = true AND product_id = $2
        RETURNING ` + locationColumns

	loc, err := r.conditional(ctx, id, query, id, productID, time.Now().UTC())
	if err != nil {
		return domain.Location{}, err
	}
	if loc != nil {
		return *loc, nil
	}
	return domain.Location{}, r.diagnose(ctx, id, func(current domain.Location) error {
		return current.CheckRelease(productID)
	})
}

// CountOccupiedOutside conta as localizações ocupadas fora das novas dimensões.
func (r *LocationRepository) CountOccupiedOutside(ctx context.Context, chamberID string, dims domain.ChamberDimensions) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var n int
	err := sqlx.GetContext(ctxTimeout, r.DB, &n, `
        SELECT COUNT(*) FROM locations
        WHERE chamber_id = $1 AND is_occupied = true
          AND (quadra > $2 OR lado > $3 OR fila > $4 OR andar > $5)`,
		chamberID, dims.Quadras, dims.Lados, dims.Filas, dims.Andares)
	if err != nil {
		r.logger.Error("Falha ao contar localizações ocupadas.", err)
		return 0, apperror.NewDBError("Falha ao contar localizações ocupadas", err)
	}
	return n, nil
}

// DeleteFreeOutside remove as localizações livres fora das novas dimensões.
func (r *LocationRepository) DeleteFreeOutside(ctx context.Context, chamberID string, dims domain.ChamberDimensions) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `
        DELETE FROM locations
        WHERE chamber_id = $1 AND is_occupied = false
          AND (quadra > $2 OR lado > $3 OR fila > $4 OR andar > $5)`,
		chamberID, dims.Quadras, dims.Lados, dims.Filas, dims.Andares)
	if err != nil {
		r.logger.Error("Falha ao remover localizações fora das dimensões.", err)
		return 0, apperror.NewDBError("Falha ao remover localizações", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if n > 0 {
		r.logger.Info("Localizações fora das dimensões removidas.", map[string]interface{}{"chamber_id": chamberID, "removed": n})
	}
	return int(n), nil
}

// conditional executa um UPDATE ... RETURNING. Retorna nil quando nenhuma linha casou.
func (r *LocationRepository) conditional(ctx context.Context, id, query string, args ...interface{}) (*domain.Location, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var loc domain.Location
	err := sqlx.GetContext(ctxTimeout, r.DB, &loc, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Falha na escrita condicional da localização.", err)
		return nil, apperror.NewDBError("Falha ao atualizar localização", err)
	}
	return &loc, nil
}

// diagnose relê a linha para explicar por que a escrita condicional não casou.
func (r *LocationRepository) diagnose(ctx context.Context, id string, check func(domain.Location) error) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := check(current); err != nil {
		r.logger.Warn("Escrita condicional rejeitada.", map[string]interface{}{"location_id": id, "reason": err.Error()})
		return err
	}
	// O estado mudou entre o UPDATE e a releitura: outra operação venceu a corrida.
	return apperror.NewLocationOccupiedError(id, "a localização foi alterada por outra operação.")
}

func (r *LocationRepository) selectLocations(ctx context.Context, query string, args ...interface{}) ([]domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	locations := []domain.Location{}
	if err := sqlx.SelectContext(ctxTimeout, r.DB, &locations, query, args...); err != nil {
		r.logger.Error("Falha ao listar localizações no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar localizações", err)
	}
	return locations, nil
}

func notFound(id string) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Localização com ID %s não encontrada.", id))
}
