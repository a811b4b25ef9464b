package chamberrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/database"
	"gosementes/internal/pkg/logger"
)

const chamberColumns = `id, name, quadras, lados, filas, andares, location_capacity_kg,
        temperature, humidity, created_at, updated_at`

// ChamberRepository implementa as operações de persistência de câmaras.
type ChamberRepository struct {
	DB        sqlx.ExtContext
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewChamberRepository cria e retorna uma nova instância do Repositório de Câmaras.
func NewChamberRepository(db sqlx.ExtContext, dbTimeout time.Duration, logger logger.Logger) *ChamberRepository {
	return &ChamberRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia ligada à transação.
func (r *ChamberRepository) WithTx(tx *sqlx.Tx) *ChamberRepository {
	return NewChamberRepository(tx, r.DBTimeout, r.logger)
}

// Create insere uma nova câmara no banco de dados.
func (r *ChamberRepository) Create(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error) {
	r.logger.Debug("Iniciando Create de câmara no repositório.", map[string]interface{}{"name": chamber.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if chamber.ID == "" {
		chamber.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	chamber.CreatedAt = now
	chamber.UpdatedAt = now

	query := `
        INSERT INTO chambers (` + chamberColumns + `)
        VALUES (:id, :name, :quadras, :lados, :filas, :andares, :location_capacity_kg,
                :temperature, :humidity, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctxTimeout, r.DB, query, chamber); err != nil {
		if database.IsUniqueViolation(err) {
			r.logger.Warn("Nome de câmara duplicado.", map[string]interface{}{"name": chamber.Name})
			return domain.Chamber{}, apperror.NewConflictError(fmt.Sprintf("já existe uma câmara chamada %q.", chamber.Name))
		}
		r.logger.Error("Falha ao inserir câmara no DB.", err)
		return domain.Chamber{}, apperror.NewDBError("Falha ao criar câmara", err)
	}

	r.logger.Info("Câmara criada com sucesso.", map[string]interface{}{"id": chamber.ID, "name": chamber.Name})
	return chamber, nil
}

// FindByID busca uma câmara pelo ID.
func (r *ChamberRepository) FindByID(ctx context.Context, id string) (domain.Chamber, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Chamber{}, notFound(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var chamber domain.Chamber
	err := sqlx.GetContext(ctxTimeout, r.DB, &chamber, `SELECT `+chamberColumns+` FROM chambers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Câmara não encontrada.", map[string]interface{}{"id": id})
		return domain.Chamber{}, notFound(id)
	}
	if err != nil {
		r.logger.Error("Falha ao buscar câmara no DB.", err)
		return domain.Chamber{}, apperror.NewDBError("Falha ao buscar câmara", err)
	}
	return chamber, nil
}

// FindAll busca todas as câmaras.
func (r *ChamberRepository) FindAll(ctx context.Context) ([]domain.Chamber, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	chambers := []domain.Chamber{}
	if err := sqlx.SelectContext(ctxTimeout, r.DB, &chambers, `SELECT `+chamberColumns+` FROM chambers ORDER BY name`); err != nil {
		r.logger.Error("Falha ao listar câmaras.", err)
		return nil, apperror.NewDBError("Falha ao buscar todas as câmaras", err)
	}

	r.logger.Info("FindAll de câmaras concluído com sucesso.", map[string]interface{}{"total_chambers": len(chambers)})
	return chambers, nil
}

// Update grava nome, dimensões, capacidade e condições da câmara.
func (r *ChamberRepository) Update(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error) {
	r.logger.Debug("Iniciando Update de câmara no repositório.", map[string]interface{}{"id": chamber.ID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	chamber.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE chambers
        SET name = $1, quadras = $2, lados = $3, filas = $4, andares = $5, location_capacity_kg = $6,
            temperature = $7, humidity = $8, updated_at = $9
        WHERE id = $10
        RETURNING ` + chamberColumns

	var updated domain.Chamber
	err := sqlx.GetContext(ctxTimeout, r.DB, &updated, query,
		chamber.Name, chamber.Quadras, chamber.Lados, chamber.Filas, chamber.Andares, chamber.LocationCapacityKg,
		chamber.Temperature, chamber.Humidity, chamber.UpdatedAt, chamber.ID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Câmara não encontrada para atualização.", map[string]interface{}{"id": chamber.ID})
		return domain.Chamber{}, notFound(chamber.ID)
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar câmara no DB.", err)
		return domain.Chamber{}, apperror.NewDBError("Falha ao atualizar câmara", err)
	}

	r.logger.Info("Câmara atualizada com sucesso.", map[string]interface{}{"id": updated.ID, "name": updated.Name})
	return updated, nil
}

func notFound(id string) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Câmara com ID %s não encontrada.", id))
}
