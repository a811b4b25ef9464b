package movementrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
)

const movementColumns = `id, sequence, type, product_id, actor_id, from_location_id, to_location_id,
        quantity, weight, reason, status_after, location_after, timestamp`

// MovementRepository é o livro de movimentações. Não há UPDATE nem DELETE aqui.
type MovementRepository struct {
	DB        sqlx.ExtContext
	DBTimeout time.Duration
	logger    logger.Logger
}

func NewMovementRepository(db sqlx.ExtContext, dbTimeout time.Duration, logger logger.Logger) *MovementRepository {
	return &MovementRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia ligada à transação.
func (r *MovementRepository) WithTx(tx *sqlx.Tx) *MovementRepository {
	return NewMovementRepository(tx, r.DBTimeout, r.logger)
}

// Append grava a movimentação; sequence vem do bigserial do banco.
func (r *MovementRepository) Append(ctx context.Context, movement domain.Movement) (domain.Movement, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	if movement.Timestamp.IsZero() {
		movement.Timestamp = time.Now().UTC()
	}

	query := `
        INSERT INTO movements (id, type, product_id, actor_id, from_location_id, to_location_id,
                               quantity, weight, reason, status_after, location_after, timestamp)
        VALUES (:id, :type, :product_id, :actor_id, :from_location_id, :to_location_id,
                :quantity, :weight, :reason, :status_after, :location_after, :timestamp)
        RETURNING sequence`

	rows, err := sqlx.NamedQueryContext(ctxTimeout, r.DB, query, movement)
	if err != nil {
		r.logger.Error("Falha ao gravar movimentação.", err)
		return domain.Movement{}, apperror.NewDBError("Falha ao gravar movimentação", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&movement.Sequence); err != nil {
			return domain.Movement{}, apperror.NewDBError("Falha ao ler sequência da movimentação", err)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Movement{}, apperror.NewDBError("Falha ao gravar movimentação", err)
	}

	r.logger.Debug("Movimentação gravada.", map[string]interface{}{
		"id":         movement.ID,
		"type":       movement.Type,
		"product_id": movement.ProductID,
		"sequence":   movement.Sequence,
	})
	return movement, nil
}

func (r *MovementRepository) FindByProduct(ctx context.Context, productID string) ([]domain.Movement, error) {
	return r.FindAll(ctx, domain.MovementFilter{ProductID: productID})
}

func (r *MovementRepository) FindByLocation(ctx context.Context, locationID string) ([]domain.Movement, error) {
	return r.FindAll(ctx, domain.MovementFilter{LocationID: locationID})
}

// FindAll consulta o livro em ordem (timestamp, sequence).
func (r *MovementRepository) FindAll(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProductID != "" {
		if _, err := uuid.Parse(filter.ProductID); err != nil {
			return []domain.Movement{}, nil
		}
		where = append(where, "product_id = "+arg(filter.ProductID))
	}
	if filter.LocationID != "" {
		if _, err := uuid.Parse(filter.LocationID); err != nil {
			return []domain.Movement{}, nil
		}
		p := arg(filter.LocationID)
		where = append(where, fmt.Sprintf("(from_location_id = %s OR to_location_id = %s)", p, p))
	}
	if filter.Type != "" {
		where = append(where, "type = "+arg(filter.Type))
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = "+arg(filter.ActorID))
	}
	if filter.From != nil {
		where = append(where, "timestamp >= "+arg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "timestamp <= "+arg(*filter.To))
	}

	query := `SELECT ` + movementColumns + ` FROM movements`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY timestamp, sequence`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	movements := []domain.Movement{}
	if err := sqlx.SelectContext(ctxTimeout, r.DB, &movements, query, args...); err != nil {
		r.logger.Error("Falha ao consultar movimentações.", err)
		return nil, apperror.NewDBError("Falha ao consultar movimentações", err)
	}
	return movements, nil
}
