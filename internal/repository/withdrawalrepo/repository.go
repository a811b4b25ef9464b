package withdrawalrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/database"
	"gosementes/internal/pkg/logger"
)

const withdrawalColumns = `id, product_id, type, requested_quantity, from_location_id, reason, status,
        requested_by, confirmed_by, cancelled_by, movement_id, created_at, resolved_at`

const pendingConstraint = "uq_withdrawal_pending"

// WithdrawalRepository persiste pedidos de retirada. O índice único parcial
// uq_withdrawal_pending garante no máximo um PENDENTE por produto.
type WithdrawalRepository struct {
	DB        sqlx.ExtContext
	DBTimeout time.Duration
	logger    logger.Logger
}

func NewWithdrawalRepository(db sqlx.ExtContext, dbTimeout time.Duration, logger logger.Logger) *WithdrawalRepository {
	return &WithdrawalRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia ligada à transação.
func (r *WithdrawalRepository) WithTx(tx *sqlx.Tx) *WithdrawalRepository {
	return NewWithdrawalRepository(tx, r.DBTimeout, r.logger)
}

func (r *WithdrawalRepository) Create(ctx context.Context, request domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	r.logger.Debug("Iniciando Create de pedido de retirada.", map[string]interface{}{"product_id": request.ProductID, "type": request.Type})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	request.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO withdrawal_requests (` + withdrawalColumns + `)
        VALUES (:id, :product_id, :type, :requested_quantity, :from_location_id, :reason, :status,
                :requested_by, :confirmed_by, :cancelled_by, :movement_id, :created_at, :resolved_at)`

	if _, err := sqlx.NamedExecContext(ctxTimeout, r.DB, query, request); err != nil {
		switch {
		case database.IsUniqueViolation(err) && database.ConstraintName(err) == pendingConstraint:
			r.logger.Warn("Já existe pedido de retirada pendente para o produto.", map[string]interface{}{"product_id": request.ProductID})
			return domain.WithdrawalRequest{}, apperror.NewConflictError("já existe um pedido de retirada PENDENTE para este produto.")
		case database.IsForeignKeyViolation(err):
			return domain.WithdrawalRequest{}, apperror.NewNotFoundError(
				fmt.Sprintf("Produto com ID %s não existe na base de dados.", request.ProductID))
		}
		r.logger.Error("Falha ao inserir pedido de retirada.", err)
		return domain.WithdrawalRequest{}, apperror.NewDBError("Falha ao criar pedido de retirada", err)
	}

	r.logger.Info("Pedido de retirada criado.", map[string]interface{}{"id": request.ID, "product_id": request.ProductID})
	return request, nil
}

func (r *WithdrawalRepository) FindByID(ctx context.Context, id string) (domain.WithdrawalRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.WithdrawalRequest{}, notFound(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var request domain.WithdrawalRequest
	err := sqlx.GetContext(ctxTimeout, r.DB, &request, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WithdrawalRequest{}, notFound(id)
	}
	if err != nil {
		r.logger.Error("Falha ao buscar pedido de retirada.", err)
		return domain.WithdrawalRequest{}, apperror.NewDBError("Falha ao buscar pedido de retirada", err)
	}
	return request, nil
}

func (r *WithdrawalRepository) FindAll(ctx context.Context, filter domain.WithdrawalFilter) ([]domain.WithdrawalRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ProductID != "" {
		if _, err := uuid.Parse(filter.ProductID); err != nil {
			return []domain.WithdrawalRequest{}, nil
		}
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	requests := []domain.WithdrawalRequest{}
	if err := sqlx.SelectContext(ctxTimeout, r.DB, &requests, query, args...); err != nil {
		r.logger.Error("Falha ao listar pedidos de retirada.", err)
		return nil, apperror.NewDBError("Falha ao listar pedidos de retirada", err)
	}
	return requests, nil
}

// Resolve grava CONFIRMADO/CANCELADO somente se o pedido ainda estiver PENDENTE.
func (r *WithdrawalRepository) Resolve(ctx context.Context, request domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	now := time.Now().UTC()
	request.ResolvedAt = &now

	result, err := r.DB.ExecContext(ctxTimeout, `
        UPDATE withdrawal_requests
        SET status = $2, confirmed_by = $3, cancelled_by = $4, movement_id = $5, resolved_at = $6
        WHERE id = $1 AND status = 'PENDENTE'`,
		request.ID, request.Status, request.ConfirmedBy, request.CancelledBy, request.MovementID, request.ResolvedAt)
	if err != nil {
		r.logger.Error("Falha ao resolver pedido de retirada.", err)
		return domain.WithdrawalRequest{}, apperror.NewDBError("Falha ao resolver pedido de retirada", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return domain.WithdrawalRequest{}, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if n == 0 {
		r.logger.Warn("Pedido de retirada já resolvido por outra operação.", map[string]interface{}{"id": request.ID})
		return domain.WithdrawalRequest{}, apperror.NewConflictError("o pedido de retirada foi resolvido por outra operação.")
	}

	r.logger.Info("Pedido de retirada resolvido.", map[string]interface{}{"id": request.ID, "status": request.Status})
	return request, nil
}

func notFound(id string) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Pedido de retirada com ID %s não encontrado.", id))
}
