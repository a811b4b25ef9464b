package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/cache"
	"gosementes/internal/pkg/logger"
)

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

// CacheKey retorna a chave de cache de um produto.
func CacheKey(id string) string {
	return fmt.Sprintf(productCacheKey, id)
}

const productColumns = `id, name, seed_type_id, client_id, lot, expiration_date, status, quantity,
        weight_per_unit, location_id, created_by, version, created_at, updated_at`

// ProductRepository implementa domain.ProductRepository sobre PostgreSQL + Redis.
// Fora de transação, FindByID usa Cache-Aside. Dentro de uma transação (WithTx)
// as leituras vão direto ao banco com FOR UPDATE e as escritas são anotadas em
// onWrite para invalidação do cache após o commit.
type ProductRepository struct {
	DB        sqlx.ExtContext
	Cache     cache.Client
	CacheTTL  time.Duration
	DBTimeout time.Duration
	logger    logger.Logger

	inTx    bool
	onWrite func(id string)
}

// NewProductRepository cria o repositório não transacional.
func NewProductRepository(db *sqlx.DB, cacheClient cache.Client, cacheTTL, dbTimeout time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		CacheTTL:  cacheTTL,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia ligada à transação.
func (r *ProductRepository) WithTx(tx *sqlx.Tx, onWrite func(id string)) *ProductRepository {
	return &ProductRepository{
		DB:        tx,
		CacheTTL:  r.CacheTTL,
		DBTimeout: r.DBTimeout,
		logger:    r.logger,
		inTx:      true,
		onWrite:   onWrite,
	}
}

// Create insere um novo produto com versão 1.
func (r *ProductRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	r.logger.Debug("Iniciando Create de produto no repositório.", map[string]interface{}{"lot": product.Lot, "status": product.Status})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1

	query := `
        INSERT INTO products (` + productColumns + `)
        VALUES (:id, :name, :seed_type_id, :client_id, :lot, :expiration_date, :status, :quantity,
                :weight_per_unit, :location_id, :created_by, :version, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctxTimeout, r.DB, query, product); err != nil {
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao criar produto", err)
	}
	r.written(product.ID)

	r.logger.Info("Produto criado com sucesso.", map[string]interface{}{"id": product.ID, "status": product.Status})
	return product, nil
}

// FindByID busca um produto pelo ID.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, productNotFound(id)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := CacheKey(id)
	var product domain.Product

	// --- Cache-Aside (READ) ---
	if !r.inTx && r.Cache != nil {
		cachedData, err := r.Cache.Get(ctxTimeout, key)
		if err == nil {
			if json.Unmarshal([]byte(cachedData), &product) == nil {
				r.logger.Debug("Produto servido pelo cache.", map[string]interface{}{"id": id})
				return product, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"id": id, "error": err.Error()})
		}
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if r.inTx {
		// Serializa operações concorrentes sobre o mesmo produto.
		query += ` FOR UPDATE`
	}

	err := sqlx.GetContext(ctxTimeout, r.DB, &product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, productNotFound(id)
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao buscar produto no DB", err)
	}

	// --- Cache-Aside (WRITE) ---
	if !r.inTx && r.Cache != nil {
		if productJSON, marshalErr := json.Marshal(product); marshalErr == nil {
			if setErr := r.Cache.Set(ctxTimeout, key, productJSON, r.CacheTTL); setErr != nil {
				r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"id": id, "error": setErr.Error()})
			}
		}
	}

	return product, nil
}

// FindAll lista produtos com filtros e paginação.
func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.logger.Debug("Iniciando FindAll de produtos no repositório.", map[string]interface{}{"status": filter.Status, "chamber_id": filter.ChamberID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("p.status = $%d", filter.Status)
	}
	if filter.Lot != "" {
		add("p.lot = $%d", filter.Lot)
	}
	if filter.SeedTypeID != "" {
		add("p.seed_type_id = $%d", filter.SeedTypeID)
	}
	if filter.ChamberID != "" {
		if _, err := uuid.Parse(filter.ChamberID); err != nil {
			return []domain.Product{}, nil
		}
		add("EXISTS (SELECT 1 FROM locations l WHERE l.product_id = p.id AND l.chamber_id = $%d)", filter.ChamberID)
	}

	query := `SELECT ` + prefixed("p.", productColumns) + ` FROM products p`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	limit, offset := paginate(filter.Page, filter.Limit)
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY p.created_at, p.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	products := []domain.Product{}
	if err := sqlx.SelectContext(ctxTimeout, r.DB, &products, query, args...); err != nil {
		r.logger.Error("Falha ao listar produtos no DB.", err)
		return nil, apperror.NewDBError("Falha ao listar produtos", err)
	}
	return products, nil
}

// Update grava status/quantidade/localização com controle de concorrência otimista (OCC).
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	product.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE products
        SET status = $1, quantity = $2, location_id = $3, version = version + 1, updated_at = $4
        WHERE id = $5 AND version = $6`

	result, err := r.DB.ExecContext(ctxTimeout, query,
		product.Status,
		product.Quantity,
		product.LocationID,
		product.UpdatedAt,
		product.ID,
		product.Version, // Checa a versão antiga para OCC
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar produto.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao atualizar produto", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Falha ao verificar linhas afetadas após atualização de produto.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão do produto desatualizada.", map[string]interface{}{
			"id":               product.ID,
			"expected_version": product.Version,
		})
		return domain.Product{}, apperror.NewConflictError("O produto foi modificado por outra operação. Tente novamente.")
	}

	product.Version++
	r.written(product.ID)

	r.logger.Info("Produto atualizado com sucesso.", map[string]interface{}{
		"id":          product.ID,
		"status":      product.Status,
		"quantity":    product.Quantity,
		"new_version": product.Version,
	})
	return product, nil
}

func (r *ProductRepository) written(id string) {
	if r.onWrite != nil {
		r.onWrite(id)
	}
}

func productNotFound(id string) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func paginate(page, limit int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
