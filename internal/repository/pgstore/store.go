package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/cache"
	"gosementes/internal/pkg/logger"
	"gosementes/internal/repository/chamberrepo"
	"gosementes/internal/repository/locationrepo"
	"gosementes/internal/repository/movementrepo"
	"gosementes/internal/repository/productrepo"
	"gosementes/internal/repository/withdrawalrepo"
)

// Store é a unidade de trabalho sobre PostgreSQL.
type Store struct {
	db           *sqlx.DB
	cache        cache.Client
	cacheTimeout time.Duration
	logger       logger.Logger

	products    *productrepo.ProductRepository
	locations   *locationrepo.LocationRepository
	movements   *movementrepo.MovementRepository
	withdrawals *withdrawalrepo.WithdrawalRepository
	chambers    *chamberrepo.ChamberRepository
}

// Options agrupa os tempos limite e o TTL do cache.
type Options struct {
	DBTimeout       time.Duration
	CacheTimeout    time.Duration
	ProductCacheTTL time.Duration
}

// New monta os repositórios não transacionais sobre o pool.
func New(db *sqlx.DB, cacheClient cache.Client, opts Options, log logger.Logger) *Store {
	return &Store{
		db:           db,
		cache:        cacheClient,
		cacheTimeout: opts.CacheTimeout,
		logger:       log,
		products:     productrepo.NewProductRepository(db, cacheClient, opts.ProductCacheTTL, opts.DBTimeout, log),
		locations:    locationrepo.NewLocationRepository(db, opts.DBTimeout, log),
		movements:    movementrepo.NewMovementRepository(db, opts.DBTimeout, log),
		withdrawals:  withdrawalrepo.NewWithdrawalRepository(db, opts.DBTimeout, log),
		chambers:     chamberrepo.NewChamberRepository(db, opts.DBTimeout, log),
	}
}

func (s *Store) Products() domain.ProductRepository       { return s.products }
func (s *Store) Locations() domain.LocationRepository     { return s.locations }
func (s *Store) Movements() domain.MovementRepository     { return s.movements }
func (s *Store) Withdrawals() domain.WithdrawalRepository { return s.withdrawals }
func (s *Store) Chambers() domain.ChamberRepository       { return s.chambers }

// WithinTx executa fn numa transação READ COMMITTED. Qualquer erro (ou panic) de fn
// desfaz tudo; depois do commit, as chaves de cache dos produtos gravados são removidas.
func (s *Store) WithinTx(ctx context.Context, fn func(repos domain.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.Error("Falha ao iniciar transação.", err)
		return apperror.NewDBError("Falha ao iniciar transação", err)
	}

	dirty := map[string]struct{}{}
	repos := domain.Repositories{
		Products:    s.products.WithTx(tx, func(id string) { dirty[id] = struct{}{} }),
		Locations:   s.locations.WithTx(tx),
		Movements:   s.movements.WithTx(tx),
		Withdrawals: s.withdrawals.WithTx(tx),
		Chambers:    s.chambers.WithTx(tx),
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			err = apperror.NewInternalError(fmt.Sprintf("panic na transação: %v", p), nil)
			s.logger.Error("Transação abortada por panic.", err)
		}
	}()

	if err = fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Falha no rollback da transação.", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Falha ao commitar transação.", err)
		return apperror.NewDBError("Falha ao commitar transação", err)
	}

	s.invalidate(ctx, dirty)
	return nil
}

func (s *Store) invalidate(ctx context.Context, ids map[string]struct{}) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for id := range ids {
		keys = append(keys, productrepo.CacheKey(id))
	}

	ctxTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cacheTimeout)
	defer cancel()
	if err := s.cache.Delete(ctxTimeout, keys...); err != nil {
		s.logger.Warn("Falha ao invalidar cache de produtos.", map[string]interface{}{"keys": keys, "error": err.Error()})
	}
}

var _ domain.Store = (*Store)(nil)
