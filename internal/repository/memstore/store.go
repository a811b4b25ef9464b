// Package memstore é uma implementação em memória de domain.Store, com as mesmas
// regras de escrita condicional do PostgreSQL. Usada nos testes de serviço.
// Transações são serializadas por um único mutex.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
)

type state struct {
	products    map[string]domain.Product
	locations   map[string]domain.Location
	movements   []domain.Movement
	withdrawals map[string]domain.WithdrawalRequest
	chambers    map[string]domain.Chamber
	sequence    int64
}

func newState() *state {
	return &state{
		products:    map[string]domain.Product{},
		locations:   map[string]domain.Location{},
		withdrawals: map[string]domain.WithdrawalRequest{},
		chambers:    map[string]domain.Chamber{},
	}
}

func (s *state) clone() *state {
	c := &state{
		products:    make(map[string]domain.Product, len(s.products)),
		locations:   make(map[string]domain.Location, len(s.locations)),
		movements:   make([]domain.Movement, len(s.movements)),
		withdrawals: make(map[string]domain.WithdrawalRequest, len(s.withdrawals)),
		chambers:    make(map[string]domain.Chamber, len(s.chambers)),
		sequence:    s.sequence,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	copy(c.movements, s.movements)
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range s.chambers {
		c.chambers[k] = v
	}
	return c
}

// Store implementa domain.Store em memória.
type Store struct {
	mu     sync.RWMutex
	st     *state
	faults map[string]error
}

// New cria um store vazio.
func New() *Store {
	return &Store{st: newState(), faults: map[string]error{}}
}

// FailOn faz a próxima chamada do método informado (ex.: "Movements.Append")
// falhar com err. Simula falhas de infraestrutura.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

func (s *Store) Products() domain.ProductRepository       { return &productRepo{s.view(nil)} }
func (s *Store) Locations() domain.LocationRepository     { return &locationRepo{s.view(nil)} }
func (s *Store) Movements() domain.MovementRepository     { return &movementRepo{s.view(nil)} }
func (s *Store) Withdrawals() domain.WithdrawalRepository { return &withdrawalRepo{s.view(nil)} }
func (s *Store) Chambers() domain.ChamberRepository       { return &chamberRepo{s.view(nil)} }

// WithinTx executa fn sobre uma cópia do estado e a publica só se fn não falhar.
func (s *Store) WithinTx(ctx context.Context, fn func(repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewInternalError("contexto encerrado antes da transação", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := s.st.clone()
	v := s.view(clone)
	repos := domain.Repositories{
		Products:    &productRepo{v},
		Locations:   &locationRepo{v},
		Movements:   &movementRepo{v},
		Withdrawals: &withdrawalRepo{v},
		Chambers:    &chamberRepo{v},
	}
	if err := fn(repos); err != nil {
		return err
	}
	s.st = clone
	return nil
}

// view liga os repositórios a um estado: o global (com lock) ou o clone de uma transação.
type view struct {
	s  *Store
	tx *state
}

func (s *Store) view(tx *state) *view { return &view{s: s, tx: tx} }

func (v *view) read(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return fn(v.s.st)
}

func (v *view) write(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

// fault consome uma falha injetada. Dentro de WithinTx o lock do store já está adquirido.
func (v *view) fault(method string) error {
	if v.tx == nil {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	if err, ok := v.s.faults[method]; ok {
		delete(v.s.faults, method)
		return err
	}
	return nil
}

// --- Produtos ---

type productRepo struct{ v *view }

func (r *productRepo) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	if err := r.v.fault("Products.Create"); err != nil {
		return domain.Product{}, err
	}
	err := r.v.write(func(st *state) error {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		now := time.Now().UTC()
		p.CreatedAt, p.UpdatedAt, p.Version = now, now, 1
		st.products[p.ID] = p
		return nil
	})
	return p, err
}

func (r *productRepo) FindByID(_ context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.v.read(func(st *state) error {
		found, ok := st.products[id]
		if !ok {
			return apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
		}
		p = found
		return nil
	})
	return p, err
}

func (r *productRepo) FindAll(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.v.read(func(st *state) error {
		for _, p := range st.products {
			if f.Status != "" && p.Status != f.Status {
				continue
			}
			if f.Lot != "" && p.Lot != f.Lot {
				continue
			}
			if f.SeedTypeID != "" && p.SeedTypeID != f.SeedTypeID {
				continue
			}
			if f.ChamberID != "" && !holdsInChamber(st, p.ID, f.ChamberID) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Page, f.Limit), err
}

func (r *productRepo) Update(_ context.Context, p domain.Product) (domain.Product, error) {
	if err := r.v.fault("Products.Update"); err != nil {
		return domain.Product{}, err
	}
	err := r.v.write(func(st *state) error {
		current, ok := st.products[p.ID]
		if !ok || current.Version != p.Version {
			return apperror.NewConflictError("O produto foi modificado por outra operação. Tente novamente.")
		}
		p.Version++
		p.UpdatedAt = time.Now().UTC()
		st.products[p.ID] = p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func holdsInChamber(st *state, productID, chamberID string) bool {
	for _, l := range st.locations {
		if l.ProductID == productID && l.ChamberID == chamberID {
			return true
		}
	}
	return false
}

func page(items []domain.Product, pageNum, limit int) []domain.Product {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if pageNum <= 0 {
		pageNum = 1
	}
	start := (pageNum - 1) * limit
	if start >= len(items) {
		return []domain.Product{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- Localizações ---

type locationRepo struct{ v *view }

func (r *locationRepo) CreateBatch(_ context.Context, locs []domain.Location) (int, error) {
	created := 0
	err := r.v.write(func(st *state) error {
		existing := map[string]bool{}
		for _, l := range st.locations {
			existing[slotKey(l)] = true
		}
		now := time.Now().UTC()
		for _, l := range locs {
			key := slotKey(l)
			if existing[key] {
				continue
			}
			if l.ID == "" {
				l.ID = uuid.New().String()
			}
			l.CreatedAt, l.UpdatedAt = now, now
			l = l.Released()
			st.locations[l.ID] = l
			existing[key] = true
			created++
		}
		return nil
	})
	return created, err
}

// slotKey identifica a posição física: (câmara, quadra, lado, fila, andar).
func slotKey(l domain.Location) string {
	c := l.Coordinates
	return fmt.Sprintf("%s|%d|%d|%d|%d", l.ChamberID, c.Quadra, c.Lado, c.Fila, c.Andar)
}

func (r *locationRepo) Recode(_ context.Context, id, code string) (domain.Location, error) {
	var out domain.Location
	err := r.v.write(func(st *state) error {
		current, ok := st.locations[id]
		if !ok {
			return locationNotFound(id)
		}
		for otherID, l := range st.locations {
			if otherID != id && l.ChamberID == current.ChamberID && l.Code == code {
				return apperror.NewConflictError(fmt.Sprintf("o código %s já existe na câmara.", code))
			}
		}
		current.Code = code
		current.UpdatedAt = time.Now().UTC()
		st.locations[id] = current
		out = current
		return nil
	})
	return out, err
}

func (r *locationRepo) FindByID(_ context.Context, id string) (domain.Location, error) {
	var loc domain.Location
	err := r.v.read(func(st *state) error {
		found, ok := st.locations[id]
		if !ok {
			return locationNotFound(id)
		}
		loc = found
		return nil
	})
	return loc, err
}

func (r *locationRepo) FindByChamber(_ context.Context, chamberID string) ([]domain.Location, error) {
	return r.filter(func(l domain.Location) bool { return l.ChamberID == chamberID }, 0)
}

func (r *locationRepo) FindByProduct(_ context.Context, productID string) ([]domain.Location, error) {
	return r.filter(func(l domain.Location) bool { return l.IsOccupied && l.ProductID == productID }, 0)
}

func (r *locationRepo) FindAvailable(_ context.Context, f domain.LocationFilter) ([]domain.Location, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	return r.filter(func(l domain.Location) bool {
		if f.ChamberID != "" && l.ChamberID != f.ChamberID {
			return false
		}
		if f.After != nil && !f.After.Precedes(l) {
			return false
		}
		if !l.IsOccupied {
			return l.MaxCapacityKg.GreaterThanOrEqual(f.MinCapacityKg)
		}
		return f.ProductID != "" && l.ProductID == f.ProductID &&
			l.ResidualCapacityKg().GreaterThanOrEqual(f.MinCapacityKg)
	}, limit)
}

func (r *locationRepo) ClaimIfFree(_ context.Context, id, productID string, weightKg decimal.Decimal, quantity int) (domain.Location, error) {
	if err := r.v.fault("Locations.ClaimIfFree"); err != nil {
		return domain.Location{}, err
	}
	return r.cas(id, func(l domain.Location) (domain.Location, error) {
		if err := l.CheckClaim(weightKg); err != nil {
			return l, err
		}
		return l.Claimed(productID, weightKg, quantity), nil
	})
}

func (r *locationRepo) AdjustIfWithinCapacity(_ context.Context, id, productID string, deltaKg decimal.Decimal, deltaQty int) (domain.Location, error) {
	if err := r.v.fault("Locations.AdjustIfWithinCapacity"); err != nil {
		return domain.Location{}, err
	}
	return r.cas(id, func(l domain.Location) (domain.Location, error) {
		if err := l.CheckAdjust(productID, deltaKg, deltaQty); err != nil {
			return l, err
		}
		return l.Adjusted(deltaKg, deltaQty), nil
	})
}

func (r *locationRepo) ReleaseIfOccupant(_ context.Context, id, productID string) (domain.Location, error) {
	if err := r.v.fault("Locations.ReleaseIfOccupant"); err != nil {
		return domain.Location{}, err
	}
	return r.cas(id, func(l domain.Location) (domain.Location, error) {
		if err := l.CheckRelease(productID); err != nil {
			return l, err
		}
		return l.Released(), nil
	})
}

func (r *locationRepo) CountOccupiedOutside(_ context.Context, chamberID string, dims domain.ChamberDimensions) (int, error) {
	n := 0
	err := r.v.read(func(st *state) error {
		for _, l := range st.locations {
			if l.ChamberID == chamberID && l.IsOccupied && !dims.Contains(l.Coordinates) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *locationRepo) DeleteFreeOutside(_ context.Context, chamberID string, dims domain.ChamberDimensions) (int, error) {
	n := 0
	err := r.v.write(func(st *state) error {
		for id, l := range st.locations {
			if l.ChamberID == chamberID && !l.IsOccupied && !dims.Contains(l.Coordinates) {
				delete(st.locations, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *locationRepo) cas(id string, apply func(domain.Location) (domain.Location, error)) (domain.Location, error) {
	var out domain.Location
	err := r.v.write(func(st *state) error {
		current, ok := st.locations[id]
		if !ok {
			return locationNotFound(id)
		}
		next, err := apply(current)
		if err != nil {
			return err
		}
		next.UpdatedAt = time.Now().UTC()
		st.locations[id] = next
		out = next
		return nil
	})
	return out, err
}

func (r *locationRepo) filter(keep func(domain.Location) bool, limit int) ([]domain.Location, error) {
	out := []domain.Location{}
	err := r.v.read(func(st *state) error {
		for _, l := range st.locations {
			if keep(l) {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Precedes(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func locationNotFound(id string) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Localização com ID %s não encontrada.", id))
}

// --- Movimentações ---

type movementRepo struct{ v *view }

func (r *movementRepo) Append(_ context.Context, m domain.Movement) (domain.Movement, error) {
	if err := r.v.fault("Movements.Append"); err != nil {
		return domain.Movement{}, err
	}
	err := r.v.write(func(st *state) error {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now().UTC()
		}
		st.sequence++
		m.Sequence = st.sequence
		st.movements = append(st.movements, m)
		return nil
	})
	return m, err
}

func (r *movementRepo) FindByProduct(ctx context.Context, productID string) ([]domain.Movement, error) {
	return r.FindAll(ctx, domain.MovementFilter{ProductID: productID})
}

func (r *movementRepo) FindByLocation(ctx context.Context, locationID string) ([]domain.Movement, error) {
	return r.FindAll(ctx, domain.MovementFilter{LocationID: locationID})
}

func (r *movementRepo) FindAll(_ context.Context, f domain.MovementFilter) ([]domain.Movement, error) {
	out := []domain.Movement{}
	err := r.v.read(func(st *state) error {
		for _, m := range st.movements {
			if matchesMovement(m, f) {
				out = append(out, m)
			}
		}
		return nil
	})
	domain.SortMovements(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.Movement{}, err
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, err
}

func matchesMovement(m domain.Movement, f domain.MovementFilter) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.LocationID != "" && !ptrEquals(m.FromLocationID, f.LocationID) && !ptrEquals(m.ToLocationID, f.LocationID) {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.ActorID != "" && m.ActorID != f.ActorID {
		return false
	}
	if f.From != nil && m.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Timestamp.After(*f.To) {
		return false
	}
	return true
}

func ptrEquals(p *string, s string) bool {
	return p != nil && *p == s
}

// --- Pedidos de retirada ---

type withdrawalRepo struct{ v *view }

func (r *withdrawalRepo) Create(_ context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	if err := r.v.fault("Withdrawals.Create"); err != nil {
		return domain.WithdrawalRequest{}, err
	}
	err := r.v.write(func(st *state) error {
		for _, existing := range st.withdrawals {
			if existing.ProductID == w.ProductID && existing.Status == domain.WithdrawalPendente {
				return apperror.NewConflictError("já existe um pedido de retirada PENDENTE para este produto.")
			}
		}
		if w.ID == "" {
			w.ID = uuid.New().String()
		}
		w.CreatedAt = time.Now().UTC()
		st.withdrawals[w.ID] = w
		return nil
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	return w, nil
}

func (r *withdrawalRepo) FindByID(_ context.Context, id string) (domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	err := r.v.read(func(st *state) error {
		found, ok := st.withdrawals[id]
		if !ok {
			return apperror.NewNotFoundError(fmt.Sprintf("Pedido de retirada com ID %s não encontrado.", id))
		}
		w = found
		return nil
	})
	return w, err
}

func (r *withdrawalRepo) FindAll(_ context.Context, f domain.WithdrawalFilter) ([]domain.WithdrawalRequest, error) {
	out := []domain.WithdrawalRequest{}
	err := r.v.read(func(st *state) error {
		for _, w := range st.withdrawals {
			if f.Status != "" && w.Status != f.Status {
				continue
			}
			if f.ProductID != "" && w.ProductID != f.ProductID {
				continue
			}
			out = append(out, w)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.WithdrawalRequest{}, err
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, err
}

func (r *withdrawalRepo) Resolve(_ context.Context, w domain.WithdrawalRequest) (domain.WithdrawalRequest, error) {
	if err := r.v.fault("Withdrawals.Resolve"); err != nil {
		return domain.WithdrawalRequest{}, err
	}
	err := r.v.write(func(st *state) error {
		current, ok := st.withdrawals[w.ID]
		if !ok || current.Status != domain.WithdrawalPendente {
			return apperror.NewConflictError("o pedido de retirada foi resolvido por outra operação.")
		}
		now := time.Now().UTC()
		current.Status = w.Status
		current.ConfirmedBy = w.ConfirmedBy
		current.CancelledBy = w.CancelledBy
		current.MovementID = w.MovementID
		current.ResolvedAt = &now
		st.withdrawals[w.ID] = current
		w = current
		return nil
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	return w, nil
}

// --- Câmaras ---

type chamberRepo struct{ v *view }

func (r *chamberRepo) Create(_ context.Context, c domain.Chamber) (domain.Chamber, error) {
	err := r.v.write(func(st *state) error {
		for _, existing := range st.chambers {
			if existing.Name == c.Name {
				return apperror.NewConflictError(fmt.Sprintf("já existe uma câmara chamada %q.", c.Name))
			}
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		now := time.Now().UTC()
		c.CreatedAt, c.UpdatedAt = now, now
		st.chambers[c.ID] = c
		return nil
	})
	if err != nil {
		return domain.Chamber{}, err
	}
	return c, nil
}

func (r *chamberRepo) FindByID(_ context.Context, id string) (domain.Chamber, error) {
	var c domain.Chamber
	err := r.v.read(func(st *state) error {
		found, ok := st.chambers[id]
		if !ok {
			return apperror.NewNotFoundError(fmt.Sprintf("Câmara com ID %s não encontrada.", id))
		}
		c = found
		return nil
	})
	return c, err
}

func (r *chamberRepo) FindAll(_ context.Context) ([]domain.Chamber, error) {
	out := []domain.Chamber{}
	err := r.v.read(func(st *state) error {
		for _, c := range st.chambers {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *chamberRepo) Update(_ context.Context, c domain.Chamber) (domain.Chamber, error) {
	err := r.v.write(func(st *state) error {
		current, ok := st.chambers[c.ID]
		if !ok {
			return apperror.NewNotFoundError(fmt.Sprintf("Câmara com ID %s não encontrada.", c.ID))
		}
		c.CreatedAt = current.CreatedAt
		c.UpdatedAt = time.Now().UTC()
		st.chambers[c.ID] = c
		return nil
	})
	if err != nil {
		return domain.Chamber{}, err
	}
	return c, nil
}

var _ domain.Store = (*Store)(nil)
