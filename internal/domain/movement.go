package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifica um evento físico de estoque.
type MovementType string

const (
	MovementEntry           MovementType = "entry"
	MovementExit            MovementType = "exit"
	MovementTransfer        MovementType = "transfer"
	MovementPartialTransfer MovementType = "partial-transfer"
	MovementStockAdd        MovementType = "stock-add"
)

// Movement é um registro imutável da trilha de auditoria. StatusAfter e
// LocationAfter guardam o estado do produto após o evento, para replay.
type Movement struct {
	ID             string          `json:"id" db:"id"`
	Sequence       int64           `json:"sequence" db:"sequence"`
	Type           MovementType    `json:"type" db:"type"`
	ProductID      string          `json:"product_id" db:"product_id"`
	ActorID        string          `json:"actor_id" db:"actor_id"`
	FromLocationID *string         `json:"from_location_id,omitempty" db:"from_location_id"`
	ToLocationID   *string         `json:"to_location_id,omitempty" db:"to_location_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	Weight         decimal.Decimal `json:"weight" db:"weight"`
	Reason         string          `json:"reason" db:"reason"`
	StatusAfter    ProductStatus   `json:"status_after" db:"status_after"`
	LocationAfter  *string         `json:"location_after,omitempty" db:"location_after"`
	Timestamp      time.Time       `json:"timestamp" db:"timestamp"`
}

// MovementFilter parametriza consultas ao livro de movimentações.
type MovementFilter struct {
	Type       MovementType
	ActorID    string
	ProductID  string
	LocationID string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// SortMovements ordena por (timestamp, sequence).
func SortMovements(movs []Movement) {
	sort.SliceStable(movs, func(i, j int) bool {
		if !movs[i].Timestamp.Equal(movs[j].Timestamp) {
			return movs[i].Timestamp.Before(movs[j].Timestamp)
		}
		return movs[i].Sequence < movs[j].Sequence
	})
}

// ProductSnapshot é o estado de um produto reconstruído a partir do livro.
type ProductSnapshot struct {
	Status      ProductStatus  `json:"status"`
	LocationID  *string        `json:"location_id,omitempty"`
	Quantity    int            `json:"quantity"`
	Allocations map[string]int `json:"allocations"`
}

// Replay dobra as movimentações (em ordem) em um snapshot do produto.
func Replay(movs []Movement) ProductSnapshot {
	ordered := make([]Movement, len(movs))
	copy(ordered, movs)
	SortMovements(ordered)

	snap := ProductSnapshot{Allocations: map[string]int{}}
	for _, m := range ordered {
		switch m.Type {
		case MovementEntry, MovementStockAdd:
			snap.Quantity += m.Quantity
			if m.ToLocationID != nil {
				snap.Allocations[*m.ToLocationID] += m.Quantity
			}
		case MovementTransfer, MovementPartialTransfer:
			if m.FromLocationID != nil {
				take(snap.Allocations, *m.FromLocationID, m.Quantity)
			}
			if m.ToLocationID != nil {
				snap.Allocations[*m.ToLocationID] += m.Quantity
			}
		case MovementExit:
			snap.Quantity -= m.Quantity
			if m.StatusAfter.IsTerminal() {
				// Saída terminal libera todas as alocações.
				snap.Allocations = map[string]int{}
			} else if m.FromLocationID != nil {
				take(snap.Allocations, *m.FromLocationID, m.Quantity)
			}
		}
		snap.Status = m.StatusAfter
		snap.LocationID = m.LocationAfter
	}
	return snap
}

func take(alloc map[string]int, locationID string, qty int) {
	alloc[locationID] -= qty
	if alloc[locationID] <= 0 {
		delete(alloc, locationID)
	}
}
