package domain

import (
	"time"

	apperror "gosementes/internal/errors"
)

type WithdrawalType string

const (
	WithdrawalTotal   WithdrawalType = "TOTAL"
	WithdrawalParcial WithdrawalType = "PARCIAL"
)

type WithdrawalStatus string

const (
	WithdrawalPendente   WithdrawalStatus = "PENDENTE"
	WithdrawalConfirmado WithdrawalStatus = "CONFIRMADO"
	WithdrawalCancelado  WithdrawalStatus = "CANCELADO"
)

// WithdrawalRequest é o pedido de retirada em duas fases (admin solicita, operador confirma).
type WithdrawalRequest struct {
	ID                string           `json:"id" db:"id"`
	ProductID         string           `json:"product_id" db:"product_id"`
	Type              WithdrawalType   `json:"type" db:"type"`
	RequestedQuantity int              `json:"requested_quantity" db:"requested_quantity"`
	FromLocationID    *string          `json:"from_location_id,omitempty" db:"from_location_id"`
	Reason            string           `json:"reason" db:"reason"`
	Status            WithdrawalStatus `json:"status" db:"status"`
	RequestedBy       string           `json:"requested_by" db:"requested_by"`
	ConfirmedBy       *string          `json:"confirmed_by,omitempty" db:"confirmed_by"`
	CancelledBy       *string          `json:"cancelled_by,omitempty" db:"cancelled_by"`
	MovementID        *string          `json:"movement_id,omitempty" db:"movement_id"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
}

// CheckPending garante que o pedido ainda pode ser resolvido (uma única vez).
func (w WithdrawalRequest) CheckPending(event Operation) error {
	if w.Status != WithdrawalPendente {
		return apperror.NewInvalidStateTransitionError(string(w.Status), string(event),
			"o pedido de retirada já foi resolvido.")
	}
	return nil
}

// WithdrawalCreate é o payload de solicitação de retirada.
type WithdrawalCreate struct {
	ProductID string         `json:"product_id" validate:"required"`
	Type      WithdrawalType `json:"type" validate:"required,oneof=TOTAL PARCIAL"`
	Quantity  int            `json:"quantity" validate:"required_if=Type PARCIAL,gte=0"`
	Reason    string         `json:"reason" validate:"max=500"`
}

// WithdrawalFilter parametriza a listagem de pedidos.
type WithdrawalFilter struct {
	Status    WithdrawalStatus
	ProductID string
	Limit     int
	Offset    int
}
