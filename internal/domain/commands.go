package domain

// Payloads das operações da máquina de estados. As tags são validadas na borda HTTP;
// os serviços repetem as regras que dependem de estado.

type LocateRequest struct {
	LocationID string `json:"location_id" validate:"required"`
}

type LocateOptimalRequest struct {
	ChamberID string `json:"chamber_id" validate:"required"`
}

// MoveRequest move toda a alocação de origem (padrão: a primária) para o destino.
type MoveRequest struct {
	ToLocationID   string `json:"to_location_id" validate:"required"`
	FromLocationID string `json:"from_location_id"`
	Reason         string `json:"reason" validate:"max=500"`
}

type PartialMoveRequest struct {
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	ToLocationID   string `json:"to_location_id" validate:"required"`
	FromLocationID string `json:"from_location_id"`
	Reason         string `json:"reason" validate:"max=500"`
}

type AddStockRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"max=500"`
}

// PartialExitRequest sem FromLocationID percorre as alocações a partir da primária.
type PartialExitRequest struct {
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	FromLocationID string `json:"from_location_id"`
	Reason         string `json:"reason" validate:"required,max=500"`
}

type RemoveRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
