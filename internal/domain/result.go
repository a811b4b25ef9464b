package domain

// OperationResult é o retorno de toda operação que muda estado: o produto
// atualizado, as movimentações criadas (se houver) e as localizações tocadas.
// Movement aponta para a primeira delas; uma saída parcial que consome várias
// alocações grava uma movimentação por alocação.
type OperationResult struct {
	Product    Product            `json:"product"`
	Movement   *Movement          `json:"movement,omitempty"`
	Movements  []Movement         `json:"movements,omitempty"`
	Locations  []Location         `json:"locations,omitempty"`
	Withdrawal *WithdrawalRequest `json:"withdrawal,omitempty"`
}

// ReplayReport compara o snapshot reconstruído com o produto armazenado.
type ReplayReport struct {
	ProductID  string          `json:"product_id"`
	Movements  int             `json:"movements"`
	Snapshot   ProductSnapshot `json:"snapshot"`
	Stored     ProductSnapshot `json:"stored"`
	Consistent bool            `json:"consistent"`
}

// Transition descreve uma transição confirmada (para métricas, eventos e logs).
type Transition struct {
	Operation Operation
	From      ProductStatus
	To        ProductStatus
}
