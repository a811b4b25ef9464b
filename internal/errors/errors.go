package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do serviço.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria estável do erro (e.g., "VALIDATION_ERROR", "LOCATION_OCCUPIED")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// DimensionError indica dimensões de câmara inválidas ou acima dos limites configurados.
type DimensionError struct {
	Msg string
}

func (e *DimensionError) Error() string    { return fmt.Sprintf("Erro de Dimensão: %s", e.Msg) }
func (e *DimensionError) Category() string { return "DIMENSION_ERROR" }
func (e *DimensionError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *DimensionError) Unwrap() error    { return nil }

// NewDimensionError cria um novo erro de dimensão.
func NewDimensionError(msg string) AppError {
	return &DimensionError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// InvalidStateTransitionError indica uma operação que não é legal a partir do status atual.
type InvalidStateTransitionError struct {
	From  string
	Event string
	Msg   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("Transição de estado inválida (%s via %s): %s", e.From, e.Event, e.Msg)
}
func (e *InvalidStateTransitionError) Category() string { return "INVALID_STATE_TRANSITION" }
func (e *InvalidStateTransitionError) HTTPStatus() int  { return http.StatusUnprocessableEntity } // 422
func (e *InvalidStateTransitionError) Unwrap() error    { return nil }

// NewInvalidStateTransitionError cria um erro de transição ilegal.
func NewInvalidStateTransitionError(from, event, msg string) AppError {
	return &InvalidStateTransitionError{From: from, Event: event, Msg: msg}
}

// LocationOccupiedError indica que a localização já pertence a outro produto
// (ou que uma reivindicação concorrente venceu a corrida).
type LocationOccupiedError struct {
	LocationID string
	Msg        string
}

func (e *LocationOccupiedError) Error() string {
	return fmt.Sprintf("Localização ocupada (%s): %s", e.LocationID, e.Msg)
}
func (e *LocationOccupiedError) Category() string { return "LOCATION_OCCUPIED" }
func (e *LocationOccupiedError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *LocationOccupiedError) Unwrap() error    { return nil }

// NewLocationOccupiedError cria um erro de localização ocupada.
func NewLocationOccupiedError(locationID, msg string) AppError {
	return &LocationOccupiedError{LocationID: locationID, Msg: msg}
}

// CapacityExceededError indica que o peso resultante ficaria fora de [0, maxCapacityKg].
type CapacityExceededError struct {
	LocationID string
	Msg        string
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("Capacidade excedida (%s): %s", e.LocationID, e.Msg)
}
func (e *CapacityExceededError) Category() string { return "CAPACITY_EXCEEDED" }
func (e *CapacityExceededError) HTTPStatus() int  { return http.StatusUnprocessableEntity }
func (e *CapacityExceededError) Unwrap() error    { return nil }

// NewCapacityExceededError cria um erro de capacidade excedida.
func NewCapacityExceededError(locationID, msg string) AppError {
	return &CapacityExceededError{LocationID: locationID, Msg: msg}
}

// UnauthorizedTransitionError indica que o papel do ator não tem autoridade para a operação.
type UnauthorizedTransitionError struct {
	Role  string
	Event string
}

func (e *UnauthorizedTransitionError) Error() string {
	return fmt.Sprintf("Operação não autorizada: o papel %s não pode executar %s", e.Role, e.Event)
}
func (e *UnauthorizedTransitionError) Category() string { return "UNAUTHORIZED_TRANSITION" }
func (e *UnauthorizedTransitionError) HTTPStatus() int  { return http.StatusForbidden } // 403
func (e *UnauthorizedTransitionError) Unwrap() error    { return nil }

// NewUnauthorizedTransitionError cria um erro de autoridade insuficiente.
func NewUnauthorizedTransitionError(role, event string) AppError {
	return &UnauthorizedTransitionError{Role: role, Event: event}
}

// UnauthorizedError representa falhas de autenticação (token ausente, credenciais inválidas).
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ConflictError representa um conflito de concorrência (OCC) ou recurso duplicado.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito (usado em OCC).
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// IsBusiness informa se o erro é uma violação de regra de negócio (qualquer AppError que não seja interno).
func IsBusiness(err error) bool {
	var appErr AppError
	if !errors.As(err, &appErr) {
		return false
	}
	var internal *InternalError
	return !errors.As(err, &internal)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratado como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
