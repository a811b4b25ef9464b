package withdrawal

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"gosementes/internal/api/response"
	"gosementes/internal/domain"
	"gosementes/internal/pkg/logger"
)

// WithdrawalService define o contrato do fluxo de retirada.
type WithdrawalService interface {
	Request(ctx context.Context, actor domain.Actor, input domain.WithdrawalCreate) (domain.OperationResult, error)
	Confirm(ctx context.Context, actor domain.Actor, requestID string) (domain.OperationResult, error)
	Cancel(ctx context.Context, actor domain.Actor, requestID string) (domain.OperationResult, error)
	Get(ctx context.Context, id string) (domain.WithdrawalRequest, error)
	List(ctx context.Context, filter domain.WithdrawalFilter) ([]domain.WithdrawalRequest, error)
}

// Handler agrupa os métodos de Handler de retiradas.
type Handler struct {
	Service WithdrawalService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc WithdrawalService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// RequestHandler lida com POST /v1/withdrawals.
// @Summary Solicita a retirada de um produto locado (admin)
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param request body domain.WithdrawalCreate true "Produto, tipo, quantidade e motivo"
// @Success 201 {object} domain.OperationResult
// @Failure 409 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/withdrawals [post]
func (h *Handler) RequestHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := response.Actor(r)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	var input domain.WithdrawalCreate
	if err := response.Decode(r, &input); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	result, err := h.Service.Request(r.Context(), actor, input)
	response.JSON(w, r, h.Logger, result, err, http.StatusCreated)
}

// ConfirmHandler lida com POST /v1/withdrawals/{id}/confirm.
// @Summary Confirma a retirada pendente (operador)
// @Tags withdrawals
// @Produce json
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.OperationResult
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/withdrawals/{id}/confirm [post]
func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Service.Confirm)
}

// CancelHandler lida com POST /v1/withdrawals/{id}/cancel.
// @Summary Cancela a retirada pendente (admin)
// @Tags withdrawals
// @Produce json
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.OperationResult
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/withdrawals/{id}/cancel [post]
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Service.Cancel)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.Actor, string) (domain.OperationResult, error)) {
	actor, err := response.Actor(r)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	result, err := fn(r.Context(), actor, mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, result, err, http.StatusOK)
}

// GetHandler lida com GET /v1/withdrawals/{id}.
// @Summary Busca um pedido de retirada
// @Tags withdrawals
// @Produce json
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.WithdrawalRequest
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/withdrawals/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.Get(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, req, err, http.StatusOK)
}

// ListHandler lida com GET /v1/withdrawals.
// @Summary Lista pedidos de retirada
// @Tags withdrawals
// @Produce json
// @Param status query string false "PENDENTE, CONFIRMADO ou CANCELADO"
// @Param productId query string false "Produto"
// @Param limit query int false "Limite"
// @Param offset query int false "Deslocamento"
// @Success 200 {array} domain.WithdrawalRequest
// @Security BearerAuth
// @Router /v1/withdrawals [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := response.QueryInt(r, "limit", 50)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	offset, err := response.QueryInt(r, "offset", 0)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	list, err := h.Service.List(r.Context(), domain.WithdrawalFilter{
		Status:    domain.WithdrawalStatus(q.Get("status")),
		ProductID: q.Get("productId"),
		Limit:     limit,
		Offset:    offset,
	})
	response.JSON(w, r, h.Logger, list, err, http.StatusOK)
}
