package product

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"gosementes/internal/api/response"
	"gosementes/internal/domain"
	"gosementes/internal/pkg/logger"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, actor domain.Actor, input domain.ProductCreate) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Allocations(ctx context.Context, productID string) ([]domain.Location, error)

	CompleteIntake(ctx context.Context, actor domain.Actor, productID string) (domain.OperationResult, error)
	Locate(ctx context.Context, actor domain.Actor, productID string, req domain.LocateRequest) (domain.OperationResult, error)
	LocateOptimal(ctx context.Context, actor domain.Actor, productID string, req domain.LocateOptimalRequest) (domain.OperationResult, error)
	Move(ctx context.Context, actor domain.Actor, productID string, req domain.MoveRequest) (domain.OperationResult, error)
	PartialMove(ctx context.Context, actor domain.Actor, productID string, req domain.PartialMoveRequest) (domain.OperationResult, error)
	AddStock(ctx context.Context, actor domain.Actor, productID string, req domain.AddStockRequest) (domain.OperationResult, error)
	PartialExit(ctx context.Context, actor domain.Actor, productID string, req domain.PartialExitRequest) (domain.OperationResult, error)
	Remove(ctx context.Context, actor domain.Actor, productID string, req domain.RemoveRequest) (domain.OperationResult, error)
}

// Handler agrupa todos os métodos de Handler do produto.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// CreateProductHandler lida com a requisição POST /v1/products.
// @Summary Cadastra um lote de sementes
// @Description Cria o produto em CADASTRADO (ou AGUARDANDO_LOCACAO com ready_for_location).
// @Tags products
// @Accept json
// @Produce json
// @Param product body domain.ProductCreate true "Dados do lote"
// @Success 201 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := response.Actor(r)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	var input domain.ProductCreate
	if err := response.Decode(r, &input); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	created, err := h.Service.CreateProduct(r.Context(), actor, input)
	response.JSON(w, r, h.Logger, created, err, http.StatusCreated)
}

// GetProductHandler lida com a requisição GET /v1/products/{id}.
// @Summary Busca um produto
// @Tags products
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.Product
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id} [get]
func (h *Handler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetProduct(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, p, err, http.StatusOK)
}

// ListProductsHandler lida com a requisição GET /v1/products.
// @Summary Lista produtos
// @Tags products
// @Produce json
// @Param status query string false "Status"
// @Param chamberId query string false "Câmara"
// @Param lot query string false "Lote"
// @Param seedTypeId query string false "Tipo de semente"
// @Param page query int false "Página"
// @Param limit query int false "Itens por página"
// @Success 200 {array} domain.Product
// @Security BearerAuth
// @Router /v1/products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := response.QueryInt(r, "page", 1)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	limit, err := response.QueryInt(r, "limit", 20)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	products, err := h.Service.ListProducts(r.Context(), domain.ProductFilter{
		Page:       page,
		Limit:      limit,
		Status:     domain.ProductStatus(q.Get("status")),
		ChamberID:  q.Get("chamberId"),
		Lot:        q.Get("lot"),
		SeedTypeID: q.Get("seedTypeId"),
	})
	response.JSON(w, r, h.Logger, products, err, http.StatusOK)
}

// AllocationsHandler lida com a requisição GET /v1/products/{id}/allocations.
// @Summary Lista as localizações ocupadas pelo produto
// @Tags products
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {array} domain.Location
// @Security BearerAuth
// @Router /v1/products/{id}/allocations [get]
func (h *Handler) AllocationsHandler(w http.ResponseWriter, r *http.Request) {
	locs, err := h.Service.Allocations(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, locs, err, http.StatusOK)
}

// operation decodifica o payload (quando houver), extrai o ator e executa a transição.
func operation[T any](h *Handler, run func(ctx context.Context, actor domain.Actor, id string, req T) (domain.OperationResult, error), hasBody bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := response.Actor(r)
		if err != nil {
			response.JSON(w, r, h.Logger, nil, err, 0)
			return
		}

		var req T
		if hasBody {
			if err := response.Decode(r, &req); err != nil {
				response.JSON(w, r, h.Logger, nil, err, 0)
				return
			}
		}

		result, err := run(r.Context(), actor, mux.Vars(r)["id"], req)
		response.JSON(w, r, h.Logger, result, err, http.StatusOK)
	}
}

// CompleteIntakeHandler lida com POST /v1/products/{id}/intake-complete.
// @Summary Conclui o cadastro (CADASTRADO → AGUARDANDO_LOCACAO)
// @Tags products
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.OperationResult
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/intake-complete [post]
func (h *Handler) CompleteIntakeHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, func(ctx context.Context, actor domain.Actor, id string, _ struct{}) (domain.OperationResult, error) {
		return h.Service.CompleteIntake(ctx, actor, id)
	}, false)(w, r)
}

// LocateHandler lida com POST /v1/products/{id}/locate.
// @Summary Aloca o produto numa localização livre (operador)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param request body domain.LocateRequest true "Localização de destino"
// @Success 200 {object} domain.OperationResult
// @Failure 409 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/locate [post]
func (h *Handler) LocateHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, h.Service.Locate, true)(w, r)
}

// LocateOptimalHandler lida com POST /v1/products/{id}/locate-optimal.
// @Summary Aloca o produto na primeira localização livre com capacidade (operador)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param request body domain.LocateOptimalRequest true "Câmara"
// @Success 200 {object} domain.OperationResult
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/locate-optimal [post]
func (h *Handler) LocateOptimalHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, h.Service.LocateOptimal, true)(w, r)
}

// MoveHandler lida com POST /v1/products/{id}/move.
// @Summary Move toda a alocação de origem para outra localização (operador)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param request body domain.MoveRequest true "Destino e motivo"
// @Success 200 {object} domain.OperationResult
// @Failure 409 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/move [post]
func (h *Handler) MoveHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, h.Service.Move, true)(w, r)
}

// PartialMoveHandler lida com POST /v1/products/{id}/partial-move.
// @Summary Divide o estoque entre localizações (operador)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param request body domain.PartialMoveRequest true "Quantidade, destino e motivo"
// @Success 200 {object} domain.OperationResult
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/partial-move [post]
func (h *Handler) PartialMoveHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, h.Service.PartialMove, true)(w, r)
}

// AddStockHandler lida com POST /v1/products/{id}/add-stock.
// @Summary Acrescenta unidades na alocação primária (admin)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param request body domain.AddStockRequest true "Quantidade e motivo"
// @Success 200 {object} domain.OperationResult
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/add-stock [post]
func (h *Handler) AddStockHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, h.Service.AddStock, true)(w, r)
}

// PartialExitHandler lida com POST /v1/products/{id}/partial-exit.
// @Summary Saída direta de estoque (admin)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param request body domain.PartialExitRequest true "Quantidade, origem e motivo"
// @Success 200 {object} domain.OperationResult
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/partial-exit [post]
func (h *Handler) PartialExitHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, h.Service.PartialExit, true)(w, r)
}

// RemoveHandler lida com POST /v1/products/{id}/remove.
// @Summary Remove o produto (admin)
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do produto"
// @Param request body domain.RemoveRequest false "Motivo"
// @Success 200 {object} domain.OperationResult
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/products/{id}/remove [post]
func (h *Handler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	operation(h, h.Service.Remove, r.ContentLength > 0)(w, r)
}
