package location

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"gosementes/internal/api/response"
	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
)

// LocationService define as consultas do registro de localizações.
type LocationService interface {
	GetLocation(ctx context.Context, id string) (domain.Location, error)
	FindAvailable(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error)
}

// MovementService define as consultas ao livro de movimentações.
type MovementService interface {
	ByProduct(ctx context.Context, productID string) ([]domain.Movement, error)
	ByLocation(ctx context.Context, locationID string) ([]domain.Movement, error)
	List(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error)
	Replay(ctx context.Context, productID string) (domain.ReplayReport, error)
}

// Handler atende localizações e o livro de movimentações.
type Handler struct {
	Locations LocationService
	Movements MovementService
	Logger    logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(locations LocationService, movements MovementService, log logger.Logger) *Handler {
	return &Handler{Locations: locations, Movements: movements, Logger: log}
}

// GetLocationHandler lida com GET /v1/locations/{id}.
// @Summary Busca uma localização
// @Tags locations
// @Produce json
// @Param id path string true "ID da localização"
// @Success 200 {object} domain.Location
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/locations/{id} [get]
func (h *Handler) GetLocationHandler(w http.ResponseWriter, r *http.Request) {
	loc, err := h.Locations.GetLocation(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, loc, err, http.StatusOK)
}

// AvailableHandler lida com GET /v1/locations/available.
// @Summary Lista localizações livres com capacidade mínima
// @Tags locations
// @Produce json
// @Param chamberId query string false "Câmara"
// @Param minCapacityKg query string false "Capacidade mínima (kg)"
// @Param productId query string false "Inclui alocações do produto com folga"
// @Param limit query int false "Máximo de resultados"
// @Success 200 {array} domain.Location
// @Security BearerAuth
// @Router /v1/locations/available [get]
func (h *Handler) AvailableHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := response.QueryInt(r, "limit", 50)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	minCapacity := decimal.Zero
	if raw := q.Get("minCapacityKg"); raw != "" {
		minCapacity, err = decimal.NewFromString(raw)
		if err != nil {
			response.JSON(w, r, h.Logger, nil, apperror.NewValidationError("minCapacityKg deve ser decimal."), 0)
			return
		}
	}

	locs, err := h.Locations.FindAvailable(r.Context(), domain.LocationFilter{
		ChamberID:     q.Get("chamberId"),
		MinCapacityKg: minCapacity,
		ProductID:     q.Get("productId"),
		Limit:         limit,
	})
	response.JSON(w, r, h.Logger, locs, err, http.StatusOK)
}

// LocationMovementsHandler lida com GET /v1/locations/{id}/movements.
// @Summary Movimentações que passaram pela localização
// @Tags movements
// @Produce json
// @Param id path string true "ID da localização"
// @Success 200 {array} domain.Movement
// @Security BearerAuth
// @Router /v1/locations/{id}/movements [get]
func (h *Handler) LocationMovementsHandler(w http.ResponseWriter, r *http.Request) {
	movs, err := h.Movements.ByLocation(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, movs, err, http.StatusOK)
}

// ProductMovementsHandler lida com GET /v1/products/{id}/movements.
// @Summary Trilha de auditoria do produto
// @Tags movements
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {array} domain.Movement
// @Security BearerAuth
// @Router /v1/products/{id}/movements [get]
func (h *Handler) ProductMovementsHandler(w http.ResponseWriter, r *http.Request) {
	movs, err := h.Movements.ByProduct(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, movs, err, http.StatusOK)
}

// ReplayHandler lida com GET /v1/products/{id}/replay.
// @Summary Reconstrói o produto a partir do livro e compara com o armazenado
// @Tags movements
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.ReplayReport
// @Security BearerAuth
// @Router /v1/products/{id}/replay [get]
func (h *Handler) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.Movements.Replay(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, report, err, http.StatusOK)
}

// ListMovementsHandler lida com GET /v1/movements.
// @Summary Consulta o livro por tipo, ator e período
// @Tags movements
// @Produce json
// @Param type query string false "Tipo"
// @Param actorId query string false "Ator"
// @Param from query string false "Início (RFC3339)"
// @Param to query string false "Fim (RFC3339)"
// @Param limit query int false "Limite"
// @Param offset query int false "Deslocamento"
// @Success 200 {array} domain.Movement
// @Security BearerAuth
// @Router /v1/movements [get]
func (h *Handler) ListMovementsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MovementFilter{
		Type:    domain.MovementType(q.Get("type")),
		ActorID: q.Get("actorId"),
	}

	var err error
	if filter.Limit, err = response.QueryInt(r, "limit", 100); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	if filter.Offset, err = response.QueryInt(r, "offset", 0); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	if filter.From, err = queryTime(r, "from"); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	movs, err := h.Movements.List(r.Context(), filter)
	response.JSON(w, r, h.Logger, movs, err, http.StatusOK)
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperror.NewValidationError(key + " deve estar em RFC3339.")
	}
	return &t, nil
}
