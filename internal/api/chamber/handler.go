package chamber

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"gosementes/internal/api/response"
	"gosementes/internal/domain"
	"gosementes/internal/pkg/logger"
)

// ChamberService define o contrato do catálogo de câmaras.
type ChamberService interface {
	CreateChamber(ctx context.Context, actor domain.Actor, input domain.ChamberCreate) (domain.Chamber, *domain.GenerationResult, error)
	GetChamber(ctx context.Context, id string) (domain.Chamber, error)
	ListChambers(ctx context.Context) ([]domain.Chamber, error)
	UpdateConditions(ctx context.Context, actor domain.Actor, id string, conditions domain.ChamberConditions) (domain.Chamber, error)
}

// LocationService define o que o Handler usa do registro de localizações.
type LocationService interface {
	Generate(ctx context.Context, actor domain.Actor, chamberID string, dims domain.ChamberDimensions) (domain.GenerationResult, error)
	ListByChamber(ctx context.Context, chamberID string) ([]domain.Location, error)
}

// GenerateRequest é o payload de (re)geração. Sem dimensões, usa as atuais da câmara.
type GenerateRequest struct {
	Dimensions *domain.ChamberDimensions `json:"dimensions"`
}

// CreateResponse devolve a câmara e, se gerada, o resumo das localizações.
type CreateResponse struct {
	Chamber    domain.Chamber           `json:"chamber"`
	Generation *domain.GenerationResult `json:"generation,omitempty"`
}

// Handler agrupa os métodos de Handler de câmaras.
type Handler struct {
	Service   ChamberService
	Locations LocationService
	Logger    logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc ChamberService, locations LocationService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Locations: locations, Logger: log}
}

// CreateChamberHandler lida com POST /v1/chambers.
// @Summary Cadastra uma câmara fria (admin)
// @Tags chambers
// @Accept json
// @Produce json
// @Param chamber body domain.ChamberCreate true "Dados da câmara"
// @Success 201 {object} CreateResponse
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/chambers [post]
func (h *Handler) CreateChamberHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := response.Actor(r)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	var input domain.ChamberCreate
	if err := response.Decode(r, &input); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	created, generation, err := h.Service.CreateChamber(r.Context(), actor, input)
	response.JSON(w, r, h.Logger, CreateResponse{Chamber: created, Generation: generation}, err, http.StatusCreated)
}

// GetChamberHandler lida com GET /v1/chambers/{id}.
// @Summary Busca uma câmara
// @Tags chambers
// @Produce json
// @Param id path string true "ID da câmara"
// @Success 200 {object} domain.Chamber
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/chambers/{id} [get]
func (h *Handler) GetChamberHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetChamber(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, c, err, http.StatusOK)
}

// ListChambersHandler lida com GET /v1/chambers.
// @Summary Lista as câmaras
// @Tags chambers
// @Produce json
// @Success 200 {array} domain.Chamber
// @Security BearerAuth
// @Router /v1/chambers [get]
func (h *Handler) ListChambersHandler(w http.ResponseWriter, r *http.Request) {
	chambers, err := h.Service.ListChambers(r.Context())
	response.JSON(w, r, h.Logger, chambers, err, http.StatusOK)
}

// UpdateConditionsHandler lida com PATCH /v1/chambers/{id}/conditions.
// @Summary Atualiza temperatura e umidade (admin)
// @Tags chambers
// @Accept json
// @Produce json
// @Param id path string true "ID da câmara"
// @Param conditions body domain.ChamberConditions true "Condições"
// @Success 200 {object} domain.Chamber
// @Security BearerAuth
// @Router /v1/chambers/{id}/conditions [patch]
func (h *Handler) UpdateConditionsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := response.Actor(r)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	var conditions domain.ChamberConditions
	if err := response.Decode(r, &conditions); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	updated, err := h.Service.UpdateConditions(r.Context(), actor, mux.Vars(r)["id"], conditions)
	response.JSON(w, r, h.Logger, updated, err, http.StatusOK)
}

// GenerateLocationsHandler lida com POST /v1/chambers/{id}/locations:generate.
// @Summary Gera (ou regenera) as localizações da câmara (admin)
// @Description Idempotente: mantém as existentes, cria as faltantes e remove as livres fora das novas dimensões.
// @Tags chambers
// @Accept json
// @Produce json
// @Param id path string true "ID da câmara"
// @Param request body GenerateRequest false "Novas dimensões"
// @Success 200 {object} domain.GenerationResult
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /v1/chambers/{id}/locations:generate [post]
func (h *Handler) GenerateLocationsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := response.Actor(r)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	var req GenerateRequest
	if r.ContentLength > 0 {
		if err := response.Decode(r, &req); err != nil {
			response.JSON(w, r, h.Logger, nil, err, 0)
			return
		}
	}
	var dims domain.ChamberDimensions
	if req.Dimensions != nil {
		dims = *req.Dimensions
	}

	result, err := h.Locations.Generate(r.Context(), actor, mux.Vars(r)["id"], dims)
	response.JSON(w, r, h.Logger, result, err, http.StatusOK)
}

// ListLocationsHandler lida com GET /v1/chambers/{id}/locations.
// @Summary Lista as localizações da câmara
// @Tags chambers
// @Produce json
// @Param id path string true "ID da câmara"
// @Success 200 {array} domain.Location
// @Security BearerAuth
// @Router /v1/chambers/{id}/locations [get]
func (h *Handler) ListLocationsHandler(w http.ResponseWriter, r *http.Request) {
	locs, err := h.Locations.ListByChamber(r.Context(), mux.Vars(r)["id"])
	response.JSON(w, r, h.Logger, locs, err, http.StatusOK)
}
