package user

import (
	"context"
	"net/http"

	"gosementes/internal/api/response"
	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/logger"
)

// UserService define o contrato para as operações de registro e login.
type UserService interface {
	Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	Login(ctx context.Context, email string, password string) (string, error)
}

// LoginRequest representa o payload de entrada para o login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// RegisterUserHandler lida com a requisição POST /v1/register.
// @Summary Registra um novo operador
// @Description Cadastro público: cria usuários OPERADOR. Administradores são criados por outro administrador em /v1/users.
// @Tags users
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Credenciais de registro (email e senha)"
// @Success 201 {object} domain.User "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido (JSON malformado ou campos obrigatórios ausentes)"
// @Failure 403 {object} domain.ErrorResponse "Papel ADMIN pedido no cadastro público"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Router /v1/register [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.UserRegistration
	if err := response.Decode(r, &reg); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	if reg.Role == domain.RoleAdmin {
		response.JSON(w, r, h.Logger, nil, apperror.NewUnauthorizedTransitionError("", "REGISTRAR_ADMIN"), 0)
		return
	}

	// O PasswordHash não sai na resposta (tag `json:"-"`).
	newUser, err := h.Service.Register(r.Context(), reg)
	response.JSON(w, r, h.Logger, newUser, err, http.StatusCreated)
}

// CreateUserHandler lida com a requisição POST /v1/users (somente ADMIN).
// @Summary Cria um usuário com qualquer papel (admin)
// @Tags users
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Email, senha e papel"
// @Success 201 {object} domain.User
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Security BearerAuth
// @Router /v1/users [post]
func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.UserRegistration
	if err := response.Decode(r, &reg); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	newUser, err := h.Service.Register(r.Context(), reg)
	response.JSON(w, r, h.Logger, newUser, err, http.StatusCreated)
}

// LoginUserHandler lida com a requisição POST /v1/login.
// @Summary Autentica um usuário e retorna um JWT
// @Description Recebe email/senha, verifica a validade e emite um JSON Web Token com user_id e role.
// @Tags users
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Credenciais do usuário (email e senha)"
// @Success 200 {object} map[string]string "Token JWT emitido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Router /v1/login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var loginReq LoginRequest
	if err := response.Decode(r, &loginReq); err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}

	token, err := h.Service.Login(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		response.JSON(w, r, h.Logger, nil, err, 0)
		return
	}
	response.JSON(w, r, h.Logger, map[string]string{"token": token}, nil, http.StatusOK)
}
