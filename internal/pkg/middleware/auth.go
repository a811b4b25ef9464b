package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
	"gosementes/internal/pkg/token"
)

// ContextKey é o tipo das chaves de contexto deste pacote (não colide com strings).
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
	RequestIDKey
)

// UserClaims representa os dados do usuário extraídos do token JWT.
type UserClaims struct {
	UserID string
	Role   domain.UserRole
}

// Actor converte as claims na identidade consumida pelos serviços.
func (c UserClaims) Actor() domain.Actor {
	return domain.Actor{ID: c.UserID, Role: c.Role}
}

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// NewAuthMiddleware valida o JWT (Authorization: Bearer <token>) e anexa as claims ao contexto.
func NewAuthMiddleware(tokenSvc TokenService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				WriteError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				WriteError(w, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			role := domain.UserRole(claims.Role)
			if !role.Valid() {
				WriteError(w, apperror.NewUnauthorizedError("Papel desconhecido no token."))
				return
			}

			userClaims := UserClaims{UserID: claims.UserID, Role: role}
			ctx := context.WithValue(r.Context(), UserClaimsKey, userClaims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserClaimsFromContext é uma função utilitária para extrair as claims no handler.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(UserClaims)
	return claims, ok
}

// ActorFromContext retorna o ator verificado da requisição.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	claims, ok := GetUserClaimsFromContext(ctx)
	if !ok {
		return domain.Actor{}, false
	}
	return claims.Actor(), true
}

// PermissionMiddleware restringe a rota aos papéis informados.
func PermissionMiddleware(requiredRoles ...domain.UserRole) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			for _, requiredRole := range requiredRoles {
				if claims.Role == requiredRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			WriteError(w, apperror.NewUnauthorizedTransitionError(string(claims.Role), r.Method+" "+r.URL.Path))
		})
	}
}

// WriteError escreve o corpo de erro padronizado (domain.ErrorResponse).
func WriteError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	})
}
