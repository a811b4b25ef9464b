package domain

import (
	"context"
	"time"
)

// User representa a entidade do usuário no sistema.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Oculta o hash da senha no JSON de resposta
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserRole é o papel do usuário; define a autoridade sobre as operações de estoque.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleOperador UserRole = "OPERADOR"
)

// Valid informa se o papel é conhecido.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleOperador
}

// Actor é a identidade verificada (id + papel) entregue pela camada de autenticação.
type Actor struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// UserRegistration representa o payload de entrada para o registro.
type UserRegistration struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=ADMIN OPERADOR"`
}

// UserRepository define o contrato de persistência para a entidade User.
type UserRepository interface {
	Save(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}
