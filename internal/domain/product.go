package domain

import (
	"time"

	"github.com/shopspring/decimal"

	apperror "gosementes/internal/errors"
)

// ProductStatus é o status do ciclo de vida de um lote de sementes.
type ProductStatus string

const (
	StatusCadastrado         ProductStatus = "CADASTRADO"
	StatusAguardandoLocacao  ProductStatus = "AGUARDANDO_LOCACAO"
	StatusLocado             ProductStatus = "LOCADO"
	StatusAguardandoRetirada ProductStatus = "AGUARDANDO_RETIRADA"
	StatusRetirado           ProductStatus = "RETIRADO"
	StatusRemovido           ProductStatus = "REMOVIDO"
)

// IsTerminal informa se o status não aceita mais transições.
func (s ProductStatus) IsTerminal() bool {
	return s == StatusRetirado || s == StatusRemovido
}

// HoldsLocation informa se, neste status, o produto ocupa uma localização.
func (s ProductStatus) HoldsLocation() bool {
	return s == StatusLocado || s == StatusAguardandoRetirada
}

// Valid informa se o status é conhecido.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusCadastrado, StatusAguardandoLocacao, StatusLocado,
		StatusAguardandoRetirada, StatusRetirado, StatusRemovido:
		return true
	}
	return false
}

// weightScale é a precisão declarada do peso unitário (NUMERIC(12,3)).
const weightScale = 3

// Product representa um lote de sementes armazenado.
// Status, LocationID e Quantity só mudam pela máquina de estados.
type Product struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	SeedTypeID     string          `json:"seed_type_id" db:"seed_type_id"`
	ClientID       string          `json:"client_id,omitempty" db:"client_id"`
	Lot            string          `json:"lot" db:"lot"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty" db:"expiration_date"`
	Status         ProductStatus   `json:"status" db:"status"`
	Quantity       int             `json:"quantity" db:"quantity"`
	WeightPerUnit  decimal.Decimal `json:"weight_per_unit" db:"weight_per_unit"`
	LocationID     *string         `json:"location_id,omitempty" db:"location_id"` // alocação primária
	CreatedBy      string          `json:"created_by" db:"created_by"`
	Version        int             `json:"version" db:"version"` // controle de concorrência otimista
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// TotalWeight = quantity × weightPerUnit.
func (p Product) TotalWeight() decimal.Decimal {
	return p.WeightOf(p.Quantity)
}

// WeightOf é o peso exato de qty unidades deste produto.
func (p Product) WeightOf(qty int) decimal.Decimal {
	return p.WeightPerUnit.Mul(decimal.NewFromInt(int64(qty)))
}

// PrimaryLocation retorna o ID da alocação primária ou "".
func (p Product) PrimaryLocation() string {
	if p.LocationID == nil {
		return ""
	}
	return *p.LocationID
}

// ProductCreate é o payload de cadastro (intake) de um lote.
type ProductCreate struct {
	Name             string          `json:"name" validate:"required,min=2,max=200"`
	SeedTypeID       string          `json:"seed_type_id" validate:"required"`
	ClientID         string          `json:"client_id"`
	Lot              string          `json:"lot" validate:"required,max=100"`
	ExpirationDate   *time.Time      `json:"expiration_date"`
	Quantity         int             `json:"quantity" validate:"required,gt=0"`
	WeightPerUnit    decimal.Decimal `json:"weight_per_unit"`
	ReadyForLocation bool            `json:"ready_for_location"`
}

// Validate aplica as regras que as tags não alcançam (peso decimal).
func (c ProductCreate) Validate() error {
	if c.Quantity <= 0 {
		return apperror.NewValidationError("a quantidade deve ser um inteiro maior que zero.")
	}
	return ValidateWeightPerUnit(c.WeightPerUnit)
}

// ValidateWeightPerUnit exige peso > 0 com no máximo três casas decimais.
func ValidateWeightPerUnit(w decimal.Decimal) error {
	if !w.IsPositive() {
		return apperror.NewValidationError("o peso por unidade deve ser maior que zero.")
	}
	if !w.Equal(w.Truncate(weightScale)) {
		return apperror.NewValidationError("o peso por unidade aceita no máximo 3 casas decimais.")
	}
	return nil
}

// ProductFilter define os parâmetros de busca e paginação.
type ProductFilter struct {
	Page       int
	Limit      int
	Status     ProductStatus
	ChamberID  string
	Lot        string
	SeedTypeID string
}
