package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperror "gosementes/internal/errors"
)

const (
	// DefaultMaxLocations é o teto de localizações geradas por câmara.
	DefaultMaxLocations = 100000
	// MaxLadoLetters é o maior lado representável como letra (1→A … 20→T).
	MaxLadoLetters = 20
)

// ChamberDimensions são os quatro eixos da hierarquia de coordenadas de uma câmara.
type ChamberDimensions struct {
	Quadras int `json:"quadras" db:"quadras" validate:"required,gt=0"`
	Lados   int `json:"lados" db:"lados" validate:"required,gt=0"`
	Filas   int `json:"filas" db:"filas" validate:"required,gt=0"`
	Andares int `json:"andares" db:"andares" validate:"required,gt=0"`
}

// Total retorna quadras×lados×filas×andares.
func (d ChamberDimensions) Total() int {
	return d.Quadras * d.Lados * d.Filas * d.Andares
}

// Contains informa se a coordenada está dentro dos limites das dimensões.
func (d ChamberDimensions) Contains(c Coordinates) bool {
	return c.Quadra >= 1 && c.Quadra <= d.Quadras &&
		c.Lado >= 1 && c.Lado <= d.Lados &&
		c.Fila >= 1 && c.Fila <= d.Filas &&
		c.Andar >= 1 && c.Andar <= d.Andares
}

// LocationLimits são os tetos configurados para geração de localizações.
type LocationLimits struct {
	MaxPerAxis        ChamberDimensions
	MaxTotal          int
	DefaultCapacityKg decimal.Decimal
	LadoAsLetter      bool
}

// DefaultLocationLimits retorna os limites usados quando nada foi configurado.
func DefaultLocationLimits() LocationLimits {
	return LocationLimits{
		MaxPerAxis:        ChamberDimensions{Quadras: 100, Lados: MaxLadoLetters, Filas: 100, Andares: 20},
		MaxTotal:          DefaultMaxLocations,
		DefaultCapacityKg: decimal.NewFromInt(1000),
		LadoAsLetter:      true,
	}
}

// Validate verifica cada eixo (> 0 e ≤ teto), o total e o limite de letras do lado.
func (d ChamberDimensions) Validate(limits LocationLimits) error {
	axes := []struct {
		name  string
		value int
		max   int
	}{
		{"quadras", d.Quadras, limits.MaxPerAxis.Quadras},
		{"lados", d.Lados, limits.MaxPerAxis.Lados},
		{"filas", d.Filas, limits.MaxPerAxis.Filas},
		{"andares", d.Andares, limits.MaxPerAxis.Andares},
	}
	for _, axis := range axes {
		if axis.value <= 0 {
			return apperror.NewDimensionError(fmt.Sprintf("%s deve ser maior que zero (recebido %d).", axis.name, axis.value))
		}
		if axis.max > 0 && axis.value > axis.max {
			return apperror.NewDimensionError(fmt.Sprintf("%s excede o máximo configurado (%d > %d).", axis.name, axis.value, axis.max))
		}
	}

	if limits.LadoAsLetter && d.Lados > MaxLadoLetters {
		return apperror.NewDimensionError(fmt.Sprintf("lados em letras suporta no máximo %d (recebido %d).", MaxLadoLetters, d.Lados))
	}

	maxTotal := limits.MaxTotal
	if maxTotal <= 0 {
		maxTotal = DefaultMaxLocations
	}
	// Multiplicação eixo a eixo para não estourar int com dimensões absurdas.
	total := 1
	for _, axis := range axes {
		total *= axis.value
		if total > maxTotal {
			return apperror.NewDimensionError(fmt.Sprintf("a câmara geraria mais de %d localizações.", maxTotal))
		}
	}
	return nil
}

// Chamber é a câmara fria (dado de referência). Temperatura e umidade são campos
// de leitura/escrita; nada é calculado a partir deles.
type Chamber struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	ChamberDimensions `json:"dimensions"`

	LocationCapacityKg decimal.Decimal     `json:"location_capacity_kg" db:"location_capacity_kg"`
	Temperature        decimal.NullDecimal `json:"temperature" db:"temperature"`
	Humidity           decimal.NullDecimal `json:"humidity" db:"humidity"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}

// ChamberConditions é o payload de atualização de temperatura/umidade.
type ChamberConditions struct {
	Temperature decimal.NullDecimal `json:"temperature"`
	Humidity    decimal.NullDecimal `json:"humidity"`
}

// ChamberCreate é o payload de cadastro de câmara.
type ChamberCreate struct {
	Name               string              `json:"name" validate:"required,min=2,max=100"`
	Dimensions         ChamberDimensions   `json:"dimensions"`
	LocationCapacityKg decimal.Decimal     `json:"location_capacity_kg"`
	Temperature        decimal.NullDecimal `json:"temperature"`
	Humidity           decimal.NullDecimal `json:"humidity"`
	GenerateLocations  bool                `json:"generate_locations"`
}
