package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperror "gosementes/internal/errors"
)

// Coordinates identificam uma posição na hierarquia quadra/lado/fila/andar.
type Coordinates struct {
	Quadra int `json:"quadra" db:"quadra"`
	Lado   int `json:"lado" db:"lado"`
	Fila   int `json:"fila" db:"fila"`
	Andar  int `json:"andar" db:"andar"`
}

// Less ordena coordenadas em ordem ascendente (quadra, lado, fila, andar).
func (c Coordinates) Less(o Coordinates) bool {
	if c.Quadra != o.Quadra {
		return c.Quadra < o.Quadra
	}
	if c.Lado != o.Lado {
		return c.Lado < o.Lado
	}
	if c.Fila != o.Fila {
		return c.Fila < o.Fila
	}
	return c.Andar < o.Andar
}

// Location é uma posição física de armazenamento dentro de uma câmara.
// Ocupada significa que exatamente um produto (ProductID) a referencia.
type Location struct {
	ID        string `json:"id" db:"id"`
	ChamberID string `json:"chamber_id" db:"chamber_id"`
	Code      string `json:"code" db:"code"`

	Coordinates `json:"coordinates"`

	MaxCapacityKg   decimal.Decimal `json:"max_capacity_kg" db:"max_capacity_kg"`
	CurrentWeightKg decimal.Decimal `json:"current_weight_kg" db:"current_weight_kg"`
	IsOccupied      bool            `json:"is_occupied" db:"is_occupied"`
	ProductID       string          `json:"product_id,omitempty" db:"product_id"`
	StoredQuantity  int             `json:"stored_quantity" db:"stored_quantity"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// ResidualCapacityKg é o peso que ainda cabe na localização.
func (l Location) ResidualCapacityKg() decimal.Decimal {
	return l.MaxCapacityKg.Sub(l.CurrentWeightKg)
}

// CheckClaim valida a reivindicação de uma localização livre com o peso informado.
// É a mesma regra aplicada pela escrita condicional do repositório e serve para
// diagnosticar por que ela não afetou nenhuma linha.
func (l Location) CheckClaim(weightKg decimal.Decimal) error {
	if !weightKg.IsPositive() {
		return apperror.NewValidationError("o peso reivindicado deve ser maior que zero.")
	}
	if l.IsOccupied {
		return apperror.NewLocationOccupiedError(l.ID, fmt.Sprintf("a localização %s já está ocupada.", l.Code))
	}
	if weightKg.GreaterThan(l.MaxCapacityKg) {
		return apperror.NewCapacityExceededError(l.ID,
			fmt.Sprintf("peso %s kg excede a capacidade de %s kg.", weightKg, l.MaxCapacityKg))
	}
	return nil
}

// Claimed retorna a localização ocupada pelo produto. Chame CheckClaim antes.
func (l Location) Claimed(productID string, weightKg decimal.Decimal, quantity int) Location {
	l.IsOccupied = true
	l.ProductID = productID
	l.CurrentWeightKg = weightKg
	l.StoredQuantity = quantity
	return l
}

// CheckAdjust valida um ajuste de peso/quantidade em localização já ocupada pelo produto.
func (l Location) CheckAdjust(productID string, deltaKg decimal.Decimal, deltaQty int) error {
	if !l.IsOccupied || l.ProductID != productID {
		return apperror.NewLocationOccupiedError(l.ID, fmt.Sprintf("a localização %s não está ocupada por este produto.", l.Code))
	}
	after := l.CurrentWeightKg.Add(deltaKg)
	if after.IsNegative() || after.GreaterThan(l.MaxCapacityKg) {
		return apperror.NewCapacityExceededError(l.ID,
			fmt.Sprintf("o peso resultante (%s kg) ficaria fora de [0, %s] kg.", after, l.MaxCapacityKg))
	}
	if l.StoredQuantity+deltaQty < 0 {
		return apperror.NewValidationError(
			fmt.Sprintf("a localização %s guarda apenas %d unidades.", l.Code, l.StoredQuantity))
	}
	return nil
}

// Adjusted retorna a localização com peso e quantidade ajustados. Chame CheckAdjust antes.
func (l Location) Adjusted(deltaKg decimal.Decimal, deltaQty int) Location {
	l.CurrentWeightKg = l.CurrentWeightKg.Add(deltaKg)
	l.StoredQuantity += deltaQty
	return l
}

// CheckRelease garante que apenas o ocupante atual libere a localização.
func (l Location) CheckRelease(productID string) error {
	if !l.IsOccupied || l.ProductID != productID {
		return apperror.NewLocationOccupiedError(l.ID, fmt.Sprintf("a localização %s não está ocupada por este produto.", l.Code))
	}
	return nil
}

// Released retorna a localização livre e com peso zerado.
func (l Location) Released() Location {
	l.IsOccupied = false
	l.ProductID = ""
	l.CurrentWeightKg = decimal.Zero
	l.StoredQuantity = 0
	return l
}

// LocationFilter parametriza a busca de localizações disponíveis.
type LocationFilter struct {
	ChamberID     string
	MinCapacityKg decimal.Decimal
	// ProductID inclui também as localizações já ocupadas por este produto que
	// ainda têm capacidade residual (fluxos de adição parcial).
	ProductID string
	Limit     int
	// After continua a listagem a partir da localização seguinte a esta, na ordem
	// (câmara, quadra, lado, fila, andar).
	After *Location
}

// Precedes reporta se l vem antes de other na ordem de listagem das localizações.
func (l Location) Precedes(other Location) bool {
	if l.ChamberID != other.ChamberID {
		return l.ChamberID < other.ChamberID
	}
	return l.Coordinates.Less(other.Coordinates)
}

// --- Códigos de localização ---

const ladoLetters = "ABCDEFGHIJKLMNOPQRST"

// LadoLetter converte 1..20 em A..T.
func LadoLetter(lado int) (string, error) {
	if lado < 1 || lado > MaxLadoLetters {
		return "", apperror.NewValidationError(fmt.Sprintf("lado %d não tem letra (1..%d).", lado, MaxLadoLetters))
	}
	return string(ladoLetters[lado-1]), nil
}

// LadoFromLetter converte A..T de volta em 1..20.
func LadoFromLetter(letter string) (int, error) {
	if len(letter) != 1 {
		return 0, apperror.NewValidationError(fmt.Sprintf("letra de lado inválida: %q.", letter))
	}
	idx := strings.IndexByte(ladoLetters, strings.ToUpper(letter)[0])
	if idx < 0 {
		return 0, apperror.NewValidationError(fmt.Sprintf("letra de lado inválida: %q.", letter))
	}
	return idx + 1, nil
}

// FormatCode gera o código determinístico Q{quadra}-L{lado}-F{fila}-A{andar}.
func FormatCode(c Coordinates, ladoAsLetter bool) (string, error) {
	lado := strconv.Itoa(c.Lado)
	if ladoAsLetter {
		letter, err := LadoLetter(c.Lado)
		if err != nil {
			return "", err
		}
		lado = letter
	}
	return fmt.Sprintf("Q%d-L%s-F%d-A%d", c.Quadra, lado, c.Fila, c.Andar), nil
}

// ParseCode é a inversa de FormatCode; aceita o lado em letra ou número.
func ParseCode(code string) (Coordinates, error) {
	parts := strings.Split(code, "-")
	if len(parts) != 4 {
		return Coordinates{}, apperror.NewValidationError(fmt.Sprintf("código de localização inválido: %q.", code))
	}

	prefixes := []string{"Q", "L", "F", "A"}
	values := make([]int, 4)
	for i, part := range parts {
		if !strings.HasPrefix(part, prefixes[i]) || len(part) == 1 {
			return Coordinates{}, apperror.NewValidationError(fmt.Sprintf("código de localização inválido: %q.", code))
		}
		raw := part[1:]
		n, err := strconv.Atoi(raw)
		if err != nil && i == 1 {
			n, err = LadoFromLetter(raw)
		}
		if err != nil || n <= 0 {
			return Coordinates{}, apperror.NewValidationError(fmt.Sprintf("código de localização inválido: %q.", code))
		}
		values[i] = n
	}
	return Coordinates{Quadra: values[0], Lado: values[1], Fila: values[2], Andar: values[3]}, nil
}

// LocationSlot é um par (coordenada, código) produzido pelo enumerador.
type LocationSlot struct {
	Coordinates Coordinates
	Code        string
}

// EnumerateCoordinates produz todas as posições das dimensões em ordem ascendente
// de (quadra, lado, fila, andar). Função pura, sem persistência.
func EnumerateCoordinates(dims ChamberDimensions, limits LocationLimits) ([]LocationSlot, error) {
	if err := dims.Validate(limits); err != nil {
		return nil, err
	}

	slots := make([]LocationSlot, 0, dims.Total())
	for q := 1; q <= dims.Quadras; q++ {
		for l := 1; l <= dims.Lados; l++ {
			for f := 1; f <= dims.Filas; f++ {
				for a := 1; a <= dims.Andares; a++ {
					c := Coordinates{Quadra: q, Lado: l, Fila: f, Andar: a}
					code, err := FormatCode(c, limits.LadoAsLetter)
					if err != nil {
						return nil, apperror.NewDimensionError(err.Error())
					}
					slots = append(slots, LocationSlot{Coordinates: c, Code: code})
				}
			}
		}
	}
	return slots, nil
}

// GenerationResult resume uma (re)geração de localizações.
type GenerationResult struct {
	ChamberID  string            `json:"chamber_id"`
	Dimensions ChamberDimensions `json:"dimensions"`
	Total      int               `json:"total"`
	Created    int               `json:"created"`
	Removed    int               `json:"removed"`
	Recoded    int               `json:"recoded"`
}
