package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
)

func kg(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func freeLocation() domain.Location {
	return domain.Location{ID: "loc-1", Code: "Q1-LA-F1-A1", MaxCapacityKg: kg("100")}
}

func TestFormatCode(t *testing.T) {
	c := domain.Coordinates{Quadra: 2, Lado: 3, Fila: 10, Andar: 4}

	code, err := domain.FormatCode(c, true)
	assert.NoError(t, err)
	assert.Equal(t, "Q2-LC-F10-A4", code)

	code, err = domain.FormatCode(c, false)
	assert.NoError(t, err)
	assert.Equal(t, "Q2-L3-F10-A4", code)

	_, err = domain.FormatCode(domain.Coordinates{Quadra: 1, Lado: 21, Fila: 1, Andar: 1}, true)
	assert.Error(t, err)
}

func TestParseCode_RoundTrip(t *testing.T) {
	for _, asLetter := range []bool{true, false} {
		c := domain.Coordinates{Quadra: 7, Lado: 20, Fila: 1, Andar: 3}
		code, err := domain.FormatCode(c, asLetter)
		require.NoError(t, err)

		parsed, err := domain.ParseCode(code)
		assert.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestParseCode_Fail_Malformed(t *testing.T) {
	for _, code := range []string{"", "Q1-LA-F1", "X1-LA-F1-A1", "Q0-LA-F1-A1", "Q1-LZ-F1-A1", "Q1-L-F1-A1", "Q1-LA-Fx-A1"} {
		_, err := domain.ParseCode(code)
		assert.Error(t, err, code)
	}
}

func TestEnumerateCoordinates_OrderAndCount(t *testing.T) {
	dims := domain.ChamberDimensions{Quadras: 2, Lados: 2, Filas: 2, Andares: 3}
	slots, err := domain.EnumerateCoordinates(dims, domain.DefaultLocationLimits())
	require.NoError(t, err)
	assert.Len(t, slots, 24)

	assert.Equal(t, "Q1-LA-F1-A1", slots[0].Code)
	assert.Equal(t, "Q1-LA-F1-A2", slots[1].Code)
	assert.Equal(t, "Q2-LB-F2-A3", slots[len(slots)-1].Code)

	seen := map[string]bool{}
	for i, s := range slots {
		assert.False(t, seen[s.Code], "código duplicado %s", s.Code)
		seen[s.Code] = true
		if i > 0 {
			assert.True(t, slots[i-1].Coordinates.Less(s.Coordinates))
		}
	}
}

func TestChamberDimensions_Validate(t *testing.T) {
	limits := domain.DefaultLocationLimits()
	limits.MaxTotal = 1000

	var dimErr *apperror.DimensionError

	err := domain.ChamberDimensions{Quadras: 0, Lados: 1, Filas: 1, Andares: 1}.Validate(limits)
	assert.True(t, errors.As(err, &dimErr))

	err = domain.ChamberDimensions{Quadras: 1, Lados: 21, Filas: 1, Andares: 1}.Validate(limits)
	assert.True(t, errors.As(err, &dimErr))

	err = domain.ChamberDimensions{Quadras: 10, Lados: 10, Filas: 10, Andares: 2}.Validate(limits)
	assert.True(t, errors.As(err, &dimErr), "2000 localizações excedem o teto de 1000")

	assert.NoError(t, domain.ChamberDimensions{Quadras: 10, Lados: 10, Filas: 10, Andares: 1}.Validate(limits))
}

func TestLocation_CheckClaim(t *testing.T) {
	loc := freeLocation()

	assert.NoError(t, loc.CheckClaim(kg("100")))

	var capErr *apperror.CapacityExceededError
	assert.True(t, errors.As(loc.CheckClaim(kg("100.001")), &capErr))

	var valErr *apperror.ValidationError
	assert.True(t, errors.As(loc.CheckClaim(decimal.Zero), &valErr))

	claimed := loc.Claimed("p-1", kg("40"), 4)
	var occupied *apperror.LocationOccupiedError
	assert.True(t, errors.As(claimed.CheckClaim(kg("1")), &occupied))
	assert.True(t, claimed.IsOccupied)
	assert.Equal(t, "p-1", claimed.ProductID)
	assert.True(t, claimed.ResidualCapacityKg().Equal(kg("60")))
}

func TestLocation_CheckAdjust(t *testing.T) {
	loc := freeLocation().Claimed("p-1", kg("40"), 4)

	assert.NoError(t, loc.CheckAdjust("p-1", kg("60"), 6))
	assert.NoError(t, loc.CheckAdjust("p-1", kg("-40"), -4))

	var capErr *apperror.CapacityExceededError
	assert.True(t, errors.As(loc.CheckAdjust("p-1", kg("60.5"), 6), &capErr))
	assert.True(t, errors.As(loc.CheckAdjust("p-1", kg("-41"), -4), &capErr))

	var occupied *apperror.LocationOccupiedError
	assert.True(t, errors.As(loc.CheckAdjust("p-2", kg("1"), 1), &occupied))

	adjusted := loc.Adjusted(kg("-10"), -1)
	assert.True(t, adjusted.CurrentWeightKg.Equal(kg("30")))
	assert.Equal(t, 3, adjusted.StoredQuantity)
}

func TestLocation_CheckRelease(t *testing.T) {
	loc := freeLocation().Claimed("p-1", kg("40"), 4)

	var occupied *apperror.LocationOccupiedError
	assert.True(t, errors.As(loc.CheckRelease("p-2"), &occupied))
	assert.NoError(t, loc.CheckRelease("p-1"))

	released := loc.Released()
	assert.False(t, released.IsOccupied)
	assert.Empty(t, released.ProductID)
	assert.True(t, released.CurrentWeightKg.IsZero())
	assert.Equal(t, 0, released.StoredQuantity)
	assert.True(t, errors.As(released.CheckRelease("p-1"), &occupied))
}
