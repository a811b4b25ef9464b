package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gosementes/internal/domain"
)

func TestProduct_TotalWeight(t *testing.T) {
	p := domain.Product{Quantity: 3, WeightPerUnit: kg("0.125")}
	assert.True(t, p.TotalWeight().Equal(kg("0.375")))
	assert.True(t, p.WeightOf(2).Equal(kg("0.25")))
	assert.Equal(t, "", p.PrimaryLocation())
}

func TestValidateWeightPerUnit(t *testing.T) {
	assert.NoError(t, domain.ValidateWeightPerUnit(kg("12.345")))
	assert.Error(t, domain.ValidateWeightPerUnit(kg("0")))
	assert.Error(t, domain.ValidateWeightPerUnit(kg("-1")))
	assert.Error(t, domain.ValidateWeightPerUnit(kg("1.2345")))
}

func TestProductCreate_Validate(t *testing.T) {
	ok := domain.ProductCreate{Name: "Soja", SeedTypeID: "soja", Lot: "L1", Quantity: 10, WeightPerUnit: kg("25")}
	assert.NoError(t, ok.Validate())

	zero := ok
	zero.Quantity = 0
	assert.Error(t, zero.Validate())
}

func TestWithdrawalRequest_CheckPending(t *testing.T) {
	w := domain.WithdrawalRequest{Status: domain.WithdrawalPendente}
	assert.NoError(t, w.CheckPending(domain.OpConfirmTotal))

	w.Status = domain.WithdrawalConfirmado
	assert.Error(t, w.CheckPending(domain.OpConfirmTotal))
}
