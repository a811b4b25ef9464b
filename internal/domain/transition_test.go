package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"gosementes/internal/domain"
	apperror "gosementes/internal/errors"
)

func TestNextStatus_LegalTransitions(t *testing.T) {
	cases := []struct {
		from domain.ProductStatus
		op   domain.Operation
		to   domain.ProductStatus
	}{
		{domain.StatusCadastrado, domain.OpCompleteIntake, domain.StatusAguardandoLocacao},
		{domain.StatusCadastrado, domain.OpRemove, domain.StatusRemovido},
		{domain.StatusAguardandoLocacao, domain.OpLocate, domain.StatusLocado},
		{domain.StatusAguardandoLocacao, domain.OpRemove, domain.StatusRemovido},
		{domain.StatusLocado, domain.OpMove, domain.StatusLocado},
		{domain.StatusLocado, domain.OpPartialMove, domain.StatusLocado},
		{domain.StatusLocado, domain.OpAddStock, domain.StatusLocado},
		{domain.StatusLocado, domain.OpPartialExit, domain.StatusLocado},
		{domain.StatusLocado, domain.OpExitAll, domain.StatusRemovido},
		{domain.StatusLocado, domain.OpRemove, domain.StatusRemovido},
		{domain.StatusLocado, domain.OpRequestWithdrawal, domain.StatusAguardandoRetirada},
		{domain.StatusAguardandoRetirada, domain.OpConfirmTotal, domain.StatusRetirado},
		{domain.StatusAguardandoRetirada, domain.OpConfirmPartial, domain.StatusLocado},
		{domain.StatusAguardandoRetirada, domain.OpCancelWithdrawal, domain.StatusLocado},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+string(tc.op), func(t *testing.T) {
			to, err := domain.NextStatus(tc.from, tc.op)
			assert.NoError(t, err)
			assert.Equal(t, tc.to, to)
		})
	}
}

func TestNextStatus_Fail_IllegalTransition(t *testing.T) {
	cases := []struct {
		from domain.ProductStatus
		op   domain.Operation
	}{
		{domain.StatusCadastrado, domain.OpLocate},
		{domain.StatusAguardandoLocacao, domain.OpMove},
		{domain.StatusLocado, domain.OpLocate},
		{domain.StatusLocado, domain.OpConfirmTotal},
		{domain.StatusAguardandoRetirada, domain.OpMove},
		{domain.StatusAguardandoRetirada, domain.OpRemove},
	}

	for _, tc := range cases {
		_, err := domain.NextStatus(tc.from, tc.op)
		var invalid *apperror.InvalidStateTransitionError
		assert.True(t, errors.As(err, &invalid), "%s via %s deveria falhar", tc.from, tc.op)
		assert.Equal(t, string(tc.from), invalid.From)
		assert.Equal(t, string(tc.op), invalid.Event)
	}
}

func TestNextStatus_Fail_TerminalStates(t *testing.T) {
	ops := []domain.Operation{
		domain.OpCompleteIntake, domain.OpLocate, domain.OpMove, domain.OpRemove,
		domain.OpRequestWithdrawal, domain.OpConfirmTotal, domain.OpCancelWithdrawal,
	}
	for _, terminal := range []domain.ProductStatus{domain.StatusRetirado, domain.StatusRemovido} {
		assert.True(t, terminal.IsTerminal())
		for _, op := range ops {
			_, err := domain.NextStatus(terminal, op)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "estado terminal")
		}
	}
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		role    domain.UserRole
		op      domain.Operation
		allowed bool
	}{
		{domain.RoleOperador, domain.OpLocate, true},
		{domain.RoleAdmin, domain.OpLocate, false},
		{domain.RoleOperador, domain.OpMove, true},
		{domain.RoleAdmin, domain.OpMove, false},
		{domain.RoleOperador, domain.OpConfirmTotal, true},
		{domain.RoleAdmin, domain.OpConfirmPartial, false},
		{domain.RoleAdmin, domain.OpRequestWithdrawal, true},
		{domain.RoleOperador, domain.OpRequestWithdrawal, false},
		{domain.RoleAdmin, domain.OpCancelWithdrawal, true},
		{domain.RoleOperador, domain.OpCancelWithdrawal, false},
		{domain.RoleAdmin, domain.OpAddStock, true},
		{domain.RoleOperador, domain.OpPartialExit, false},
		{domain.RoleAdmin, domain.OpRemove, true},
		{domain.RoleOperador, domain.OpCompleteIntake, true},
		{domain.RoleAdmin, domain.OpCompleteIntake, true},
		{domain.RoleOperador, domain.OpGenerateLocations, false},
		{domain.UserRole("VISITANTE"), domain.OpCreateProduct, false},
	}

	for _, tc := range cases {
		err := domain.Authorize(tc.role, tc.op)
		if tc.allowed {
			assert.NoError(t, err, "%s deveria poder executar %s", tc.role, tc.op)
			continue
		}
		var unauthorized *apperror.UnauthorizedTransitionError
		assert.True(t, errors.As(err, &unauthorized), "%s não deveria poder executar %s", tc.role, tc.op)
	}
}

func TestProductStatus_HoldsLocation(t *testing.T) {
	assert.True(t, domain.StatusLocado.HoldsLocation())
	assert.True(t, domain.StatusAguardandoRetirada.HoldsLocation())
	assert.False(t, domain.StatusCadastrado.HoldsLocation())
	assert.False(t, domain.StatusRetirado.HoldsLocation())
	assert.False(t, domain.ProductStatus("X").Valid())
}
