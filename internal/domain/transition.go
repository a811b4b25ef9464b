package domain

import (
	"fmt"

	apperror "gosementes/internal/errors"
)

// Operation é um gatilho da máquina de estados (ou uma operação administrativa
// sujeita à tabela de autoridade).
type Operation string

const (
	OpCompleteIntake    Operation = "CONCLUIR_CADASTRO"
	OpLocate            Operation = "LOCAR"
	OpMove              Operation = "MOVER"
	OpPartialMove       Operation = "MOVER_PARCIAL"
	OpAddStock          Operation = "ADICIONAR_ESTOQUE"
	OpPartialExit       Operation = "SAIDA_PARCIAL"
	OpExitAll           Operation = "SAIDA_TOTAL"
	OpRemove            Operation = "REMOVER"
	OpRequestWithdrawal Operation = "SOLICITAR_RETIRADA"
	OpConfirmTotal      Operation = "CONFIRMAR_RETIRADA_TOTAL"
	OpConfirmPartial    Operation = "CONFIRMAR_RETIRADA_PARCIAL"
	OpCancelWithdrawal  Operation = "CANCELAR_RETIRADA"

	OpCreateProduct     Operation = "CADASTRAR_PRODUTO"
	OpGenerateLocations Operation = "GERAR_LOCALIZACOES"
	OpManageChamber     Operation = "GERENCIAR_CAMARA"
)

// transitions é a única tabela de transições legais.
var transitions = map[ProductStatus]map[Operation]ProductStatus{
	StatusCadastrado: {
		OpCompleteIntake: StatusAguardandoLocacao,
		OpRemove:         StatusRemovido,
	},
	StatusAguardandoLocacao: {
		OpLocate: StatusLocado,
		OpRemove: StatusRemovido,
	},
	StatusLocado: {
		OpMove:              StatusLocado,
		OpPartialMove:       StatusLocado,
		OpAddStock:          StatusLocado,
		OpPartialExit:       StatusLocado,
		OpExitAll:           StatusRemovido,
		OpRemove:            StatusRemovido,
		OpRequestWithdrawal: StatusAguardandoRetirada,
	},
	StatusAguardandoRetirada: {
		OpConfirmTotal:     StatusRetirado,
		OpConfirmPartial:   StatusLocado,
		OpCancelWithdrawal: StatusLocado,
	},
}

// NextStatus consulta a tabela de transições.
func NextStatus(from ProductStatus, op Operation) (ProductStatus, error) {
	if to, ok := transitions[from][op]; ok {
		return to, nil
	}
	msg := fmt.Sprintf("a operação %s não é permitida a partir de %s.", op, from)
	if from.IsTerminal() {
		msg = fmt.Sprintf("o produto está em estado terminal (%s).", from)
	}
	return "", apperror.NewInvalidStateTransitionError(string(from), string(op), msg)
}

// authority define quais papéis podem executar cada operação.
var authority = map[Operation][]UserRole{
	OpCompleteIntake:    {RoleAdmin, RoleOperador},
	OpCreateProduct:     {RoleAdmin, RoleOperador},
	OpLocate:            {RoleOperador},
	OpMove:              {RoleOperador},
	OpPartialMove:       {RoleOperador},
	OpConfirmTotal:      {RoleOperador},
	OpConfirmPartial:    {RoleOperador},
	OpAddStock:          {RoleAdmin},
	OpPartialExit:       {RoleAdmin},
	OpExitAll:           {RoleAdmin},
	OpRemove:            {RoleAdmin},
	OpRequestWithdrawal: {RoleAdmin},
	OpCancelWithdrawal:  {RoleAdmin},
	OpGenerateLocations: {RoleAdmin},
	OpManageChamber:     {RoleAdmin},
}

// Authorize falha com UnauthorizedTransitionError se o papel não tem autoridade.
func Authorize(role UserRole, op Operation) error {
	for _, allowed := range authority[op] {
		if allowed == role {
			return nil
		}
	}
	return apperror.NewUnauthorizedTransitionError(string(role), string(op))
}
