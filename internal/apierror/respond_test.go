package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validacao", Invalid("quantidade inválida"), http.StatusUnprocessableEntity, "validacao"},
		{"valor negativo", NegativeAmount("valor"), http.StatusUnprocessableEntity, "validacao"},
		{"preco divergente", PricingMismatch("subtotal"), http.StatusUnprocessableEntity, "preco_divergente"},
		{"nao encontrado", NotFound("pedido"), http.StatusNotFound, "nao_encontrado"},
		{"sem caixa", NoOpenSession("nenhum caixa"), http.StatusConflict, "sem_caixa_aberto"},
		{"nfce emitida", AlreadyIssued(3, "3526"), http.StatusConflict, "nfce_ja_emitida"},
		{"nfce em emissao", EmissionInProgress(3), http.StatusConflict, "nfce_em_emissao"},
		{"caixa aberto", &AlreadyOpenError{CaixaID: uuid.New()}, http.StatusConflict, "caixa_ja_aberto"},
		{"caixa fechado", &SessionClosedError{CaixaID: uuid.New()}, http.StatusConflict, "caixa_fechado"},
		{"emissor", &FiscalBridgeError{Mensagem: "Rejeicao: NCM inexistente", CStat: "778"}, http.StatusBadGateway, "erro_emissor_fiscal"},
		{"embrulhado", fmt.Errorf("pedido: %w", NotFound("x")), http.StatusNotFound, "nao_encontrado"},
		{"desconhecido", errors.New("pq: connection refused"), http.StatusInternalServerError, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := Respond(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRespond_NaoVazaErroInterno(t *testing.T) {
	_, body := Respond(errors.New(`ERROR: relation "bar_pedidos" does not exist`))
	assert.Equal(t, "Erro interno do servidor", body.Detail)
	assert.Nil(t, body.Meta)
}

func TestRespond_SaldoInsuficienteTrazFalta(t *testing.T) {
	err := &InsufficientBalanceError{
		AssociadoID: uuid.New(),
		Disponivel:  decimal.RequireFromString("20.00"),
		Solicitado:  decimal.RequireFromString("25.50"),
	}
	status, body := Respond(fmt.Errorf("commit: %w", err))

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "saldo_insuficiente", body.Code)
	assert.Equal(t, "5.50", body.Meta["falta"].(decimal.Decimal).StringFixed(2))
	assert.Contains(t, body.Detail, "Faltam R$ 5,50")
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
}

func TestRespond_MensagemDoEmissorIntacta(t *testing.T) {
	msg := "Rejeicao: Duplicidade de NF-e, com diferenca na Chave de Acesso [chNFe:3526...]"
	_, body := Respond(&FiscalBridgeError{Mensagem: msg, CStat: "539"})
	assert.Equal(t, msg, body.Detail)
	assert.Equal(t, "539", body.Meta["cstat"])
}

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":       "R$ 0,00",
		"5":       "R$ 5,00",
		"1234.5":  "R$ 1.234,50",
		"1000000": "R$ 1.000.000,00",
		"-12.345": "-R$ 12,35",
		"999.999": "R$ 1.000,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBRL(decimal.RequireFromString(in)), in)
	}
}

func TestNegativeAmountEhValidacao(t *testing.T) {
	err := NegativeAmount("saldo_inicial")
	assert.ErrorIs(t, err, ErrNegativeAmount)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "saldo_inicial deve ser maior que zero", err.Error())
}
