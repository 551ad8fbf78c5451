package dto

import "github.com/shopspring/decimal"

type RecargaRequest struct {
	AssociadoID  string          `json:"associado_id"  validate:"required,uuid"`
	Valor        decimal.Decimal `json:"valor"         validate:"gt=0"`
	FormaRecarga string          `json:"forma_recarga" validate:"required,oneof=dinheiro cartao_credito cartao_debito pix"`
	Descricao    *string         `json:"descricao"     validate:"omitempty,max=255"`
}

type SaldoResponse struct {
	AssociadoID string          `json:"associado_id"`
	Saldo       decimal.Decimal `json:"saldo"`
}

type CarteirinhaMovimentoResponse struct {
	ID             string          `json:"id"`
	Tipo           string          `json:"tipo"`
	Valor          decimal.Decimal `json:"valor"`
	SaldoAnterior  decimal.Decimal `json:"saldo_anterior"`
	SaldoPosterior decimal.Decimal `json:"saldo_posterior"`
	Descricao      *string         `json:"descricao"`
	PedidoID       *string         `json:"pedido_id"`
	OperadorID     *string         `json:"operador_id"`
	FormaRecarga   *string         `json:"forma_recarga"`
	CreatedAt      string          `json:"created_at"`
}

type ExtratoResponse struct {
	AssociadoID string                         `json:"associado_id"`
	Saldo       decimal.Decimal                `json:"saldo"`
	Movimentos  []CarteirinhaMovimentoResponse `json:"movimentos"`
}

// ConferenciaResponse compares the cached balance with a replay of the ledger.
type ConferenciaResponse struct {
	AssociadoID string          `json:"associado_id"`
	Saldo       decimal.Decimal `json:"saldo"`
	SaldoReplay decimal.Decimal `json:"saldo_replay"`
	Movimentos  int             `json:"movimentos"`
	Consistente bool            `json:"consistente"`
	// Divergencias lists entry ids whose before/after chain is broken.
	Divergencias []string `json:"divergencias,omitempty"`
}
