package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCaixaRequest struct {
	SaldoInicial decimal.Decimal `json:"saldo_inicial" validate:"min=0"`
	Observacao   *string         `json:"observacao"    validate:"omitempty,max=500"`
}

type FecharCaixaRequest struct {
	CaixaID        string          `json:"caixa_id"        validate:"required,uuid"`
	SaldoConferido decimal.Decimal `json:"saldo_conferido" validate:"min=0"`
	Observacao     *string         `json:"observacao"      validate:"omitempty,max=500"`
}

type MovimentoCaixaRequest struct {
	CaixaID string          `json:"caixa_id" validate:"required,uuid"`
	Tipo    string          `json:"tipo"     validate:"required,oneof=sangria suprimento"`
	Valor   decimal.Decimal `json:"valor"`
	Motivo  *string         `json:"motivo"   validate:"omitempty,max=255"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CaixaMovimentoResponse struct {
	ID         string          `json:"id"`
	Tipo       string          `json:"tipo"`
	Valor      decimal.Decimal `json:"valor"`
	Motivo     *string         `json:"motivo"`
	OperadorID string          `json:"operador_id"`
	CreatedAt  string          `json:"created_at"`
}

// CaixaResponse is the session report. For an open session the totals are a
// live preview; once fechado they are the frozen close values.
type CaixaResponse struct {
	ID                   string                     `json:"id"`
	OperadorID           string                     `json:"operador_id"`
	OperadorNome         string                     `json:"operador_nome"`
	Status               string                     `json:"status"`
	SaldoInicial         decimal.Decimal            `json:"saldo_inicial"`
	TotalVendas          decimal.Decimal            `json:"total_vendas"`
	QuantidadePedidos    int64                      `json:"quantidade_pedidos"`
	TotaisPorForma       map[string]decimal.Decimal `json:"totais_por_forma"`
	TotalTroco           decimal.Decimal            `json:"total_troco"`
	TotalSangrias        decimal.Decimal            `json:"total_sangrias"`
	TotalSuprimentos     decimal.Decimal            `json:"total_suprimentos"`
	SaldoFinal           decimal.Decimal            `json:"saldo_final"`
	SaldoConferido       *decimal.Decimal           `json:"saldo_conferido"`
	Diferenca            *decimal.Decimal           `json:"diferenca"`
	ObservacaoAbertura   *string                    `json:"observacao_abertura"`
	ObservacaoFechamento *string                    `json:"observacao_fechamento"`
	AbertoEm             string                     `json:"aberto_em"`
	FechadoEm            *string                    `json:"fechado_em"`
	Movimentos           []CaixaMovimentoResponse   `json:"movimentos,omitempty"`
}

type CaixaListResponse struct {
	Data  []CaixaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}
