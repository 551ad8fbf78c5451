package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// PedidoFilter is bound from query string of GET /v1/pedidos.
type PedidoFilter struct {
	Status      string `form:"status"`                          // aberto | pago | cancelado | all
	AssociadoID string `form:"associado_id" validate:"omitempty,uuid"`
	CaixaID     string `form:"caixa_id"     validate:"omitempty,uuid"`
	DataInicio  string `form:"data_inicio"  validate:"omitempty,datetime=2006-01-02"`
	DataFim     string `form:"data_fim"     validate:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type PedidoListResponse struct {
	Data       []PedidoResponse `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ItemPedidoRequest is one cart line as the register holds it: the unit price
// is the snapshot taken when the product entered the cart.
type ItemPedidoRequest struct {
	ProdutoID     string          `json:"produto_id"     validate:"required,uuid"`
	Quantidade    int             `json:"quantidade"     validate:"required,min=1"`
	PrecoUnitario decimal.Decimal `json:"preco_unitario" validate:"min=0"`
	Subtotal      decimal.Decimal `json:"subtotal"       validate:"min=0"`
}

type PagamentoRequest struct {
	FormaPagamento    string          `json:"forma_pagamento"    validate:"required,oneof=dinheiro cartao_credito cartao_debito pix carteirinha cortesia"`
	Valor             decimal.Decimal `json:"valor"              validate:"min=0"`
	ReferenciaExterna *string         `json:"referencia_externa" validate:"omitempty,max=100"`
}

type FinalizarVendaRequest struct {
	AssociadoID *string             `json:"associado_id" validate:"omitempty,uuid"`
	Itens       []ItemPedidoRequest `json:"itens"        validate:"required,min=1,dive"`
	Pagamentos  []PagamentoRequest  `json:"pagamentos"   validate:"required,min=1,dive"`
	Subtotal    decimal.Decimal     `json:"subtotal"     validate:"min=0"`
	Desconto    decimal.Decimal     `json:"desconto"     validate:"min=0"`
	Observacao  *string             `json:"observacao"   validate:"omitempty,max=500"`
	Mesa        *string             `json:"mesa"         validate:"omitempty,max=20"`
	// EmailComprovante is optional; when present the receipt worker mails the PDF.
	EmailComprovante *string `json:"email_comprovante" validate:"omitempty,email"`
}

type CancelarPedidoRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

// SimularVendaRequest drives the register preview: products are priced from
// the current catalog and tenders run through the same splitter as commit.
type SimularVendaRequest struct {
	AssociadoID *string            `json:"associado_id" validate:"omitempty,uuid"`
	Itens       []ItemSimulacao    `json:"itens"        validate:"required,min=1,dive"`
	Pagamentos  []PagamentoRequest `json:"pagamentos"   validate:"omitempty,dive"`
	Desconto    decimal.Decimal    `json:"desconto"     validate:"min=0"`
}

type ItemSimulacao struct {
	ProdutoID  string `json:"produto_id" validate:"required,uuid"`
	Quantidade int    `json:"quantidade" validate:"required,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemPedidoResponse struct {
	ProdutoID     string          `json:"produto_id"`
	ProdutoNome   string          `json:"produto_nome"`
	Quantidade    int             `json:"quantidade"`
	PrecoUnitario decimal.Decimal `json:"preco_unitario"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

type PagamentoResponse struct {
	FormaPagamento    string          `json:"forma_pagamento"`
	Valor             decimal.Decimal `json:"valor"`
	Troco             decimal.Decimal `json:"troco"`
	ReferenciaExterna *string         `json:"referencia_externa,omitempty"`
}

type PedidoResponse struct {
	ID                 string               `json:"id"`
	Numero             int64                `json:"numero_pedido"`
	AssociadoID        *string              `json:"associado_id"`
	OperadorID         string               `json:"operador_id"`
	CaixaID            *string              `json:"caixa_id"`
	Status             string               `json:"status"`
	Itens              []ItemPedidoResponse `json:"itens"`
	Pagamentos         []PagamentoResponse  `json:"pagamentos"`
	Subtotal           decimal.Decimal      `json:"subtotal"`
	Desconto           decimal.Decimal      `json:"desconto"`
	Total              decimal.Decimal      `json:"total"`
	Troco              decimal.Decimal      `json:"troco"`
	Observacao         *string              `json:"observacao,omitempty"`
	Mesa               *string              `json:"mesa,omitempty"`
	MotivoCancelamento *string              `json:"motivo_cancelamento,omitempty"`
	CreatedAt          string               `json:"created_at"`
	PagoEm             *string              `json:"pago_em"`
	CanceladoEm        *string              `json:"cancelado_em"`
}

type SimulacaoResponse struct {
	Itens         []ItemPedidoResponse `json:"itens"`
	Pagamentos    []PagamentoResponse  `json:"pagamentos"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	Desconto      decimal.Decimal      `json:"desconto"`
	Total         decimal.Decimal      `json:"total"`
	TotalAplicado decimal.Decimal      `json:"total_aplicado"`
	Restante      decimal.Decimal      `json:"restante"`
	Troco         decimal.Decimal      `json:"troco"`
	PodeFinalizar bool                 `json:"pode_finalizar"`
}
