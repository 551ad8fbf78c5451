package dto

import "github.com/shopspring/decimal"

type CategoriaResponse struct {
	ID        string  `json:"id"`
	Nome      string  `json:"nome"`
	Descricao *string `json:"descricao"`
	Ativo     bool    `json:"ativo"`
	Ordem     int     `json:"ordem"`
}

type ProdutoResponse struct {
	ID              string          `json:"id"`
	CategoriaID     *string         `json:"categoria_id"`
	CategoriaNome   *string         `json:"categoria_nome"`
	Nome            string          `json:"nome"`
	Descricao       *string         `json:"descricao"`
	Preco           decimal.Decimal `json:"preco"`
	Unidade         string          `json:"unidade"`
	EstoqueAtual    int             `json:"estoque_atual"`
	EstoqueMinimo   int             `json:"estoque_minimo"`
	ControlaEstoque bool            `json:"controla_estoque"`
	Ativo           bool            `json:"ativo"`
}
