// Package pdv holds the register-side state of a bar sale: the cart being
// built and the tenders being matched against it. Both are plain values owned
// by one operator session; nothing here touches storage.
package pdv

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubebar/internal/model"
)

// ItemCarrinho is one cart line. PrecoUnitario is snapshotted when the product
// is first added, so later catalog edits never reprice an open cart.
type ItemCarrinho struct {
	ProdutoID     uuid.UUID
	Nome          string
	PrecoUnitario decimal.Decimal
	Quantidade    int
}

func (i ItemCarrinho) Subtotal() decimal.Decimal {
	return i.PrecoUnitario.Mul(decimal.NewFromInt(int64(i.Quantidade)))
}

// Carrinho accumulates lines in insertion order. The zero value is an empty cart.
type Carrinho struct {
	itens []ItemCarrinho
}

func NovoCarrinho() *Carrinho { return &Carrinho{} }

// Adicionar merges qtd units of p into the cart. Non-positive quantities are ignored.
func (c *Carrinho) Adicionar(p model.Produto, qtd int) {
	if qtd <= 0 {
		return
	}
	if i := c.indice(p.ID); i >= 0 {
		c.itens[i].Quantidade += qtd
		return
	}
	c.itens = append(c.itens, ItemCarrinho{
		ProdutoID:     p.ID,
		Nome:          p.Nome,
		PrecoUnitario: p.Preco,
		Quantidade:    qtd,
	})
}

// DefinirQuantidade replaces the line quantity; qtd <= 0 drops the line.
func (c *Carrinho) DefinirQuantidade(produtoID uuid.UUID, qtd int) {
	i := c.indice(produtoID)
	if i < 0 {
		return
	}
	if qtd <= 0 {
		c.Remover(produtoID)
		return
	}
	c.itens[i].Quantidade = qtd
}

func (c *Carrinho) Remover(produtoID uuid.UUID) {
	if i := c.indice(produtoID); i >= 0 {
		c.itens = append(c.itens[:i], c.itens[i+1:]...)
	}
}

func (c *Carrinho) Limpar() { c.itens = nil }

func (c *Carrinho) Vazio() bool { return len(c.itens) == 0 }

// Itens returns a copy of the lines.
func (c *Carrinho) Itens() []ItemCarrinho {
	out := make([]ItemCarrinho, len(c.itens))
	copy(out, c.itens)
	return out
}

func (c *Carrinho) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.itens {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *Carrinho) indice(produtoID uuid.UUID) int {
	for i := range c.itens {
		if c.itens[i].ProdutoID == produtoID {
			return i
		}
	}
	return -1
}
