package pdv

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubebar/internal/apierror"
	"clubebar/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func produto(nome, preco string) model.Produto {
	return model.Produto{ID: uuid.New(), Nome: nome, Preco: dec(preco), Ativo: true}
}

type saldoFixo map[uuid.UUID]decimal.Decimal

func (s saldoFixo) Saldo(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return s[id], nil
}

// ── Carrinho ──────────────────────────────────────────────────────────────────

func TestCarrinho_AdicionarMesclaLinhas(t *testing.T) {
	cerveja := produto("Cerveja", "10.00")
	agua := produto("Água", "5.00")

	c := NovoCarrinho()
	c.Adicionar(cerveja, 1)
	c.Adicionar(agua, 1)
	c.Adicionar(cerveja, 1)

	itens := c.Itens()
	require.Len(t, itens, 2)
	assert.Equal(t, cerveja.ID, itens[0].ProdutoID)
	assert.Equal(t, 2, itens[0].Quantidade)
	assert.Equal(t, "25.00", c.Subtotal().StringFixed(2))
}

func TestCarrinho_PrecoFicaCongelado(t *testing.T) {
	p := produto("Porção", "30.00")
	c := NovoCarrinho()
	c.Adicionar(p, 1)

	p.Preco = dec("45.00")
	c.Adicionar(p, 1)

	assert.Equal(t, "60.00", c.Subtotal().StringFixed(2))
}

func TestCarrinho_DefinirQuantidadeZeroRemove(t *testing.T) {
	p := produto("Refrigerante", "6.00")
	c := NovoCarrinho()
	c.Adicionar(p, 3)

	c.DefinirQuantidade(p.ID, 5)
	assert.Equal(t, "30.00", c.Subtotal().StringFixed(2))

	c.DefinirQuantidade(p.ID, 0)
	assert.True(t, c.Vazio())
	assert.True(t, c.Subtotal().IsZero())
}

func TestCarrinho_QuantidadeInvalidaIgnorada(t *testing.T) {
	c := NovoCarrinho()
	c.Adicionar(produto("Gelo", "2.00"), 0)
	c.Adicionar(produto("Gelo", "2.00"), -3)
	assert.True(t, c.Vazio())
}

func TestCarrinho_RemoverELimpar(t *testing.T) {
	a, b := produto("A", "1.00"), produto("B", "2.00")
	c := NovoCarrinho()
	c.Adicionar(a, 1)
	c.Adicionar(b, 1)

	c.Remover(a.ID)
	require.Len(t, c.Itens(), 1)
	assert.Equal(t, b.ID, c.Itens()[0].ProdutoID)

	c.Limpar()
	assert.True(t, c.Vazio())
}

// ── Divisor ───────────────────────────────────────────────────────────────────

func TestDivisor_TrocoEmDinheiro(t *testing.T) {
	c := NovoCarrinho()
	c.Adicionar(produto("Cerveja", "10.00"), 2)
	c.Adicionar(produto("Água", "5.00"), 1)
	require.Equal(t, "25.00", c.Subtotal().StringFixed(2))

	d := NovoDivisor(c.Subtotal(), dec("5.00"))
	assert.Equal(t, "20.00", d.Total().StringFixed(2))

	aplicado, err := d.Adicionar(context.Background(), model.FormaDinheiro, dec("25.00"))
	require.NoError(t, err)
	assert.Equal(t, "25.00", aplicado.StringFixed(2))
	assert.Equal(t, "5.00", d.Troco().StringFixed(2))
	assert.True(t, d.Restante().IsZero())
	assert.True(t, d.PodeFinalizar())

	pags := d.Pagamentos()
	require.Len(t, pags, 1)
	assert.Equal(t, "5.00", pags[0].Troco.StringFixed(2))
}

func TestDivisor_NaoDinheiroLimitadoAoRestante(t *testing.T) {
	d := NovoDivisor(dec("40.00"), decimal.Zero)
	ctx := context.Background()

	_, err := d.Adicionar(ctx, model.FormaPix, dec("15.00"))
	require.NoError(t, err)
	aplicado, err := d.Adicionar(ctx, model.FormaCartaoDebito, dec("100.00"))
	require.NoError(t, err)

	assert.Equal(t, "25.00", aplicado.StringFixed(2))
	assert.True(t, d.Troco().IsZero())
	assert.True(t, d.PodeFinalizar())
}

func TestDivisor_ReadicionarSubstitui(t *testing.T) {
	d := NovoDivisor(dec("50.00"), decimal.Zero)
	ctx := context.Background()

	_, err := d.Adicionar(ctx, model.FormaPix, dec("20.00"))
	require.NoError(t, err)
	_, err = d.Adicionar(ctx, model.FormaPix, dec("50.00"))
	require.NoError(t, err)

	require.Len(t, d.Tenders(), 1)
	assert.Equal(t, "50.00", d.Valor(model.FormaPix).StringFixed(2))
	assert.True(t, d.Restante().IsZero())
}

func TestDivisor_PedidoCobertoRejeitaNaoDinheiro(t *testing.T) {
	d := NovoDivisor(dec("10.00"), decimal.Zero)
	ctx := context.Background()
	_, err := d.Adicionar(ctx, model.FormaPix, dec("10.00"))
	require.NoError(t, err)

	_, err = d.Adicionar(ctx, model.FormaCartaoCredito, dec("5.00"))
	assert.ErrorIs(t, err, apierror.ErrValidation)

	// cash still accepted as overpayment
	_, err = d.Adicionar(ctx, model.FormaDinheiro, dec("5.00"))
	require.NoError(t, err)
	assert.Equal(t, "5.00", d.Troco().StringFixed(2))
}

func TestDivisor_ValorNaoPositivo(t *testing.T) {
	d := NovoDivisor(dec("10.00"), decimal.Zero)
	_, err := d.Adicionar(context.Background(), model.FormaDinheiro, decimal.Zero)
	assert.ErrorIs(t, err, apierror.ErrNegativeAmount)
	assert.ErrorIs(t, err, apierror.ErrValidation)

	_, err = d.Adicionar(context.Background(), model.FormaPix, dec("-1"))
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestDivisor_FormaInvalida(t *testing.T) {
	d := NovoDivisor(dec("10.00"), decimal.Zero)
	_, err := d.Adicionar(context.Background(), model.FormaPagamento("cheque"), dec("10"))
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestDivisor_CarteirinhaSaldoInsuficiente(t *testing.T) {
	associado := uuid.New()
	d := NovoDivisor(dec("20.00"), decimal.Zero).
		ComCarteirinha(associado, saldoFixo{associado: dec("10.00")})

	_, err := d.Adicionar(context.Background(), model.FormaCarteirinha, dec("15.00"))
	require.Error(t, err)

	var saldoErr *apierror.InsufficientBalanceError
	require.True(t, errors.As(err, &saldoErr))
	assert.Equal(t, "5.00", saldoErr.Falta().StringFixed(2))
	assert.Contains(t, err.Error(), "R$ 10,00")
	assert.Empty(t, d.Tenders())
}

func TestDivisor_CarteirinhaMaisPix(t *testing.T) {
	associado := uuid.New()
	d := NovoDivisor(dec("40.00"), decimal.Zero).
		ComCarteirinha(associado, saldoFixo{associado: dec("30.00")})
	ctx := context.Background()

	_, err := d.Adicionar(ctx, model.FormaCarteirinha, dec("30.00"))
	require.NoError(t, err)
	assert.False(t, d.PodeFinalizar())
	_, err = d.Adicionar(ctx, model.FormaPix, dec("10.00"))
	require.NoError(t, err)

	assert.True(t, d.PodeFinalizar())
	assert.Equal(t, "40.00", d.TotalAplicado().StringFixed(2))
}

func TestDivisor_CarteirinhaSemAssociado(t *testing.T) {
	d := NovoDivisor(dec("10.00"), decimal.Zero)
	_, err := d.Adicionar(context.Background(), model.FormaCarteirinha, dec("10.00"))
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestDivisor_DescontoLimitado(t *testing.T) {
	d := NovoDivisor(dec("10.00"), dec("25.00"))
	assert.Equal(t, "10.00", d.Desconto().StringFixed(2))
	assert.True(t, d.Total().IsZero())

	d = NovoDivisor(dec("10.00"), dec("-2"))
	assert.True(t, d.Desconto().IsZero())
}

func TestDivisor_CortesiaEmPedidoZerado(t *testing.T) {
	d := NovoDivisor(dec("12.00"), dec("12.00"))
	assert.False(t, d.PodeFinalizar())

	aplicado, err := d.Adicionar(context.Background(), model.FormaCortesia, dec("12.00"))
	require.NoError(t, err)
	assert.True(t, aplicado.IsZero())
	assert.True(t, d.PodeFinalizar())
}

func TestDivisor_RemoverPagamento(t *testing.T) {
	d := NovoDivisor(dec("30.00"), decimal.Zero)
	ctx := context.Background()
	_, _ = d.Adicionar(ctx, model.FormaPix, dec("10.00"))
	_, _ = d.Adicionar(ctx, model.FormaDinheiro, dec("20.00"))
	require.True(t, d.PodeFinalizar())

	d.Remover(model.FormaPix)
	assert.Equal(t, "10.00", d.Restante().StringFixed(2))
	assert.False(t, d.PodeFinalizar())
}

func TestDivisor_ToleranciaDeUmCentavo(t *testing.T) {
	d := NovoDivisor(dec("10.01"), decimal.Zero)
	_, err := d.Adicionar(context.Background(), model.FormaDinheiro, dec("10.00"))
	require.NoError(t, err)
	assert.True(t, d.PodeFinalizar())
}
