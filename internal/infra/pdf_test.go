package infra_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clubebar/internal/infra"
	"clubebar/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPedidoComItens() *model.Pedido {
	agora := time.Now()
	mesa := "12"
	return &model.Pedido{
		ID:       uuid.New(),
		Numero:   7,
		Status:   model.PedidoPago,
		Subtotal: decimal.RequireFromString("37.00"),
		Desconto: decimal.Zero,
		Total:    decimal.RequireFromString("37.00"),
		Mesa:     &mesa,
		PagoEm:   &agora,
		Itens: []model.ItemPedido{
			{ProdutoNome: "Caipirinha de limão", Quantidade: 1, PrecoUnitario: decimal.RequireFromString("22.00"), Subtotal: decimal.RequireFromString("22.00")},
			{ProdutoNome: "Água com gás", Quantidade: 3, PrecoUnitario: decimal.RequireFromString("5.00"), Subtotal: decimal.RequireFromString("15.00")},
		},
		Pagamentos: []model.Pagamento{
			{Forma: model.FormaDinheiro, Valor: decimal.RequireFromString("50.00"), Troco: decimal.RequireFromString("13.00")},
		},
	}
}

func TestGerarComprovantePDF_Exitoso(t *testing.T) {
	tmpDir := t.TempDir()

	pdfPath, err := infra.GerarComprovantePDF(buildPedidoComItens(), "Clube Náutico", tmpDir)

	require.NoError(t, err)
	info, statErr := os.Stat(pdfPath)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(100), "PDF should have content > 100 bytes")
}

func TestGerarComprovantePDF_NomeArquivo(t *testing.T) {
	p := buildPedidoComItens()
	p.Numero = 99

	pdfPath, err := infra.GerarComprovantePDF(p, "Clube", t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "pedido_99.pdf", filepath.Base(pdfPath))
}

func TestGerarComprovantePDF_ComDescontoECarteirinha(t *testing.T) {
	p := buildPedidoComItens()
	p.Desconto = decimal.RequireFromString("7.00")
	p.Total = decimal.RequireFromString("30.00")
	p.Pagamentos = []model.Pagamento{{Forma: model.FormaCarteirinha, Valor: decimal.RequireFromString("30.00"), Troco: decimal.Zero}}

	pdfPath, err := infra.GerarComprovantePDF(p, "Clube", filepath.Join(t.TempDir(), "nested"))

	require.NoError(t, err)
	_, statErr := os.Stat(pdfPath)
	assert.NoError(t, statErr)
}
