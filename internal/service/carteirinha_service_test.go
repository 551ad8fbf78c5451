package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"clubebar/internal/apierror"
	"clubebar/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarteirinha_CreditarCriaSaldoNoPrimeiroUso(t *testing.T) {
	f := newBarFixture(t, nil)
	ctx := context.Background()
	socio := uuid.New()

	saldo, err := f.carteirinha.Saldo(ctx, socio)
	require.NoError(t, err)
	assert.Equal(t, "0.00", saldo.StringFixed(2))

	novo, err := f.carteirinha.Creditar(ctx, CreditoInput{AssociadoID: socio, Valor: dec("50.00"), Forma: model.FormaDinheiro})
	require.NoError(t, err)
	assert.Equal(t, "50.00", novo.StringFixed(2))

	extrato, err := f.carteirinha.Extrato(ctx, socio, 0)
	require.NoError(t, err)
	require.Len(t, extrato.Movimentos, 1)
	mov := extrato.Movimentos[0]
	assert.Equal(t, "credito", mov.Tipo)
	assert.Equal(t, "0.00", mov.SaldoAnterior.StringFixed(2))
	assert.Equal(t, "50.00", mov.SaldoPosterior.StringFixed(2))
	require.NotNil(t, mov.Descricao)
	assert.Equal(t, "Recarga via Dinheiro", *mov.Descricao)
}

func TestCarteirinha_RecargaRecusaFormaSemDinheiroReal(t *testing.T) {
	f := newBarFixture(t, nil)
	for _, forma := range []model.FormaPagamento{model.FormaCarteirinha, model.FormaCortesia} {
		_, err := f.carteirinha.Creditar(context.Background(), CreditoInput{
			AssociadoID: uuid.New(), Valor: dec("10.00"), Forma: forma,
		})
		assert.ErrorIs(t, err, apierror.ErrValidation, forma)
	}
}

func TestCarteirinha_ValorNaoPositivo(t *testing.T) {
	f := newBarFixture(t, nil)
	ctx := context.Background()

	_, err := f.carteirinha.Creditar(ctx, CreditoInput{AssociadoID: uuid.New(), Valor: dec("0"), Forma: model.FormaPix})
	assert.ErrorIs(t, err, apierror.ErrNegativeAmount)

	_, err = f.carteirinha.Debitar(ctx, DebitoInput{AssociadoID: uuid.New(), Valor: dec("-1")})
	assert.ErrorIs(t, err, apierror.ErrNegativeAmount)
}

func TestCarteirinha_DebitoInsuficienteInformaFalta(t *testing.T) {
	f := newBarFixture(t, nil)
	ctx := context.Background()
	socio := uuid.New()
	f.recarga(t, socio, "10.00")

	_, err := f.carteirinha.Debitar(ctx, DebitoInput{AssociadoID: socio, Valor: dec("15.00")})
	require.ErrorIs(t, err, apierror.ErrInsufficientBalance)

	var ib *apierror.InsufficientBalanceError
	require.True(t, errors.As(err, &ib))
	assert.Equal(t, "10.00", ib.Disponivel.StringFixed(2))
	assert.Equal(t, "5.00", ib.Falta().StringFixed(2))
	assert.Contains(t, err.Error(), "R$ 5,00")

	saldo, err := f.carteirinha.Saldo(ctx, socio)
	require.NoError(t, err)
	assert.Equal(t, "10.00", saldo.StringFixed(2))
}

func TestCarteirinha_DebitoSemContaEInsuficiente(t *testing.T) {
	f := newBarFixture(t, nil)
	_, err := f.carteirinha.Debitar(context.Background(), DebitoInput{AssociadoID: uuid.New(), Valor: dec("1.00")})
	assert.ErrorIs(t, err, apierror.ErrInsufficientBalance)
}

func TestCarteirinha_DebitosConcorrentesSoUmPassa(t *testing.T) {
	f := newBarFixture(t, nil)
	socio := uuid.New()
	f.recarga(t, socio, "30.00")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sucesso int
		recusa  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carteirinha.Debitar(context.Background(), DebitoInput{AssociadoID: socio, Valor: dec("20.00")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sucesso++
			case errors.Is(err, apierror.ErrInsufficientBalance):
				recusa++
			default:
				t.Errorf("erro inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sucesso)
	assert.Equal(t, 1, recusa)

	saldo, err := f.carteirinha.Saldo(context.Background(), socio)
	require.NoError(t, err)
	assert.Equal(t, "10.00", saldo.StringFixed(2))
}

func TestCarteirinha_ConferirReplayDoExtrato(t *testing.T) {
	f := newBarFixture(t, nil)
	ctx := context.Background()
	socio := uuid.New()

	f.recarga(t, socio, "40.00")
	_, err := f.carteirinha.Debitar(ctx, DebitoInput{AssociadoID: socio, Valor: dec("12.50"), PedidoNumero: 7})
	require.NoError(t, err)
	f.recarga(t, socio, "2.50")

	conf, err := f.carteirinha.Conferir(ctx, socio)
	require.NoError(t, err)
	assert.True(t, conf.Consistente)
	assert.Equal(t, 3, conf.Movimentos)
	assert.Equal(t, "30.00", conf.Saldo.StringFixed(2))
	assert.Equal(t, "30.00", conf.SaldoReplay.StringFixed(2))

	// A balance written behind the ledger's back must show up.
	require.NoError(t, f.db.Model(&model.CarteirinhaSaldo{}).
		Where("associado_id = ?", socio).Update("saldo", dec("99.00")).Error)
	conf, err = f.carteirinha.Conferir(ctx, socio)
	require.NoError(t, err)
	assert.False(t, conf.Consistente)
}

func TestCarteirinha_DescricaoDoDebitoCitaPedido(t *testing.T) {
	f := newBarFixture(t, nil)
	ctx := context.Background()
	socio := uuid.New()
	f.recarga(t, socio, "20.00")

	_, err := f.carteirinha.Debitar(ctx, DebitoInput{AssociadoID: socio, Valor: dec("5.00"), PedidoNumero: 12})
	require.NoError(t, err)

	extrato, err := f.carteirinha.Extrato(ctx, socio, 10)
	require.NoError(t, err)
	require.NotEmpty(t, extrato.Movimentos)
	require.NotNil(t, extrato.Movimentos[0].Descricao)
	assert.Equal(t, "Consumo no bar - pedido #12", *extrato.Movimentos[0].Descricao)
}

func TestCarteirinha_RecusaFracaoDeCentavo(t *testing.T) {
	f := newBarFixture(t, nil)
	ctx := context.Background()
	socio := uuid.New()

	_, err := f.carteirinha.Creditar(ctx, CreditoInput{AssociadoID: socio, Valor: dec("10.005"), Forma: model.FormaPix})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	f.recarga(t, socio, "10.00")
	_, err = f.carteirinha.Debitar(ctx, DebitoInput{AssociadoID: socio, Valor: dec("0.001")})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	conf, err := f.carteirinha.Conferir(ctx, socio)
	require.NoError(t, err)
	assert.True(t, conf.Consistente)
	assert.Equal(t, 1, conf.Movimentos)
	assert.Equal(t, "10.00", conf.Saldo.StringFixed(2))
}
