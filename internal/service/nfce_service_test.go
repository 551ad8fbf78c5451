package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clubebar/internal/apierror"
	"clubebar/internal/dto"
	"clubebar/internal/infra"
	"clubebar/internal/model"
	"clubebar/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmissor replays canned ACBrMonitor replies.
type fakeEmissor struct {
	respostas  []string
	err        error
	inis       []string
	numeros    []int64
	cancelados []string
}

func (f *fakeEmissor) proxima() (*infra.ACBrResposta, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.respostas) == 0 {
		return nil, errors.New("fakeEmissor: sem resposta programada")
	}
	r := f.respostas[0]
	f.respostas = f.respostas[1:]
	return infra.ParseACBrResposta(r), nil
}

func (f *fakeEmissor) EmitirNFCe(_ context.Context, ini string, numero int64) (*infra.ACBrResposta, error) {
	f.inis = append(f.inis, ini)
	f.numeros = append(f.numeros, numero)
	return f.proxima()
}

func (f *fakeEmissor) CancelarNFCe(_ context.Context, chave, _, _ string) (*infra.ACBrResposta, error) {
	f.cancelados = append(f.cancelados, chave)
	return f.proxima()
}

func (f *fakeEmissor) StatusServico(context.Context) (*infra.ACBrResposta, error) {
	return f.proxima()
}

const chaveTeste = "35261012345678000199650010000000011000000019"

func respostaAutorizada(numero int) string {
	return fmt.Sprintf("OK: [Retorno]\nCStat=100\nXMotivo=Autorizado o uso da NF-e\nNProt=135260000000%03d\nChNFe=%s", numero, chaveTeste)
}

type nfceFixture struct {
	*barFixture
	emissor *fakeEmissor
	breaker *infra.CircuitBreaker
	nfce    NFCeService
}

func newNFCeFixture(t *testing.T, ativo bool) *nfceFixture {
	t.Helper()
	f := newBarFixture(t, nil)
	emissor := &fakeEmissor{}
	breaker := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour})
	svc := NewNFCeService(
		repository.NewNFCeRepository(f.db),
		f.pedidoRepo,
		repository.NewSequenciaRepository(),
		emissor,
		breaker,
		NFCeConfig{
			Ativo:              ativo,
			JanelaCancelamento: 30 * time.Minute,
			Emitente:           infra.Emitente{CNPJ: "12345678000199", RazaoSocial: "Clube Teste", Serie: "1", UF: "SP", CodigoUF: "35", CRT: 1},
		},
		f.metrics,
	)
	return &nfceFixture{barFixture: f, emissor: emissor, breaker: breaker, nfce: svc}
}

func (f *nfceFixture) pedidoPago(t *testing.T) string {
	t.Helper()
	chopp := f.produto(t, "Chopp", "10.00", 10)
	resp, err := f.pedidos.FinalizarVenda(context.Background(), operador("M"), vendaSimples(chopp, 2, pag(model.FormaDinheiro, "20.00")))
	require.NoError(t, err)
	return resp.ID
}

func TestNFCe_EmitirAutorizada(t *testing.T) {
	f := newNFCeFixture(t, true)
	ctx := context.Background()
	pedidoID := f.pedidoPago(t)
	f.emissor.respostas = []string{respostaAutorizada(1)}

	cpf := "123.456.789-09"
	doc, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID, CPFCNPJ: &cpf})
	require.NoError(t, err)

	assert.Equal(t, "autorizada", doc.Status)
	require.NotNil(t, doc.ChaveAcesso)
	assert.Equal(t, chaveTeste, *doc.ChaveAcesso)
	require.NotNil(t, doc.Numero)
	assert.Equal(t, int64(1), *doc.Numero)
	require.NotNil(t, doc.CPFCNPJ)
	assert.Equal(t, "12345678909", *doc.CPFCNPJ)
	assert.NotNil(t, doc.EmitidoEm)

	require.Len(t, f.emissor.inis, 1)
	assert.Contains(t, f.emissor.inis[0], "[Destinatario]")
	assert.Contains(t, f.emissor.inis[0], "CNPJCPF=12345678909")

	_, err = f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.ErrorIs(t, err, apierror.ErrAlreadyIssued)
	assert.Contains(t, err.Error(), chaveTeste)
	assert.Len(t, f.emissor.inis, 1, "no second call to the bridge")
}

func TestNFCe_RejeicaoRepassaMensagemEReaproveitaNumero(t *testing.T) {
	f := newNFCeFixture(t, true)
	ctx := context.Background()
	pedidoID := f.pedidoPago(t)
	rejeicao := "Rejeicao: CNPJ do emitente invalido"
	f.emissor.respostas = []string{
		"OK: [Retorno]\nCStat=207\nXMotivo=" + rejeicao,
		respostaAutorizada(1),
	}

	_, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.ErrorIs(t, err, apierror.ErrFiscalBridge)
	var fe *apierror.FiscalBridgeError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, rejeicao, fe.Mensagem)
	assert.Equal(t, "207", fe.CStat)

	id, _ := uuid.Parse(pedidoID)
	docs, err := f.nfce.ListarPorPedido(ctx, id)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "erro", docs[0].Status)

	doc, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.NoError(t, err)
	assert.Equal(t, "autorizada", doc.Status)
	assert.Equal(t, []int64{1, 1}, f.emissor.numeros)
	assert.Equal(t, docs[0].ID, doc.ID)
}

func TestNFCe_ErroDoMonitorPassaSemTraducao(t *testing.T) {
	f := newNFCeFixture(t, true)
	pedidoID := f.pedidoPago(t)
	f.emissor.respostas = []string{"ERRO: Certificado digital vencido"}

	_, err := f.nfce.Emitir(context.Background(), dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.ErrorIs(t, err, apierror.ErrFiscalBridge)
	assert.Equal(t, "Certificado digital vencido", err.Error())
	assert.Equal(t, infra.CBClosed, f.breaker.State(), "a rejection is not a transport failure")
}

func TestNFCe_MonitorForaDoArAbreCircuito(t *testing.T) {
	f := newNFCeFixture(t, true)
	ctx := context.Background()
	pedidoID := f.pedidoPago(t)
	f.emissor.err = fmt.Errorf("%w: connection refused", infra.ErrBridgeUnavailable)

	for i := 0; i < 2; i++ {
		_, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
		require.ErrorIs(t, err, apierror.ErrFiscalBridge)
		assert.Contains(t, err.Error(), "connection refused")
	}
	assert.Equal(t, infra.CBOpen, f.breaker.State())

	_, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.ErrorIs(t, err, apierror.ErrFiscalBridge)
	assert.Contains(t, err.Error(), "indisponível")
	assert.Len(t, f.emissor.inis, 2, "open circuit fails fast")

	st := f.nfce.StatusEmissor(ctx)
	assert.False(t, st.Conectado)
	assert.Equal(t, "open", st.Circuito)
}

func TestNFCe_PrecondicoesLocais(t *testing.T) {
	desligado := newNFCeFixture(t, false)
	_, err := desligado.nfce.Emitir(context.Background(), dto.EmitirNFCeRequest{PedidoID: uuid.NewString()})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	f := newNFCeFixture(t, true)
	ctx := context.Background()
	_, err = f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: uuid.NewString()})
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	pedidoID := f.pedidoPago(t)
	id, _ := uuid.Parse(pedidoID)
	_, err = f.pedidos.CancelarPedido(ctx, operador("M"), id, "lançado errado")
	require.NoError(t, err)
	_, err = f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	assert.ErrorIs(t, err, apierror.ErrValidation)
	assert.Empty(t, f.emissor.inis)
}

func TestNFCe_Cancelar(t *testing.T) {
	f := newNFCeFixture(t, true)
	ctx := context.Background()
	pedidoID := f.pedidoPago(t)
	f.emissor.respostas = []string{
		respostaAutorizada(1),
		"OK: [Cancelamento]\nCStat=135\nXMotivo=Evento registrado e vinculado a NF-e",
	}
	doc, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.NoError(t, err)
	id, _ := uuid.Parse(doc.ID)

	_, err = f.nfce.Cancelar(ctx, id, dto.CancelarNFCeRequest{Justificativa: "curta"})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	cancelada, err := f.nfce.Cancelar(ctx, id, dto.CancelarNFCeRequest{Justificativa: "Pedido lançado em duplicidade"})
	require.NoError(t, err)
	assert.Equal(t, "cancelada", cancelada.Status)
	assert.NotNil(t, cancelada.CanceladoEm)
	assert.Equal(t, []string{chaveTeste}, f.emissor.cancelados)

	_, err = f.nfce.Cancelar(ctx, id, dto.CancelarNFCeRequest{Justificativa: "Pedido lançado em duplicidade"})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	// The order itself is untouched by a fiscal cancel.
	pedido, err := f.pedidos.ObterPedido(ctx, uuid.MustParse(pedidoID))
	require.NoError(t, err)
	assert.Equal(t, "pago", pedido.Status)
}

func TestNFCe_CancelamentoRejeitadoMantemAutorizada(t *testing.T) {
	f := newNFCeFixture(t, true)
	ctx := context.Background()
	pedidoID := f.pedidoPago(t)
	f.emissor.respostas = []string{
		respostaAutorizada(1),
		"OK: [Cancelamento]\nCStat=501\nXMotivo=Rejeicao: Prazo de cancelamento superior ao previsto",
	}
	doc, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.NoError(t, err)
	id, _ := uuid.Parse(doc.ID)

	_, err = f.nfce.Cancelar(ctx, id, dto.CancelarNFCeRequest{Justificativa: "Pedido lançado em duplicidade"})
	require.ErrorIs(t, err, apierror.ErrFiscalBridge)
	assert.True(t, strings.HasPrefix(err.Error(), "Rejeicao: Prazo"))

	lido, err := f.nfce.Obter(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "autorizada", lido.Status)
}

func TestNFCe_StatusEmissor(t *testing.T) {
	f := newNFCeFixture(t, true)
	f.emissor.respostas = []string{"OK: [Status]\nCStat=107\nXMotivo=Servico em Operacao"}

	st := f.nfce.StatusEmissor(context.Background())
	assert.True(t, st.Conectado)
	assert.Equal(t, "Servico em Operacao", st.Mensagem)
	assert.Equal(t, "closed", st.Circuito)

	desligado := newNFCeFixture(t, false)
	st = desligado.nfce.StatusEmissor(context.Background())
	assert.False(t, st.Conectado)
	assert.Empty(t, desligado.emissor.inis)
}

// emissorLento holds EmitirNFCe until liberar is closed.
type emissorLento struct {
	fakeEmissor
	chegou  chan struct{}
	liberar chan struct{}
}

func (e *emissorLento) EmitirNFCe(ctx context.Context, ini string, numero int64) (*infra.ACBrResposta, error) {
	e.chegou <- struct{}{}
	<-e.liberar
	return e.fakeEmissor.EmitirNFCe(ctx, ini, numero)
}

func TestNFCe_EmissaoConcorrenteChamaEmissorUmaVez(t *testing.T) {
	f := newNFCeFixture(t, true)
	ctx := context.Background()
	pedidoID := f.pedidoPago(t)

	lento := &emissorLento{
		fakeEmissor: fakeEmissor{respostas: []string{respostaAutorizada(1)}},
		chegou:      make(chan struct{}, 1),
		liberar:     make(chan struct{}),
	}
	svc := NewNFCeService(repository.NewNFCeRepository(f.db), f.pedidoRepo, repository.NewSequenciaRepository(),
		lento, f.breaker, NFCeConfig{Ativo: true, Emitente: infra.Emitente{CNPJ: "12345678000199", Serie: "1"}}, f.metrics)

	type resultado struct {
		doc *dto.NFCeResponse
		err error
	}
	primeiro := make(chan resultado, 1)
	go func() {
		doc, err := svc.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
		primeiro <- resultado{doc, err}
	}()
	<-lento.chegou

	// The first request holds the pendente document while SEFAZ answers.
	_, err := svc.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.ErrorIs(t, err, apierror.ErrEmissionInProgress)

	close(lento.liberar)
	r := <-primeiro
	require.NoError(t, r.err)
	assert.Equal(t, "autorizada", r.doc.Status)
	assert.Len(t, lento.inis, 1)

	_, err = svc.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	assert.ErrorIs(t, err, apierror.ErrAlreadyIssued)

	id, _ := uuid.Parse(pedidoID)
	docs, err := svc.ListarPorPedido(ctx, id)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestNFCe_PendenteExpiradoEReaproveitado(t *testing.T) {
	f := newNFCeFixture(t, true)
	ctx := context.Background()
	pedidoID := f.pedidoPago(t)
	id, _ := uuid.Parse(pedidoID)

	numero := int64(9)
	largado := &model.NFCe{PedidoID: id, Numero: &numero, Status: model.NFCePendente}
	require.NoError(t, f.db.Create(largado).Error)
	require.NoError(t, f.db.Model(largado).UpdateColumn("updated_at", time.Now().Add(-emissaoEmCurso-time.Minute)).Error)

	f.emissor.respostas = []string{respostaAutorizada(9)}
	doc, err := f.nfce.Emitir(ctx, dto.EmitirNFCeRequest{PedidoID: pedidoID})
	require.NoError(t, err)
	assert.Equal(t, largado.ID.String(), doc.ID)
	assert.Equal(t, []int64{9}, f.emissor.numeros)
}
