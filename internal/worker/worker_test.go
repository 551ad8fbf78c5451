package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"clubebar/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePedidos struct{ pedido *model.Pedido }

func (f *fakePedidos) FindByID(_ context.Context, id uuid.UUID) (*model.Pedido, error) {
	if f.pedido == nil || f.pedido.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.pedido, nil
}

type fakeEmails struct{ jobs []EmailJobPayload }

func (f *fakeEmails) EnqueueEmail(_ context.Context, p EmailJobPayload) error {
	f.jobs = append(f.jobs, p)
	return nil
}

type fakeSender struct {
	err  error
	sent []string
}

func (f *fakeSender) EnviarComprovante(to string, _ int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func pedidoPago() *model.Pedido {
	agora := time.Now()
	id := uuid.New()
	return &model.Pedido{
		ID:       id,
		Numero:   42,
		Status:   model.PedidoPago,
		Subtotal: decimal.RequireFromString("25.00"),
		Total:    decimal.RequireFromString("25.00"),
		PagoEm:   &agora,
		Itens: []model.ItemPedido{{
			PedidoID: id, ProdutoNome: "Chopp Pilsen 500ml", Quantidade: 2,
			PrecoUnitario: decimal.RequireFromString("12.50"), Subtotal: decimal.RequireFromString("25.00"),
		}},
		Pagamentos: []model.Pagamento{{
			PedidoID: id, Forma: model.FormaDinheiro,
			Valor: decimal.RequireFromString("30.00"), Troco: decimal.RequireFromString("5.00"),
		}},
	}
}

func TestComprovanteWorker_GeraPDFeEnfileiraEmail(t *testing.T) {
	p := pedidoPago()
	emails := &fakeEmails{}
	dir := t.TempDir()
	w := NewComprovanteWorker(&fakePedidos{pedido: p}, emails, "Clube Teste", dir)

	email := "socio@example.com"
	raw, _ := json.Marshal(ComprovanteJobPayload{PedidoID: p.ID.String(), Email: &email})
	require.NoError(t, w.Process(context.Background(), raw))

	require.Len(t, emails.jobs, 1)
	assert.Equal(t, email, emails.jobs[0].ToEmail)
	assert.Equal(t, int64(42), emails.jobs[0].PedidoNumero)
	info, err := os.Stat(emails.jobs[0].PDFPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestComprovanteWorker_SemEmailNaoEnfileira(t *testing.T) {
	p := pedidoPago()
	emails := &fakeEmails{}
	w := NewComprovanteWorker(&fakePedidos{pedido: p}, emails, "Clube", t.TempDir())

	raw, _ := json.Marshal(ComprovanteJobPayload{PedidoID: p.ID.String()})
	require.NoError(t, w.Process(context.Background(), raw))
	assert.Empty(t, emails.jobs)
}

func TestComprovanteWorker_PedidoInexistenteEPermanente(t *testing.T) {
	w := NewComprovanteWorker(&fakePedidos{}, &fakeEmails{}, "Clube", t.TempDir())
	raw, _ := json.Marshal(ComprovanteJobPayload{PedidoID: uuid.NewString()})

	err := w.Process(context.Background(), raw)
	assert.ErrorIs(t, err, errPermanent)
}

func TestEmailWorker(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s)
	raw, _ := json.Marshal(EmailJobPayload{ToEmail: "a@b.com", PedidoNumero: 1})
	require.NoError(t, w.Process(context.Background(), raw))
	assert.Equal(t, []string{"a@b.com"}, s.sent)

	s.err = errors.New("smtp down")
	assert.Error(t, w.Process(context.Background(), raw))

	assert.ErrorIs(t, w.Process(context.Background(), json.RawMessage(`{`)), errPermanent)
}

func TestWithRetry_ParaEmErroPermanente(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func(int) error {
		calls++
		return errPermanent
	})
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestDispatcher_SemRedis(t *testing.T) {
	d := NewDispatcher(nil)
	err := d.EnqueueComprovante(context.Background(), ComprovanteJobPayload{PedidoID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

type countingProcessor struct{ n int }

func (c *countingProcessor) Process(context.Context, json.RawMessage) error {
	c.n++
	return nil
}

func TestPool_RoteiaPorFila(t *testing.T) {
	comp, mail := &countingProcessor{}, &countingProcessor{}
	p := NewPool(nil, map[string]Processor{QueueComprovante: comp, QueueEmail: mail})

	job, _ := json.Marshal(Job{Type: "email", Payload: json.RawMessage(`{}`)})
	p.process(context.Background(), QueueEmail, string(job))
	p.process(context.Background(), "jobs:desconhecida", string(job))

	assert.Equal(t, 0, comp.n)
	assert.Equal(t, 1, mail.n)
}

func TestNovaEntradaDLQ_ExtraiPedido(t *testing.T) {
	agora := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	pedidoID := uuid.NewString()
	email := "socio@clube.com.br"

	raw, _ := json.Marshal(ComprovanteJobPayload{PedidoID: pedidoID, Email: &email})
	e := novaEntradaDLQ(QueueComprovante, Job{Type: "comprovante", Payload: raw}, "pdf: disco cheio", maxAttempts, agora)
	assert.Equal(t, pedidoID, e.PedidoID)
	assert.Equal(t, email, e.Email)
	assert.Equal(t, QueueComprovante, e.Fila)
	assert.Equal(t, 3, e.Tentativas)

	raw, _ = json.Marshal(EmailJobPayload{ToEmail: email, PedidoNumero: 42, PDFPath: "/tmp/42.pdf"})
	e = novaEntradaDLQ(QueueEmail, Job{Type: "email", Payload: raw}, "smtp: 550", maxAttempts, agora)
	assert.Equal(t, int64(42), e.PedidoNumero)
	assert.Equal(t, email, e.Email)
	assert.Empty(t, e.PedidoID)

	e = novaEntradaDLQ(QueueEmail, Job{Type: "email", Payload: json.RawMessage(`"lixo"`)}, "x", 1, agora)
	assert.Empty(t, e.PedidoID)
	assert.Equal(t, json.RawMessage(`"lixo"`), e.Payload)
}

func TestResumirEntrada(t *testing.T) {
	agora := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	raw, _ := json.Marshal(ComprovanteJobPayload{PedidoID: "p-1"})
	data, err := json.Marshal(novaEntradaDLQ(QueueComprovante, Job{Type: "comprovante", Payload: raw}, "pdf: disco cheio", 3, agora))
	require.NoError(t, err)

	st := resumirEntrada(DLQStatus{Pendentes: 2}, data)
	assert.Equal(t, int64(2), st.Pendentes)
	require.NotNil(t, st.UltimaFalha)
	assert.True(t, agora.Equal(*st.UltimaFalha))
	assert.Equal(t, "p-1", st.UltimoPedido)
	assert.Equal(t, "pdf: disco cheio", st.UltimoMotivo)

	assert.Nil(t, resumirEntrada(DLQStatus{}, []byte("{")).UltimaFalha)
}
