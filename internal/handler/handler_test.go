package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clubebar/internal/apierror"
	"clubebar/internal/dto"
	"clubebar/internal/infra"
	"clubebar/internal/middleware"
	"clubebar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const segredo = "segredo-de-teste"

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakePedidos struct {
	service.PedidoService // unused methods panic

	op       service.Operador
	recebido dto.FinalizarVendaRequest
	err      error
}

func (f *fakePedidos) FinalizarVenda(_ context.Context, op service.Operador, req dto.FinalizarVendaRequest) (*dto.PedidoResponse, error) {
	f.op, f.recebido = op, req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.PedidoResponse{ID: uuid.NewString(), Numero: 7, Status: "pago", Total: req.Subtotal.Sub(req.Desconto)}, nil
}

func (f *fakePedidos) CancelarPedido(_ context.Context, _ service.Operador, id uuid.UUID, motivo string) (*dto.PedidoResponse, error) {
	return &dto.PedidoResponse{ID: id.String(), Status: "cancelado", MotivoCancelamento: &motivo}, nil
}

type fakeCaixa struct {
	service.CaixaService
	err error
}

func (f *fakeCaixa) Abrir(_ context.Context, op service.Operador, req dto.AbrirCaixaRequest) (*dto.CaixaResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CaixaResponse{ID: uuid.NewString(), OperadorID: op.ID.String(), OperadorNome: op.Nome, Status: "aberto", SaldoInicial: req.SaldoInicial}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func token(t *testing.T, userID, rol string) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID:   userID,
		Username: "marcia",
		Nome:     "Márcia Souza",
		Rol:      rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(segredo))
	require.NoError(t, err)
	return s
}

func newEngine(pedidos service.PedidoService, caixa service.CaixaService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())

	pedidosH := NewPedidosHandler(pedidos)
	caixaH := NewCaixaHandler(caixa)
	v1 := r.Group("/v1", middleware.JWTAuth(segredo))
	v1.POST("/pedidos", middleware.RequireRole("operador", "supervisor"), pedidosH.Finalizar)
	v1.POST("/pedidos/:id/cancelar", middleware.RequireRole("supervisor"), pedidosH.Cancelar)
	v1.POST("/caixa/abrir", middleware.RequireRole("operador"), caixaH.Abrir)
	return r
}

func do(r http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func vendaJSON() map[string]any {
	return map[string]any{
		"itens": []map[string]any{
			{"produto_id": uuid.NewString(), "quantidade": 2, "preco_unitario": "10.00", "subtotal": "20.00"},
		},
		"pagamentos": []map[string]any{{"forma_pagamento": "dinheiro", "valor": "20.00"}},
		"subtotal":   "20.00",
		"desconto":   "0",
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestFinalizar_SemToken(t *testing.T) {
	w := do(newEngine(&fakePedidos{}, &fakeCaixa{}), http.MethodPost, "/v1/pedidos", "", vendaJSON())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestFinalizar_TokenAssinadoComOutroSegredo(t *testing.T) {
	claims := middleware.JWTClaims{UserID: uuid.NewString(), Rol: "operador"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("outro"))
	require.NoError(t, err)

	w := do(newEngine(&fakePedidos{}, &fakeCaixa{}), http.MethodPost, "/v1/pedidos", tok, vendaJSON())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFinalizar_OperadorVemDoToken(t *testing.T) {
	fake := &fakePedidos{}
	userID := uuid.New()
	w := do(newEngine(fake, &fakeCaixa{}), http.MethodPost, "/v1/pedidos", token(t, userID.String(), "operador"), vendaJSON())

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, userID, fake.op.ID)
	assert.Equal(t, "Márcia Souza", fake.op.Nome)
	assert.Equal(t, "20.00", fake.recebido.Subtotal.StringFixed(2))
	require.Len(t, fake.recebido.Itens, 1)
	assert.Equal(t, 2, fake.recebido.Itens[0].Quantidade)

	var resp dto.PedidoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.Numero)
}

func TestFinalizar_CorpoInvalido(t *testing.T) {
	body := vendaJSON()
	delete(body, "itens")
	body["desconto"] = "-1"

	w := do(newEngine(&fakePedidos{}, &fakeCaixa{}), http.MethodPost, "/v1/pedidos", token(t, uuid.NewString(), "operador"), body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp apierror.ValidationError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "required", resp.Fields["Itens"])
	assert.Equal(t, "min", resp.Fields["Desconto"])
}

func TestFinalizar_SaldoInsuficiente(t *testing.T) {
	fake := &fakePedidos{err: &apierror.InsufficientBalanceError{
		AssociadoID: uuid.New(),
		Disponivel:  decimal.RequireFromString("15.00"),
		Solicitado:  decimal.RequireFromString("20.00"),
	}}
	w := do(newEngine(fake, &fakeCaixa{}), http.MethodPost, "/v1/pedidos", token(t, uuid.NewString(), "operador"), vendaJSON())
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp apierror.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "saldo_insuficiente", resp.Code)
	assert.Contains(t, resp.Detail, "Faltam R$ 5,00")
}

func TestFinalizar_ErroInternoNaoVaza(t *testing.T) {
	fake := &fakePedidos{err: context.DeadlineExceeded}
	w := do(newEngine(fake, &fakeCaixa{}), http.MethodPost, "/v1/pedidos", token(t, uuid.NewString(), "operador"), vendaJSON())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "deadline")
}

func TestCancelar_ExigeSupervisor(t *testing.T) {
	r := newEngine(&fakePedidos{}, &fakeCaixa{})
	path := "/v1/pedidos/" + uuid.NewString() + "/cancelar"
	body := map[string]string{"motivo": "Cliente desistiu"}

	w := do(r, http.MethodPost, path, token(t, uuid.NewString(), "operador"), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, path, token(t, uuid.NewString(), "supervisor"), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Cliente desistiu")
}

func TestCancelar_IDInvalido(t *testing.T) {
	w := do(newEngine(&fakePedidos{}, &fakeCaixa{}), http.MethodPost, "/v1/pedidos/abc/cancelar",
		token(t, uuid.NewString(), "supervisor"), map[string]string{"motivo": "Cliente desistiu"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAbrirCaixa_JaAberto(t *testing.T) {
	caixaID := uuid.New()
	fake := &fakeCaixa{err: &apierror.AlreadyOpenError{CaixaID: caixaID, OperadorNome: "Márcia Souza"}}
	w := do(newEngine(&fakePedidos{}, fake), http.MethodPost, "/v1/caixa/abrir",
		token(t, uuid.NewString(), "operador"), map[string]string{"saldo_inicial": "100.00"})

	require.Equal(t, http.StatusConflict, w.Code)
	var resp apierror.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "caixa_ja_aberto", resp.Code)
	assert.Equal(t, caixaID.String(), resp.Meta["caixa_id"])
}

func TestHealth_SemRedis(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", Health(db, nil, infra.NewCircuitBreaker(infra.DefaultCBConfig())))

	w := do(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Equal(t, "closed", body["emissor_fiscal"])
	assert.Equal(t, true, body["ok"])
}
