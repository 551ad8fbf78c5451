package handler

import (
	"net/http"

	"clubebar/internal/apierror"
	"clubebar/internal/dto"
	"clubebar/internal/service"

	"github.com/gin-gonic/gin"
)

type PedidosHandler struct{ svc service.PedidoService }

func NewPedidosHandler(svc service.PedidoService) *PedidosHandler { return &PedidosHandler{svc: svc} }

// Finalizar godoc
// @Summary      Finaliza uma venda no bar
// @Description  Confere o carrinho, divide os pagamentos e grava pedido, estoque e débito da carteirinha numa única transação.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.FinalizarVendaRequest true "Carrinho e pagamentos"
// @Success      201  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/pedidos [post]
func (h *PedidosHandler) Finalizar(c *gin.Context) {
	var req dto.FinalizarVendaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.FinalizarVenda(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Simular godoc
// @Summary      Pré-visualiza o carrinho
// @Description  Preços do catálogo atual e divisão dos pagamentos, sem gravar nada.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.SimularVendaRequest true "Itens e pagamentos"
// @Success      200  {object} dto.SimulacaoResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/pedidos/simular [post]
func (h *PedidosHandler) Simular(c *gin.Context) {
	var req dto.SimularVendaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Simular(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancelar godoc
// @Summary      Cancela um pedido pago
// @Description  Devolve o estoque e estorna na carteirinha o que foi pago com ela. Exige caixa de origem aberto.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                    true "UUID do pedido"
// @Param        body body     dto.CancelarPedidoRequest true "Motivo"
// @Success      200  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/pedidos/{id}/cancelar [post]
func (h *PedidosHandler) Cancelar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelarPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.CancelarPedido(c.Request.Context(), op, id, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obter godoc
// @Summary      Detalhe de um pedido
// @Tags         pedidos
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID do pedido"
// @Success      200 {object} dto.PedidoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pedidos/{id} [get]
func (h *PedidosHandler) Obter(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObterPedido(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Lista pedidos com filtros
// @Tags         pedidos
// @Produce      json
// @Security     BearerAuth
// @Param        status       query string false "aberto | pago | cancelado | all"
// @Param        associado_id query string false "UUID do associado"
// @Param        caixa_id     query string false "UUID do caixa"
// @Param        data_inicio  query string false "YYYY-MM-DD"
// @Param        data_fim     query string false "YYYY-MM-DD"
// @Param        page         query int    false "Página"
// @Param        limit        query int    false "Itens por página"
// @Success      200 {object} dto.PedidoListResponse
// @Router       /v1/pedidos [get]
func (h *PedidosHandler) Listar(c *gin.Context) {
	var filter dto.PedidoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parâmetros inválidos: "+err.Error()))
		return
	}
	if !validar(c, &filter) {
		return
	}
	resp, err := h.svc.ListarPedidos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
