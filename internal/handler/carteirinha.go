package handler

import (
	"net/http"

	"clubebar/internal/dto"
	"clubebar/internal/model"
	"clubebar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CarteirinhaHandler struct{ svc service.CarteirinhaService }

func NewCarteirinhaHandler(svc service.CarteirinhaService) *CarteirinhaHandler {
	return &CarteirinhaHandler{svc: svc}
}

// Recarga godoc
// @Summary      Recarrega a carteirinha de um associado
// @Description  Cria a conta no primeiro crédito. Carteirinha e cortesia não são formas de recarga.
// @Tags         carteirinha
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.RecargaRequest true "Valor e forma"
// @Success      201  {object} dto.SaldoResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/carteirinha/recarga [post]
func (h *CarteirinhaHandler) Recarga(c *gin.Context) {
	var req dto.RecargaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	associado := uuid.MustParse(req.AssociadoID) // validated as uuid above
	saldo, err := h.svc.Creditar(c.Request.Context(), service.CreditoInput{
		AssociadoID: associado,
		Valor:       req.Valor,
		Forma:       model.FormaPagamento(req.FormaRecarga),
		OperadorID:  &op.ID,
		Descricao:   req.Descricao,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SaldoResponse{AssociadoID: associado.String(), Saldo: saldo})
}

// Saldo godoc
// @Summary      Saldo da carteirinha
// @Tags         carteirinha
// @Produce      json
// @Security     BearerAuth
// @Param        associado_id path     string true "UUID do associado"
// @Success      200          {object} dto.SaldoResponse
// @Router       /v1/carteirinha/{associado_id}/saldo [get]
func (h *CarteirinhaHandler) Saldo(c *gin.Context) {
	id, ok := paramUUID(c, "associado_id")
	if !ok {
		return
	}
	saldo, err := h.svc.Saldo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SaldoResponse{AssociadoID: id.String(), Saldo: saldo})
}

// Extrato godoc
// @Summary      Extrato da carteirinha, mais recentes primeiro
// @Tags         carteirinha
// @Produce      json
// @Security     BearerAuth
// @Param        associado_id path     string true  "UUID do associado"
// @Param        limite       query    int    false "Máximo de lançamentos"
// @Success      200          {object} dto.ExtratoResponse
// @Router       /v1/carteirinha/{associado_id}/extrato [get]
func (h *CarteirinhaHandler) Extrato(c *gin.Context) {
	id, ok := paramUUID(c, "associado_id")
	if !ok {
		return
	}
	resp, err := h.svc.Extrato(c.Request.Context(), id, queryInt(c, "limite", 0, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Conferir replays the ledger and reports entries whose chain is broken.
func (h *CarteirinhaHandler) Conferir(c *gin.Context) {
	id, ok := paramUUID(c, "associado_id")
	if !ok {
		return
	}
	resp, err := h.svc.Conferir(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
