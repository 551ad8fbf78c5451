package handler

import (
	"net/http"

	"clubebar/internal/dto"
	"clubebar/internal/service"

	"github.com/gin-gonic/gin"
)

type NFCeHandler struct{ svc service.NFCeService }

func NewNFCeHandler(svc service.NFCeService) *NFCeHandler { return &NFCeHandler{svc: svc} }

// Emitir godoc
// @Summary      Emite a NFC-e de um pedido pago
// @Description  Envia o pedido ao ACBrMonitor. Rejeições da SEFAZ voltam com a mensagem original; nova tentativa reaproveita o número.
// @Tags         nfce
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.EmitirNFCeRequest true "Pedido e CPF opcional"
// @Success      201  {object} dto.NFCeResponse
// @Failure      409  {object} apierror.APIError
// @Failure      502  {object} apierror.APIError
// @Router       /v1/nfce [post]
func (h *NFCeHandler) Emitir(c *gin.Context) {
	var req dto.EmitirNFCeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Emitir(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cancelar godoc
// @Summary      Cancela uma NFC-e autorizada
// @Description  O pedido continua pago; o cancelamento do pedido é uma ação separada.
// @Tags         nfce
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                  true "UUID da NFC-e"
// @Param        body body     dto.CancelarNFCeRequest true "Justificativa (mínimo 15 caracteres)"
// @Success      200  {object} dto.NFCeResponse
// @Failure      502  {object} apierror.APIError
// @Router       /v1/nfce/{id}/cancelar [post]
func (h *NFCeHandler) Cancelar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelarNFCeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NFCeHandler) Obter(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obter(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PorPedido lists every emission attempt of a pedido, authorized or not.
func (h *NFCeHandler) PorPedido(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarPorPedido(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Status godoc
// @Summary      Estado do emissor fiscal
// @Tags         nfce
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.StatusEmissorResponse
// @Router       /v1/nfce/status [get]
func (h *NFCeHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.StatusEmissor(c.Request.Context()))
}
