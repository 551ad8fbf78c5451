package handler

import (
	"net/http"

	"clubebar/internal/dto"
	"clubebar/internal/service"

	"github.com/gin-gonic/gin"
)

type CaixaHandler struct{ svc service.CaixaService }

func NewCaixaHandler(svc service.CaixaService) *CaixaHandler { return &CaixaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre o caixa do operador
// @Tags caixa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCaixaRequest true "Saldo inicial"
// @Success 201 {object} dto.CaixaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixa/abrir [post]
func (h *CaixaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Fechar godoc
// @Summary Fecha o caixa com o valor contado
// @Tags caixa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.FecharCaixaRequest true "Contagem da gaveta"
// @Success 200 {object} dto.CaixaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixa/fechar [post]
func (h *CaixaHandler) Fechar(c *gin.Context) {
	var req dto.FecharCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.Fechar(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimento godoc
// @Summary Registra sangria ou suprimento
// @Tags caixa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimentoCaixaRequest true "Movimento manual"
// @Success 201 {object} dto.CaixaMovimentoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixa/movimento [post]
func (h *CaixaHandler) RegistrarMovimento(c *gin.Context) {
	var req dto.MovimentoCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarMovimento(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Ativo returns the open drawer of the calling operator with a live preview.
func (h *CaixaHandler) Ativo(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObterAberto(c.Request.Context(), op.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resumo godoc
// @Summary Relatório de uma sessão de caixa
// @Tags caixa
// @Produce json
// @Security BearerAuth
// @Param id path string true "UUID do caixa"
// @Success 200 {object} dto.CaixaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caixa/sessoes/{id} [get]
func (h *CaixaHandler) Resumo(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Resumo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CaixaHandler) Movimentos(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarMovimentos(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Historico returns closed sessions, newest first.
func (h *CaixaHandler) Historico(c *gin.Context) {
	page := queryInt(c, "page", 1, 0)
	limit := queryInt(c, "limit", 20, 100)
	resp, err := h.svc.Historico(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
