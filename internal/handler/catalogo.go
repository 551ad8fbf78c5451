package handler

import (
	"net/http"

	"clubebar/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogoHandler struct{ svc service.CatalogoService }

func NewCatalogoHandler(svc service.CatalogoService) *CatalogoHandler {
	return &CatalogoHandler{svc: svc}
}

// Produtos godoc
// @Summary      Catálogo do bar
// @Description  Lista servida do cache Redis quando disponível. todos=true inclui inativos.
// @Tags         catalogo
// @Produce      json
// @Security     BearerAuth
// @Param        todos query    bool false "Incluir inativos"
// @Success      200   {array}  dto.ProdutoResponse
// @Router       /v1/catalogo/produtos [get]
func (h *CatalogoHandler) Produtos(c *gin.Context) {
	apenasAtivos := c.Query("todos") != "true"
	resp, err := h.svc.ListarProdutos(c.Request.Context(), apenasAtivos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogoHandler) Categorias(c *gin.Context) {
	resp, err := h.svc.ListarCategorias(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
