package handler

import (
	"net/http"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/dto"
	"cierrecaja/internal/service"

	"github.com/gin-gonic/gin"
)

type ConciliacionHandler struct{ svc service.CierreService }

func NewConciliacionHandler(svc service.CierreService) *ConciliacionHandler {
	return &ConciliacionHandler{svc: svc}
}

// Catalogo godoc
// @Summary Canales de venta y denominaciones
// @Tags conciliacion
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CatalogoResponse
// @Router /v1/catalogo [get]
func (h *ConciliacionHandler) Catalogo(c *gin.Context) {
	resp := dto.CatalogoResponse{}
	for _, canal := range conciliacion.Canales() {
		resp.Canales = append(resp.Canales, dto.CanalResponse{
			ID:       string(canal.ID),
			Etiqueta: canal.Etiqueta,
			Delivery: canal.Delivery,
		})
	}
	for _, d := range conciliacion.Denominaciones {
		resp.Denominaciones = append(resp.Denominaciones, int64(d))
	}
	c.JSON(http.StatusOK, resp)
}

// Previsualizar godoc
// @Summary Conciliación sin guardar
// @Description Calcula venta total, saldo esperado, total en caja y diferencia a partir del texto del formulario.
// @Tags conciliacion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ConciliacionRequest true "Montos en texto"
// @Success 200 {object} dto.ResultadoResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/conciliacion [post]
func (h *ConciliacionHandler) Previsualizar(c *gin.Context) {
	var req dto.ConciliacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Previsualizar(req))
}
