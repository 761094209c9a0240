package handler

import (
	"net/http"
	"time"

	"cierrecaja/internal/apierror"
	"cierrecaja/internal/dto"
	"cierrecaja/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
	mimePNG  = "image/png"
)

type CierresHandler struct {
	svc service.CierreService
	exp service.Exportador
}

func NewCierresHandler(svc service.CierreService, exp service.Exportador) *CierresHandler {
	return &CierresHandler{svc: svc, exp: exp}
}

// Crear godoc
// @Summary Registrar cierre diario
// @Tags cierres
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CierreRequest true "Cierre"
// @Success 201 {object} dto.CierreResponse
// @Failure 422 {object} apierror.ValidationError
// @Failure 503 {object} apierror.APIError
// @Router /v1/cierres [post]
func (h *CierresHandler) Crear(c *gin.Context) {
	var req dto.CierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Historial de cierres
// @Description Más recientes primero.
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param desde query string false "YYYY-MM-DD"
// @Param hasta query string false "YYYY-MM-DD"
// @Param page query int false "Página" default(1)
// @Param limit query int false "Tamaño de página" default(50)
// @Success 200 {object} dto.CierreListResponse
// @Router /v1/cierres [get]
func (h *CierresHandler) Listar(c *gin.Context) {
	filter, ok := bindFiltro(c)
	if !ok {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerPorID godoc
// @Summary Detalle de un cierre
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Success 200 {object} dto.CierreResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cierres/{id} [get]
func (h *CierresHandler) ObtenerPorID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary Reemplazar un cierre
// @Description Reemplaza el resumen, las ventas delivery y el conteo en una sola transacción.
// @Tags cierres
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Param body body dto.CierreRequest true "Cierre"
// @Success 200 {object} dto.CierreResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cierres/{id} [put]
func (h *CierresHandler) Actualizar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary Eliminar un cierre y sus detalles
// @Tags cierres
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Router /v1/cierres/{id} [delete]
func (h *CierresHandler) Eliminar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Exportación ──────────────────────────────────────────────────────────────

// ExportarXLSX godoc
// @Summary Historial en planilla Excel
// @Tags cierres
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param desde query string false "YYYY-MM-DD"
// @Param hasta query string false "YYYY-MM-DD"
// @Success 200 {file} binary
// @Router /v1/cierres/export.xlsx [get]
func (h *CierresHandler) ExportarXLSX(c *gin.Context) {
	filter, ok := bindFiltro(c)
	if !ok {
		return
	}
	data, err := h.exp.XLSX(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cierres.xlsx"`)
	c.Data(http.StatusOK, mimeXLSX, data)
}

// PDF godoc
// @Summary Reporte PDF del cierre
// @Tags cierres
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /v1/cierres/{id}/pdf [get]
func (h *CierresHandler) PDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	data, nombre, err := h.exp.PDF(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+nombre+`"`)
	c.Data(http.StatusOK, mimePDF, data)
}

// Compartir godoc
// @Summary Texto y enlace de WhatsApp del cierre
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Param telefono query string false "Teléfono de destino"
// @Success 200 {object} dto.CompartirResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/cierres/{id}/compartir [get]
func (h *CierresHandler) Compartir(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.exp.Compartir(c.Request.Context(), id, c.Query("telefono"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QR godoc
// @Summary Código QR del enlace para compartir
// @Tags cierres
// @Produce image/png
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Param telefono query string false "Teléfono de destino"
// @Success 200 {file} binary
// @Router /v1/cierres/{id}/qr [get]
func (h *CierresHandler) QR(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	png, err := h.exp.QR(c.Request.Context(), id, c.Query("telefono"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.Data(http.StatusOK, mimePNG, png)
}

// Enviar godoc
// @Summary Enviar el cierre por email o Telegram
// @Description Encola los envíos; la entrega ocurre en segundo plano.
// @Tags cierres
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cierre"
// @Param body body dto.EnviarCierreRequest true "Destinos"
// @Success 202 {object} dto.EnviarCierreResponse
// @Failure 503 {object} apierror.APIError
// @Router /v1/cierres/{id}/enviar [post]
func (h *CierresHandler) Enviar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.EnviarCierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.exp.Enviar(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// bindFiltro reads and validates the list query, turning desde/hasta into
// dates.
func bindFiltro(c *gin.Context) (dto.CierreFilter, bool) {
	var filter dto.CierreFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return filter, false
	}
	if !validar(c, &filter) {
		return filter, false
	}
	if filter.DesdeRaw != "" {
		t, _ := time.Parse("2006-01-02", filter.DesdeRaw)
		filter.Desde = &t
	}
	if filter.HastaRaw != "" {
		t, _ := time.Parse("2006-01-02", filter.HastaRaw)
		filter.Hasta = &t
	}
	if filter.Desde != nil && filter.Hasta != nil && filter.Hasta.Before(*filter.Desde) {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("hasta debe ser posterior a desde"))
		return filter, false
	}
	return filter, true
}
