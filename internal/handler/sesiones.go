package handler

import (
	"net/http"

	"cierrecaja/internal/dto"
	"cierrecaja/internal/service"

	"github.com/gin-gonic/gin"
)

// SesionesHandler exposes the server-side closing form: raw fields are
// patched in as typed and the live reconciliation comes back every time.
type SesionesHandler struct{ svc service.SesionService }

func NewSesionesHandler(svc service.SesionService) *SesionesHandler {
	return &SesionesHandler{svc: svc}
}

// Crear godoc
// @Summary Nuevo formulario de cierre vacío
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.SesionResponse
// @Router /v1/sesiones [post]
func (h *SesionesHandler) Crear(c *gin.Context) {
	resp, err := h.svc.Crear(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Editar godoc
// @Summary Formulario precargado con un cierre guardado
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Param cierreId path string true "ID del cierre"
// @Success 201 {object} dto.SesionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sesiones/editar/{cierreId} [post]
func (h *SesionesHandler) Editar(c *gin.Context) {
	cierreID, ok := parseID(c, "cierreId")
	if !ok {
		return
	}
	resp, err := h.svc.Editar(c.Request.Context(), cierreID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary Estado del formulario
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la sesión"
// @Success 200 {object} dto.SesionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sesiones/{id} [get]
func (h *SesionesHandler) Obtener(c *gin.Context) {
	resp, err := h.svc.Obtener(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary Modificar campos del formulario
// @Tags sesiones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la sesión"
// @Param body body dto.SesionCamposRequest true "Campos a modificar"
// @Success 200 {object} dto.SesionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sesiones/{id} [patch]
func (h *SesionesHandler) Actualizar(c *gin.Context) {
	var req dto.SesionCamposRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reiniciar godoc
// @Summary Limpiar el formulario
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la sesión"
// @Success 200 {object} dto.SesionResponse
// @Router /v1/sesiones/{id}/reiniciar [post]
func (h *SesionesHandler) Reiniciar(c *gin.Context) {
	resp, err := h.svc.Reiniciar(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Enviar godoc
// @Summary Guardar el formulario como cierre
// @Description Crea el cierre, o lo reemplaza si la sesión es de edición. Un segundo envío mientras el primero está en curso responde 409.
// @Tags sesiones
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la sesión"
// @Success 200 {object} dto.EnviarSesionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/sesiones/{id}/enviar [post]
func (h *SesionesHandler) Enviar(c *gin.Context) {
	resp, err := h.svc.Enviar(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Descartar godoc
// @Summary Descartar el formulario
// @Tags sesiones
// @Security BearerAuth
// @Param id path string true "ID de la sesión"
// @Success 204
// @Router /v1/sesiones/{id} [delete]
func (h *SesionesHandler) Descartar(c *gin.Context) {
	if err := h.svc.Descartar(c.Request.Context(), c.Param("id")); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
