package handler

import (
	"net/http"

	"cierrecaja/internal/apierror"
	"cierrecaja/internal/dto"
	"cierrecaja/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Anonimo godoc
// @Summary Sesión anónima
// @Description Emite un par de tokens para un operador sin cuenta.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.TokenResponse
// @Router /v1/auth/anonimo [post]
func (h *AuthHandler) Anonimo(c *gin.Context) {
	resp, err := h.svc.Anonimo(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Renovar tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RefreshRequest true "Refresh token"
// @Success 200 {object} dto.TokenResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}
