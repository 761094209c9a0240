package handler

import (
	"errors"
	"net/http"

	"cierrecaja/internal/apierror"
	"cierrecaja/internal/infra"
	"cierrecaja/internal/repository"
	"cierrecaja/internal/service"
	"cierrecaja/internal/sesion"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails,
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// responderError maps service errors to HTTP. Anything unknown is handed to
// the ErrorHandler middleware, which logs it and answers 500.
func responderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNoEncontrado),
		errors.Is(err, repository.ErrSesionNoEncontrada):
		status = http.StatusNotFound
	case errors.Is(err, sesion.ErrEnvioEnCurso),
		errors.Is(err, infra.ErrRecursoOcupado):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEntradaInvalida),
		errors.Is(err, service.ErrTelefonoInvalido),
		errors.Is(err, service.ErrSinDestinoDeEnvio),
		errors.Is(err, sesion.ErrFormularioVacio):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrPermisoDenegado):
		status = http.StatusForbidden
	case errors.Is(err, repository.ErrAlmacenamientoNoDisponible),
		errors.Is(err, service.ErrEnvioNoDisponible):
		status = http.StatusServiceUnavailable
	default:
		_ = c.Error(err)
		return
	}
	c.JSON(status, apierror.New(mensaje(err)))
}

// mensaje keeps driver detail out of the response: only the sentinel text
// is shown for storage failures.
func mensaje(err error) string {
	for _, s := range []error{repository.ErrNoEncontrado, repository.ErrAlmacenamientoNoDisponible, repository.ErrPermisoDenegado} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
