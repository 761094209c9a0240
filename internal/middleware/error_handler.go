package middleware

import (
	"net/http"
	"time"

	"cierrecaja/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const mensajeInterno = "No se pudo completar la operación. Intente nuevamente."

// ErrorHandler turns errors a handler left in c.Errors without answering
// into a 500. The cause goes to the log; the client only sees
// mensajeInterno.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		ultimo := c.Errors.Last()
		eventoRequest(log.Error(), c).Err(ultimo.Err).Msg("error sin respuesta del handler")
		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(mensajeInterno))
		}
	}
}

// Recovery answers 500 when a handler panics.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			eventoRequest(log.Error(), c).Interface("panic", r).Stack().Msg("panic en handler")
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(mensajeInterno))
			}
		}()
		c.Next()
	}
}

// Logger writes one line per request. 5xx log at error, 4xx at warn and
// health probes at debug.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		inicio := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		case c.Request.URL.Path == "/health":
			ev = log.Debug()
		default:
			ev = log.Info()
		}
		eventoRequest(ev, c).
			Int("status", status).
			Dur("latency", time.Since(inicio)).
			Msg("request")
	}
}

func eventoRequest(ev *zerolog.Event, c *gin.Context) *zerolog.Event {
	return ev.
		Str("request_id", c.GetString(RequestIDKey)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path)
}
