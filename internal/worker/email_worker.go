package worker

// email_worker.go
// Processes QueueEmailCierre: mails the PDF report of a closing through SMTP.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cierrecaja/internal/infra"
	"cierrecaja/internal/model"
	"cierrecaja/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailCierrePayload is the job payload sent to QueueEmailCierre.
type EmailCierrePayload struct {
	CierreID     string `json:"cierre_id"`
	Destinatario string `json:"destinatario"`
}

// Fuente is what the delivery workers need to read and render a closing.
type Fuente interface {
	Buscar(ctx context.Context, id uuid.UUID) (*model.CierreDiario, error)
	TextoMensaje(c *model.CierreDiario) string
	PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
}

type EnviadorEmail interface {
	EnviarCierre(to, subject, body, nombre string, pdf []byte) error
}

// EmailCierreWorker sends closing reports by e-mail behind a circuit breaker.
type EmailCierreWorker struct {
	fuente Fuente
	mailer EnviadorEmail
	cb     *infra.CircuitBreaker
}

func NewEmailCierreWorker(fuente Fuente, mailer EnviadorEmail, cb *infra.CircuitBreaker) *EmailCierreWorker {
	return &EmailCierreWorker{fuente: fuente, mailer: mailer, cb: cb}
}

func (w *EmailCierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailCierrePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: payload inválido: %v", ErrNoReintentar, err)
	}
	if payload.Destinatario == "" {
		return fmt.Errorf("%w: destinatario vacío", ErrNoReintentar)
	}
	c, err := buscarCierre(ctx, w.fuente, payload.CierreID)
	if err != nil {
		return err
	}

	pdf, nombre, err := w.fuente.PDF(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("generar PDF: %w", err)
	}
	asunto := fmt.Sprintf("Cierre de caja %s", c.Fecha.Format("02/01/2006"))
	cuerpo := w.fuente.TextoMensaje(c)

	if err := w.cb.Execute(func() error {
		return w.mailer.EnviarCierre(payload.Destinatario, asunto, cuerpo, nombre, pdf)
	}); err != nil {
		return fmt.Errorf("enviar email: %w", err)
	}
	log.Info().Str("cierre_id", payload.CierreID).Str("to", payload.Destinatario).Msg("email_worker: cierre enviado")
	return nil
}

// buscarCierre loads the closing named by a job. A bad id or a deleted
// closing is permanent.
func buscarCierre(ctx context.Context, f Fuente, raw string) (*model.CierreDiario, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: cierre_id inválido %q", ErrNoReintentar, raw)
	}
	c, err := f.Buscar(ctx, id)
	if errors.Is(err, repository.ErrNoEncontrado) {
		return nil, fmt.Errorf("%w: %w", ErrNoReintentar, err)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
