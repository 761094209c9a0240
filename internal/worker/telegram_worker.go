package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"cierrecaja/internal/infra"

	"github.com/rs/zerolog/log"
)

// TelegramCierrePayload is the job payload sent to QueueTelegramCierre.
type TelegramCierrePayload struct {
	CierreID string `json:"cierre_id"`
}

type EnviadorMensaje interface {
	Enviar(texto string) error
}

// TelegramCierreWorker posts the text summary of a closing to the
// configured chat.
type TelegramCierreWorker struct {
	fuente Fuente
	bot    EnviadorMensaje
	cb     *infra.CircuitBreaker
}

func NewTelegramCierreWorker(fuente Fuente, bot EnviadorMensaje, cb *infra.CircuitBreaker) *TelegramCierreWorker {
	return &TelegramCierreWorker{fuente: fuente, bot: bot, cb: cb}
}

func (w *TelegramCierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload TelegramCierrePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: payload inválido: %v", ErrNoReintentar, err)
	}
	c, err := buscarCierre(ctx, w.fuente, payload.CierreID)
	if err != nil {
		return err
	}
	texto := w.fuente.TextoMensaje(c)
	if err := w.cb.Execute(func() error { return w.bot.Enviar(texto) }); err != nil {
		return fmt.Errorf("enviar telegram: %w", err)
	}
	log.Info().Str("cierre_id", payload.CierreID).Msg("telegram_worker: cierre enviado")
	return nil
}
