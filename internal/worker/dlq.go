package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces the list of abandoned deliveries of each queue.
const DLQPrefix = "envios:fallidos:"

// EnvioFallido is a closing delivery that will not be retried. The owner
// reads these to resend a report by hand.
type EnvioFallido struct {
	Cola      string          `json:"cola"`
	Tipo      string          `json:"tipo"`
	CierreID  string          `json:"cierre_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Motivo    string          `json:"motivo"`
	Intentos  int             `json:"intentos"`
	FallidoEn time.Time       `json:"fallido_en"`
}

// abandonar parks job under DLQPrefix+cola. The job has already left its
// queue, so the push ignores cancellation of ctx.
func abandonar(ctx context.Context, rdb *redis.Client, cola string, job Job, motivo string) {
	e := EnvioFallido{
		Cola:      cola,
		Tipo:      job.Type,
		CierreID:  cierreDe(job.Payload),
		Payload:   job.Payload,
		Motivo:    motivo,
		Intentos:  job.Attempts,
		FallidoEn: time.Now().UTC(),
	}
	logger := log.With().Str("cola", cola).Str("tipo", e.Tipo).Str("cierre_id", e.CierreID).Logger()

	data, err := json.Marshal(e)
	if err != nil {
		logger.Error().Err(err).Msg("envio fallido no serializable, se descarta")
		return
	}
	if err := rdb.LPush(context.WithoutCancel(ctx), DLQPrefix+cola, data).Err(); err != nil {
		logger.Error().Err(err).Msg("no se pudo registrar el envio fallido")
		return
	}
	logger.Warn().Str("motivo", motivo).Int("intentos", e.Intentos).Msg("envio abandonado")
}

// cierreDe pulls cierre_id out of an email or telegram payload; "" when the
// payload is not one of those.
func cierreDe(payload json.RawMessage) string {
	var p struct {
		CierreID string `json:"cierre_id"`
	}
	if json.Unmarshal(payload, &p) != nil {
		return ""
	}
	return p.CierreID
}

// DLQLength counts the abandoned deliveries of cola.
func DLQLength(ctx context.Context, rdb *redis.Client, cola string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+cola).Result()
}
