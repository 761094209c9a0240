package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/infra"
	"cierrecaja/internal/model"
	"cierrecaja/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubFuente struct {
	cierres map[uuid.UUID]*model.CierreDiario
	pdfErr  error
}

func (f *stubFuente) Buscar(_ context.Context, id uuid.UUID) (*model.CierreDiario, error) {
	c, ok := f.cierres[id]
	if !ok {
		return nil, repository.ErrNoEncontrado
	}
	return c, nil
}

func (f *stubFuente) TextoMensaje(c *model.CierreDiario) string {
	return "cierre " + c.Fecha.Format("2006-01-02")
}

func (f *stubFuente) PDF(_ context.Context, id uuid.UUID) ([]byte, string, error) {
	if f.pdfErr != nil {
		return nil, "", f.pdfErr
	}
	return []byte("%PDF-1.3"), "cierre_" + id.String()[:8] + ".pdf", nil
}

type envio struct {
	to, subject, body, nombre string
	pdf                       []byte
}

type stubMailer struct {
	enviados []envio
	err      error
}

func (m *stubMailer) EnviarCierre(to, subject, body, nombre string, pdf []byte) error {
	if m.err != nil {
		return m.err
	}
	m.enviados = append(m.enviados, envio{to, subject, body, nombre, pdf})
	return nil
}

type stubBot struct {
	mensajes []string
	err      error
}

func (b *stubBot) Enviar(texto string) error {
	if b.err != nil {
		return b.err
	}
	b.mensajes = append(b.mensajes, texto)
	return nil
}

func nuevaFuente(t *testing.T) (*stubFuente, uuid.UUID) {
	t.Helper()
	c := model.NuevoCierre(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), conciliacion.Entrada{
		Ventas: conciliacion.VentasPorCanal{conciliacion.CanalEfectivo: 50000},
	}, false, nil)
	c.ID = uuid.New()
	return &stubFuente{cierres: map[uuid.UUID]*model.CierreDiario{c.ID: c}}, c.ID
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func breaker() *infra.CircuitBreaker {
	return infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "test", FailureThreshold: 2, OpenTimeout: time.Hour})
}

// ── Email ────────────────────────────────────────────────────────────────────

func TestEmailCierreWorker_EnviaPDFAdjunto(t *testing.T) {
	fuente, id := nuevaFuente(t)
	mailer := &stubMailer{}
	w := NewEmailCierreWorker(fuente, mailer, breaker())

	err := w.Process(context.Background(), payload(t, EmailCierrePayload{CierreID: id.String(), Destinatario: "dueno@local.cl"}))
	require.NoError(t, err)

	require.Len(t, mailer.enviados, 1)
	e := mailer.enviados[0]
	assert.Equal(t, "dueno@local.cl", e.to)
	assert.Equal(t, "Cierre de caja 14/03/2026", e.subject)
	assert.Equal(t, "cierre 2026-03-14", e.body)
	assert.Equal(t, "cierre_"+id.String()[:8]+".pdf", e.nombre)
	assert.Equal(t, []byte("%PDF-1.3"), e.pdf)
}

func TestEmailCierreWorker_CierreBorradoEsPermanente(t *testing.T) {
	fuente, _ := nuevaFuente(t)
	w := NewEmailCierreWorker(fuente, &stubMailer{}, breaker())

	err := w.Process(context.Background(), payload(t, EmailCierrePayload{CierreID: uuid.NewString(), Destinatario: "a@b.cl"}))
	assert.ErrorIs(t, err, ErrNoReintentar)
	assert.ErrorIs(t, err, repository.ErrNoEncontrado)
}

func TestEmailCierreWorker_PayloadsInvalidos(t *testing.T) {
	fuente, id := nuevaFuente(t)
	w := NewEmailCierreWorker(fuente, &stubMailer{}, breaker())

	cases := map[string]json.RawMessage{
		"json roto":        json.RawMessage(`{"cierre_id":`),
		"sin destinatario": payload(t, EmailCierrePayload{CierreID: id.String()}),
		"id no es un uuid": payload(t, EmailCierrePayload{CierreID: "abc", Destinatario: "a@b.cl"}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, w.Process(context.Background(), raw), ErrNoReintentar)
		})
	}
}

func TestEmailCierreWorker_FalloSMTPSeReintentaYAbreElCircuito(t *testing.T) {
	fuente, id := nuevaFuente(t)
	mailer := &stubMailer{err: errors.New("connection refused")}
	cb := breaker()
	w := NewEmailCierreWorker(fuente, mailer, cb)
	raw := payload(t, EmailCierrePayload{CierreID: id.String(), Destinatario: "a@b.cl"})

	for i := 0; i < 2; i++ {
		err := w.Process(context.Background(), raw)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoReintentar)
	}
	assert.Equal(t, infra.CBOpen, cb.State())

	mailer.err = nil
	err := w.Process(context.Background(), raw)
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Empty(t, mailer.enviados)
}

func TestEmailCierreWorker_FalloPDF(t *testing.T) {
	fuente, id := nuevaFuente(t)
	fuente.pdfErr = errors.New("disco lleno")
	mailer := &stubMailer{}
	w := NewEmailCierreWorker(fuente, mailer, breaker())

	err := w.Process(context.Background(), payload(t, EmailCierrePayload{CierreID: id.String(), Destinatario: "a@b.cl"}))
	assert.ErrorContains(t, err, "disco lleno")
	assert.Empty(t, mailer.enviados)
}

// ── Telegram ─────────────────────────────────────────────────────────────────

func TestTelegramCierreWorker_EnviaTexto(t *testing.T) {
	fuente, id := nuevaFuente(t)
	bot := &stubBot{}
	w := NewTelegramCierreWorker(fuente, bot, breaker())

	require.NoError(t, w.Process(context.Background(), payload(t, TelegramCierrePayload{CierreID: id.String()})))
	assert.Equal(t, []string{"cierre 2026-03-14"}, bot.mensajes)
}

func TestTelegramCierreWorker_Errores(t *testing.T) {
	fuente, id := nuevaFuente(t)
	bot := &stubBot{err: errors.New("chat not found")}
	w := NewTelegramCierreWorker(fuente, bot, breaker())

	err := w.Process(context.Background(), payload(t, TelegramCierrePayload{CierreID: id.String()}))
	assert.ErrorContains(t, err, "chat not found")
	assert.NotErrorIs(t, err, ErrNoReintentar)

	err = w.Process(context.Background(), payload(t, TelegramCierrePayload{CierreID: uuid.NewString()}))
	assert.ErrorIs(t, err, ErrNoReintentar)
}

// ── Backoff ──────────────────────────────────────────────────────────────────

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Second, computeRetryBackoff(0))
	assert.Equal(t, 10*time.Second, computeRetryBackoff(1))
	assert.Equal(t, 20*time.Second, computeRetryBackoff(2))
	assert.Equal(t, 40*time.Second, computeRetryBackoff(3))
	assert.Equal(t, retryMaxDelay, computeRetryBackoff(20))
}

func TestCierreDe(t *testing.T) {
	id := uuid.NewString()
	email, err := json.Marshal(EmailCierrePayload{CierreID: id, Destinatario: "dueno@wafix.cl"})
	require.NoError(t, err)
	telegram, err := json.Marshal(TelegramCierrePayload{CierreID: id})
	require.NoError(t, err)

	assert.Equal(t, id, cierreDe(email))
	assert.Equal(t, id, cierreDe(telegram))
	assert.Empty(t, cierreDe(json.RawMessage(`{"otro":1}`)))
	assert.Empty(t, cierreDe(json.RawMessage(`no es json`)))
}
