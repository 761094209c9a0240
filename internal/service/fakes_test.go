package service

import (
	"context"
	"sync"

	"cierrecaja/internal/dto"
	"cierrecaja/internal/model"
	"cierrecaja/internal/repository"

	"github.com/google/uuid"
)

// ── In-memory CierreRepository with failure injection ───────────────────────

type fallasRepo struct {
	repository.CierreRepository

	mu        sync.Mutex
	errCreate error
	errUpdate error
	errFind   error
	// bloqueo, when set, holds Create until it is closed.
	bloqueo  chan struct{}
	entrando chan struct{}
	creates  int
}

func newFallasRepo() *fallasRepo {
	return &fallasRepo{CierreRepository: repository.NewMemCierreRepository()}
}

func (r *fallasRepo) Create(ctx context.Context, c *model.CierreDiario) error {
	r.mu.Lock()
	err, bloqueo, entrando := r.errCreate, r.bloqueo, r.entrando
	r.creates++
	r.mu.Unlock()

	if entrando != nil {
		entrando <- struct{}{}
	}
	if bloqueo != nil {
		<-bloqueo
	}
	if err != nil {
		return err
	}
	return r.CierreRepository.Create(ctx, c)
}

func (r *fallasRepo) Update(ctx context.Context, c *model.CierreDiario) error {
	r.mu.Lock()
	err := r.errUpdate
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.CierreRepository.Update(ctx, c)
}

func (r *fallasRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CierreDiario, error) {
	r.mu.Lock()
	err := r.errFind
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.CierreRepository.FindByID(ctx, id)
}

// ── Encolador stub ───────────────────────────────────────────────────────────

type encolado struct {
	tipo    string
	cierre  uuid.UUID
	destino string
}

type stubEncolador struct {
	jobs []encolado
	err  error
}

func (e *stubEncolador) EncolarEmailCierre(_ context.Context, id uuid.UUID, dest string) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, encolado{"email", id, dest})
	return nil
}

func (e *stubEncolador) EncolarTelegramCierre(_ context.Context, id uuid.UUID) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, encolado{"telegram", id, ""})
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func ptr[T any](v T) *T { return &v }

// requestEjemplo is the worked example used across the tests: venta total
// $590.000, saldo esperado $450.000, caja contada $449.000.
func requestEjemplo() dto.CierreRequest {
	return dto.CierreRequest{
		Fecha:          "2026-03-14",
		SaldoAnterior:  100000,
		GastosEfectivo: 50000,
		Ventas: map[string]int64{
			"efectivo":      400000,
			"tarjeta":       120000,
			"transferencia": 30000,
			"uber_eats":     25000,
			"junaeb":        15000,
		},
		ConteoRegistrado: true,
		Conteo: map[int64]int64{
			20000: 20,
			10000: 4,
			5000:  1,
			2000:  2,
		},
	}
}
