package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/dto"
	"cierrecaja/internal/model"
	"cierrecaja/internal/repository"
	"cierrecaja/internal/sesion"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Locker serializes read-modify-write cycles on one session.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type SesionService interface {
	Crear(ctx context.Context) (*dto.SesionResponse, error)
	// Editar opens a session preloaded with a stored closing. Closings with
	// delivery lines outside the channel catalog are refused with
	// ErrEntradaInvalida.
	Editar(ctx context.Context, cierreID uuid.UUID) (*dto.SesionResponse, error)
	Obtener(ctx context.Context, id string) (*dto.SesionResponse, error)
	Actualizar(ctx context.Context, id string, req dto.SesionCamposRequest) (*dto.SesionResponse, error)
	Reiniciar(ctx context.Context, id string) (*dto.SesionResponse, error)
	// Enviar creates or updates the closing. A second call while the first
	// is outstanding fails with sesion.ErrEnvioEnCurso.
	Enviar(ctx context.Context, id string) (*dto.EnviarSesionResponse, error)
	Descartar(ctx context.Context, id string) error
}

type sesionService struct {
	repo    repository.SesionRepository
	cierres CierreService
	locker  Locker
	now     func() time.Time
}

func NewSesionService(repo repository.SesionRepository, cierres CierreService, locker Locker) SesionService {
	return &sesionService{repo: repo, cierres: cierres, locker: locker, now: time.Now}
}

func (s *sesionService) Crear(ctx context.Context) (*dto.SesionResponse, error) {
	f := sesion.Nuevo(uuid.NewString(), s.now())
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	log.Debug().Str("sesion_id", f.ID).Msg("sesion creada")
	return toSesionResponse(f), nil
}

func (s *sesionService) Editar(ctx context.Context, cierreID uuid.UUID) (*dto.SesionResponse, error) {
	c, err := s.cierres.Buscar(ctx, cierreID)
	if err != nil {
		return nil, err
	}
	// Lines outside the catalog have no form field and would be lost on save.
	if _, huerfanas := c.Entrada(); len(huerfanas) > 0 {
		nombres := make([]string, len(huerfanas))
		for i, h := range huerfanas {
			nombres[i] = h.NombreServicio
		}
		log.Warn().Str("cierre_id", cierreID.String()).Strs("servicios", nombres).Msg("cierre con ventas delivery fuera del catálogo")
		return nil, fmt.Errorf("%w: el cierre tiene ventas de servicios fuera del catálogo (%s)", ErrEntradaInvalida, strings.Join(nombres, ", "))
	}
	f := sesion.DesdeCierre(uuid.NewString(), c)
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	log.Debug().Str("sesion_id", f.ID).Str("cierre_id", cierreID.String()).Msg("sesion de edicion creada")
	return toSesionResponse(f), nil
}

func (s *sesionService) Obtener(ctx context.Context, id string) (*dto.SesionResponse, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSesionResponse(f), nil
}

func (s *sesionService) Actualizar(ctx context.Context, id string, req dto.SesionCamposRequest) (*dto.SesionResponse, error) {
	var out *dto.SesionResponse
	err := s.conSesion(ctx, id, func(f *sesion.Formulario) (bool, error) {
		if err := aplicarCampos(f, req); err != nil {
			return false, err
		}
		out = toSesionResponse(f)
		return true, nil
	})
	return out, err
}

func (s *sesionService) Reiniciar(ctx context.Context, id string) (*dto.SesionResponse, error) {
	var out *dto.SesionResponse
	err := s.conSesion(ctx, id, func(f *sesion.Formulario) (bool, error) {
		f.Reiniciar()
		out = toSesionResponse(f)
		return true, nil
	})
	return out, err
}

func (s *sesionService) Descartar(ctx context.Context, id string) error {
	unlock, err := s.locker.Lock(ctx, "sesion:"+id)
	if err != nil {
		return err
	}
	defer unlock()
	return s.repo.Delete(ctx, id)
}

// ── Enviar ───────────────────────────────────────────────────────────────────
// The lock covers the two state transitions only. enviando is persisted
// before the database write starts.

func (s *sesionService) Enviar(ctx context.Context, id string) (*dto.EnviarSesionResponse, error) {
	var (
		cierre  *model.CierreDiario
		edicion bool
	)
	err := s.conSesion(ctx, id, func(f *sesion.Formulario) (bool, error) {
		if err := f.IniciarEnvio(); err != nil {
			return false, err
		}
		cierre = f.Cierre()
		edicion = f.EsEdicion()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	errEnvio := s.cierres.Guardar(ctx, cierre, edicion)

	// the outcome is recorded even if the caller went away
	ctxFin := context.WithoutCancel(ctx)
	out := &dto.EnviarSesionResponse{}
	errFin := s.conSesion(ctxFin, id, func(f *sesion.Formulario) (bool, error) {
		if f.FinalizarEnvio(errEnvio) {
			return false, s.repo.Delete(ctxFin, id)
		}
		out.Sesion = toSesionResponse(f)
		return true, nil
	})
	if errors.Is(errFin, repository.ErrSesionNoEncontrada) {
		errFin = nil
	}
	if errFin != nil {
		log.Error().Err(errFin).Str("sesion_id", id).Msg("sesion: no se pudo registrar el resultado del envio")
	}

	if errEnvio != nil {
		return nil, errEnvio
	}
	out.Cierre = toCierreResponse(cierre)
	return out, nil
}

// conSesion loads the session under its lock, runs fn and saves the result
// when fn asks for it.
func (s *sesionService) conSesion(ctx context.Context, id string, fn func(*sesion.Formulario) (bool, error)) error {
	unlock, err := s.locker.Lock(ctx, "sesion:"+id)
	if err != nil {
		return err
	}
	defer unlock()

	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	guardar, err := fn(f)
	if err != nil {
		return err
	}
	if !guardar {
		return nil
	}
	return s.repo.Save(ctx, f)
}

func aplicarCampos(f *sesion.Formulario, req dto.SesionCamposRequest) error {
	if req.Fecha != nil {
		fecha, err := time.Parse(fechaLayout, *req.Fecha)
		if err != nil {
			return ErrEntradaInvalida
		}
		if err := f.SetFecha(fecha); err != nil {
			return err
		}
	}
	for canal, raw := range req.Ventas {
		if err := f.SetVenta(conciliacion.Canal(canal), raw); err != nil {
			if errors.Is(err, sesion.ErrCanalDesconocido) {
				return errors.Join(ErrEntradaInvalida, err)
			}
			return err
		}
	}
	if req.SaldoAnterior != nil {
		if err := f.SetSaldoAnterior(*req.SaldoAnterior); err != nil {
			return err
		}
	}
	if req.GastosEfectivo != nil {
		if err := f.SetGastosEfectivo(*req.GastosEfectivo); err != nil {
			return err
		}
	}
	if req.ConteoRegistrado != nil {
		if err := f.SetConteoRegistrado(*req.ConteoRegistrado); err != nil {
			return err
		}
	}
	for d, raw := range req.Conteo {
		v, err := strconv.ParseInt(d, 10, 64)
		if err != nil || !conciliacion.EsDenominacion(v) {
			return ErrEntradaInvalida
		}
		if err := f.SetConteo(conciliacion.Denominacion(v), raw); err != nil {
			return err
		}
	}
	if req.Notas != nil {
		if err := f.SetNotas(req.Notas); err != nil {
			return err
		}
	}
	return nil
}

func toSesionResponse(f *sesion.Formulario) *dto.SesionResponse {
	out := &dto.SesionResponse{
		ID:               f.ID,
		Estado:           string(f.Estado),
		Fecha:            f.Fecha.Format(fechaLayout),
		Ventas:           make(map[string]string, len(f.Ventas)),
		SaldoAnterior:    f.SaldoAnterior,
		GastosEfectivo:   f.GastosEfectivo,
		Conteo:           make(map[string]string, len(f.Conteo)),
		ConteoRegistrado: f.ConteoRegistrado,
		Notas:            f.Notas,
		UltimoError:      f.UltimoError,
		Resultado:        toResultadoResponse(f.Resultado()),
	}
	if f.CierreID != nil {
		id := f.CierreID.String()
		out.CierreID = &id
	}
	for canal, raw := range f.Ventas {
		out.Ventas[string(canal)] = raw
	}
	for d, raw := range f.Conteo {
		out.Conteo[strconv.FormatInt(int64(d), 10)] = raw
	}
	return out
}
