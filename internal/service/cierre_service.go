package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/dto"
	"cierrecaja/internal/model"
	"cierrecaja/internal/moneda"
	"cierrecaja/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrEntradaInvalida wraps input the handlers could not reject up front
// (unknown channel or denomination, malformed date).
var ErrEntradaInvalida = errors.New("datos del cierre inválidos")

type CierreService interface {
	Crear(ctx context.Context, req dto.CierreRequest) (*dto.CierreResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.CierreRequest) (*dto.CierreResponse, error)
	// Guardar persists a closing assembled elsewhere (edit sessions pass
	// edicion=true with c.ID set).
	Guardar(ctx context.Context, c *model.CierreDiario, edicion bool) error
	Eliminar(ctx context.Context, id uuid.UUID) error
	Obtener(ctx context.Context, id uuid.UUID) (*dto.CierreResponse, error)
	Buscar(ctx context.Context, id uuid.UUID) (*model.CierreDiario, error)
	Listar(ctx context.Context, filter dto.CierreFilter) (*dto.CierreListResponse, error)
	Recorrer(ctx context.Context, lote int, fn func([]model.CierreDiario) error) error
	Previsualizar(req dto.ConciliacionRequest) dto.ResultadoResponse
}

type cierreService struct {
	repo repository.CierreRepository
}

func NewCierreService(repo repository.CierreRepository) CierreService {
	return &cierreService{repo: repo}
}

// ── Crear / Actualizar ───────────────────────────────────────────────────────

func (s *cierreService) Crear(ctx context.Context, req dto.CierreRequest) (*dto.CierreResponse, error) {
	c, err := cierreDesdeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.Guardar(ctx, c, false); err != nil {
		return nil, err
	}
	resp := toCierreResponse(c)
	return &resp, nil
}

func (s *cierreService) Actualizar(ctx context.Context, id uuid.UUID, req dto.CierreRequest) (*dto.CierreResponse, error) {
	c, err := cierreDesdeRequest(req)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.Guardar(ctx, c, true); err != nil {
		return nil, err
	}
	// reload for created_at
	return s.Obtener(ctx, id)
}

func (s *cierreService) Guardar(ctx context.Context, c *model.CierreDiario, edicion bool) error {
	if err := c.Verificar(); err != nil {
		return err
	}
	var err error
	if edicion {
		err = s.repo.Update(ctx, c)
	} else {
		err = s.repo.Create(ctx, c)
	}
	if err != nil {
		log.Error().Err(err).Str("cierre_id", c.ID.String()).Bool("edicion", edicion).Msg("cierre: error al guardar")
		return err
	}
	log.Info().
		Str("cierre_id", c.ID.String()).
		Str("fecha", c.Fecha.Format(fechaLayout)).
		Int64("venta_total", c.VentaTotal()).
		Bool("edicion", edicion).
		Msg("cierre guardado")
	return nil
}

func (s *cierreService) Eliminar(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("cierre_id", id.String()).Msg("cierre eliminado")
	return nil
}

// ── Consultas ────────────────────────────────────────────────────────────────

func (s *cierreService) Obtener(ctx context.Context, id uuid.UUID) (*dto.CierreResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toCierreResponse(c)
	return &resp, nil
}

func (s *cierreService) Buscar(ctx context.Context, id uuid.UUID) (*model.CierreDiario, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *cierreService) Listar(ctx context.Context, filter dto.CierreFilter) (*dto.CierreListResponse, error) {
	cierres, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.CierreListResponse{
		Data:  make([]dto.CierreResponse, 0, len(cierres)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range cierres {
		out.Data = append(out.Data, toCierreResponse(&cierres[i]))
	}
	return out, nil
}

func (s *cierreService) Recorrer(ctx context.Context, lote int, fn func([]model.CierreDiario) error) error {
	return s.repo.Each(ctx, lote, fn)
}

// Previsualizar runs the reconciliation on raw form text without storing it.
func (s *cierreService) Previsualizar(req dto.ConciliacionRequest) dto.ResultadoResponse {
	e := conciliacion.Entrada{
		Ventas:         conciliacion.VentasPorCanal{},
		SaldoAnterior:  moneda.ParseMonto(req.SaldoAnterior),
		GastosEfectivo: moneda.ParseMonto(req.GastosEfectivo),
		Conteo:         conciliacion.ConteoDenominaciones{},
	}
	for canal, raw := range req.Ventas {
		e.Ventas[conciliacion.Canal(canal)] = moneda.ParseMonto(raw)
	}
	for d, raw := range req.Conteo {
		if v, err := strconv.ParseInt(d, 10, 64); err == nil {
			e.Conteo[conciliacion.Denominacion(v)] = moneda.ParseMonto(raw)
		}
	}
	return toResultadoResponse(conciliacion.Conciliar(e))
}

func cierreDesdeRequest(req dto.CierreRequest) (*model.CierreDiario, error) {
	fecha, err := time.Parse(fechaLayout, req.Fecha)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha %q", ErrEntradaInvalida, req.Fecha)
	}
	e := conciliacion.Entrada{
		Ventas:         conciliacion.VentasPorCanal{},
		SaldoAnterior:  req.SaldoAnterior,
		GastosEfectivo: req.GastosEfectivo,
		Conteo:         conciliacion.ConteoDenominaciones{},
	}
	for id, monto := range req.Ventas {
		canal, ok := conciliacion.BuscarCanal(conciliacion.Canal(id))
		if !ok {
			return nil, fmt.Errorf("%w: canal %q", ErrEntradaInvalida, id)
		}
		e.Ventas[canal.ID] = monto
	}
	if req.ConteoRegistrado {
		for d, n := range req.Conteo {
			if !conciliacion.EsDenominacion(d) {
				return nil, fmt.Errorf("%w: denominación %d", ErrEntradaInvalida, d)
			}
			e.Conteo[conciliacion.Denominacion(d)] = n
		}
	}
	return model.NuevoCierre(fecha, e, req.ConteoRegistrado, req.Notas), nil
}
