package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"cierrecaja/internal/dto"
	"cierrecaja/internal/model"

	"github.com/google/uuid"
)

// memCierreRepo keeps closings in process. It backs DATABASE_URL=memory://
// for local runs and the service and handler tests.
type memCierreRepo struct {
	mu      sync.RWMutex
	cierres map[uuid.UUID]model.CierreDiario
	now     func() time.Time
}

func NewMemCierreRepository() CierreRepository {
	return &memCierreRepo{cierres: map[uuid.UUID]model.CierreDiario{}, now: time.Now}
}

func (r *memCierreRepo) Create(_ context.Context, c *model.CierreDiario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	asignarLineas(c)
	c.CreatedAt = r.now()
	c.UpdatedAt = c.CreatedAt
	r.cierres[c.ID] = clonar(c)
	return nil
}

func (r *memCierreRepo) Update(_ context.Context, c *model.CierreDiario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	actual, ok := r.cierres[c.ID]
	if !ok {
		return ErrNoEncontrado
	}
	asignarLineas(c)
	c.CreatedAt = actual.CreatedAt
	c.UpdatedAt = r.now()
	r.cierres[c.ID] = clonar(c)
	return nil
}

func (r *memCierreRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cierres[id]; !ok {
		return ErrNoEncontrado
	}
	delete(r.cierres, id)
	return nil
}

func (r *memCierreRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CierreDiario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cierres[id]
	if !ok {
		return nil, ErrNoEncontrado
	}
	out := clonar(&c)
	return &out, nil
}

func (r *memCierreRepo) List(_ context.Context, filter dto.CierreFilter) ([]model.CierreDiario, int64, error) {
	todos := r.ordenados(filter)
	total := int64(len(todos))

	page, limit := paginacion(filter)
	desde := (page - 1) * limit
	if desde >= len(todos) {
		return []model.CierreDiario{}, total, nil
	}
	hasta := desde + limit
	if hasta > len(todos) {
		hasta = len(todos)
	}
	return todos[desde:hasta], total, nil
}

func (r *memCierreRepo) Each(ctx context.Context, batchSize int, fn func([]model.CierreDiario) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	todos := r.ordenados(dto.CierreFilter{})
	for len(todos) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := batchSize
		if n > len(todos) {
			n = len(todos)
		}
		if err := fn(todos[:n]); err != nil {
			return err
		}
		todos = todos[n:]
	}
	return nil
}

// ordenados snapshots the closings in the filter's range, most recent first.
func (r *memCierreRepo) ordenados(filter dto.CierreFilter) []model.CierreDiario {
	r.mu.RLock()
	out := make([]model.CierreDiario, 0, len(r.cierres))
	for _, c := range r.cierres {
		if filter.Desde != nil && c.Fecha.Before(model.NormalizarFecha(*filter.Desde)) {
			continue
		}
		if filter.Hasta != nil && c.Fecha.After(model.NormalizarFecha(*filter.Hasta)) {
			continue
		}
		out = append(out, clonar(&c))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.After(out[j].Fecha)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out
}

func asignarLineas(c *model.CierreDiario) {
	for i := range c.Delivery {
		c.Delivery[i].ID = uuid.New()
		c.Delivery[i].CierreID = c.ID
	}
	for i := range c.Conteo {
		c.Conteo[i].ID = uuid.New()
		c.Conteo[i].CierreID = c.ID
	}
	sort.Slice(c.Delivery, func(i, j int) bool { return c.Delivery[i].CanalID < c.Delivery[j].CanalID })
	sort.Slice(c.Conteo, func(i, j int) bool { return c.Conteo[i].Denominacion > c.Conteo[j].Denominacion })
}

func clonar(c *model.CierreDiario) model.CierreDiario {
	out := *c
	out.Delivery = append([]model.VentaDelivery(nil), c.Delivery...)
	out.Conteo = append([]model.ConteoCaja(nil), c.Conteo...)
	if c.TotalEnCaja != nil {
		v := *c.TotalEnCaja
		out.TotalEnCaja = &v
	}
	if c.Diferencia != nil {
		v := *c.Diferencia
		out.Diferencia = &v
	}
	if c.Notas != nil {
		v := *c.Notas
		out.Notas = &v
	}
	return out
}
