// Package sesion models one cashier filling in a daily closing: raw text per
// field, a live reconciliation and a guarded submit.
package sesion

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/model"
	"cierrecaja/internal/moneda"

	"github.com/google/uuid"
)

type Estado string

const (
	EstadoVacio    Estado = "vacio"
	EstadoEditando Estado = "editando"
	EstadoEnviando Estado = "enviando"
)

var (
	ErrEnvioEnCurso     = errors.New("ya hay un envío en curso para esta sesión")
	ErrFormularioVacio  = errors.New("el formulario no tiene datos para guardar")
	ErrCanalDesconocido = errors.New("canal de venta desconocido")
)

// Formulario keeps the input exactly as typed. Derived figures are never
// stored: Resultado recomputes them on every call.
// The struct is persisted as JSON between requests.
type Formulario struct {
	ID     string `json:"id"`
	Estado Estado `json:"estado"`
	// CierreID is set for edit sessions.
	CierreID         *uuid.UUID                           `json:"cierre_id,omitempty"`
	Fecha            time.Time                            `json:"fecha"`
	Ventas           map[conciliacion.Canal]string        `json:"ventas"`
	SaldoAnterior    string                               `json:"saldo_anterior"`
	GastosEfectivo   string                               `json:"gastos_efectivo"`
	Conteo           map[conciliacion.Denominacion]string `json:"conteo"`
	ConteoRegistrado bool                                 `json:"conteo_registrado"`
	Notas            *string                              `json:"notas,omitempty"`
	UltimoError      *string                              `json:"ultimo_error,omitempty"`
}

// Nuevo returns an empty session dated hoy.
func Nuevo(id string, hoy time.Time) *Formulario {
	return &Formulario{
		ID:     id,
		Estado: EstadoVacio,
		Fecha:  model.NormalizarFecha(hoy),
		Ventas: map[conciliacion.Canal]string{},
		Conteo: map[conciliacion.Denominacion]string{},
	}
}

// DesdeCierre opens an edit session on a persisted closing. Delivery lines
// that match no channel have no field in the form; callers check
// CierreDiario.Entrada before editing such a closing.
func DesdeCierre(id string, c *model.CierreDiario) *Formulario {
	e, _ := c.Entrada()
	cierreID := c.ID
	f := Nuevo(id, c.Fecha)
	f.CierreID = &cierreID
	f.SaldoAnterior = textoMonto(e.SaldoAnterior)
	f.GastosEfectivo = textoMonto(e.GastosEfectivo)
	for _, canal := range conciliacion.Canales() {
		f.Ventas[canal.ID] = textoMonto(e.Ventas[canal.ID])
	}
	if c.ConteoRegistrado() {
		f.ConteoRegistrado = true
		for d, n := range e.Conteo {
			if conciliacion.EsDenominacion(int64(d)) && n > 0 {
				f.Conteo[d] = strconv.FormatInt(n, 10)
			}
		}
	}
	if c.Notas != nil {
		notas := *c.Notas
		f.Notas = &notas
	}
	f.Estado = EstadoEditando
	return f
}

func textoMonto(v int64) string {
	return moneda.FormatearEntrada(strconv.FormatInt(v, 10))
}

// EsEdicion reports whether submitting updates an existing closing.
func (f *Formulario) EsEdicion() bool { return f.CierreID != nil }

func (f *Formulario) SetFecha(t time.Time) error {
	return f.mutar(func() { f.Fecha = model.NormalizarFecha(t) })
}

// SetVenta stores raw re-rendered with thousands separators.
func (f *Formulario) SetVenta(canal conciliacion.Canal, raw string) error {
	if _, ok := conciliacion.BuscarCanal(canal); !ok {
		return fmt.Errorf("%w: %q", ErrCanalDesconocido, canal)
	}
	return f.mutar(func() { f.Ventas[canal] = moneda.FormatearEntrada(raw) })
}

func (f *Formulario) SetSaldoAnterior(raw string) error {
	return f.mutar(func() { f.SaldoAnterior = moneda.FormatearEntrada(raw) })
}

func (f *Formulario) SetGastosEfectivo(raw string) error {
	return f.mutar(func() { f.GastosEfectivo = moneda.FormatearEntrada(raw) })
}

// SetConteo records how many units of d were counted and marks the count as
// taken. Unknown face values are ignored.
func (f *Formulario) SetConteo(d conciliacion.Denominacion, raw string) error {
	if !conciliacion.EsDenominacion(int64(d)) {
		return nil
	}
	return f.mutar(func() {
		f.Conteo[d] = moneda.SoloDigitos(raw)
		f.ConteoRegistrado = true
	})
}

// SetConteoRegistrado(false) discards the count.
func (f *Formulario) SetConteoRegistrado(v bool) error {
	return f.mutar(func() {
		f.ConteoRegistrado = v
		if !v {
			f.Conteo = map[conciliacion.Denominacion]string{}
		}
	})
}

func (f *Formulario) SetNotas(notas *string) error {
	return f.mutar(func() {
		if notas != nil && *notas == "" {
			notas = nil
		}
		f.Notas = notas
	})
}

func (f *Formulario) mutar(fn func()) error {
	if f.Estado == EstadoEnviando {
		return ErrEnvioEnCurso
	}
	if f.Ventas == nil {
		f.Ventas = map[conciliacion.Canal]string{}
	}
	if f.Conteo == nil {
		f.Conteo = map[conciliacion.Denominacion]string{}
	}
	fn()
	if f.vacio() {
		f.Estado = EstadoVacio
	} else {
		f.Estado = EstadoEditando
	}
	return nil
}

func (f *Formulario) vacio() bool {
	if f.SaldoAnterior != "" || f.GastosEfectivo != "" || f.Notas != nil || f.ConteoRegistrado {
		return false
	}
	for _, v := range f.Ventas {
		if v != "" {
			return false
		}
	}
	return true
}

// Entrada parses the raw text. Malformed amounts read as zero.
func (f *Formulario) Entrada() conciliacion.Entrada {
	e := conciliacion.Entrada{
		Ventas:         conciliacion.VentasPorCanal{},
		SaldoAnterior:  moneda.ParseMonto(f.SaldoAnterior),
		GastosEfectivo: moneda.ParseMonto(f.GastosEfectivo),
		Conteo:         conciliacion.ConteoDenominaciones{},
	}
	for canal, raw := range f.Ventas {
		e.Ventas[canal] = moneda.ParseMonto(raw)
	}
	if f.ConteoRegistrado {
		for d, raw := range f.Conteo {
			e.Conteo[d] = moneda.ParseMonto(raw)
		}
	}
	return e
}

func (f *Formulario) Resultado() conciliacion.Resultado {
	return conciliacion.Conciliar(f.Entrada())
}

// Cierre assembles the record to persist. Edit sessions keep the target id.
func (f *Formulario) Cierre() *model.CierreDiario {
	c := model.NuevoCierre(f.Fecha, f.Entrada(), f.ConteoRegistrado, f.Notas)
	if f.CierreID != nil {
		c.ID = *f.CierreID
	}
	return c
}

// IniciarEnvio moves the session to enviando. At most one submit can be
// outstanding per session.
func (f *Formulario) IniciarEnvio() error {
	switch f.Estado {
	case EstadoEnviando:
		return ErrEnvioEnCurso
	case EstadoVacio:
		return ErrFormularioVacio
	}
	f.Estado = EstadoEnviando
	f.UltimoError = nil
	return nil
}

// FinalizarEnvio records the outcome of the submit started by IniciarEnvio.
// On failure the input is kept and the session goes back to editando.
// On success the input is cleared; descartar is true for edit sessions,
// which have nothing left to do.
func (f *Formulario) FinalizarEnvio(err error) (descartar bool) {
	if f.Estado != EstadoEnviando {
		return false
	}
	if err != nil {
		msg := err.Error()
		f.UltimoError = &msg
		f.Estado = EstadoEditando
		return false
	}
	f.limpiar()
	return f.EsEdicion()
}

// Reiniciar discards the input from any state. An edit session keeps its
// target so it can be reloaded.
func (f *Formulario) Reiniciar() {
	f.limpiar()
}

func (f *Formulario) limpiar() {
	f.Ventas = map[conciliacion.Canal]string{}
	f.Conteo = map[conciliacion.Denominacion]string{}
	f.SaldoAnterior = ""
	f.GastosEfectivo = ""
	f.ConteoRegistrado = false
	f.Notas = nil
	f.UltimoError = nil
	f.Estado = EstadoVacio
}
