package model

import (
	"errors"
	"fmt"
	"time"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/moneda"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrInconsistente is returned by Verificar when a summary column disagrees
// with the lines it is derived from.
var ErrInconsistente = errors.New("cierre inconsistente")

// CierreDiario is one day's consolidated cash-register closing.
// TotalEnCaja and Diferencia are nil when no denomination count was recorded.
type CierreDiario struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Fecha               time.Time `gorm:"not null;index"`
	SaldoAnterior       int64     `gorm:"not null;default:0"`
	VentasEfectivo      int64     `gorm:"not null;default:0"`
	VentasTarjeta       int64     `gorm:"not null;default:0"`
	VentasTransferencia int64     `gorm:"not null;default:0"`
	VentasGiftCard      int64     `gorm:"not null;default:0"`
	GastosEfectivo      int64     `gorm:"not null;default:0"`
	// VentasDelivery always equals the sum of Delivery.
	VentasDelivery int64 `gorm:"not null;default:0"`
	SaldoEsperado  int64 `gorm:"not null;default:0"`
	TotalEnCaja    *int64
	Diferencia     *int64
	Notas          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Delivery []VentaDelivery `gorm:"foreignKey:CierreID;constraint:OnDelete:CASCADE"`
	Conteo   []ConteoCaja    `gorm:"foreignKey:CierreID;constraint:OnDelete:CASCADE"`
}

func (CierreDiario) TableName() string { return "cierres_diarios" }

// VentaDelivery is the amount sold through one delivery platform on the
// closing's day. Only positive amounts are stored.
type VentaDelivery struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	CierreID uuid.UUID `gorm:"type:uuid;not null;index"`
	CanalID  string    `gorm:"type:varchar(40);not null"`
	// NombreServicio is the channel label at save time.
	NombreServicio string `gorm:"not null"`
	Monto          int64  `gorm:"not null"`
}

func (VentaDelivery) TableName() string { return "ventas_delivery" }

// ConteoCaja is one denomination line of the physical cash count.
type ConteoCaja struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CierreID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Denominacion int64     `gorm:"not null"`
	Cantidad     int64     `gorm:"not null"`
}

func (ConteoCaja) TableName() string { return "conteos_caja" }

// NuevoCierre builds a closing from raw input. It is the only place where the
// aggregates are computed: VentasDelivery, TotalEnCaja and Diferencia come from
// the lines this function derives, never from the caller.
// Negative amounts are clamped to zero.
func NuevoCierre(fecha time.Time, e conciliacion.Entrada, conteoRegistrado bool, notas *string) *CierreDiario {
	e = sanear(e)
	res := conciliacion.Conciliar(e)

	c := &CierreDiario{
		Fecha:               NormalizarFecha(fecha),
		SaldoAnterior:       e.SaldoAnterior,
		VentasEfectivo:      e.Ventas[conciliacion.CanalEfectivo],
		VentasTarjeta:       e.Ventas[conciliacion.CanalTarjeta],
		VentasTransferencia: e.Ventas[conciliacion.CanalTransferencia],
		VentasGiftCard:      e.Ventas[conciliacion.CanalGiftCard],
		GastosEfectivo:      e.GastosEfectivo,
		SaldoEsperado:       res.SaldoEsperado,
		Notas:               notas,
	}

	for _, canal := range conciliacion.CanalesDelivery() {
		monto := e.Ventas[canal.ID]
		if monto <= 0 {
			continue
		}
		c.Delivery = append(c.Delivery, VentaDelivery{
			CanalID:        string(canal.ID),
			NombreServicio: canal.Etiqueta,
			Monto:          monto,
		})
		c.VentasDelivery += monto
	}

	if conteoRegistrado {
		var enCaja int64
		for _, d := range conciliacion.Denominaciones {
			n := e.Conteo[d]
			if n <= 0 {
				continue
			}
			c.Conteo = append(c.Conteo, ConteoCaja{Denominacion: int64(d), Cantidad: n})
			enCaja += n * int64(d)
		}
		dif := enCaja - c.SaldoEsperado
		c.TotalEnCaja = &enCaja
		c.Diferencia = &dif
	}
	return c
}

// NormalizarFecha keeps the calendar date of t and pins it to UTC midnight.
func NormalizarFecha(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sanear(e conciliacion.Entrada) conciliacion.Entrada {
	out := conciliacion.Entrada{
		Ventas:         conciliacion.VentasPorCanal{},
		SaldoAnterior:  clamp("saldo_anterior", e.SaldoAnterior, moneda.MontoMaximo),
		GastosEfectivo: clamp("gastos_efectivo", e.GastosEfectivo, moneda.MontoMaximo),
		Conteo:         conciliacion.ConteoDenominaciones{},
	}
	for canal, monto := range e.Ventas {
		out.Ventas[canal] = clamp(string(canal), monto, moneda.MontoMaximo)
	}
	for d, n := range e.Conteo {
		out.Conteo[d] = clamp(fmt.Sprintf("conteo_%d", d), n, conciliacion.CantidadMaxima)
	}
	return out
}

// clamp holds v to [0, tope].
func clamp(campo string, v, tope int64) int64 {
	switch {
	case v < 0:
		log.Debug().Str("campo", campo).Int64("valor", v).Msg("monto negativo ajustado a cero")
		return 0
	case v > tope:
		log.Warn().Str("campo", campo).Int64("valor", v).Int64("maximo", tope).Msg("valor sobre el máximo ajustado")
		return tope
	}
	return v
}

// VentaTotal is the sum of every channel, delivery included.
func (c *CierreDiario) VentaTotal() int64 {
	return c.VentasEfectivo + c.VentasTarjeta + c.VentasTransferencia + c.VentasGiftCard + c.VentasDelivery
}

// ConteoRegistrado reports whether a physical count was saved with the closing.
func (c *CierreDiario) ConteoRegistrado() bool { return c.TotalEnCaja != nil }

// Entrada rebuilds the raw input of the closing. Delivery lines are matched by
// CanalID; rows without one fall back to the label they were saved under.
// Lines that match no known channel are reported through the second value.
func (c *CierreDiario) Entrada() (conciliacion.Entrada, []VentaDelivery) {
	e := conciliacion.Entrada{
		Ventas: conciliacion.VentasPorCanal{
			conciliacion.CanalEfectivo:      c.VentasEfectivo,
			conciliacion.CanalTarjeta:       c.VentasTarjeta,
			conciliacion.CanalTransferencia: c.VentasTransferencia,
			conciliacion.CanalGiftCard:      c.VentasGiftCard,
		},
		SaldoAnterior:  c.SaldoAnterior,
		GastosEfectivo: c.GastosEfectivo,
		Conteo:         conciliacion.ConteoDenominaciones{},
	}
	var huerfanas []VentaDelivery
	for _, v := range c.Delivery {
		info, ok := conciliacion.BuscarCanal(conciliacion.Canal(v.CanalID))
		if !ok || !info.Delivery {
			info, ok = conciliacion.CanalPorEtiqueta(v.NombreServicio)
		}
		if !ok || !info.Delivery {
			huerfanas = append(huerfanas, v)
			continue
		}
		e.Ventas[info.ID] += v.Monto
	}
	for _, l := range c.Conteo {
		e.Conteo[conciliacion.Denominacion(l.Denominacion)] += l.Cantidad
	}
	return e, huerfanas
}

// Resultado reads the reconciliation back from the stored columns. Without a
// count it matches what Conciliar gives for an empty count.
func (c *CierreDiario) Resultado() conciliacion.Resultado {
	r := conciliacion.Resultado{
		VentaTotal:    c.VentaTotal(),
		SaldoEsperado: c.SaldoEsperado,
	}
	if c.TotalEnCaja != nil {
		r.TotalEnCaja = *c.TotalEnCaja
	}
	r.Diferencia = r.TotalEnCaja - r.SaldoEsperado
	return r
}

// Verificar checks that every stored aggregate matches its lines.
func (c *CierreDiario) Verificar() error {
	var delivery int64
	for _, v := range c.Delivery {
		if v.Monto <= 0 {
			return fmt.Errorf("%w: venta delivery %q sin monto positivo", ErrInconsistente, v.CanalID)
		}
		delivery += v.Monto
	}
	if delivery != c.VentasDelivery {
		return fmt.Errorf("%w: ventas_delivery=%d, suma de líneas=%d", ErrInconsistente, c.VentasDelivery, delivery)
	}
	if esperado := c.SaldoAnterior + c.VentasEfectivo - c.GastosEfectivo; esperado != c.SaldoEsperado {
		return fmt.Errorf("%w: saldo_esperado=%d, calculado=%d", ErrInconsistente, c.SaldoEsperado, esperado)
	}
	if (c.TotalEnCaja == nil) != (c.Diferencia == nil) {
		return fmt.Errorf("%w: total_en_caja y diferencia deben registrarse juntos", ErrInconsistente)
	}
	if c.TotalEnCaja == nil {
		if len(c.Conteo) > 0 {
			return fmt.Errorf("%w: conteo sin total_en_caja", ErrInconsistente)
		}
		return nil
	}
	var enCaja int64
	for _, l := range c.Conteo {
		enCaja += l.Cantidad * l.Denominacion
	}
	if enCaja != *c.TotalEnCaja {
		return fmt.Errorf("%w: total_en_caja=%d, conteo=%d", ErrInconsistente, *c.TotalEnCaja, enCaja)
	}
	if dif := enCaja - c.SaldoEsperado; dif != *c.Diferencia {
		return fmt.Errorf("%w: diferencia=%d, calculada=%d", ErrInconsistente, *c.Diferencia, dif)
	}
	return nil
}
