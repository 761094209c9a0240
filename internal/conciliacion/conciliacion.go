// Package conciliacion computes the daily cash reconciliation: total sales,
// expected cash, counted cash and the discrepancy between the last two.
// Everything here is pure; callers recompute on every input change.
package conciliacion

import (
	"cierrecaja/internal/moneda"

	"github.com/shopspring/decimal"
)

// CantidadMaxima bounds the units counted for a single denomination.
const CantidadMaxima int64 = 1_000_000_000

// VentasPorCanal maps a channel to the amount sold through it.
// Missing channels count as zero.
type VentasPorCanal map[Canal]int64

// ConteoDenominaciones maps a face value to how many units were counted.
type ConteoDenominaciones map[Denominacion]int64

// Total sums count x face value over the known denominations only.
// Each count is held to +/-CantidadMaxima first.
func (c ConteoDenominaciones) Total() int64 {
	var total int64
	for _, d := range Denominaciones {
		total += acotar(c[d], CantidadMaxima) * int64(d)
	}
	return total
}

// Entrada is the full input of a reconciliation.
type Entrada struct {
	Ventas         VentasPorCanal
	SaldoAnterior  int64
	GastosEfectivo int64
	Conteo         ConteoDenominaciones
}

// Resultado holds the derived figures. It is never mutated on its own.
type Resultado struct {
	VentaTotal    int64 `json:"venta_total"`
	SaldoEsperado int64 `json:"saldo_esperado"`
	TotalEnCaja   int64 `json:"total_en_caja"`
	Diferencia    int64 `json:"diferencia"`
}

// Conciliar derives the Resultado for e.
//
//	VentaTotal    = sum of every channel, delivery included
//	SaldoEsperado = SaldoAnterior + efectivo - GastosEfectivo (may be negative)
//	TotalEnCaja   = sum of the denomination count
//	Diferencia    = TotalEnCaja - SaldoEsperado
//
// Amounts are held to +/-moneda.MontoMaximo, so no sum can overflow.
func Conciliar(e Entrada) Resultado {
	var total int64
	for _, c := range catalogo {
		total += acotar(e.Ventas[c.ID], moneda.MontoMaximo)
	}
	esperado := acotar(e.SaldoAnterior, moneda.MontoMaximo) +
		acotar(e.Ventas[CanalEfectivo], moneda.MontoMaximo) -
		acotar(e.GastosEfectivo, moneda.MontoMaximo)
	enCaja := e.Conteo.Total()
	return Resultado{
		VentaTotal:    total,
		SaldoEsperado: esperado,
		TotalEnCaja:   enCaja,
		Diferencia:    enCaja - esperado,
	}
}

func acotar(v, limite int64) int64 {
	switch {
	case v > limite:
		return limite
	case v < -limite:
		return -limite
	}
	return v
}

// Clasificaciones de desvio.
const (
	DesvioNormal      = "normal"
	DesvioAdvertencia = "advertencia"
	DesvioCritico     = "critico"
)

// Desvio expresses a discrepancy relative to the expected balance.
type Desvio struct {
	Monto         int64           `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"`
}

// Desvio returns the discrepancy as a percentage of |SaldoEsperado|, rounded
// to two places, and its classification:
// normal <= 1%, advertencia <= 5%, critico > 5%.
// With a zero expected balance any non-zero difference is critico.
func (r Resultado) Desvio() Desvio {
	d := Desvio{Monto: r.Diferencia, Porcentaje: decimal.Zero}
	base := decimal.NewFromInt(r.SaldoEsperado).Abs()
	if base.IsZero() {
		d.Clasificacion = DesvioNormal
		if r.Diferencia != 0 {
			d.Clasificacion = DesvioCritico
		}
		return d
	}
	d.Porcentaje = decimal.NewFromInt(r.Diferencia).Div(base).Mul(decimal.NewFromInt(100)).Round(2)
	d.Clasificacion = clasificarDesvio(d.Porcentaje)
	return d
}

func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return DesvioNormal
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return DesvioAdvertencia
	default:
		return DesvioCritico
	}
}
