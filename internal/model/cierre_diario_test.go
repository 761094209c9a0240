package model

import (
	"math"
	"testing"
	"time"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/moneda"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entradaBase() conciliacion.Entrada {
	return conciliacion.Entrada{
		Ventas: conciliacion.VentasPorCanal{
			conciliacion.CanalEfectivo:           50000,
			conciliacion.CanalTarjeta:            30000,
			conciliacion.CanalTransferencia:      10000,
			conciliacion.CanalPedidosYaIceScroll: 5000,
			conciliacion.CanalUberEats:           0,
		},
		SaldoAnterior:  20000,
		GastosEfectivo: 5000,
		Conteo:         conciliacion.ConteoDenominaciones{20000: 2, 10000: 1, 1000: 5},
	}
}

func TestNuevoCierre_DerivaLineasYTotales(t *testing.T) {
	fecha := time.Date(2026, 3, 14, 22, 45, 0, 0, time.FixedZone("CLT", -3*3600))
	c := NuevoCierre(fecha, entradaBase(), true, nil)

	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), c.Fecha)
	require.Len(t, c.Delivery, 1, "zero-amount channels are not stored")
	assert.Equal(t, string(conciliacion.CanalPedidosYaIceScroll), c.Delivery[0].CanalID)
	assert.Equal(t, "Pedidos Ya Ice Scroll", c.Delivery[0].NombreServicio)
	assert.Equal(t, int64(5000), c.VentasDelivery)
	assert.Equal(t, int64(65000), c.SaldoEsperado)
	assert.Equal(t, int64(95000), c.VentaTotal())

	require.NotNil(t, c.TotalEnCaja)
	require.NotNil(t, c.Diferencia)
	assert.Equal(t, int64(55000), *c.TotalEnCaja)
	assert.Equal(t, int64(-10000), *c.Diferencia)
	assert.Len(t, c.Conteo, 3)
	require.NoError(t, c.Verificar())
}

func TestNuevoCierre_SinConteo(t *testing.T) {
	c := NuevoCierre(time.Now(), entradaBase(), false, nil)
	assert.Nil(t, c.TotalEnCaja)
	assert.Nil(t, c.Diferencia)
	assert.Empty(t, c.Conteo)
	assert.False(t, c.ConteoRegistrado())
	require.NoError(t, c.Verificar())
}

func TestNuevoCierre_NegativosSeRecortan(t *testing.T) {
	e := conciliacion.Entrada{
		Ventas:         conciliacion.VentasPorCanal{conciliacion.CanalEfectivo: -100, conciliacion.CanalJunaeb: -50},
		SaldoAnterior:  -1,
		GastosEfectivo: 300,
	}
	c := NuevoCierre(time.Now(), e, false, nil)
	assert.Equal(t, int64(0), c.VentasEfectivo)
	assert.Equal(t, int64(0), c.SaldoAnterior)
	assert.Empty(t, c.Delivery)
	assert.Equal(t, int64(-300), c.SaldoEsperado, "expected balance itself is never clamped")
}

func TestNuevoCierre_MontosSaturadosSeAcotan(t *testing.T) {
	e := conciliacion.Entrada{
		Ventas: conciliacion.VentasPorCanal{
			conciliacion.CanalTarjeta:  moneda.ParseMonto("99999999999999999999999"),
			conciliacion.CanalUberEats: moneda.ParseMonto("99999999999999999999999"),
			conciliacion.CanalJunaeb:   1,
			conciliacion.CanalEfectivo: math.MaxInt64,
		},
		SaldoAnterior: math.MaxInt64,
		Conteo:        conciliacion.ConteoDenominaciones{20000: 1 << 62},
	}
	c := NuevoCierre(time.Now(), e, true, nil)

	require.NoError(t, c.Verificar())
	assert.Equal(t, moneda.MontoMaximo, c.VentasTarjeta)
	assert.Equal(t, moneda.MontoMaximo, c.VentasEfectivo)
	assert.Equal(t, moneda.MontoMaximo+1, c.VentasDelivery)
	assert.Equal(t, 3*moneda.MontoMaximo+1, c.VentaTotal())
	assert.Equal(t, 2*moneda.MontoMaximo, c.SaldoEsperado)
	require.NotNil(t, c.TotalEnCaja)
	assert.Equal(t, conciliacion.CantidadMaxima*20000, *c.TotalEnCaja)
	assert.Equal(t, *c.TotalEnCaja-c.SaldoEsperado, *c.Diferencia)
	assert.Equal(t, conciliacion.Conciliar(e), c.Resultado())
}

func TestVerificar_DetectaAgregadoDesalineado(t *testing.T) {
	c := NuevoCierre(time.Now(), entradaBase(), true, nil)
	c.VentasDelivery = 999
	assert.ErrorIs(t, c.Verificar(), ErrInconsistente)

	c = NuevoCierre(time.Now(), entradaBase(), true, nil)
	c.Conteo = c.Conteo[:1]
	assert.ErrorIs(t, c.Verificar(), ErrInconsistente)

	c = NuevoCierre(time.Now(), entradaBase(), true, nil)
	c.Diferencia = nil
	assert.ErrorIs(t, c.Verificar(), ErrInconsistente)
}

func TestEntrada_RoundTrip(t *testing.T) {
	orig := entradaBase()
	c := NuevoCierre(time.Now(), orig, true, nil)

	e, huerfanas := c.Entrada()
	assert.Empty(t, huerfanas)
	assert.Equal(t, conciliacion.Conciliar(orig), conciliacion.Conciliar(e))
	assert.Equal(t, int64(5000), e.Ventas[conciliacion.CanalPedidosYaIceScroll])
	assert.Equal(t, int64(2), e.Conteo[20000])
	assert.Equal(t, conciliacion.Conciliar(orig), c.Resultado())
}

func TestEntrada_FilasLegadasPorEtiqueta(t *testing.T) {
	c := &CierreDiario{
		VentasDelivery: 7000,
		Delivery: []VentaDelivery{
			{NombreServicio: "Uber Eats", Monto: 4000},
			{CanalID: "", NombreServicio: "Junaeb", Monto: 2000},
			{NombreServicio: "Rappi", Monto: 1000},
		},
	}
	e, huerfanas := c.Entrada()
	assert.Equal(t, int64(4000), e.Ventas[conciliacion.CanalUberEats])
	assert.Equal(t, int64(2000), e.Ventas[conciliacion.CanalJunaeb])
	require.Len(t, huerfanas, 1)
	assert.Equal(t, "Rappi", huerfanas[0].NombreServicio)
}
