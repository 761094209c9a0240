package conciliacion

import (
	"math"
	"math/rand"
	"testing"

	"cierrecaja/internal/moneda"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func escenarioUno() Entrada {
	return Entrada{
		Ventas: VentasPorCanal{
			CanalEfectivo:           50000,
			CanalTarjeta:            30000,
			CanalTransferencia:      10000,
			CanalGiftCard:           0,
			CanalPedidosYaIceScroll: 5000,
			CanalPedidosYaWafix:     0,
		},
		SaldoAnterior:  20000,
		GastosEfectivo: 5000,
	}
}

func TestConciliar_VentaTotalYSaldoEsperado(t *testing.T) {
	r := Conciliar(escenarioUno())
	assert.Equal(t, int64(95000), r.VentaTotal)
	assert.Equal(t, int64(65000), r.SaldoEsperado)
	assert.Equal(t, int64(0), r.TotalEnCaja)
	assert.Equal(t, int64(-65000), r.Diferencia)
}

func TestConciliar_ConteoConFaltante(t *testing.T) {
	e := escenarioUno()
	e.Conteo = ConteoDenominaciones{20000: 2, 10000: 1, 1000: 5}

	r := Conciliar(e)
	assert.Equal(t, int64(55000), r.TotalEnCaja)
	assert.Equal(t, int64(-10000), r.Diferencia)

	d := r.Desvio()
	assert.Equal(t, int64(-10000), d.Monto)
	assert.Equal(t, "-15.38", d.Porcentaje.String())
	assert.Equal(t, DesvioCritico, d.Clasificacion)
}

func TestConciliar_TodoCero(t *testing.T) {
	r := Conciliar(Entrada{})
	assert.Equal(t, Resultado{}, r)
	assert.Equal(t, DesvioNormal, r.Desvio().Clasificacion)
}

func TestConciliar_SaldoEsperadoNegativoNoSeRecorta(t *testing.T) {
	r := Conciliar(Entrada{
		Ventas:         VentasPorCanal{CanalEfectivo: 1000},
		SaldoAnterior:  0,
		GastosEfectivo: 8000,
	})
	assert.Equal(t, int64(-7000), r.SaldoEsperado)
	assert.Equal(t, int64(7000), r.Diferencia)
}

func TestConciliar_DenominacionDesconocidaSeIgnora(t *testing.T) {
	r := Conciliar(Entrada{Conteo: ConteoDenominaciones{20000: 1, 3000: 4}})
	assert.Equal(t, int64(20000), r.TotalEnCaja)
}

func TestConciliar_MontosSaturadosNoDesbordan(t *testing.T) {
	e := Entrada{
		Ventas: VentasPorCanal{
			CanalTarjeta:  moneda.ParseMonto("99999999999999999999999"),
			CanalUberEats: math.MaxInt64,
			CanalJunaeb:   1,
		},
		SaldoAnterior:  math.MaxInt64,
		GastosEfectivo: 0,
		Conteo:         ConteoDenominaciones{20000: 1 << 62, 100: math.MinInt64},
	}

	r := Conciliar(e)
	assert.Equal(t, 2*moneda.MontoMaximo+1, r.VentaTotal)
	assert.Equal(t, moneda.MontoMaximo, r.SaldoEsperado)
	assert.Equal(t, CantidadMaxima*20000-CantidadMaxima*100, r.TotalEnCaja)
	assert.Equal(t, r.TotalEnCaja-r.SaldoEsperado, r.Diferencia)
	assert.Positive(t, r.VentaTotal)
	assert.Positive(t, r.TotalEnCaja)
	assert.Equal(t, DesvioCritico, r.Desvio().Clasificacion)
}

func TestConciliar_Propiedades(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		e := Entrada{
			Ventas:         VentasPorCanal{},
			SaldoAnterior:  rng.Int63n(10_000_000),
			GastosEfectivo: rng.Int63n(10_000_000),
			Conteo:         ConteoDenominaciones{},
		}
		var suma int64
		for _, c := range Canales() {
			v := rng.Int63n(5_000_000)
			e.Ventas[c.ID] = v
			suma += v
		}
		var enCaja int64
		for _, d := range Denominaciones {
			n := rng.Int63n(200)
			e.Conteo[d] = n
			enCaja += n * int64(d)
		}

		r := Conciliar(e)
		require.Equal(t, suma, r.VentaTotal)
		require.Equal(t, e.SaldoAnterior+e.Ventas[CanalEfectivo]-e.GastosEfectivo, r.SaldoEsperado)
		require.Equal(t, enCaja, r.TotalEnCaja)
		require.Equal(t, r.TotalEnCaja-r.SaldoEsperado, r.Diferencia)
		require.Equal(t, r, Conciliar(e), "Conciliar must be idempotent")
	}
}

func TestDesvio_Clasificacion(t *testing.T) {
	cases := []struct {
		esperado, diferencia int64
		want                 string
	}{
		{10000, 100, DesvioNormal},
		{10000, -100, DesvioNormal},
		{10000, -400, DesvioAdvertencia},
		{10000, 500, DesvioAdvertencia},
		{10000, -1000, DesvioCritico},
		{-10000, 200, DesvioAdvertencia},
		{0, 1, DesvioCritico},
	}
	for _, tc := range cases {
		r := Resultado{SaldoEsperado: tc.esperado, Diferencia: tc.diferencia}
		assert.Equal(t, tc.want, r.Desvio().Clasificacion, "esperado=%d diferencia=%d", tc.esperado, tc.diferencia)
	}
}

func TestCatalogo(t *testing.T) {
	assert.Len(t, Canales(), 9)
	assert.Len(t, CanalesDelivery(), 5)

	c, ok := CanalPorEtiqueta("Uber Eats")
	require.True(t, ok)
	assert.Equal(t, CanalUberEats, c.ID)

	_, ok = BuscarCanal("rappi")
	assert.False(t, ok)

	assert.True(t, EsDenominacion(500))
	assert.False(t, EsDenominacion(3000))
}
