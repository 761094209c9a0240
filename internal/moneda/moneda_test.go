package moneda

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMonto(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"", 0},
		{"abc", 0},
		{"0", 0},
		{"50000", 50000},
		{"50.000", 50000},
		{"$1.234.567", 1234567},
		{"-200", 200},
		{" 12 34 ", 1234},
		{"999999999999999", MontoMaximo},
		{"1000000000000000", MontoMaximo},
		{"99999999999999999999999", MontoMaximo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseMonto(tc.raw), "raw=%q", tc.raw)
	}
}

func TestFormatear(t *testing.T) {
	assert.Equal(t, "$0", Formatear(0))
	assert.Equal(t, "$999", Formatear(999))
	assert.Equal(t, "$1.000", Formatear(1000))
	assert.Equal(t, "$65.000", Formatear(65000))
	assert.Equal(t, "$1.234.567", Formatear(1234567))
	assert.Equal(t, "-$10.000", Formatear(-10000))
	assert.Equal(t, "-$9.223.372.036.854.775.808", Formatear(math.MinInt64))
}

func TestFormatearConSigno(t *testing.T) {
	assert.Equal(t, "+$5.000", FormatearConSigno(5000))
	assert.Equal(t, "-$10.000", FormatearConSigno(-10000))
	assert.Equal(t, "$0", FormatearConSigno(0))
}

func TestFormatearEntrada(t *testing.T) {
	assert.Equal(t, "", FormatearEntrada(""))
	assert.Equal(t, "", FormatearEntrada("x"))
	assert.Equal(t, "50.000", FormatearEntrada("50000"))
	assert.Equal(t, "1.500", FormatearEntrada("1.5.0.0"))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		n := rng.Int63n(MontoMaximo + 1)
		if i%3 == 0 {
			n = rng.Int63n(1_000_000)
		}
		assert.Equal(t, n, ParseMonto(SoloDigitos(Formatear(n))))
	}
	assert.Equal(t, MontoMaximo, ParseMonto(Formatear(MontoMaximo)))
	assert.Equal(t, MontoMaximo, ParseMonto(Formatear(math.MaxInt64)))
}
