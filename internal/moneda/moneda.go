// Package moneda parses and renders Chilean peso amounts.
// CLP has no minor unit in everyday use, so every amount is a whole int64.
package moneda

import (
	"math"
	"strconv"
	"strings"
)

// MontoMaximo is the largest amount a closing accepts in any single field.
// Nine channels at this ceiling still sum well inside int64.
const MontoMaximo int64 = 999_999_999_999_999

// ParseMonto keeps only the ASCII digits of raw and reads them as a base-10
// integer. Empty or digit-free input yields 0; signs are not representable.
// Values above MontoMaximo saturate at MontoMaximo.
func ParseMonto(raw string) int64 {
	digits := SoloDigitos(raw)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > MontoMaximo {
		return MontoMaximo
	}
	return n
}

// SoloDigitos drops every character that is not 0-9.
func SoloDigitos(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Formatear renders monto as es-CL currency: "$1.234.567", "-$10.000".
func Formatear(monto int64) string {
	if monto < 0 {
		return "-$" + agrupar(absUint(monto))
	}
	return "$" + agrupar(uint64(monto))
}

// FormatearConSigno is Formatear with an explicit "+" on surpluses, used for
// discrepancies where the sign carries meaning.
func FormatearConSigno(monto int64) string {
	if monto > 0 {
		return "+" + Formatear(monto)
	}
	return Formatear(monto)
}

// FormatearEntrada re-renders user input with thousands separators only
// ("50000" -> "50.000"). Input without digits becomes "".
func FormatearEntrada(raw string) string {
	if SoloDigitos(raw) == "" {
		return ""
	}
	return agrupar(uint64(ParseMonto(raw)))
}

func agrupar(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/3)
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte('.')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func absUint(n int64) uint64 {
	if n == math.MinInt64 {
		return uint64(math.MaxInt64) + 1
	}
	return uint64(-n)
}
