package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// CierreFilter is bound from the query string of GET /v1/cierres.
// Desde and Hasta are filled by the handler from the raw YYYY-MM-DD values.
type CierreFilter struct {
	DesdeRaw string `form:"desde" validate:"omitempty,datetime=2006-01-02"`
	HastaRaw string `form:"hasta" validate:"omitempty,datetime=2006-01-02"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`

	Desde *time.Time `form:"-"`
	Hasta *time.Time `form:"-"`
}

type CierreListResponse struct {
	Data  []CierreResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CierreRequest is the full body of POST and PUT /v1/cierres.
// Negative amounts are accepted and stored as zero. Amounts above
// moneda.MontoMaximo and counts above conciliacion.CantidadMaxima are rejected.
type CierreRequest struct {
	Fecha          string           `json:"fecha"           validate:"required,datetime=2006-01-02"`
	SaldoAnterior  int64            `json:"saldo_anterior"  validate:"max=999999999999999"`
	GastosEfectivo int64            `json:"gastos_efectivo" validate:"max=999999999999999"`
	Ventas         map[string]int64 `json:"ventas"          validate:"dive,keys,oneof=efectivo tarjeta transferencia gift_card pedidos_ya_ice_scroll pedidos_ya_wafix pedidos_ya_mix uber_eats junaeb,endkeys,max=999999999999999"`
	// ConteoRegistrado false means the physical count was skipped; Conteo is ignored.
	ConteoRegistrado bool            `json:"conteo_registrado"`
	Conteo           map[int64]int64 `json:"conteo"          validate:"dive,keys,oneof=20000 10000 5000 2000 1000 500 100 50 10,endkeys,max=1000000000"`
	Notas            *string         `json:"notas"           validate:"omitempty,max=500"`
}

// ConciliacionRequest carries the raw form strings for a stateless preview.
// Malformed amounts count as zero.
type ConciliacionRequest struct {
	Ventas         map[string]string `json:"ventas"          validate:"dive,keys,oneof=efectivo tarjeta transferencia gift_card pedidos_ya_ice_scroll pedidos_ya_wafix pedidos_ya_mix uber_eats junaeb,endkeys"`
	SaldoAnterior  string            `json:"saldo_anterior"`
	GastosEfectivo string            `json:"gastos_efectivo"`
	Conteo         map[string]string `json:"conteo"          validate:"dive,keys,oneof=20000 10000 5000 2000 1000 500 100 50 10,endkeys"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DesvioResponse struct {
	Monto         int64           `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
}

// ResultadoResponse is the reconciliation in whole pesos plus its es-CL rendering.
type ResultadoResponse struct {
	VentaTotal    int64          `json:"venta_total"`
	SaldoEsperado int64          `json:"saldo_esperado"`
	TotalEnCaja   int64          `json:"total_en_caja"`
	Diferencia    int64          `json:"diferencia"`
	Formateado    MontosTexto    `json:"formateado"`
	Desvio        DesvioResponse `json:"desvio"`
}

type MontosTexto struct {
	VentaTotal    string `json:"venta_total"`
	SaldoEsperado string `json:"saldo_esperado"`
	TotalEnCaja   string `json:"total_en_caja"`
	Diferencia    string `json:"diferencia"`
}

type VentaDeliveryResponse struct {
	CanalID        string `json:"canal_id"`
	NombreServicio string `json:"nombre_servicio"`
	Monto          int64  `json:"monto"`
}

type ConteoCajaResponse struct {
	Denominacion int64 `json:"denominacion"`
	Cantidad     int64 `json:"cantidad"`
	Subtotal     int64 `json:"subtotal"`
}

type CierreResponse struct {
	ID                  string                  `json:"id"`
	Fecha               string                  `json:"fecha"`
	SaldoAnterior       int64                   `json:"saldo_anterior"`
	VentasEfectivo      int64                   `json:"ventas_efectivo"`
	VentasTarjeta       int64                   `json:"ventas_tarjeta"`
	VentasTransferencia int64                   `json:"ventas_transferencia"`
	VentasGiftCard      int64                   `json:"ventas_gift_card"`
	VentasDelivery      int64                   `json:"ventas_delivery"`
	GastosEfectivo      int64                   `json:"gastos_efectivo"`
	SaldoEsperado       int64                   `json:"saldo_esperado"`
	TotalEnCaja         *int64                  `json:"total_en_caja"`
	Diferencia          *int64                  `json:"diferencia"`
	Notas               *string                 `json:"notas"`
	Delivery            []VentaDeliveryResponse `json:"delivery"`
	Conteo              []ConteoCajaResponse    `json:"conteo"`
	Resultado           ResultadoResponse       `json:"resultado"`
	// Desvio is only present when a physical count was recorded.
	Desvio    *DesvioResponse `json:"desvio"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type CompartirResponse struct {
	Texto    string  `json:"texto"`
	Enlace   string  `json:"enlace"`
	Telefono *string `json:"telefono"` // E.164
}

type EnviarCierreRequest struct {
	Email    *string `json:"email"    validate:"omitempty,email"`
	Telegram bool    `json:"telegram"`
}

type EnviarCierreResponse struct {
	Encolados []string `json:"encolados"`
}

// ─── Catalog ────────────────────────────────────────────────────────────────

type CanalResponse struct {
	ID       string `json:"id"`
	Etiqueta string `json:"etiqueta"`
	Delivery bool   `json:"delivery"`
}

type CatalogoResponse struct {
	Canales        []CanalResponse `json:"canales"`
	Denominaciones []int64         `json:"denominaciones"`
}

// ─── Export ─────────────────────────────────────────────────────────────────

// ResumenCierre is the printable view of a closing shared by the PDF, the
// spreadsheet export and the share text.
type ResumenCierre struct {
	Negocio        string             `json:"negocio"`
	Fecha          string             `json:"fecha"` // DD/MM/YYYY
	Filas          []FilaResumen      `json:"filas"`
	Canales        []FilaCanal        `json:"canales"`
	Denominaciones []FilaDenominacion `json:"denominaciones"`
	// Diferencia is nil when no count was recorded.
	Diferencia *int64          `json:"diferencia"`
	Desvio     *DesvioResponse `json:"desvio"`
	Notas      *string         `json:"notas"`
}

type FilaResumen struct {
	Concepto string `json:"concepto"`
	Valor    string `json:"valor"`
}

type FilaCanal struct {
	Canal string `json:"canal"`
	Monto string `json:"monto"`
}

type FilaDenominacion struct {
	Denominacion string `json:"denominacion"`
	Cantidad     int64  `json:"cantidad"`
	Subtotal     string `json:"subtotal"`
}
