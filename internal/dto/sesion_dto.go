package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SesionCamposRequest is the body of PATCH /v1/sesiones/:id. Only the fields
// present are applied. Amounts are raw text exactly as typed.
type SesionCamposRequest struct {
	Fecha            *string           `json:"fecha"             validate:"omitempty,datetime=2006-01-02"`
	Ventas           map[string]string `json:"ventas"            validate:"omitempty,dive,keys,oneof=efectivo tarjeta transferencia gift_card pedidos_ya_ice_scroll pedidos_ya_wafix pedidos_ya_mix uber_eats junaeb,endkeys"`
	SaldoAnterior    *string           `json:"saldo_anterior"`
	GastosEfectivo   *string           `json:"gastos_efectivo"`
	Conteo           map[string]string `json:"conteo"            validate:"omitempty,dive,keys,oneof=20000 10000 5000 2000 1000 500 100 50 10,endkeys"`
	ConteoRegistrado *bool             `json:"conteo_registrado"`
	Notas            *string           `json:"notas"             validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionResponse struct {
	ID               string            `json:"id"`
	Estado           string            `json:"estado"` // vacio | editando | enviando
	CierreID         *string           `json:"cierre_id"`
	Fecha            string            `json:"fecha"`
	Ventas           map[string]string `json:"ventas"`
	SaldoAnterior    string            `json:"saldo_anterior"`
	GastosEfectivo   string            `json:"gastos_efectivo"`
	Conteo           map[string]string `json:"conteo"`
	ConteoRegistrado bool              `json:"conteo_registrado"`
	Notas            *string           `json:"notas"`
	UltimoError      *string           `json:"ultimo_error"`
	Resultado        ResultadoResponse `json:"resultado"`
}

type EnviarSesionResponse struct {
	Sesion *SesionResponse `json:"sesion"` // nil once an edit session is discarded
	Cierre CierreResponse  `json:"cierre"`
}
