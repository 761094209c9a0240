package service

import (
	"time"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/dto"
	"cierrecaja/internal/model"
	"cierrecaja/internal/moneda"
)

const fechaLayout = "2006-01-02"

func toDesvioResponse(d conciliacion.Desvio) dto.DesvioResponse {
	return dto.DesvioResponse{
		Monto:         d.Monto,
		Porcentaje:    d.Porcentaje,
		Clasificacion: d.Clasificacion,
	}
}

func toResultadoResponse(r conciliacion.Resultado) dto.ResultadoResponse {
	return dto.ResultadoResponse{
		VentaTotal:    r.VentaTotal,
		SaldoEsperado: r.SaldoEsperado,
		TotalEnCaja:   r.TotalEnCaja,
		Diferencia:    r.Diferencia,
		Formateado: dto.MontosTexto{
			VentaTotal:    moneda.Formatear(r.VentaTotal),
			SaldoEsperado: moneda.Formatear(r.SaldoEsperado),
			TotalEnCaja:   moneda.Formatear(r.TotalEnCaja),
			Diferencia:    moneda.FormatearConSigno(r.Diferencia),
		},
		Desvio: toDesvioResponse(r.Desvio()),
	}
}

func toCierreResponse(c *model.CierreDiario) dto.CierreResponse {
	res := c.Resultado()
	out := dto.CierreResponse{
		ID:                  c.ID.String(),
		Fecha:               c.Fecha.Format(fechaLayout),
		SaldoAnterior:       c.SaldoAnterior,
		VentasEfectivo:      c.VentasEfectivo,
		VentasTarjeta:       c.VentasTarjeta,
		VentasTransferencia: c.VentasTransferencia,
		VentasGiftCard:      c.VentasGiftCard,
		VentasDelivery:      c.VentasDelivery,
		GastosEfectivo:      c.GastosEfectivo,
		SaldoEsperado:       c.SaldoEsperado,
		TotalEnCaja:         c.TotalEnCaja,
		Diferencia:          c.Diferencia,
		Notas:               c.Notas,
		Delivery:            make([]dto.VentaDeliveryResponse, 0, len(c.Delivery)),
		Conteo:              make([]dto.ConteoCajaResponse, 0, len(c.Conteo)),
		Resultado:           toResultadoResponse(res),
		CreatedAt:           c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           c.UpdatedAt.Format(time.RFC3339),
	}
	for _, v := range c.Delivery {
		out.Delivery = append(out.Delivery, dto.VentaDeliveryResponse{
			CanalID:        v.CanalID,
			NombreServicio: v.NombreServicio,
			Monto:          v.Monto,
		})
	}
	for _, l := range c.Conteo {
		out.Conteo = append(out.Conteo, dto.ConteoCajaResponse{
			Denominacion: l.Denominacion,
			Cantidad:     l.Cantidad,
			Subtotal:     l.Denominacion * l.Cantidad,
		})
	}
	if c.ConteoRegistrado() {
		d := toDesvioResponse(res.Desvio())
		out.Desvio = &d
	}
	return out
}
