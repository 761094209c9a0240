package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cierrecaja/internal/conciliacion"
	"cierrecaja/internal/dto"
	"cierrecaja/internal/infra"
	"cierrecaja/internal/model"
	"cierrecaja/internal/moneda"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"github.com/ttacon/libphonenumber"
	"github.com/xuri/excelize/v2"
)

var (
	ErrTelefonoInvalido  = errors.New("número de teléfono inválido")
	ErrEnvioNoDisponible = errors.New("el envío no está configurado en este servidor")
	ErrSinDestinoDeEnvio = errors.New("indique un email o telegram como destino")
	errFinRecorrido      = errors.New("fin del rango")
)

// Encolador hands delivery jobs to the background workers.
type Encolador interface {
	EncolarEmailCierre(ctx context.Context, cierreID uuid.UUID, destinatario string) error
	EncolarTelegramCierre(ctx context.Context, cierreID uuid.UUID) error
}

type Exportador interface {
	Resumen(c *model.CierreDiario) dto.ResumenCierre
	TextoMensaje(c *model.CierreDiario) string
	Compartir(ctx context.Context, id uuid.UUID, telefono string) (*dto.CompartirResponse, error)
	QR(ctx context.Context, id uuid.UUID, telefono string) ([]byte, error)
	// PDF renders the report, stores a copy and returns it with its file name.
	PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	XLSX(ctx context.Context, filter dto.CierreFilter) ([]byte, error)
	Enviar(ctx context.Context, id uuid.UUID, req dto.EnviarCierreRequest) (*dto.EnviarCierreResponse, error)
}

type ExportadorConfig struct {
	Negocio string
	// Region is the ISO country used to read phone numbers without a
	// country code.
	Region   string
	Email    bool
	Telegram bool
}

type exportador struct {
	cierres   CierreService
	archivos  infra.ArchivoStore
	encolador Encolador
	cfg       ExportadorConfig
}

// NewExportador wires the exporter. encolador may be nil when no queue is
// available; Enviar then fails with ErrEnvioNoDisponible.
func NewExportador(cierres CierreService, archivos infra.ArchivoStore, encolador Encolador, cfg ExportadorConfig) Exportador {
	if cfg.Region == "" {
		cfg.Region = "CL"
	}
	return &exportador{cierres: cierres, archivos: archivos, encolador: encolador, cfg: cfg}
}

// ── Resumen ──────────────────────────────────────────────────────────────────

func (x *exportador) Resumen(c *model.CierreDiario) dto.ResumenCierre {
	res := c.Resultado()
	r := dto.ResumenCierre{
		Negocio: x.cfg.Negocio,
		Fecha:   c.Fecha.Format("02/01/2006"),
		Filas: []dto.FilaResumen{
			{Concepto: "Venta total", Valor: moneda.Formatear(res.VentaTotal)},
			{Concepto: "Saldo anterior", Valor: moneda.Formatear(c.SaldoAnterior)},
			{Concepto: "Gastos en efectivo", Valor: moneda.Formatear(c.GastosEfectivo)},
			{Concepto: "Saldo esperado en caja", Valor: moneda.Formatear(res.SaldoEsperado)},
		},
		Notas: c.Notas,
	}
	if c.ConteoRegistrado() {
		dif := *c.Diferencia
		d := toDesvioResponse(res.Desvio())
		r.Diferencia = &dif
		r.Desvio = &d
		r.Filas = append(r.Filas,
			dto.FilaResumen{Concepto: "Total en caja", Valor: moneda.Formatear(*c.TotalEnCaja)},
			dto.FilaResumen{Concepto: "Diferencia", Valor: moneda.FormatearConSigno(dif)},
			dto.FilaResumen{Concepto: "Desvío", Valor: d.Porcentaje.StringFixed(2) + "% (" + d.Clasificacion + ")"},
		)
	}

	e, huerfanas := c.Entrada()
	for _, canal := range conciliacion.Canales() {
		r.Canales = append(r.Canales, dto.FilaCanal{Canal: canal.Etiqueta, Monto: moneda.Formatear(e.Ventas[canal.ID])})
	}
	for _, h := range huerfanas {
		r.Canales = append(r.Canales, dto.FilaCanal{Canal: h.NombreServicio, Monto: moneda.Formatear(h.Monto)})
	}
	for _, l := range c.Conteo {
		r.Denominaciones = append(r.Denominaciones, dto.FilaDenominacion{
			Denominacion: moneda.Formatear(l.Denominacion),
			Cantidad:     l.Cantidad,
			Subtotal:     moneda.Formatear(l.Denominacion * l.Cantidad),
		})
	}
	return r
}

// TextoMensaje is the short plain-text summary sent by chat.
func (x *exportador) TextoMensaje(c *model.CierreDiario) string {
	res := c.Resultado()
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* cierre de caja %s\n", x.cfg.Negocio, c.Fecha.Format("02/01/2006"))
	fmt.Fprintf(&b, "Venta total: %s\n", moneda.Formatear(res.VentaTotal))
	fmt.Fprintf(&b, "Saldo esperado: %s\n", moneda.Formatear(res.SaldoEsperado))
	if c.ConteoRegistrado() {
		fmt.Fprintf(&b, "Total en caja: %s\n", moneda.Formatear(*c.TotalEnCaja))
		fmt.Fprintf(&b, "Diferencia: %s", moneda.FormatearConSigno(*c.Diferencia))
		switch {
		case *c.Diferencia < 0:
			b.WriteString(" (faltante)")
		case *c.Diferencia > 0:
			b.WriteString(" (sobrante)")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Efectivo: %s\n", moneda.Formatear(c.VentasEfectivo))
	fmt.Fprintf(&b, "Tarjetas: %s\n", moneda.Formatear(c.VentasTarjeta))
	fmt.Fprintf(&b, "Transferencias: %s", moneda.Formatear(c.VentasTransferencia))
	return b.String()
}

// ── Compartir ────────────────────────────────────────────────────────────────

func (x *exportador) Compartir(ctx context.Context, id uuid.UUID, telefono string) (*dto.CompartirResponse, error) {
	c, err := x.cierres.Buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	texto := x.TextoMensaje(c)
	out := &dto.CompartirResponse{Texto: texto}

	enlace := "https://wa.me/"
	if strings.TrimSpace(telefono) != "" {
		e164, err := normalizarTelefono(telefono, x.cfg.Region)
		if err != nil {
			return nil, err
		}
		out.Telefono = &e164
		enlace += strings.TrimPrefix(e164, "+")
	}
	out.Enlace = enlace + "?text=" + url.QueryEscape(texto)
	return out, nil
}

func normalizarTelefono(raw, region string) (string, error) {
	p, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTelefonoInvalido, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", ErrTelefonoInvalido
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func (x *exportador) QR(ctx context.Context, id uuid.UUID, telefono string) ([]byte, error) {
	c, err := x.Compartir(ctx, id, telefono)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(c.Enlace, qrcode.Medium, 256)
}

// ── Documentos ───────────────────────────────────────────────────────────────

func (x *exportador) PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	c, err := x.cierres.Buscar(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := infra.GenerarCierrePDF(x.Resumen(c))
	if err != nil {
		return nil, "", err
	}
	nombre := fmt.Sprintf("cierre_%s_%s.pdf", c.Fecha.Format("2006-01-02"), c.ID.String()[:8])
	if x.archivos != nil {
		ubicacion, err := x.archivos.Guardar(ctx, nombre, "application/pdf", data)
		if err != nil {
			log.Warn().Err(err).Str("cierre_id", id.String()).Msg("exportador: no se pudo archivar el PDF")
		} else {
			log.Debug().Str("cierre_id", id.String()).Str("ubicacion", ubicacion).Msg("exportador: PDF archivado")
		}
	}
	return data, nombre, nil
}

var columnasXLSX = []string{
	"Fecha", "Saldo anterior", "Efectivo", "Tarjetas", "Transferencias", "Gift Cards",
	"Delivery", "Venta total", "Gastos efectivo", "Saldo esperado", "Total en caja",
	"Diferencia", "Notas",
}

// XLSX exports every closing in the filter's date range, most recent first.
// Paging in the filter is ignored.
func (x *exportador) XLSX(ctx context.Context, filter dto.CierreFilter) ([]byte, error) {
	const hoja = "Cierres"
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", hoja); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(hoja, "A1", &columnasXLSX); err != nil {
		return nil, fmt.Errorf("encabezado xlsx: %w", err)
	}

	fila := 2
	err := x.cierres.Recorrer(ctx, 200, func(lote []model.CierreDiario) error {
		for i := range lote {
			c := &lote[i]
			if filter.Hasta != nil && c.Fecha.After(model.NormalizarFecha(*filter.Hasta)) {
				continue
			}
			if filter.Desde != nil && c.Fecha.Before(model.NormalizarFecha(*filter.Desde)) {
				return errFinRecorrido
			}
			valores := []any{
				c.Fecha.Format("2006-01-02"), c.SaldoAnterior, c.VentasEfectivo, c.VentasTarjeta,
				c.VentasTransferencia, c.VentasGiftCard, c.VentasDelivery, c.VentaTotal(),
				c.GastosEfectivo, c.SaldoEsperado, opcional(c.TotalEnCaja), opcional(c.Diferencia),
				textoOpcional(c.Notas),
			}
			celda, err := excelize.CoordinatesToCellName(1, fila)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(hoja, celda, &valores); err != nil {
				return err
			}
			fila++
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFinRecorrido) {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func opcional(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func textoOpcional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ── Enviar ───────────────────────────────────────────────────────────────────

func (x *exportador) Enviar(ctx context.Context, id uuid.UUID, req dto.EnviarCierreRequest) (*dto.EnviarCierreResponse, error) {
	if req.Email == nil && !req.Telegram {
		return nil, ErrSinDestinoDeEnvio
	}
	if x.encolador == nil {
		return nil, ErrEnvioNoDisponible
	}
	if (req.Email != nil && !x.cfg.Email) || (req.Telegram && !x.cfg.Telegram) {
		return nil, ErrEnvioNoDisponible
	}
	if _, err := x.cierres.Buscar(ctx, id); err != nil {
		return nil, err
	}

	out := &dto.EnviarCierreResponse{Encolados: []string{}}
	if req.Email != nil {
		if err := x.encolador.EncolarEmailCierre(ctx, id, *req.Email); err != nil {
			return nil, err
		}
		out.Encolados = append(out.Encolados, "email")
	}
	if req.Telegram {
		if err := x.encolador.EncolarTelegramCierre(ctx, id); err != nil {
			return nil, err
		}
		out.Encolados = append(out.Encolados, "telegram")
	}
	return out, nil
}
