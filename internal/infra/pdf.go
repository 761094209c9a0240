package infra

// pdf.go: A4 closing report using go-pdf/fpdf.
//   - Business name and date header
//   - Summary table (ventas, saldos, diferencia, desvío)
//   - Sales per channel
//   - Denomination count, when one was recorded
//   - Notes

import (
	"bytes"
	"fmt"

	"cierrecaja/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GenerarCierrePDF renders r and returns the PDF bytes. Tables are emitted in
// a fixed order: summary, channels, denominations.
func GenerarCierrePDF(r dto.ResumenCierre) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(r.Negocio), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, tr("Cierre de caja del "+r.Fecha), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	colL := contentW * 0.6
	colR := contentW * 0.4

	// ── Summary ──────────────────────────────────────────────────────────────
	tituloTabla(pdf, tr("Resumen"), contentW)
	pdf.SetFont("Helvetica", "", 10)
	for _, f := range r.Filas {
		pdf.CellFormat(colL, 6, tr(f.Concepto), "B", 0, "L", false, 0, "")
		pdf.CellFormat(colR, 6, tr(f.Valor), "B", 1, "R", false, 0, "")
	}
	if r.Diferencia != nil {
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "B", 11)
		if *r.Diferencia < 0 {
			pdf.SetTextColor(180, 0, 0)
		} else {
			pdf.SetTextColor(0, 120, 0)
		}
		pdf.CellFormat(contentW, 7, tr(etiquetaDiferencia(*r.Diferencia)), "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	// ── Channels ─────────────────────────────────────────────────────────────
	tituloTabla(pdf, tr("Ventas por canal"), contentW)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colL, 6, "Canal", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colR, 6, "Monto", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, c := range r.Canales {
		pdf.CellFormat(colL, 6, tr(c.Canal), "", 0, "L", false, 0, "")
		pdf.CellFormat(colR, 6, c.Monto, "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Denominations ────────────────────────────────────────────────────────
	if len(r.Denominaciones) > 0 {
		col1 := contentW * 0.4
		col2 := contentW * 0.2
		col3 := contentW * 0.4
		tituloTabla(pdf, tr("Conteo de efectivo"), contentW)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(col1, 6, tr("Denominación"), "B", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, "Cantidad", "B", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "Subtotal", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, d := range r.Denominaciones {
			pdf.CellFormat(col1, 6, d.Denominacion, "", 0, "L", false, 0, "")
			pdf.CellFormat(col2, 6, fmt.Sprintf("%d", d.Cantidad), "", 0, "C", false, 0, "")
			pdf.CellFormat(col3, 6, d.Subtotal, "", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	if r.Notas != nil {
		tituloTabla(pdf, "Notas", contentW)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW, 5, tr(*r.Notas), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

func tituloTabla(pdf *fpdf.Fpdf, titulo string, w float64) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(w, 7, titulo, "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func etiquetaDiferencia(dif int64) string {
	switch {
	case dif < 0:
		return "Faltante"
	case dif > 0:
		return "Sobrante"
	default:
		return "Caja cuadrada"
	}
}
