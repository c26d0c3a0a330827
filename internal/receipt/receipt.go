// Package receipt renders order snapshots as PDF documents.
package receipt

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sdsgks2b79-svg/GG-market-sub000/internal/domain"
)

var tracer = otel.Tracer("github.com/sdsgks2b79-svg/GG-market-sub000/internal/receipt")

// Options controls receipt presentation.
type Options struct {
	Title    string
	Currency string
	Exponent int32
}

// PDF renders A4 receipts with the core Helvetica font. Text outside
// cp1252 is transliterated by fpdf.
type PDF struct {
	opts Options
}

// NewPDF returns a renderer; an empty title defaults to "GG market".
func NewPDF(opts Options) *PDF {
	if opts.Title == "" {
		opts.Title = "GG market"
	}
	return &PDF{opts: opts}
}

var columns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Item", 85, "L"},
	{"Qty", 20, "R"},
	{"Price", 35, "R"},
	{"Subtotal", 40, "R"},
}

// Render lays out the order as a numbered table followed by the grand total.
func (p *PDF) Render(ctx context.Context, order domain.Order) (_ []byte, err error) {
	_, span := tracer.Start(ctx, "receipt.render")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("receipt.number", order.Number),
		attribute.Int("receipt.lines", len(order.Lines)),
	)

	money := func(m domain.Money) string { return m.Format(p.opts.Currency, p.opts.Exponent) }

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(p.opts.Title+" receipt "+order.Number, true)
	pdf.SetCreator(p.opts.Title, true)
	if !order.CreatedAt.IsZero() {
		pdf.SetCreationDate(order.CreatedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(p.opts.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr("Receipt "+order.Number), "", 1, "C", false, 0, "")
	if !order.CreatedAt.IsZero() {
		pdf.CellFormat(0, 7, order.CreatedAt.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if order.Phone != "" {
		pdf.CellFormat(0, 6, tr("Phone: +"+order.Phone), "", 1, "L", false, 0, "")
	}
	switch {
	case order.Address != "":
		pdf.MultiCell(0, 6, tr("Delivery: "+order.Address), "", "L", false)
	case order.Location != nil:
		pdf.CellFormat(0, 6, fmt.Sprintf("Delivery: %.5f, %.5f", order.Location.Latitude, order.Location.Longitude),
			"", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(235, 235, 235)
	for _, col := range columns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range order.Lines {
		cells := []string{
			strconv.Itoa(line.Index),
			tr(line.Name),
			strconv.Itoa(line.Quantity),
			money(line.UnitPrice),
			money(line.Subtotal),
		}
		for i, col := range columns {
			pdf.CellFormat(col.width, 7, cells[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 12)
	var labelWidth float64
	for _, col := range columns[:len(columns)-1] {
		labelWidth += col.width
	}
	pdf.CellFormat(labelWidth, 9, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(columns[len(columns)-1].width, 9, money(order.Total), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", order.Number, err)
	}
	return buf.Bytes(), nil
}
