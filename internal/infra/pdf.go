package infra

// pdf.go: bar receipt ("comprovante") rendered with go-pdf/fpdf on an
// 80mm-wide thermal layout. The file lands in storagePath/pedido_{numero}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"clubebar/internal/apierror"
	"clubebar/internal/model"

	"github.com/go-pdf/fpdf"
)

// GerarComprovantePDF writes the receipt for a paid Pedido and returns its path.
func GerarComprovantePDF(p *model.Pedido, clubeNome, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("pedido_%d.pdf", p.Numero))

	altura := 90.0 + 5*float64(len(p.Itens)+len(p.Pagamentos))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: altura},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, tr(clubeNome), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, tr("Comprovante de consumo - Bar"), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, tr("Não é documento fiscal"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Pedido Nº %d", p.Numero)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	emitido := p.CreatedAt
	if p.PagoEm != nil {
		emitido = *p.PagoEm
	}
	pdf.CellFormat(contentW, 4, emitido.In(fusoSaoPaulo).Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if p.Mesa != nil && *p.Mesa != "" {
		pdf.CellFormat(contentW, 4, tr("Mesa: "+*p.Mesa), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Itens ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Produto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qtd", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range p.Itens {
		nome := []rune(item.ProdutoNome)
		if len(nome) > 26 {
			nome = append(nome[:25], '.')
		}
		pdf.CellFormat(col1, 5, tr(string(nome)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Quantidade), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, apierror.FormatBRL(item.Subtotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totais ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	if !p.Desconto.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Subtotal:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, apierror.FormatBRL(p.Subtotal), "", 1, "R", false, 0, "")
		pdf.CellFormat(col1+col2, 5, "Desconto:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-"+apierror.FormatBRL(p.Desconto), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, apierror.FormatBRL(p.Total), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	for _, pg := range p.Pagamentos {
		pdf.CellFormat(col1+col2, 4, tr(pg.Forma.Label()+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, apierror.FormatBRL(pg.Valor), "", 1, "R", false, 0, "")
		if pg.Troco.IsPositive() {
			pdf.CellFormat(col1+col2, 4, "Troco:", "", 0, "L", false, 0, "")
			pdf.CellFormat(col3, 4, apierror.FormatBRL(pg.Troco), "", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Obrigado e volte sempre!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
