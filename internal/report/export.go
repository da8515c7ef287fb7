package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// Columns is the exported column order.
var Columns = []string{
	"fecha", "documento", "concepto", "cuenta", "nombre_cuenta",
	"debe", "haber", "saldo_acumulado", "banco", "estado", "categoria",
}

func (r Row) fields() []string {
	return []string{
		r.Fecha,
		r.Documento,
		r.Concepto,
		r.Cuenta,
		r.NombreCuenta,
		amount(r.Debe),
		amount(r.Haber),
		amount(r.SaldoAcumulado),
		r.Banco,
		string(r.Estado),
		string(r.Categoria),
	}
}

// WriteCSV writes the report, opening row included, with a header line.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range r.Rows {
		if err := cw.Write(row.fields()); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	openingStyle = cellStyle.Foreground(lipgloss.Color("#7f849c"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
)

// Render formats the report as a terminal table.
func Render(r Report) string {
	headers := []string{"Fecha", "Documento", "Concepto", "Cuenta", "Nombre", "Debe", "Haber", "Saldo", "Banco", "Estado", "Categoría"}
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, row.fields())
	}
	numeric := map[int]bool{5: true, 6: true, 7: true}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == 0:
				return openingStyle
			case numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})

	bank := r.Bank
	if bank == "" {
		bank = "todos los bancos"
	}
	title := titleStyle.Render(fmt.Sprintf("Libro diario %02d/%04d · %s · %s", r.Month, r.Year, bank, r.Orientation))
	footer := fmt.Sprintf("Debe %s  Haber %s  Saldo final %s", amount(r.TotalDebe), amount(r.TotalHaber), amount(r.Closing))
	return lipgloss.JoinVertical(lipgloss.Left, title, t.String(), footer)
}

// Table renders a plain table with headers, for listings outside reports.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
