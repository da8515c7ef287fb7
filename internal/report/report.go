// Package report combines the journal, the chart of accounts, the classifier
// and the balance ledger into the rows shown on screen and exported.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/model"
)

// OpeningConcept labels the synthetic first row of every report.
const OpeningConcept = "Saldo inicial"

// Orientation selects how debe and haber are presented.
type Orientation string

const (
	// Strict is the accounting view: balance moves by haber - debe.
	Strict Orientation = "strict"
	// Flow swaps the debe and haber columns and moves the balance by debe - haber.
	Flow Orientation = "flow"
)

// ParseOrientation accepts strict/flow and their Spanish names. Blank means Strict.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict", "estricta", "contable":
		return Strict, nil
	case "flow", "flujo":
		return Flow, nil
	default:
		return "", fmt.Errorf("unknown orientation %q (want strict or flow)", s)
	}
}

// MovementSource serves the month's movements.
type MovementSource interface {
	ByMonth(month, year int) []journal.Entry
}

// AccountNames resolves account codes to names.
type AccountNames interface {
	NameOf(code string) string
}

// Categorizer assigns report categories to account codes.
type Categorizer interface {
	Categorize(code string) model.Category
}

// OpeningSource provides opening balances.
type OpeningSource interface {
	Opening(month, year int, bank string) decimal.Decimal
	BanksSeen() []string
}

// Sources are the collaborators a report is built from.
type Sources struct {
	Journal    MovementSource
	Accounts   AccountNames
	Classifier Categorizer
	Balances   OpeningSource
}

// Params select the month, an optional bank and the orientation.
type Params struct {
	Month       int
	Year        int
	Bank        string // blank for every bank
	Orientation Orientation
}

// Row is one report line.
type Row struct {
	Index          int // journal index, -1 for the opening row
	Fecha          string
	Documento      string
	Concepto       string
	Cuenta         string
	NombreCuenta   string
	Debe           decimal.Decimal
	Haber          decimal.Decimal
	SaldoAcumulado decimal.Decimal
	Banco          string
	Estado         model.Status
	Categoria      model.Category
}

// Report is the result of Build.
type Report struct {
	Params
	Opening    decimal.Decimal
	Rows       []Row // opening row first
	TotalDebe  decimal.Decimal
	TotalHaber decimal.Decimal
	Closing    decimal.Decimal
}

// Build prepares the rows for (Month, Year). The running balance starts at
// the opening balance of the selected bank, or the sum over every known bank
// when none is selected, and never trusts the stored line saldo.
func Build(src Sources, p Params) (Report, error) {
	if p.Month < 1 || p.Month > 12 {
		return Report{}, fmt.Errorf("month %d out of range", p.Month)
	}
	if p.Orientation == "" {
		p.Orientation = Strict
	}
	p.Bank = strings.TrimSpace(p.Bank)

	var entries []journal.Entry
	for _, e := range src.Journal.ByMonth(p.Month, p.Year) {
		if p.Bank == "" || bankOf(e.Movement) == p.Bank {
			entries = append(entries, e)
		}
	}

	opening := openingFor(src, p, entries)
	r := Report{Params: p, Opening: opening}
	r.Rows = append(r.Rows, Row{
		Index:          -1,
		Fecha:          model.FirstOfMonth(p.Month, p.Year),
		Concepto:       OpeningConcept,
		SaldoAcumulado: opening,
		Banco:          p.Bank,
	})

	balance := opening
	for _, e := range entries {
		m := e.Movement
		debe, haber := m.Debe, m.Haber
		delta := m.Haber.Sub(m.Debe)
		if p.Orientation == Flow {
			debe, haber = haber, debe
			delta = delta.Neg()
		}
		balance = balance.Add(delta)
		r.TotalDebe = r.TotalDebe.Add(debe)
		r.TotalHaber = r.TotalHaber.Add(haber)
		r.Rows = append(r.Rows, Row{
			Index:          e.Index,
			Fecha:          m.Fecha,
			Documento:      m.Documento,
			Concepto:       m.Concepto,
			Cuenta:         m.Cuenta,
			NombreCuenta:   src.Accounts.NameOf(m.Cuenta),
			Debe:           debe,
			Haber:          haber,
			SaldoAcumulado: balance,
			Banco:          bankOf(m),
			Estado:         m.Estado,
			Categoria:      src.Classifier.Categorize(m.Cuenta),
		})
	}
	r.Closing = balance
	return r, nil
}

func openingFor(src Sources, p Params, entries []journal.Entry) decimal.Decimal {
	if p.Bank != "" {
		return src.Balances.Opening(p.Month, p.Year, p.Bank)
	}
	banks := map[string]bool{}
	for _, b := range src.Balances.BanksSeen() {
		banks[b] = true
	}
	for _, e := range entries {
		banks[bankOf(e.Movement)] = true
	}
	names := make([]string, 0, len(banks))
	for b := range banks {
		names = append(names, b)
	}
	sort.Strings(names)

	total := decimal.Zero
	for _, b := range names {
		total = total.Add(src.Balances.Opening(p.Month, p.Year, b))
	}
	return total
}

func bankOf(m model.Movement) string {
	if b := strings.TrimSpace(m.Banco); b != "" {
		return b
	}
	return model.DefaultBank
}
