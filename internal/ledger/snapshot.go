package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/id"
	"github.com/cleared-dev/libro/internal/model"
)

// BankTotals are one bank's figures handed to Close.
type BankTotals struct {
	Opening   decimal.Decimal
	Ingresos  decimal.Decimal
	Gastos    decimal.Decimal
	Closing   decimal.Decimal
	Signatory string
}

// Snapshot maps bank name to its totals for a month close.
type Snapshot map[string]BankTotals

// Banks returns the snapshot's banks, sorted.
func (s Snapshot) Banks() []string {
	return sortedKeys(s)
}

// BuildSnapshot computes per-bank totals for (month, year) from movements:
// ingresos sums haber, gastos sums debe and the opening comes from Opening.
// Banks already recorded for the month, and banks carrying a closing from
// the previous closed month, are included even without movements.
// Movements dated outside the month, or undated, are ignored.
func (l *Ledger) BuildSnapshot(movements []model.Movement, month, year int, signatory string) Snapshot {
	snap := Snapshot{}
	touch := func(bank string) BankTotals {
		t, ok := snap[bank]
		if !ok {
			t = BankTotals{Opening: l.Opening(month, year, bank), Signatory: signatory}
		}
		return t
	}

	if rec, ok := l.records[id.FormatMonthKey(year, month)]; ok {
		for bank := range rec.banks {
			snap[bank] = touch(bank)
		}
	}
	pm, py := model.PrevMonth(month, year)
	if prev, ok := l.records[id.FormatMonthKey(py, pm)]; ok && prev.cerrado {
		for bank, s := range prev.banks {
			if s.Final.Valid {
				snap[bank] = touch(bank)
			}
		}
	}
	for _, m := range movements {
		d, ok := m.Date()
		if !ok || d.Year() != year || int(d.Month()) != month {
			continue
		}
		bank := strings.TrimSpace(m.Banco)
		if bank == "" {
			bank = model.DefaultBank
		}
		t := touch(bank)
		t.Ingresos = t.Ingresos.Add(m.Haber)
		t.Gastos = t.Gastos.Add(m.Debe)
		snap[bank] = t
	}
	for bank, t := range snap {
		t.Closing = t.Opening.Add(t.Ingresos).Sub(t.Gastos)
		snap[bank] = t
	}
	return snap
}
