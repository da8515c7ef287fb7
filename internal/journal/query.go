package journal

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/model"
)

// AccountTotal is the debit total of one account.
type AccountTotal struct {
	Cuenta string
	Total  decimal.Decimal
}

// Len returns the number of movements.
func (j *Journal) Len() int { return len(j.movements) }

// At returns the movement at index.
func (j *Journal) At(index int) (model.Movement, bool) {
	if index < 0 || index >= len(j.movements) {
		return model.Movement{}, false
	}
	return j.movements[index], true
}

// All returns every movement in journal order.
func (j *Journal) All() []Entry {
	return j.filter(func(model.Movement) bool { return true })
}

// Movements returns a copy of the movements in journal order.
func (j *Journal) Movements() []model.Movement {
	return append([]model.Movement(nil), j.movements...)
}

// ByDate returns movements dated on the same day as d.
func (j *Journal) ByDate(d time.Time) []Entry {
	y, m, day := d.Date()
	return j.filter(func(mv model.Movement) bool {
		t, ok := mv.Date()
		if !ok {
			return false
		}
		ty, tm, td := t.Date()
		return ty == y && tm == m && td == day
	})
}

// ByAccount returns movements posted to code.
func (j *Journal) ByAccount(code string) []Entry {
	code = model.BaseCode(code)
	return j.filter(func(mv model.Movement) bool {
		return model.BaseCode(mv.Cuenta) == code
	})
}

// ByMonth returns movements dated in (month, year). Movements whose date
// does not parse are skipped.
func (j *Journal) ByMonth(month, year int) []Entry {
	return j.filter(func(mv model.Movement) bool {
		t, ok := mv.Date()
		return ok && t.Year() == year && int(t.Month()) == month
	})
}

// ByYear returns movements dated in year. Movements whose date does not
// parse are skipped.
func (j *Journal) ByYear(year int) []Entry {
	return j.filter(func(mv model.Movement) bool {
		t, ok := mv.Date()
		return ok && t.Year() == year
	})
}

// Pending returns movements not yet paid.
func (j *Journal) Pending() []Entry {
	return j.filter(model.Movement.IsPending)
}

// FindDocument returns the movement with document doc.
func (j *Journal) FindDocument(doc string) (Entry, bool) {
	for i, m := range j.movements {
		if m.Documento == doc {
			return Entry{Index: i, Movement: m}, true
		}
	}
	return Entry{}, false
}

// TopAccountsOfYear aggregates debits per account over year and returns the
// limit largest totals, descending. Ties are broken by account code. A
// limit of zero or less returns every account with a positive total.
func (j *Journal) TopAccountsOfYear(year, limit int) []AccountTotal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range j.ByYear(year) {
		if !e.Movement.Debe.IsPositive() {
			continue
		}
		code := model.BaseCode(e.Movement.Cuenta)
		totals[code] = totals[code].Add(e.Movement.Debe)
	}

	out := make([]AccountTotal, 0, len(totals))
	for code, total := range totals {
		out = append(out, AccountTotal{Cuenta: code, Total: total})
	}
	sort.Slice(out, func(a, b int) bool {
		if c := out[a].Total.Cmp(out[b].Total); c != 0 {
			return c > 0
		}
		return out[a].Cuenta < out[b].Cuenta
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (j *Journal) filter(keep func(model.Movement) bool) []Entry {
	var out []Entry
	for i, m := range j.movements {
		if keep(m) {
			out = append(out, Entry{Index: i, Movement: m})
		}
	}
	return out
}
