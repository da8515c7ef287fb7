// Package dashboard polls the journal file and summarizes it without taking
// the data directory lock.
package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/store"
)

const (
	DefaultInterval   = 5 * time.Second
	DefaultRetryDelay = 200 * time.Millisecond
)

// Categorizer assigns categories to account codes.
type Categorizer interface {
	Categorize(code string) model.Category
}

// Totals summarizes one month of the journal.
type Totals struct {
	Month         int
	Year          int
	FechaGuardado string
	Movements     int // whole journal
	Ingresos      decimal.Decimal
	Gastos        decimal.Decimal
	Pending       int
	PendingAmount decimal.Decimal
	GastosBy      map[model.Category]decimal.Decimal
}

// Net returns ingresos - gastos.
func (t Totals) Net() decimal.Decimal { return t.Ingresos.Sub(t.Gastos) }

// Categories returns the categories with gastos, largest first.
func (t Totals) Categories() []model.Category {
	out := make([]model.Category, 0, len(t.GastosBy))
	for c := range t.GastosBy {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := t.GastosBy[out[i]].Cmp(t.GastosBy[out[j]]); c != 0 {
			return c > 0
		}
		return out[i] < out[j]
	})
	return out
}

// Poller reads the journal file periodically.
type Poller struct {
	Path        string
	Interval    time.Duration
	RetryDelay  time.Duration
	Categorizer Categorizer // optional
	Logger      *slog.Logger
	Now         func() time.Time
}

// Read decodes the journal file and totals (month, year). A parse failure
// is retried once, since the file may be mid-write.
func (p *Poller) Read(month, year int) (Totals, error) {
	delay := p.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	var f journal.File
	err := store.ReadWithRetry(p.Path, delay, func(data []byte) error {
		var err error
		f, err = journal.Decode(data)
		return err
	})
	if err != nil {
		return Totals{}, err
	}
	return Summarize(f, month, year, p.Categorizer), nil
}

// Summarize totals the movements of f dated in (month, year).
func Summarize(f journal.File, month, year int, cat Categorizer) Totals {
	t := Totals{
		Month:         month,
		Year:          year,
		FechaGuardado: f.FechaGuardado,
		Movements:     len(f.Movimientos),
		GastosBy:      map[model.Category]decimal.Decimal{},
	}
	for _, m := range f.Movimientos {
		d, ok := m.Date()
		if !ok || d.Year() != year || int(d.Month()) != month {
			continue
		}
		t.Ingresos = t.Ingresos.Add(m.Haber)
		t.Gastos = t.Gastos.Add(m.Debe)
		if m.IsPending() {
			t.Pending++
			t.PendingAmount = t.PendingAmount.Add(m.Debe).Add(m.Haber)
		}
		if cat != nil && m.Debe.IsPositive() {
			c := cat.Categorize(m.Cuenta)
			t.GastosBy[c] = t.GastosBy[c].Add(m.Debe)
		}
	}
	return t
}

// Watch reads the current month immediately and then every Interval,
// handing each result to fn, until ctx is done.
func (p *Poller) Watch(ctx context.Context, fn func(Totals, error)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tick := func() {
		n := now()
		t, err := p.Read(int(n.Month()), n.Year())
		if err != nil {
			logger.Warn("dashboard refresh failed", "path", p.Path, "err", err)
		}
		fn(t, err)
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			tick()
		}
	}
}
