// Package ledger tracks opening and closing balances per month and bank and
// runs the monthly close/reopen state machine.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auth"
	"github.com/cleared-dev/libro/internal/id"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/store"
)

type slot struct {
	Inicial  decimal.NullDecimal
	Final    decimal.NullDecimal
	Ingresos decimal.NullDecimal
	Gastos   decimal.NullDecimal
	extra    map[string]json.RawMessage
}

type record struct {
	banks           map[string]*slot
	cerrado         bool
	fechaCierre     string
	fechaReapertura string
	firma           string
	extra           map[string]json.RawMessage
}

func newRecord() *record {
	return &record{banks: map[string]*slot{}, extra: map[string]json.RawMessage{}}
}

// Ledger is the monthly balance ledger backed by one file.
type Ledger struct {
	path    string
	logger  *slog.Logger
	now     func() time.Time
	records map[string]*record // keyed by YYYY-MM
	extra   map[string]json.RawMessage
}

// BankSlot is one bank's balances within a month. Unset values are invalid.
type BankSlot struct {
	Bank     string
	Opening  decimal.NullDecimal
	Closing  decimal.NullDecimal
	Ingresos decimal.NullDecimal
	Gastos   decimal.NullDecimal
}

// MonthSummary describes a month record. Totals add up the set values of
// every bank.
type MonthSummary struct {
	Key             string
	Month           int
	Year            int
	Closed          bool
	FechaCierre     string
	FechaReapertura string
	Firma           string
	Banks           []BankSlot
	Opening         decimal.Decimal
	Ingresos        decimal.Decimal
	Gastos          decimal.Decimal
	Closing         decimal.Decimal
}

// SlotPatch replaces the non-nil values of a bank slot.
type SlotPatch struct {
	Opening  *decimal.Decimal
	Ingresos *decimal.Decimal
	Gastos   *decimal.Decimal
	Closing  *decimal.Decimal
}

// New creates an empty Ledger backed by path. Nothing is written.
func New(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		path:    path,
		logger:  logger,
		now:     time.Now,
		records: map[string]*record{},
		extra:   map[string]json.RawMessage{},
	}
}

// Load reads the balance file at path. A missing file yields an empty
// ledger; a malformed one is quarantined and also yields an empty ledger.
func Load(path string, logger *slog.Logger) *Ledger {
	l := New(path, logger)

	data, ok, err := store.ReadFile(path)
	if err != nil {
		l.logger.Warn("balance file unreadable, starting empty", "path", path, "err", err)
		return l
	}
	if !ok || store.IsBlank(data) {
		return l
	}

	records, extra, err := decodeFile(data)
	if err != nil {
		l.logger.Warn("balance file malformed, starting empty", "path", path, "err", err)
		if dst, qerr := store.Quarantine(path, l.now()); qerr == nil {
			l.logger.Warn("malformed balance file kept aside", "copy", dst)
		}
		return l
	}
	l.records = records
	l.extra = extra
	return l
}

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// Save writes the whole ledger. In-memory state is kept on failure.
func (l *Ledger) Save() error {
	saldos := make(map[string]any, len(l.records))
	for key, rec := range l.records {
		saldos[key] = rec.encode()
	}
	out := make(map[string]any, len(l.extra)+3)
	for k, v := range l.extra {
		out[k] = v
	}
	out["version"] = FileVersion
	out["ultima_actualizacion"] = l.now().Format(model.TimestampFormat)
	out["saldos"] = saldos
	if err := store.WriteJSON(l.path, out); err != nil {
		return fmt.Errorf("saving balances: %w", err)
	}
	return nil
}

// Opening returns the opening balance of bank in (month, year). If the month
// has no opening for bank and the previous month is closed with a closing
// for bank, that closing is carried forward and persisted. Otherwise the
// result is zero and nothing is written.
func (l *Ledger) Opening(month, year int, bank string) decimal.Decimal {
	key := id.FormatMonthKey(year, month)
	if s := l.slot(key, bank); s != nil && s.Inicial.Valid {
		return s.Inicial.Decimal
	}

	pm, py := model.PrevMonth(month, year)
	prev, ok := l.records[id.FormatMonthKey(py, pm)]
	if !ok || !prev.cerrado {
		return decimal.Zero
	}
	ps, ok := prev.banks[bank]
	if !ok || !ps.Final.Valid {
		return decimal.Zero
	}

	opening := ps.Final.Decimal
	l.ensureSlot(key, bank).Inicial = decimal.NewNullDecimal(opening)
	if err := l.Save(); err != nil {
		l.logger.Warn("carried-forward opening not persisted", "month", key, "bank", bank, "err", err)
	} else {
		l.logger.Info("opening carried forward", "month", key, "bank", bank, "opening", opening.String())
	}
	return opening
}

// Closing returns the closing balance of bank in (month, year), if set.
func (l *Ledger) Closing(month, year int, bank string) (decimal.Decimal, bool) {
	s := l.slot(id.FormatMonthKey(year, month), bank)
	if s == nil || !s.Final.Valid {
		return decimal.Zero, false
	}
	return s.Final.Decimal, true
}

// IsClosed reports whether (month, year) is closed.
func (l *Ledger) IsClosed(month, year int) bool {
	rec, ok := l.records[id.FormatMonthKey(year, month)]
	return ok && rec.cerrado
}

// Close replaces the record of (month, year) with snap and marks it closed.
// Each bank's closing is recomputed as opening + ingresos - gastos. A month
// that is already closed is overwritten.
func (l *Ledger) Close(token auth.Token, month, year int, snap Snapshot) error {
	if err := auth.Require(token, "close month"); err != nil {
		return err
	}
	if err := checkMonth(month); err != nil {
		return err
	}
	if len(snap) == 0 {
		return apperr.New(apperr.KindValidation, "close month", "snapshot has no banks")
	}

	key := id.FormatMonthKey(year, month)
	rec := newRecord()
	if old, ok := l.records[key]; ok {
		rec.extra = old.extra
		rec.fechaReapertura = old.fechaReapertura
	}
	for _, bank := range snap.Banks() {
		t := snap[bank]
		closing := t.Opening.Add(t.Ingresos).Sub(t.Gastos)
		if !t.Closing.IsZero() && !t.Closing.Equal(closing) {
			l.logger.Warn("closing recomputed", "month", key, "bank", bank,
				"given", t.Closing.String(), "computed", closing.String())
		}
		rec.banks[bank] = &slot{
			Inicial:  decimal.NewNullDecimal(t.Opening),
			Final:    decimal.NewNullDecimal(closing),
			Ingresos: decimal.NewNullDecimal(t.Ingresos),
			Gastos:   decimal.NewNullDecimal(t.Gastos),
			extra:    map[string]json.RawMessage{},
		}
		if rec.firma == "" {
			rec.firma = strings.TrimSpace(t.Signatory)
		}
	}
	rec.cerrado = true
	rec.fechaCierre = l.now().Format(model.TimestampFormat)

	l.records[key] = rec
	return l.Save()
}

// Reopen clears the closed flag of (month, year) and stamps the reopen date.
// Slot values are left as they are.
func (l *Ledger) Reopen(token auth.Token, month, year int) error {
	if err := auth.Require(token, "reopen month"); err != nil {
		return err
	}
	key := id.FormatMonthKey(year, month)
	rec, ok := l.records[key]
	if !ok {
		return apperr.New(apperr.KindValidation, "reopen month", fmt.Sprintf("no balances recorded for %s", key))
	}
	rec.cerrado = false
	rec.fechaReapertura = l.now().Format(model.TimestampFormat)
	return l.Save()
}

// EditSlot applies p to bank's slot in (month, year), creating the record or
// slot if needed. A patch that changes nothing writes nothing.
func (l *Ledger) EditSlot(month, year int, bank string, p SlotPatch) error {
	if err := checkMonth(month); err != nil {
		return err
	}
	bank = strings.TrimSpace(bank)
	if bank == "" || IsMetaKey(bank) {
		return apperr.New(apperr.KindValidation, "edit slot", fmt.Sprintf("invalid bank name %q", bank))
	}

	key := id.FormatMonthKey(year, month)
	if s := l.slot(key, bank); s != nil && p.unchanged(s) {
		return nil
	}

	s := l.ensureSlot(key, bank)
	set := func(dst *decimal.NullDecimal, v *decimal.Decimal) {
		if v != nil {
			*dst = decimal.NewNullDecimal(*v)
		}
	}
	set(&s.Inicial, p.Opening)
	set(&s.Ingresos, p.Ingresos)
	set(&s.Gastos, p.Gastos)
	set(&s.Final, p.Closing)
	return l.Save()
}

// DeleteSlot removes bank from (month, year). The month record goes away
// when no bank remains.
func (l *Ledger) DeleteSlot(month, year int, bank string) error {
	key := id.FormatMonthKey(year, month)
	rec, ok := l.records[key]
	if !ok {
		return nil
	}
	if _, ok := rec.banks[bank]; !ok {
		return nil
	}
	delete(rec.banks, bank)
	if len(rec.banks) == 0 {
		delete(l.records, key)
	}
	return l.Save()
}

// SummaryOfMonth returns the record of (month, year).
func (l *Ledger) SummaryOfMonth(month, year int) (MonthSummary, bool) {
	key := id.FormatMonthKey(year, month)
	rec, ok := l.records[key]
	if !ok {
		return MonthSummary{}, false
	}
	sum := MonthSummary{
		Key:             key,
		Month:           month,
		Year:            year,
		Closed:          rec.cerrado,
		FechaCierre:     rec.fechaCierre,
		FechaReapertura: rec.fechaReapertura,
		Firma:           rec.firma,
	}
	for _, bank := range sortedKeys(rec.banks) {
		s := rec.banks[bank]
		sum.Banks = append(sum.Banks, BankSlot{
			Bank:     bank,
			Opening:  s.Inicial,
			Closing:  s.Final,
			Ingresos: s.Ingresos,
			Gastos:   s.Gastos,
		})
		sum.Opening = sum.Opening.Add(s.Inicial.Decimal)
		sum.Ingresos = sum.Ingresos.Add(s.Ingresos.Decimal)
		sum.Gastos = sum.Gastos.Add(s.Gastos.Decimal)
		sum.Closing = sum.Closing.Add(s.Final.Decimal)
	}
	return sum, true
}

// BanksSeen returns every bank with a slot in any month, sorted.
func (l *Ledger) BanksSeen() []string {
	seen := map[string]bool{}
	for _, rec := range l.records {
		for bank := range rec.banks {
			seen[bank] = true
		}
	}
	return sortedKeys(seen)
}

// Months returns the keys of every month record, oldest first.
func (l *Ledger) Months() []string {
	return sortedKeys(l.records)
}

func (l *Ledger) slot(key, bank string) *slot {
	rec, ok := l.records[key]
	if !ok {
		return nil
	}
	return rec.banks[bank]
}

func (l *Ledger) ensureSlot(key, bank string) *slot {
	rec, ok := l.records[key]
	if !ok {
		rec = newRecord()
		l.records[key] = rec
	}
	s, ok := rec.banks[bank]
	if !ok {
		s = &slot{extra: map[string]json.RawMessage{}}
		rec.banks[bank] = s
	}
	return s
}

func (p SlotPatch) unchanged(s *slot) bool {
	same := func(cur decimal.NullDecimal, v *decimal.Decimal) bool {
		return v == nil || (cur.Valid && cur.Decimal.Equal(*v))
	}
	return same(s.Inicial, p.Opening) &&
		same(s.Ingresos, p.Ingresos) &&
		same(s.Gastos, p.Gastos) &&
		same(s.Final, p.Closing)
}

func checkMonth(month int) error {
	if month < 1 || month > 12 {
		return apperr.New(apperr.KindValidation, "month", fmt.Sprintf("month %d out of range", month))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
