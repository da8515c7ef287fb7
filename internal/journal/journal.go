// Package journal owns the ordered sequence of movements: validation on
// every mutation, filtered views and the journal file.
package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auth"
	"github.com/cleared-dev/libro/internal/id"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/store"
)

// ConceptChecker validates a concept against an account's permitted phrases
// and learns new ones.
type ConceptChecker interface {
	Check(code, concept string) error
	Learn(code, concept string) error
}

type state int

const (
	stateUnloaded state = iota
	stateLoaded
	stateDirty
)

func (s state) String() string {
	switch s {
	case stateLoaded:
		return "loaded"
	case stateDirty:
		return "dirty"
	default:
		return "unloaded"
	}
}

// Journal is the in-memory journal backed by one file.
type Journal struct {
	path     string
	accounts AccountChecker
	concepts ConceptChecker
	logger   *slog.Logger
	now      func() time.Time
	// quarantine copies an unreadable file aside.
	quarantine func(path string, now time.Time) (string, error)
	rand       *rand.Rand
	state      state
	movements  []model.Movement
}

// Entry is a movement with its position in the journal.
type Entry struct {
	Index    int
	Movement model.Movement
}

// Candidate is a movement submitted for insertion. Blank Documento gets a
// generated identifier; blank Banco, Moneda and Estado get defaults.
type Candidate struct {
	Fecha     string
	Documento string
	Concepto  string
	Cuenta    string
	Debe      decimal.Decimal
	Haber     decimal.Decimal
	Moneda    string
	Estado    model.Status
	Banco     string
}

// AppendOptions control soft validation.
type AppendOptions struct {
	// AcceptAndLearn accepts a concept the classifier does not recognize and
	// adds it to the account's permitted phrases.
	AcceptAndLearn bool
}

// Patch replaces the non-nil fields of a movement.
type Patch struct {
	Fecha     *string
	Documento *string
	Concepto  *string
	Cuenta    *string
	Debe      *decimal.Decimal
	Haber     *decimal.Decimal
	Moneda    *string
	Estado    *model.Status
	Banco     *string
}

// New creates an unloaded Journal. concepts may be nil to skip soft validation.
func New(path string, accounts AccountChecker, concepts ConceptChecker, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		path:     path,
		accounts: accounts,
		concepts: concepts,
		logger:   logger,
		now:      time.Now,

		quarantine: store.Quarantine,
	}
}

// SetRand fixes the source used for generated document identifiers.
func (j *Journal) SetRand(r *rand.Rand) { j.rand = r }

// Path returns the backing file.
func (j *Journal) Path() string { return j.path }

// State returns "unloaded", "loaded" or "dirty".
func (j *Journal) State() string { return j.state.String() }

// Load reads the journal file. A missing file yields an empty journal. A
// malformed file is quarantined and the journal starts empty with a warning.
// Records that cannot be decoded are skipped after a copy of the file is
// kept aside. Read errors, and failure to keep that copy, leave the journal
// unloaded so nothing overwrites the file.
func (j *Journal) Load() error {
	data, ok, err := store.ReadFile(j.path)
	if err != nil {
		return err
	}
	if !ok || store.IsBlank(data) {
		j.movements = nil
		j.state = stateLoaded
		return nil
	}

	f, err := Decode(data)
	if err != nil {
		j.logger.Warn("journal malformed, starting empty", "path", j.path, "err", err)
		if err := j.keepAside(); err != nil {
			return err
		}
		j.movements = nil
		j.state = stateLoaded
		return nil
	}
	if len(f.Skipped) > 0 {
		for _, sk := range f.Skipped {
			j.logger.Warn("skipping unreadable movement", "path", j.path, "index", sk.Index, "err", sk.Err)
		}
		if err := j.keepAside(); err != nil {
			return err
		}
	}
	if f.Legacy {
		j.logger.Info("legacy journal layout, will upgrade on next save", "path", j.path)
	}
	j.movements = f.Movimientos
	j.state = stateLoaded
	return nil
}

func (j *Journal) keepAside() error {
	dst, err := j.quarantine(j.path, j.now())
	if err != nil {
		return apperr.Wrap(apperr.KindStorageRead, "keeping journal copy", err)
	}
	j.logger.Warn("journal copy kept aside", "copy", dst)
	return nil
}

// Save rewrites the journal file in the current layout. On failure the
// in-memory movements are kept and the journal stays dirty.
func (j *Journal) Save() error {
	out := encode(FileVersion, j.now().Format(model.TimestampFormat), j.movements)
	if err := store.WriteJSON(j.path, out); err != nil {
		j.state = stateDirty
		return fmt.Errorf("saving journal: %w", err)
	}
	j.state = stateLoaded
	return nil
}

func (j *Journal) ensureLoaded() error {
	if j.state != stateUnloaded {
		return nil
	}
	return j.Load()
}

func (j *Journal) commit() error {
	j.state = stateDirty
	return j.Save()
}

// Append validates c and adds it at the end of the journal, then saves.
// A concept the classifier does not recognize fails with ConceptNotRecognized
// unless opts.AcceptAndLearn is set.
func (j *Journal) Append(c Candidate, opts AppendOptions) (Entry, error) {
	if err := j.ensureLoaded(); err != nil {
		return Entry{}, err
	}

	m := normalize(model.Movement{
		Fecha:     c.Fecha,
		Documento: c.Documento,
		Concepto:  c.Concepto,
		Cuenta:    c.Cuenta,
		Debe:      c.Debe,
		Haber:     c.Haber,
		Moneda:    c.Moneda,
		Estado:    c.Estado,
		Banco:     c.Banco,
	})
	if m.Documento == "" {
		doc, err := id.NewDocID(j.rand, func(d string) bool { return j.docTaken(d, -1) })
		if err != nil {
			return Entry{}, fmt.Errorf("generating document: %w", err)
		}
		m.Documento = doc
	}

	if verrs := ValidateMovement(m, j.accounts, func(d string) bool { return j.docTaken(d, -1) }); len(verrs) > 0 {
		return Entry{}, verrs
	}
	if err := j.checkConcept(m, opts); err != nil {
		return Entry{}, err
	}

	j.movements = append(j.movements, m)
	e := Entry{Index: len(j.movements) - 1, Movement: m}
	if err := j.commit(); err != nil {
		return e, err
	}
	return e, nil
}

// Edit applies p to the movement at index and re-validates it.
func (j *Journal) Edit(token auth.Token, index int, p Patch, opts AppendOptions) (Entry, error) {
	if err := auth.Require(token, "edit movement"); err != nil {
		return Entry{}, err
	}
	if err := j.ensureLoaded(); err != nil {
		return Entry{}, err
	}
	if err := j.checkIndex(index); err != nil {
		return Entry{}, err
	}

	old := j.movements[index]
	m := normalize(p.apply(old))
	if verrs := ValidateMovement(m, j.accounts, func(d string) bool { return j.docTaken(d, index) }); len(verrs) > 0 {
		return Entry{}, verrs
	}
	if m.Concepto != old.Concepto || model.BaseCode(m.Cuenta) != model.BaseCode(old.Cuenta) {
		if err := j.checkConcept(m, opts); err != nil {
			return Entry{}, err
		}
	}

	j.movements[index] = m
	e := Entry{Index: index, Movement: m}
	if err := j.commit(); err != nil {
		return e, err
	}
	return e, nil
}

// Delete removes the movement at index.
func (j *Journal) Delete(token auth.Token, index int) (model.Movement, error) {
	if err := auth.Require(token, "delete movement"); err != nil {
		return model.Movement{}, err
	}
	if err := j.ensureLoaded(); err != nil {
		return model.Movement{}, err
	}
	if err := j.checkIndex(index); err != nil {
		return model.Movement{}, err
	}

	removed := j.movements[index]
	j.movements = append(j.movements[:index:index], j.movements[index+1:]...)
	if err := j.commit(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (j *Journal) checkConcept(m model.Movement, opts AppendOptions) error {
	if j.concepts == nil {
		return nil
	}
	err := j.concepts.Check(m.Cuenta, m.Concepto)
	if err == nil {
		return nil
	}
	if !opts.AcceptAndLearn || !errors.Is(err, apperr.ErrConceptNotRecognized) {
		return err
	}
	if err := j.concepts.Learn(m.Cuenta, m.Concepto); err != nil {
		return fmt.Errorf("learning concept: %w", err)
	}
	return nil
}

func (j *Journal) checkIndex(index int) error {
	if index < 0 || index >= len(j.movements) {
		return ValidationErrors{{Field: "indice", Description: fmt.Sprintf("no movement at index %d", index)}}
	}
	return nil
}

// docTaken reports whether doc is used by a movement other than skip.
func (j *Journal) docTaken(doc string, skip int) bool {
	for i, m := range j.movements {
		if i != skip && m.Documento == doc {
			return true
		}
	}
	return false
}

func (p Patch) apply(m model.Movement) model.Movement {
	if p.Fecha != nil {
		m.Fecha = *p.Fecha
	}
	if p.Documento != nil {
		m.Documento = *p.Documento
	}
	if p.Concepto != nil {
		m.Concepto = *p.Concepto
	}
	if p.Cuenta != nil {
		m.Cuenta = *p.Cuenta
	}
	if p.Debe != nil {
		m.Debe = *p.Debe
	}
	if p.Haber != nil {
		m.Haber = *p.Haber
	}
	if p.Moneda != nil {
		m.Moneda = *p.Moneda
	}
	if p.Estado != nil {
		m.Estado = *p.Estado
	}
	if p.Banco != nil {
		m.Banco = *p.Banco
	}
	return m
}

// normalize trims text fields, fills defaults, rewrites a parseable date in
// dd/mm/yyyy and recomputes the line saldo.
func normalize(m model.Movement) model.Movement {
	m.Fecha = strings.TrimSpace(m.Fecha)
	if t, ok := model.ParseDate(m.Fecha); ok {
		m.Fecha = model.FormatDate(t)
	}
	m.Documento = strings.TrimSpace(m.Documento)
	m.Concepto = strings.TrimSpace(m.Concepto)
	m.Cuenta = strings.TrimSpace(m.Cuenta)
	m.Moneda = strings.TrimSpace(m.Moneda)
	if m.Moneda == "" {
		m.Moneda = model.DefaultCurrency
	}
	m.Banco = strings.TrimSpace(m.Banco)
	if m.Banco == "" {
		m.Banco = model.DefaultBank
	}
	if st, ok := model.ParseStatus(string(m.Estado)); ok {
		m.Estado = st
	}
	m.Saldo = m.LineSaldo()
	return m
}
