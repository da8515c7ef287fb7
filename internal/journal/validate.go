package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/model"
)

// ValidationError describes a single invariant violation on a movement.
type ValidationError struct {
	Field       string
	Documento   string
	Description string
}

func (e ValidationError) Error() string {
	if e.Documento == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Description)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Field, e.Documento, e.Description)
}

func (e ValidationError) Unwrap() error { return apperr.ErrValidation }

// ValidationErrors collects every violation found on a candidate.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, ve := range v {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() error { return apperr.ErrValidation }

// Has reports whether any violation concerns field.
func (v ValidationErrors) Has(field string) bool {
	for _, ve := range v {
		if ve.Field == field {
			return true
		}
	}
	return false
}

// AccountChecker tests whether an account code exists in the chart of accounts.
type AccountChecker interface {
	Exists(code string) bool
}

var hundred = decimal.NewFromInt(100)

// ValidateMovement enforces the hard invariants on m. docTaken reports
// whether a document identifier is already used by another movement.
func ValidateMovement(m model.Movement, accounts AccountChecker, docTaken func(string) bool) ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Documento: m.Documento, Description: fmt.Sprintf(format, args...)})
	}

	// Exactly one of debe/haber positive, neither negative.
	if m.Debe.IsNegative() {
		add("debe", "negative amount %s", m.Debe)
	}
	if m.Haber.IsNegative() {
		add("haber", "negative amount %s", m.Haber)
	}
	if m.Debe.IsPositive() == m.Haber.IsPositive() {
		add("importe", "exactly one of debe or haber must be positive")
	}

	// No more than 2 decimal places.
	if !atMostCents(m.Debe) {
		add("debe", "%s has more than 2 decimal places", m.Debe)
	}
	if !atMostCents(m.Haber) {
		add("haber", "%s has more than 2 decimal places", m.Haber)
	}

	if strings.TrimSpace(m.Cuenta) == "" {
		add("cuenta", "missing account")
	} else if accounts != nil && !accounts.Exists(m.Cuenta) {
		add("cuenta", "unknown account %s", m.Cuenta)
	}

	if strings.TrimSpace(m.Concepto) == "" {
		add("concepto", "missing concept")
	}

	if _, ok := model.ParseDate(m.Fecha); !ok {
		add("fecha", "unparseable date %q", m.Fecha)
	}

	if _, ok := model.ParseStatus(string(m.Estado)); !ok {
		add("estado", "unknown status %q", m.Estado)
	}

	if m.Documento == "" {
		add("documento", "missing document")
	} else if docTaken != nil && docTaken(m.Documento) {
		add("documento", "duplicate document %s", m.Documento)
	}

	return errs
}

func atMostCents(d decimal.Decimal) bool {
	return d.Mul(hundred).Equal(d.Mul(hundred).Floor())
}
