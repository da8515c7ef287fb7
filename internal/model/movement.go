package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment state of a movement.
type Status string

const (
	StatusPaid    Status = "pagado"
	StatusPending Status = "pendiente"
)

const (
	DefaultCurrency = "INR"
	DefaultBank     = "Caja"
)

// ParseStatus accepts the Spanish labels and their English equivalents.
// Blank input means paid.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pagado", "paid":
		return StatusPaid, true
	case "pendiente", "pending":
		return StatusPending, true
	default:
		return "", false
	}
}

// Movement is one journal line.
type Movement struct {
	Fecha     string // as stored; see ParseDate for accepted layouts
	Documento string
	Concepto  string
	Cuenta    string
	Debe      decimal.Decimal
	Haber     decimal.Decimal
	Moneda    string
	Estado    Status
	Banco     string
	Saldo     decimal.Decimal // haber - debe, informational only
}

// Date parses Fecha. ok is false for unparseable dates.
func (m Movement) Date() (time.Time, bool) {
	return ParseDate(m.Fecha)
}

// LineSaldo returns haber - debe.
func (m Movement) LineSaldo() decimal.Decimal {
	return m.Haber.Sub(m.Debe)
}

// IsPending reports whether the movement is still unpaid.
func (m Movement) IsPending() bool {
	return m.Estado == StatusPending
}

// IsRepairCandidate reports whether a debit-side account was recorded on
// the credit side (haber > 0, debe = 0).
func (m Movement) IsRepairCandidate() bool {
	return IsDebitSide(m.Cuenta) && m.Debe.IsZero() && m.Haber.IsPositive()
}
