package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction represents a parsed bank CSV row before it becomes a movement.
type BankTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // negative = gasto (debit), positive = ingreso (credit)
	Document    string
	Bank        string
}
