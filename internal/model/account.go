package model

import "strings"

// AccountKind is derived from the first digit of an account code.
type AccountKind string

const (
	AccountKindExpense    AccountKind = "expense"    // 6xxxxx
	AccountKindInvestment AccountKind = "investment" // 2xxxxx
	AccountKindOther      AccountKind = "other"
)

// UnknownAccountName is shown for codes missing from the chart of accounts.
const UnknownAccountName = "Cuenta desconocida"

// Account is one entry in the chart of accounts.
type Account struct {
	Code      string
	Name      string
	Permitted []string // lowercase concept phrases, newest last
}

// BaseCode strips any trailing annotation from a code ("603000 (arroz)" -> "603000").
func BaseCode(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, " \t"); i >= 0 {
		return code[:i]
	}
	return code
}

// KindOf classifies an account code by its first digit.
func KindOf(code string) AccountKind {
	code = BaseCode(code)
	if code == "" {
		return AccountKindOther
	}
	switch code[0] {
	case '6':
		return AccountKindExpense
	case '2':
		return AccountKindInvestment
	default:
		return AccountKindOther
	}
}

// IsDebitSide reports whether the code belongs to the expense or investment
// ranges, where movements are conventionally recorded on the debit side.
func IsDebitSide(code string) bool {
	k := KindOf(code)
	return k == AccountKindExpense || k == AccountKindInvestment
}

// IsNumericCode reports whether code is a non-empty string of ASCII digits.
func IsNumericCode(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizePhrase lowercases and trims a concept phrase.
func NormalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
