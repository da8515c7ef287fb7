package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/model"
)

// Format describes how to read one bank's CSV export. Column indexes are
// zero-based. Either amount_col (signed, negative = gasto) or the
// debit_col/credit_col pair must be set.
type Format struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Bank        string `toml:"bank"`
	DateFormat  string `toml:"date_format"`
	HasHeader   bool   `toml:"has_header"`
	Delimiter   string `toml:"delimiter"`
	DateCol     int    `toml:"date_col"`
	AmountCol   *int   `toml:"amount_col"`
	DebitCol    *int   `toml:"debit_col"`
	CreditCol   *int   `toml:"credit_col"`
	DescCol     int    `toml:"desc_col"`
	DescJoin    bool   `toml:"desc_join"` // join desc_col..end
	DocCol      *int   `toml:"doc_col"`
	AmountStrip string `toml:"amount_strip"` // chars to strip from amounts
}

type formatsFile struct {
	Format []Format `toml:"format"`
}

// DefaultFormatsTOML is written when the formats file does not exist.
const DefaultFormatsTOML = `# Formatos de extractos bancarios.
# Añada bloques [[format]] para otros bancos.

[[format]]
name = "union-bank"
description = "Union Bank of India, extracto CSV"
bank = "Union Bank"
date_format = "02/01/2006"
has_header = true
delimiter = ","
date_col = 0
desc_col = 1
doc_col = 2
debit_col = 3
credit_col = 4
amount_strip = ","

[[format]]
name = "sbi"
description = "State Bank of India, extracto CSV"
bank = "SBI"
date_format = "2 Jan 2006"
has_header = true
delimiter = ","
date_col = 0
desc_col = 2
doc_col = 3
debit_col = 4
credit_col = 5
amount_strip = ","
`

// ParseFormats parses TOML format definitions.
func ParseFormats(data []byte) ([]Format, error) {
	var f formatsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing formats: %w", err)
	}
	if len(f.Format) == 0 {
		return nil, fmt.Errorf("no formats defined")
	}
	for i, fm := range f.Format {
		if err := fm.validate(); err != nil {
			return nil, fmt.Errorf("format[%d] %q: %w", i, fm.Name, err)
		}
	}
	return f.Format, nil
}

// LoadFormats reads format definitions from path, creating the file with
// DefaultFormatsTOML when it does not exist.
func LoadFormats(path string) ([]Format, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating formats dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(DefaultFormatsTOML), 0o644); err != nil {
			return nil, fmt.Errorf("writing default formats: %w", err)
		}
		data = []byte(DefaultFormatsTOML)
	} else if err != nil {
		return nil, fmt.Errorf("reading formats: %w", err)
	}
	return ParseFormats(data)
}

func (f Format) validate() error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if f.DateFormat == "" {
		return fmt.Errorf("date_format is required")
	}
	if f.AmountCol == nil && (f.DebitCol == nil || f.CreditCol == nil) {
		return fmt.Errorf("amount_col or both debit_col and credit_col are required")
	}
	if len([]rune(f.Delimiter)) > 1 {
		return fmt.Errorf("delimiter must be a single character")
	}
	return nil
}

// Format returns the format name.
func (f Format) Format() string { return f.Name }

// Parse reads a CSV export in this format.
func (f Format) Parse(r io.Reader) ([]model.BankTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if f.Delimiter != "" {
		cr.Comma = []rune(f.Delimiter)[0]
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", f.Name, err)
	}
	if f.HasHeader && len(records) > 0 {
		records = records[1:]
	}

	var txns []model.BankTransaction
	for i, rec := range records {
		if blankRecord(rec) {
			continue
		}
		line := i + 1
		if f.HasHeader {
			line++
		}
		txn, err := f.parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (f Format) parseRow(rec []string) (model.BankTransaction, error) {
	raw, err := field(rec, f.DateCol)
	if err != nil {
		return model.BankTransaction{}, err
	}
	date, err := time.Parse(f.DateFormat, strings.TrimSpace(raw))
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing date %q: %w", raw, err)
	}

	var amount decimal.Decimal
	if f.AmountCol != nil {
		if amount, err = f.amountAt(rec, *f.AmountCol); err != nil {
			return model.BankTransaction{}, err
		}
	} else {
		debit, err := f.amountAt(rec, *f.DebitCol)
		if err != nil {
			return model.BankTransaction{}, err
		}
		credit, err := f.amountAt(rec, *f.CreditCol)
		if err != nil {
			return model.BankTransaction{}, err
		}
		amount = credit.Abs().Sub(debit.Abs())
	}

	desc, err := field(rec, f.DescCol)
	if err != nil {
		return model.BankTransaction{}, err
	}
	if f.DescJoin && f.DescCol < len(rec) {
		desc = strings.Join(rec[f.DescCol:], " ")
	}

	var doc string
	if f.DocCol != nil && *f.DocCol < len(rec) {
		doc = strings.TrimSpace(rec[*f.DocCol])
	}

	return model.BankTransaction{
		Date:        date,
		Description: strings.Join(strings.Fields(desc), " "),
		Amount:      amount,
		Document:    doc,
		Bank:        f.Bank,
	}, nil
}

func (f Format) amountAt(rec []string, col int) (decimal.Decimal, error) {
	raw, err := field(rec, col)
	if err != nil {
		return decimal.Zero, err
	}
	for _, c := range f.AmountStrip {
		raw = strings.ReplaceAll(raw, string(c), "")
	}
	d, err := model.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount: %w", err)
	}
	return d, nil
}

func field(rec []string, col int) (string, error) {
	if col < 0 || col >= len(rec) {
		return "", fmt.Errorf("missing column %d", col)
	}
	return rec[col], nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
