// Package importer turns bank CSV exports into journal candidates.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/model"
)

// Parser converts a bank CSV file into BankTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.BankTransaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Names returns the registered format names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromFormats registers every format. Duplicate names are an error.
func NewRegistryFromFormats(formats []Format) (*Registry, error) {
	r := NewRegistry()
	for _, f := range formats {
		if r.Get(f.Name) != nil {
			return nil, fmt.Errorf("duplicate format %q", f.Name)
		}
		r.Register(f)
	}
	return r, nil
}

// importDir is the subdirectory for import CSVs.
const importDir = "import"

// processedDir is the subdirectory for processed CSVs.
const processedDir = "import/processed"

// Scan returns CSV files in <dataDir>/import/.
func Scan(dataDir string) ([]FileInfo, error) {
	dir := filepath.Join(dataDir, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(dataDir, fileName string) error {
	src := filepath.Join(dataDir, importDir, fileName)
	dstDir := filepath.Join(dataDir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// AccountDefaults are used when no account's permitted phrases match.
type AccountDefaults struct {
	Gasto   string // account for outgoing amounts
	Ingreso string // account for incoming amounts
}

// ToCandidate converts a bank transaction into a journal candidate. The
// account is the first one, by code, with a permitted phrase contained in
// the description. Outgoing amounts only match expense or investment
// accounts and incoming amounts only the rest. Zero amounts are rejected.
func ToCandidate(txn model.BankTransaction, accounts []model.Account, defaults AccountDefaults) (journal.Candidate, error) {
	if txn.Amount.IsZero() {
		return journal.Candidate{}, fmt.Errorf("zero amount on %s", model.FormatDate(txn.Date))
	}
	outgoing := txn.Amount.IsNegative()

	cuenta := GuessAccount(accounts, txn.Description, outgoing)
	if cuenta == "" {
		cuenta = defaults.Ingreso
		if outgoing {
			cuenta = defaults.Gasto
		}
	}

	c := journal.Candidate{
		Fecha:     model.FormatDate(txn.Date),
		Documento: txn.Document,
		Concepto:  txn.Description,
		Cuenta:    cuenta,
		Banco:     txn.Bank,
		Estado:    model.StatusPaid,
	}
	if outgoing {
		c.Debe = txn.Amount.Neg()
	} else {
		c.Haber = txn.Amount
	}
	return c, nil
}

// GuessAccount returns the code of the first account whose permitted phrases
// match desc, or "" when none does. Accounts without phrases never match.
func GuessAccount(accounts []model.Account, desc string, outgoing bool) string {
	lower := strings.ToLower(desc)
	sorted := append([]model.Account(nil), accounts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	for _, a := range sorted {
		if model.IsDebitSide(a.Code) != outgoing {
			continue
		}
		for _, p := range a.Permitted {
			if p != "" && strings.Contains(lower, p) {
				return a.Code
			}
		}
	}
	return ""
}
