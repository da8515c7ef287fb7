// Package auditlog appends privileged operations to logs/auditoria.csv in the
// data directory.
package auditlog

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
)

// Actions recorded in the audit log.
const (
	ActionEdit         = "editar"
	ActionDelete       = "eliminar"
	ActionCloseMonth   = "cerrar_mes"
	ActionReopenMonth  = "reabrir_mes"
	ActionRepair       = "reparar"
	ActionRevertRepair = "revertir_reparacion"
	ActionExport       = "exportar"
	ActionLearn        = "aprender_concepto"
	ActionImport       = "importar"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	Session   string
	Action    string
	Details   string
	Documento string
}

// Header is the CSV header for auditoria.csv.
const Header = "timestamp,sesion,accion,detalles,documento"

const (
	numFields    = 5
	logDir       = "logs"
	logFile      = "logs/auditoria.csv"
	colTimestamp = 0
	colSession   = 1
	colAction    = 2
	colDetails   = 3
	colDocumento = 4
)

// Path returns the audit log path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, logFile)
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colSession] = e.Session
	row[colAction] = e.Action
	row[colDetails] = e.Details
	row[colDocumento] = e.Documento
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		Session:   record[colSession],
		Action:    record[colAction],
		Details:   record[colDetails],
		Documento: record[colDocumento],
	}, nil
}

// Append writes entries to <dataDir>/logs/auditoria.csv, creating the file and header if needed.
func Append(dataDir string, entries []Entry) error {
	dir := filepath.Join(dataDir, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(dataDir)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <dataDir>/logs/auditoria.csv.
// Returns an empty slice if the file does not exist.
func Read(dataDir string) ([]Entry, error) {
	f, err := os.Open(Path(dataDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// ForSession returns the entries recorded by session, oldest first.
func ForSession(entries []Entry, session string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Session == session {
			out = append(out, e)
		}
	}
	return out
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
