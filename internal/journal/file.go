package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cleared-dev/libro/internal/model"
)

// FileVersion is written to the version field of the journal file.
const FileVersion = "2.0"

// File is the decoded journal file.
type File struct {
	Version       string
	FechaGuardado string
	Movimientos   []model.Movement
	Legacy        bool // bare-array layout, upgraded on next save
	Skipped       []SkippedRecord
}

// SkippedRecord is a stored movement that could not be decoded.
type SkippedRecord struct {
	Index int
	Err   error
}

type fileJSON struct {
	Version       string            `json:"version"`
	FechaGuardado string            `json:"fecha_guardado"`
	Movimientos   []json.RawMessage `json:"movimientos"`
}

// recordJSON is one movement as stored. Amounts and the account code were
// written as numbers by some versions and as strings by others.
type recordJSON struct {
	Fecha     string          `json:"fecha"`
	Documento json.RawMessage `json:"documento"`
	Concepto  string          `json:"concepto"`
	Cuenta    json.RawMessage `json:"cuenta"`
	Debe      json.RawMessage `json:"debe"`
	Haber     json.RawMessage `json:"haber"`
	Moneda    string          `json:"moneda"`
	Estado    string          `json:"estado"`
	Banco     string          `json:"banco"`
	Saldo     json.RawMessage `json:"saldo"`
}

type recordOut struct {
	Fecha     string      `json:"fecha"`
	Documento string      `json:"documento"`
	Concepto  string      `json:"concepto"`
	Cuenta    string      `json:"cuenta"`
	Debe      json.Number `json:"debe"`
	Haber     json.Number `json:"haber"`
	Moneda    string      `json:"moneda"`
	Estado    string      `json:"estado"`
	Banco     string      `json:"banco"`
	Saldo     json.Number `json:"saldo"`
}

type fileOut struct {
	Version       string      `json:"version"`
	FechaGuardado string      `json:"fecha_guardado"`
	Movimientos   []recordOut `json:"movimientos"`
}

// Decode parses journal file contents in either layout: an object with
// version, fecha_guardado and movimientos, or a bare array of movements.
// Records that cannot be decoded are listed in Skipped; only unreadable JSON
// is an error.
func Decode(data []byte) (File, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return File{}, nil
	}

	var f File
	var records []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return File{}, fmt.Errorf("decoding legacy journal: %w", err)
		}
		f.Legacy = true
	case '{':
		var fj fileJSON
		if err := json.Unmarshal(data, &fj); err != nil {
			return File{}, fmt.Errorf("decoding journal: %w", err)
		}
		f.Version = fj.Version
		f.FechaGuardado = fj.FechaGuardado
		records = fj.Movimientos
	default:
		return File{}, fmt.Errorf("decoding journal: unexpected %q at start of file", data[0])
	}

	f.Movimientos = make([]model.Movement, 0, len(records))
	for i, raw := range records {
		var r recordJSON
		if err := json.Unmarshal(raw, &r); err != nil {
			f.Skipped = append(f.Skipped, SkippedRecord{Index: i, Err: err})
			continue
		}
		m, err := r.movement()
		if err != nil {
			f.Skipped = append(f.Skipped, SkippedRecord{Index: i, Err: err})
			continue
		}
		f.Movimientos = append(f.Movimientos, m)
	}
	return f, nil
}

// encode renders movements in the current layout.
func encode(version, fechaGuardado string, movements []model.Movement) fileOut {
	out := fileOut{
		Version:       version,
		FechaGuardado: fechaGuardado,
		Movimientos:   make([]recordOut, 0, len(movements)),
	}
	for _, m := range movements {
		out.Movimientos = append(out.Movimientos, recordOut{
			Fecha:     m.Fecha,
			Documento: m.Documento,
			Concepto:  m.Concepto,
			Cuenta:    m.Cuenta,
			Debe:      model.EncodeAmount(m.Debe),
			Haber:     model.EncodeAmount(m.Haber),
			Moneda:    m.Moneda,
			Estado:    string(m.Estado),
			Banco:     m.Banco,
			Saldo:     model.EncodeAmount(m.Saldo),
		})
	}
	return out
}

func (r recordJSON) movement() (model.Movement, error) {
	doc, err := decodeText(r.Documento)
	if err != nil {
		return model.Movement{}, fmt.Errorf("documento: %w", err)
	}
	cuenta, err := decodeText(r.Cuenta)
	if err != nil {
		return model.Movement{}, fmt.Errorf("cuenta: %w", err)
	}
	debe, err := model.DecodeAmount(r.Debe)
	if err != nil {
		return model.Movement{}, fmt.Errorf("debe: %w", err)
	}
	haber, err := model.DecodeAmount(r.Haber)
	if err != nil {
		return model.Movement{}, fmt.Errorf("haber: %w", err)
	}
	saldo, err := model.DecodeAmount(r.Saldo)
	if err != nil {
		return model.Movement{}, fmt.Errorf("saldo: %w", err)
	}

	estado, ok := model.ParseStatus(r.Estado)
	if !ok {
		estado = model.Status(strings.ToLower(strings.TrimSpace(r.Estado)))
	}

	return model.Movement{
		Fecha:     strings.TrimSpace(r.Fecha),
		Documento: doc,
		Concepto:  r.Concepto,
		Cuenta:    cuenta,
		Debe:      debe,
		Haber:     haber,
		Moneda:    r.Moneda,
		Estado:    estado,
		Banco:     r.Banco,
		Saldo:     saldo,
	}, nil
}

// decodeText accepts a JSON string, number or null.
func decodeText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}
