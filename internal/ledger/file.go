package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/libro/internal/model"
)

// FileVersion is written to the version field of the balance file.
const FileVersion = "1.0"

// Meta keys stored next to bank slots inside a month record.
const (
	keyFechaCierre     = "fecha_cierre"
	keyFechaReapertura = "fecha_reapertura"
	keyCerrado         = "cerrado"
	keyFirma           = "_firma"
)

// Slot fields inside a bank entry.
const (
	keyInicial  = "inicial"
	keyFinal    = "final"
	keyIngresos = "ingresos"
	keyGastos   = "gastos"
)

// IsMetaKey reports whether key is a month-record meta field rather than a bank.
func IsMetaKey(key string) bool {
	switch key {
	case keyFechaCierre, keyFechaReapertura, keyCerrado, keyFirma:
		return true
	}
	return false
}

func decodeFile(data []byte) (map[string]*record, map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, fmt.Errorf("parsing balance file: %w", err)
	}

	records := make(map[string]*record)
	extra := make(map[string]json.RawMessage)
	for k, v := range top {
		switch k {
		case "version", "ultima_actualizacion":
			// rewritten on save
		case "saldos":
			var months map[string]json.RawMessage
			if err := json.Unmarshal(v, &months); err != nil {
				return nil, nil, fmt.Errorf("parsing saldos: %w", err)
			}
			for key, raw := range months {
				rec, err := decodeRecord(raw)
				if err != nil {
					return nil, nil, fmt.Errorf("saldos %s: %w", key, err)
				}
				records[key] = rec
			}
		default:
			extra[k] = v
		}
	}
	return records, extra, nil
}

func decodeRecord(data []byte) (*record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	rec := newRecord()
	for k, v := range fields {
		var err error
		switch k {
		case keyFechaCierre:
			err = unmarshalText(v, &rec.fechaCierre)
		case keyFechaReapertura:
			err = unmarshalText(v, &rec.fechaReapertura)
		case keyFirma:
			err = unmarshalText(v, &rec.firma)
		case keyCerrado:
			err = unmarshalBool(v, &rec.cerrado)
		default:
			if !isObject(v) {
				rec.extra[k] = v
				continue
			}
			var s *slot
			s, err = decodeSlot(v)
			if err == nil {
				rec.banks[k] = s
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
	}
	return rec, nil
}

func decodeSlot(data []byte) (*slot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	s := &slot{extra: map[string]json.RawMessage{}}
	for k, v := range fields {
		var dst *decimal.NullDecimal
		switch k {
		case keyInicial:
			dst = &s.Inicial
		case keyFinal:
			dst = &s.Final
		case keyIngresos:
			dst = &s.Ingresos
		case keyGastos:
			dst = &s.Gastos
		default:
			s.extra[k] = v
			continue
		}
		if isNull(v) {
			continue
		}
		d, err := model.DecodeAmount(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		*dst = decimal.NewNullDecimal(d)
	}
	return s, nil
}

func (r *record) encode() map[string]any {
	out := make(map[string]any, len(r.banks)+len(r.extra)+4)
	for k, v := range r.extra {
		out[k] = v
	}
	for bank, s := range r.banks {
		out[bank] = s.encode()
	}
	out[keyCerrado] = r.cerrado
	if r.fechaCierre != "" {
		out[keyFechaCierre] = r.fechaCierre
	}
	if r.fechaReapertura != "" {
		out[keyFechaReapertura] = r.fechaReapertura
	}
	if r.firma != "" {
		out[keyFirma] = r.firma
	}
	return out
}

func (s *slot) encode() map[string]any {
	out := make(map[string]any, len(s.extra)+4)
	for k, v := range s.extra {
		out[k] = v
	}
	put := func(key string, d decimal.NullDecimal) {
		if d.Valid {
			out[key] = model.EncodeAmount(d.Decimal)
		}
	}
	put(keyInicial, s.Inicial)
	put(keyFinal, s.Final)
	put(keyIngresos, s.Ingresos)
	put(keyGastos, s.Gastos)
	return out
}

func unmarshalText(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func unmarshalBool(raw json.RawMessage, dst *bool) error {
	if isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
