// Package rules persists the classification rulebook: for each account code
// a category label and the permitted concept phrases. It is edited
// independently of the chart of accounts.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/store"
)

// Rule is one rulebook entry.
type Rule struct {
	Categoria  string
	Permitidos []string
}

// Store is the in-memory rulebook.
type Store struct {
	path   string
	logger *slog.Logger
	rules  map[string]*record
	extra  map[string]json.RawMessage // top-level values that are not rules
}

type record struct {
	rule  Rule
	extra map[string]json.RawMessage
}

// New creates a Store backed by path. Nothing is written.
func New(path string, rules map[string]Rule, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger, rules: make(map[string]*record, len(rules))}
	for code, r := range rules {
		r.Permitidos = normalize(r.Permitidos)
		s.rules[code] = &record{rule: r}
	}
	return s
}

// Load reads the rulebook. Missing or malformed files yield an empty store;
// malformed files are logged and quarantined.
func Load(path string, logger *slog.Logger) *Store {
	s := New(path, nil, logger)
	data, ok, err := store.ReadFile(path)
	if err != nil {
		s.logger.Warn("classification rules unreadable, starting empty", "path", path, "err", err)
		return s
	}
	if !ok || store.IsBlank(data) {
		return s
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		s.logger.Warn("classification rules malformed, starting empty", "path", path, "err", err)
		if dst, qerr := store.Quarantine(path, time.Now()); qerr == nil {
			s.logger.Warn("malformed classification rules kept aside", "copy", dst)
		}
		return s
	}
	for code, raw := range top {
		var fields map[string]json.RawMessage
		if !isObject(raw) || json.Unmarshal(raw, &fields) != nil {
			if s.extra == nil {
				s.extra = map[string]json.RawMessage{}
			}
			s.extra[code] = raw
			continue
		}
		rec := &record{extra: map[string]json.RawMessage{}}
		for k, v := range fields {
			switch k {
			case "categoria":
				if err := json.Unmarshal(v, &rec.rule.Categoria); err != nil {
					s.logger.Warn("ignoring bad categoria", "code", code, "err", err)
				}
			case "permitidos":
				var phrases []string
				if err := json.Unmarshal(v, &phrases); err != nil {
					s.logger.Warn("ignoring bad permitidos", "code", code, "err", err)
				}
				rec.rule.Permitidos = normalize(phrases)
			default:
				rec.extra[k] = v
			}
		}
		s.rules[code] = rec
	}
	return s
}

// Get returns the rule for code. Trailing annotations are ignored.
func (s *Store) Get(code string) (Rule, bool) {
	rec, ok := s.rules[model.BaseCode(code)]
	if !ok {
		return Rule{}, false
	}
	r := rec.rule
	r.Permitidos = append([]string(nil), r.Permitidos...)
	return r, true
}

// Codes returns the codes with a rule, sorted.
func (s *Store) Codes() []string {
	codes := make([]string, 0, len(s.rules))
	for code := range s.rules {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Set replaces the rule for code and persists.
func (s *Store) Set(code string, r Rule) error {
	code = model.BaseCode(code)
	r.Permitidos = normalize(r.Permitidos)
	if rec, ok := s.rules[code]; ok {
		rec.rule = r
	} else {
		s.rules[code] = &record{rule: r}
	}
	return s.Save()
}

// AppendPermitted appends a phrase to an existing rule and persists. Unknown
// codes and phrases already present are ignored.
func (s *Store) AppendPermitted(code, phrase string) error {
	rec, ok := s.rules[model.BaseCode(code)]
	if !ok {
		return nil
	}
	phrase = model.NormalizePhrase(phrase)
	if phrase == "" {
		return nil
	}
	for _, p := range rec.rule.Permitidos {
		if p == phrase {
			return nil
		}
	}
	rec.rule.Permitidos = append(rec.rule.Permitidos, phrase)
	return s.Save()
}

// Save writes the rulebook atomically.
func (s *Store) Save() error {
	out := make(map[string]any, len(s.rules)+len(s.extra))
	for k, v := range s.extra {
		out[k] = v
	}
	for code, rec := range s.rules {
		fields := make(map[string]any, len(rec.extra)+2)
		for k, v := range rec.extra {
			fields[k] = v
		}
		permitted := rec.rule.Permitidos
		if permitted == nil {
			permitted = []string{}
		}
		fields["categoria"] = rec.rule.Categoria
		fields["permitidos"] = permitted
		out[code] = fields
	}
	if err := store.WriteJSON(s.path, out); err != nil {
		return fmt.Errorf("saving classification rules: %w", err)
	}
	return nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = model.NormalizePhrase(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
