package accounts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/store"
)

// Chart provides in-memory lookup over the chart of accounts and persists it.
type Chart struct {
	path     string
	logger   *slog.Logger
	accounts map[string]*entry
	extra    map[string]json.RawMessage // unknown top-level fields
}

type entry struct {
	account model.Account
	extra   map[string]json.RawMessage // unknown per-account fields
}

// New creates a Chart backed by path from a slice of accounts. Nothing is written.
func New(path string, accounts []model.Account, logger *slog.Logger) *Chart {
	c := &Chart{
		path:     path,
		logger:   orDefault(logger),
		accounts: make(map[string]*entry, len(accounts)),
		extra:    map[string]json.RawMessage{},
	}
	for _, a := range accounts {
		a.Permitted = normalizePhrases(a.Permitted)
		c.accounts[a.Code] = &entry{account: a}
	}
	return c
}

// Load reads the catalog at path. A missing file yields an empty catalog; a
// malformed one also yields an empty catalog after a warning, and the bad
// file is quarantined first.
func Load(path string, logger *slog.Logger) *Chart {
	c := New(path, nil, logger)

	data, ok, err := store.ReadFile(path)
	if err != nil {
		c.logger.Warn("chart of accounts unreadable, starting empty", "path", path, "err", err)
		return c
	}
	if !ok || store.IsBlank(data) {
		return c
	}

	accts, extra, err := decode(data)
	if err != nil {
		c.logger.Warn("chart of accounts malformed, starting empty", "path", path, "err", err)
		if dst, qerr := store.Quarantine(path, time.Now()); qerr == nil {
			c.logger.Warn("malformed chart of accounts kept aside", "copy", dst)
		}
		return c
	}
	c.accounts = accts
	c.extra = extra
	return c
}

// Path returns the backing file.
func (c *Chart) Path() string { return c.path }

// Len returns the number of accounts.
func (c *Chart) Len() int { return len(c.accounts) }

// All returns all accounts sorted by code.
func (c *Chart) All() []model.Account {
	codes := c.codes()
	out := make([]model.Account, 0, len(codes))
	for _, code := range codes {
		out = append(out, cloneAccount(c.accounts[code].account))
	}
	return out
}

// Get returns an account by code. Trailing annotations on code are ignored.
func (c *Chart) Get(code string) (model.Account, bool) {
	e, ok := c.accounts[model.BaseCode(code)]
	if !ok {
		return model.Account{}, false
	}
	return cloneAccount(e.account), true
}

// Exists reports whether an account code exists.
func (c *Chart) Exists(code string) bool {
	_, ok := c.accounts[model.BaseCode(code)]
	return ok
}

// Permitted returns the permitted concept phrases of code (nil if absent).
func (c *Chart) Permitted(code string) []string {
	e, ok := c.accounts[model.BaseCode(code)]
	if !ok {
		return nil
	}
	return append([]string(nil), e.account.Permitted...)
}

// Options returns sorted "CODE – NAME" strings for pickers.
func (c *Chart) Options() []string {
	codes := c.codes()
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		out = append(out, fmt.Sprintf("%s – %s", code, c.accounts[code].account.Name))
	}
	return out
}

// NameOf returns the account name or model.UnknownAccountName.
func (c *Chart) NameOf(code string) string {
	e, ok := c.accounts[model.BaseCode(code)]
	if !ok {
		return model.UnknownAccountName
	}
	return e.account.Name
}

// AppendPermittedConcept lowercases and trims phrase and appends it to the
// account's permitted list, then persists. Nothing happens when the code is
// unknown, the phrase is blank, or an existing phrase already matches it.
func (c *Chart) AppendPermittedConcept(code, phrase string) error {
	e, ok := c.accounts[model.BaseCode(code)]
	if !ok {
		return nil
	}
	phrase = model.NormalizePhrase(phrase)
	if phrase == "" || covered(e.account.Permitted, phrase) {
		return nil
	}
	e.account.Permitted = append(e.account.Permitted, phrase)
	if err := c.Save(); err != nil {
		return fmt.Errorf("saving learned concept: %w", err)
	}
	return nil
}

// CreateAccount inserts a new account with no permitted concepts and persists.
func (c *Chart) CreateAccount(code, name string) error {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if !model.IsNumericCode(code) {
		return apperr.New(apperr.KindValidation, "creating account", fmt.Sprintf("code %q must be numeric", code))
	}
	if name == "" {
		return apperr.New(apperr.KindValidation, "creating account", "name is required")
	}
	if _, exists := c.accounts[code]; exists {
		return apperr.New(apperr.KindValidation, "creating account", fmt.Sprintf("account %s already exists", code))
	}
	c.accounts[code] = &entry{account: model.Account{Code: code, Name: name, Permitted: []string{}}}
	if err := c.Save(); err != nil {
		return fmt.Errorf("saving new account: %w", err)
	}
	return nil
}

// Save writes the catalog in the code-keyed layout.
func (c *Chart) Save() error {
	return store.WriteJSON(c.path, c.encode())
}

func (c *Chart) codes() []string {
	codes := make([]string, 0, len(c.accounts))
	for code := range c.accounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (c *Chart) encode() map[string]any {
	out := make(map[string]any, len(c.extra)+len(c.accounts))
	for k, v := range c.extra {
		out[k] = v
	}
	for code, e := range c.accounts {
		rec := make(map[string]any, len(e.extra)+2)
		for k, v := range e.extra {
			rec[k] = v
		}
		permitted := e.account.Permitted
		if permitted == nil {
			permitted = []string{}
		}
		rec["nombre"] = e.account.Name
		rec["permitidos"] = permitted
		out[code] = rec
	}
	return out
}

// decode accepts both historical layouts:
//
//	{"cuentas": [{"codigo": "603000", "nombre": "...", "permitidos": [...]}]}
//	{"603000": {"nombre": "...", "permitidos": [...]}}
func decode(data []byte) (map[string]*entry, map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, fmt.Errorf("parsing chart of accounts: %w", err)
	}

	accts := make(map[string]*entry)
	extra := make(map[string]json.RawMessage)

	if raw, ok := top["cuentas"]; ok && isArray(raw) {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, nil, fmt.Errorf("parsing cuentas: %w", err)
		}
		for i, rec := range list {
			code, err := decodeCode(rec["codigo"])
			if err != nil {
				return nil, nil, fmt.Errorf("cuentas[%d]: %w", i, err)
			}
			delete(rec, "codigo")
			e, err := decodeEntry(code, rec)
			if err != nil {
				return nil, nil, fmt.Errorf("cuentas[%d]: %w", i, err)
			}
			accts[code] = e
		}
		for k, v := range top {
			if k != "cuentas" {
				extra[k] = v
			}
		}
		return accts, extra, nil
	}

	for k, v := range top {
		if !model.IsNumericCode(k) || !isObject(v) {
			extra[k] = v
			continue
		}
		var rec map[string]json.RawMessage
		if err := json.Unmarshal(v, &rec); err != nil {
			return nil, nil, fmt.Errorf("account %s: %w", k, err)
		}
		e, err := decodeEntry(k, rec)
		if err != nil {
			return nil, nil, fmt.Errorf("account %s: %w", k, err)
		}
		accts[k] = e
	}
	return accts, extra, nil
}

func decodeEntry(code string, rec map[string]json.RawMessage) (*entry, error) {
	e := &entry{account: model.Account{Code: code}, extra: map[string]json.RawMessage{}}
	for k, v := range rec {
		switch k {
		case "nombre":
			if err := json.Unmarshal(v, &e.account.Name); err != nil {
				return nil, fmt.Errorf("parsing nombre: %w", err)
			}
		case "permitidos":
			var phrases []string
			if err := json.Unmarshal(v, &phrases); err != nil {
				return nil, fmt.Errorf("parsing permitidos: %w", err)
			}
			e.account.Permitted = normalizePhrases(phrases)
		default:
			e.extra[k] = v
		}
	}
	return e, nil
}

func decodeCode(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("missing codigo")
	}
	var code string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &code); err != nil {
			return "", fmt.Errorf("parsing codigo: %w", err)
		}
	} else {
		code = string(raw)
	}
	code = strings.TrimSpace(code)
	if !model.IsNumericCode(code) {
		return "", fmt.Errorf("codigo %q is not numeric", code)
	}
	return code, nil
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = model.NormalizePhrase(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// covered reports whether some existing phrase already matches phrase, in
// which case appending it would not change validation results.
func covered(existing []string, phrase string) bool {
	for _, p := range existing {
		if strings.Contains(phrase, p) {
			return true
		}
	}
	return false
}

func cloneAccount(a model.Account) model.Account {
	a.Permitted = append([]string(nil), a.Permitted...)
	return a
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
