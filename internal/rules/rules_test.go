package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reglas.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "603000": {"categoria": "Comestibles y bebidas", "permitidos": ["Arroz"], "nota": "x"},
  "629200": {"categoria": "Telefonía e internet"}
}`), 0o644))

	s := Load(path, nil)
	r, ok := s.Get("603000")
	require.True(t, ok)
	assert.Equal(t, "Comestibles y bebidas", r.Categoria)
	assert.Equal(t, []string{"arroz"}, r.Permitidos)

	r, ok = s.Get("629200 internet")
	require.True(t, ok)
	assert.Empty(t, r.Permitidos)

	_, ok = s.Get("640000")
	assert.False(t, ok)
	assert.Equal(t, []string{"603000", "629200"}, s.Codes())
}

func TestLoad_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	s := Load(filepath.Join(dir, "reglas.json"), nil)
	assert.Empty(t, s.Codes())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1, 2]`), 0o644))
	s = Load(bad, nil)
	assert.Empty(t, s.Codes())
	matches, err := filepath.Glob(bad + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSetAndAppendPermitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reglas.json")
	s := New(path, DefaultRules(), nil)

	require.NoError(t, s.Set("750000", Rule{Categoria: "Nominas"}))
	require.NoError(t, s.AppendPermitted("603000", "Harina"))
	require.NoError(t, s.AppendPermitted("603000", "harina"))
	require.NoError(t, s.AppendPermitted("999999", "nada"))

	again := Load(path, nil)
	r, ok := again.Get("603000")
	require.True(t, ok)
	assert.Equal(t, []string{"arroz", "leche", "verdura", "harina"}, r.Permitidos)

	r, ok = again.Get("750000")
	require.True(t, ok)
	assert.Equal(t, "Nominas", r.Categoria)
	_, ok = again.Get("999999")
	assert.False(t, ok)
}

func TestSave_PreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reglas.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"603000": {"categoria": "Dieta", "permitidos": [], "nota": "revisar"}}`), 0o644))

	s := Load(path, nil)
	require.NoError(t, s.AppendPermitted("603000", "avena"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "revisar", raw["603000"]["nota"])
	assert.Equal(t, []any{"avena"}, raw["603000"]["permitidos"])
}

func TestLoad_KeepsNonRuleTopLevelValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reglas.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": "1", "603000": {"categoria": "Dieta", "permitidos": ["leche"]}}`), 0o644))

	s := Load(path, nil)
	assert.Equal(t, []string{"603000"}, s.Codes())
	r, ok := s.Get("603000")
	require.True(t, ok)
	assert.Equal(t, []string{"leche"}, r.Permitidos)

	require.NoError(t, s.AppendPermitted("603000", "arroz"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "1", raw["version"])
	assert.Equal(t, []any{"leche", "arroz"}, raw["603000"].(map[string]any)["permitidos"])

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
