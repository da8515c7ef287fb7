package accounts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestLoad_CodeKeyedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cuentas.json")
	writeFile(t, path, `{
  "603000": {"nombre": "Comestibles y bebidas", "permitidos": ["Arroz ", "leche"], "grupo": "compras"},
  "705000": {"nombre": "Donativos recibidos", "permitidos": []},
  "notas": "exportado a mano"
}`)

	c := Load(path, nil)
	require.Equal(t, 2, c.Len())

	acct, ok := c.Get("603000")
	require.True(t, ok)
	assert.Equal(t, "Comestibles y bebidas", acct.Name)
	assert.Equal(t, []string{"arroz", "leche"}, acct.Permitted)
}

func TestLoad_LegacyListLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cuentas.json")
	writeFile(t, path, `{
  "version": "1.0",
  "cuentas": [
    {"codigo": "603000", "nombre": "Comestibles y bebidas", "permitidos": ["arroz"]},
    {"codigo": 640000, "nombre": "Sueldos y salarios", "permitidos": [], "tipo": "gasto"}
  ]
}`)

	c := Load(path, nil)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "Sueldos y salarios", c.NameOf("640000"))

	// Saving upgrades to the code-keyed layout and keeps unknown fields.
	require.NoError(t, c.Save())
	raw := readJSON(t, path)
	assert.NotContains(t, raw, "cuentas")
	assert.Equal(t, "1.0", raw["version"])
	rec, ok := raw["640000"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gasto", rec["tipo"])
	assert.Equal(t, "Sueldos y salarios", rec["nombre"])
	assert.Equal(t, []any{}, rec["permitidos"])
}

func TestSave_PreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cuentas.json")
	writeFile(t, path, `{
  "603000": {"nombre": "Comestibles", "permitidos": ["arroz"], "grupo": "compras"},
  "notas": {"autor": "HM"}
}`)

	c := Load(path, nil)
	require.NoError(t, c.AppendPermittedConcept("603000", "Harina"))

	raw := readJSON(t, path)
	assert.Equal(t, map[string]any{"autor": "HM"}, raw["notas"])
	rec := raw["603000"].(map[string]any)
	assert.Equal(t, "compras", rec["grupo"])
	assert.Equal(t, []any{"arroz", "harina"}, rec["permitidos"])
}

func TestLoad_MissingFile(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "cuentas.json"), nil)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Options())
}

func TestLoad_MalformedFileIsQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cuentas.json")
	writeFile(t, path, `{"603000": `)

	c := Load(path, nil)
	assert.Equal(t, 0, c.Len())

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestOptionsAndNameOf(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cuentas.json"), DefaultChart(), nil)

	opts := c.Options()
	require.Len(t, opts, len(DefaultChart()))
	assert.Equal(t, "210000 – Mobiliario y equipos", opts[0])
	assert.Equal(t, "750000 – Otros ingresos", opts[len(opts)-1])

	assert.Equal(t, "Comestibles y bebidas", c.NameOf("603000"))
	assert.Equal(t, "Comestibles y bebidas", c.NameOf("603000 (víveres)"))
	assert.Equal(t, model.UnknownAccountName, c.NameOf("999999"))
}

func TestAppendPermittedConcept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cuentas.json")
	c := New(path, []model.Account{{Code: "603000", Name: "Comestibles", Permitted: []string{"arroz"}}}, nil)

	require.NoError(t, c.AppendPermittedConcept("603000", "  HARINA "))
	assert.Equal(t, []string{"arroz", "harina"}, c.Permitted("603000"))

	// Already covered by "arroz": no growth, no duplicate.
	require.NoError(t, c.AppendPermittedConcept("603000", "arroz basmati"))
	require.NoError(t, c.AppendPermittedConcept("603000", "Harina"))
	assert.Equal(t, []string{"arroz", "harina"}, c.Permitted("603000"))

	// Unknown code fails silently.
	require.NoError(t, c.AppendPermittedConcept("999999", "algo"))

	// Persisted.
	again := Load(path, nil)
	assert.Equal(t, []string{"arroz", "harina"}, again.Permitted("603000"))
}

func TestAppendPermittedConcept_Monotone(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cuentas.json"), DefaultChart(), nil)
	before := c.Permitted("603000")

	for _, p := range []string{"azúcar", "", "leche", "sal", "ARROZ"} {
		require.NoError(t, c.AppendPermittedConcept("603000", p))
		after := c.Permitted("603000")
		assert.GreaterOrEqual(t, len(after), len(before))
		assert.Equal(t, before, after[:len(before)], "existing phrases keep their order")
		before = after
	}
}

func TestCreateAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cuentas.json")
	c := New(path, DefaultChart(), nil)

	require.NoError(t, c.CreateAccount("629900", "Otros servicios"))
	assert.True(t, c.Exists("629900"))
	assert.Empty(t, c.Permitted("629900"))

	again := Load(path, nil)
	assert.Equal(t, "Otros servicios", again.NameOf("629900"))

	err := c.CreateAccount("629900", "Duplicada")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = c.CreateAccount("abc", "Mala")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = c.CreateAccount("629901", " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAllSortedAndCopied(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cuentas.json"), DefaultChart(), nil)
	all := c.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Code, all[i].Code)
	}

	all[0].Name = "changed"
	acct, _ := c.Get(all[0].Code)
	assert.NotEqual(t, "changed", acct.Name)
}
