package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auth"
	"github.com/cleared-dev/libro/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedNow() time.Time { return time.Date(2024, 12, 2, 8, 15, 0, 0, time.UTC) }

func loadLedger(t *testing.T, path string) *Ledger {
	t.Helper()
	l := Load(path, nil)
	l.now = fixedNow
	return l
}

func testToken(t *testing.T) auth.Token {
	t.Helper()
	tok, err := auth.New("clave").Authorize("clave")
	require.NoError(t, err)
	return tok
}

// readSaldos returns the saldos object of the balance file on disk.
func readSaldos(t *testing.T, path string) map[string]map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var f struct {
		Version string                    `json:"version"`
		Saldos  map[string]map[string]any `json:"saldos"`
	}
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, FileVersion, f.Version)
	return f.Saldos
}

const novemberClosed = `{
  "version": "1.0",
  "ultima_actualizacion": "30/11/2024 18:00:00",
  "saldos": {
    "2024-11": {
      "Union Bank": {"inicial": 0, "ingresos": 20000, "gastos": 29237.9, "final": -9237.9},
      "cerrado": true,
      "fecha_cierre": "30/11/2024 18:00:00",
      "_firma": "HM"
    }
  }
}`

func TestOpening_CarryForward(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	require.NoError(t, os.WriteFile(path, []byte(novemberClosed), 0o644))
	l := loadLedger(t, path)

	got := l.Opening(12, 2024, "Union Bank")
	assert.True(t, got.Equal(dec("-9237.9")), got.String())

	saldos := readSaldos(t, path)
	dec2024 := saldos["2024-12"]
	require.NotNil(t, dec2024)
	bank := dec2024["Union Bank"].(map[string]any)
	assert.Equal(t, -9237.9, bank["inicial"])

	// Reloading serves the persisted opening directly.
	again := loadLedger(t, path)
	assert.True(t, again.Opening(12, 2024, "Union Bank").Equal(dec("-9237.9")))
}

func TestOpening_Unresolvable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	require.NoError(t, os.WriteFile(path, []byte(novemberClosed), 0o644))
	l := loadLedger(t, path)

	assert.True(t, l.Opening(12, 2024, "SBI").IsZero(), "no closing for bank")
	assert.True(t, l.Opening(2, 2025, "Union Bank").IsZero(), "previous month absent")

	_, ok := l.SummaryOfMonth(12, 2024)
	assert.False(t, ok, "nothing persisted")
	_, ok = l.SummaryOfMonth(2, 2025)
	assert.False(t, ok)
}

func TestOpening_PreviousMonthNotClosed(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "saldos.json"), nil)
	closing := dec("500")
	require.NoError(t, l.EditSlot(11, 2024, "Caja", SlotPatch{Closing: &closing}))

	assert.True(t, l.Opening(12, 2024, "Caja").IsZero())
}

func TestOpening_JanuaryWrapsToDecember(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "saldos.json"), nil)
	tok := testToken(t)
	require.NoError(t, l.Close(tok, 12, 2023, Snapshot{
		"Caja": {Opening: dec("100"), Ingresos: dec("50"), Gastos: dec("30")},
	}))

	assert.True(t, l.Opening(1, 2024, "Caja").Equal(dec("120")))
}

func TestCloseThenReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	l := loadLedger(t, path)
	tok := testToken(t)

	movements := []model.Movement{
		{Fecha: "15/11/2024", Documento: "A", Cuenta: "603000", Debe: dec("100"), Banco: "Caja"},
	}
	snap := l.BuildSnapshot(movements, 11, 2024, "HM")
	require.Contains(t, snap, "Caja")
	assert.True(t, snap["Caja"].Gastos.Equal(dec("100")))
	assert.True(t, snap["Caja"].Closing.Equal(dec("-100")))

	require.NoError(t, l.Close(tok, 11, 2024, Snapshot{
		"Caja": {Opening: decimal.Zero, Ingresos: decimal.Zero, Gastos: dec("100"), Closing: dec("-100"), Signatory: "HM"},
	}))
	assert.True(t, l.IsClosed(11, 2024))
	assert.True(t, l.Opening(11, 2024, "Caja").IsZero())
	closing, ok := l.Closing(11, 2024, "Caja")
	require.True(t, ok)
	assert.True(t, closing.Equal(dec("-100")))

	sum, ok := l.SummaryOfMonth(11, 2024)
	require.True(t, ok)
	assert.Equal(t, "HM", sum.Firma)
	assert.Equal(t, "02/12/2024 08:15:00", sum.FechaCierre)

	require.NoError(t, l.Reopen(tok, 11, 2024))
	assert.False(t, l.IsClosed(11, 2024))
	closing, ok = l.Closing(11, 2024, "Caja")
	require.True(t, ok)
	assert.True(t, closing.Equal(dec("-100")), "slot values unchanged by reopen")

	reloaded := loadLedger(t, path)
	assert.False(t, reloaded.IsClosed(11, 2024))
	sum, _ = reloaded.SummaryOfMonth(11, 2024)
	assert.Equal(t, "02/12/2024 08:15:00", sum.FechaReapertura)
	assert.True(t, sum.Gastos.Equal(dec("100")))
}

func TestClose_RecomputesClosing(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "saldos.json"), nil)
	tok := testToken(t)

	require.NoError(t, l.Close(tok, 3, 2024, Snapshot{
		"SBI": {Opening: dec("10"), Ingresos: dec("5"), Gastos: dec("1"), Closing: dec("999")},
	}))
	closing, _ := l.Closing(3, 2024, "SBI")
	assert.True(t, closing.Equal(dec("14")))
}

func TestClose_Errors(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "saldos.json"), nil)

	err := l.Close(auth.Token{}, 11, 2024, Snapshot{"Caja": {}})
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)

	tok := testToken(t)
	assert.ErrorIs(t, l.Close(tok, 13, 2024, Snapshot{"Caja": {}}), apperr.ErrValidation)
	assert.ErrorIs(t, l.Close(tok, 11, 2024, nil), apperr.ErrValidation)
	assert.ErrorIs(t, l.Reopen(tok, 11, 2024), apperr.ErrValidation, "cannot reopen an absent month")
	assert.ErrorIs(t, l.Reopen(auth.Token{}, 11, 2024), apperr.ErrAuthRequired)
}

func TestClose_OverwritesClosedMonth(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "saldos.json"), nil)
	tok := testToken(t)

	require.NoError(t, l.Close(tok, 5, 2024, Snapshot{"Caja": {Gastos: dec("1")}, "SBI": {Ingresos: dec("1")}}))
	require.NoError(t, l.Close(tok, 5, 2024, Snapshot{"Caja": {Gastos: dec("2")}}))

	sum, ok := l.SummaryOfMonth(5, 2024)
	require.True(t, ok)
	require.Len(t, sum.Banks, 1)
	assert.True(t, sum.Banks[0].Gastos.Decimal.Equal(dec("2")))
}

func TestEditSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	l := loadLedger(t, path)

	opening := dec("250")
	require.NoError(t, l.EditSlot(4, 2024, "Federal Bank", SlotPatch{Opening: &opening}))
	assert.True(t, l.Opening(4, 2024, "Federal Bank").Equal(opening))
	_, ok := l.Closing(4, 2024, "Federal Bank")
	assert.False(t, ok, "untouched fields stay unset")

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Same values: nothing is rewritten, so ultima_actualizacion stays put.
	l.now = func() time.Time { return fixedNow().Add(time.Hour) }
	require.NoError(t, l.EditSlot(4, 2024, "Federal Bank", SlotPatch{Opening: &opening}))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	assert.ErrorIs(t, l.EditSlot(4, 2024, "cerrado", SlotPatch{Opening: &opening}), apperr.ErrValidation)
	assert.ErrorIs(t, l.EditSlot(4, 2024, " ", SlotPatch{Opening: &opening}), apperr.ErrValidation)
}

func TestDeleteSlot_RemovesEmptyRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	l := loadLedger(t, path)
	tok := testToken(t)
	require.NoError(t, l.Close(tok, 6, 2024, Snapshot{"Caja": {Gastos: dec("1")}, "SBI": {Ingresos: dec("2")}}))

	require.NoError(t, l.DeleteSlot(6, 2024, "Caja"))
	sum, ok := l.SummaryOfMonth(6, 2024)
	require.True(t, ok)
	require.Len(t, sum.Banks, 1)
	assert.Equal(t, "SBI", sum.Banks[0].Bank)

	require.NoError(t, l.DeleteSlot(6, 2024, "SBI"))
	_, ok = l.SummaryOfMonth(6, 2024)
	assert.False(t, ok)
	assert.NotContains(t, readSaldos(t, path), "2024-06")

	assert.NoError(t, l.DeleteSlot(6, 2024, "SBI"), "deleting an absent slot is a no-op")
}

func TestBanksSeenExcludesMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	require.NoError(t, os.WriteFile(path, []byte(novemberClosed), 0o644))
	l := loadLedger(t, path)
	opening := dec("1")
	require.NoError(t, l.EditSlot(1, 2025, "Caja", SlotPatch{Opening: &opening}))

	assert.Equal(t, []string{"Caja", "Union Bank"}, l.BanksSeen())
	assert.Equal(t, []string{"2024-11", "2025-01"}, l.Months())
}

func TestLoad_PreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	data := `{
  "version": "0.9",
  "propietario": "Comunidad",
  "saldos": {
    "2024-10": {
      "Caja": {"inicial": "100", "final": null, "nota": "revisar"},
      "observaciones": "pendiente de firma",
      "cerrado": false
    }
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	l := loadLedger(t, path)

	assert.True(t, l.Opening(10, 2024, "Caja").Equal(dec("100")))
	_, ok := l.Closing(10, 2024, "Caja")
	assert.False(t, ok)
	assert.Equal(t, []string{"Caja"}, l.BanksSeen())

	require.NoError(t, l.Save())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var top map[string]any
	require.NoError(t, json.Unmarshal(raw, &top))
	assert.Equal(t, "Comunidad", top["propietario"])
	assert.Equal(t, "02/12/2024 08:15:00", top["ultima_actualizacion"])
	oct := top["saldos"].(map[string]any)["2024-10"].(map[string]any)
	assert.Equal(t, "pendiente de firma", oct["observaciones"])
	assert.Equal(t, "revisar", oct["Caja"].(map[string]any)["nota"])
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"saldos": {"2024-10": {"Caja": {"inicial": "abc"}}}}`), 0o644))

	l := loadLedger(t, path)
	assert.Empty(t, l.Months())
	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestBuildSnapshot(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "saldos.json"), nil)
	opening := dec("1000")
	require.NoError(t, l.EditSlot(11, 2024, "SBI", SlotPatch{Opening: &opening}))

	snap := l.BuildSnapshot([]model.Movement{
		{Fecha: "01/11/2024", Debe: dec("100"), Banco: "Caja"},
		{Fecha: "2024-11-20", Haber: dec("40"), Banco: "Caja"},
		{Fecha: "20/11/2024", Haber: dec("5"), Banco: ""},
		{Fecha: "01/12/2024", Debe: dec("7"), Banco: "Caja"},
		{Fecha: "basura", Debe: dec("9"), Banco: "Caja"},
	}, 11, 2024, "HM")

	assert.Equal(t, []string{"Caja", "SBI"}, snap.Banks())
	caja := snap["Caja"]
	assert.True(t, caja.Gastos.Equal(dec("100")))
	assert.True(t, caja.Ingresos.Equal(dec("45")))
	assert.True(t, caja.Closing.Equal(dec("-55")))
	assert.Equal(t, "HM", caja.Signatory)

	sbi := snap["SBI"]
	assert.True(t, sbi.Opening.Equal(opening))
	assert.True(t, sbi.Closing.Equal(opening))
}

func TestBuildSnapshot_CarriesIdleBanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldos.json")
	l := loadLedger(t, path)
	tok := testToken(t)

	require.NoError(t, l.Close(tok, 10, 2024, Snapshot{
		"SBI":  {Opening: dec("5000")},
		"Caja": {Opening: dec("100")},
	}))

	snap := l.BuildSnapshot([]model.Movement{
		{Fecha: "05/11/2024", Debe: dec("30"), Banco: "Caja"},
	}, 11, 2024, "HM")
	assert.Equal(t, []string{"Caja", "SBI"}, snap.Banks())
	assert.True(t, snap["SBI"].Opening.Equal(dec("5000")))
	assert.True(t, snap["SBI"].Closing.Equal(dec("5000")))
	assert.True(t, snap["Caja"].Closing.Equal(dec("70")))
	require.NoError(t, l.Close(tok, 11, 2024, snap))

	reloaded := loadLedger(t, path)
	assert.True(t, reloaded.Opening(12, 2024, "SBI").Equal(dec("5000")))
	assert.True(t, reloaded.Opening(12, 2024, "Caja").Equal(dec("70")))
}
