package journal

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auth"
	"github.com/cleared-dev/libro/internal/model"
)

func repairFixture(t *testing.T) *Journal {
	t.Helper()
	j := newTestJournal(t)
	j.movements = []model.Movement{
		{Fecha: "10/11/2024", Documento: "R1", Concepto: "Gasto mal registrado", Cuenta: "603000",
			Debe: decimal.Zero, Haber: dec("75.0"), Saldo: dec("75.0"), Estado: model.StatusPaid, Banco: "Caja"},
		{Fecha: "11/11/2024", Documento: "R2", Concepto: "Donativo", Cuenta: "705000",
			Debe: decimal.Zero, Haber: dec("500"), Saldo: dec("500"), Estado: model.StatusPaid, Banco: "Caja"},
		{Fecha: "12/11/2024", Documento: "R3", Concepto: "Traspaso", Cuenta: "210000",
			Debe: decimal.Zero, Haber: dec("20"), Saldo: dec("20"), Estado: model.StatusPaid, Banco: "Caja"},
	}
	return j
}

func TestRepairCandidatesAndDiagnose(t *testing.T) {
	j := repairFixture(t)

	cands := j.RepairCandidates()
	require.Len(t, cands, 2)
	assert.Equal(t, "R1", cands[0].Movement.Documento)
	assert.Equal(t, "R3", cands[1].Movement.Documento)

	err := j.Diagnose()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDataRepairCandidate)
	assert.Contains(t, err.Error(), "R1, R3")

	assert.Equal(t, 3, j.Len(), "diagnosis changes nothing")
}

func TestRepair(t *testing.T) {
	j := repairFixture(t)

	_, err := j.Repair(auth.Token{})
	assert.ErrorIs(t, err, apperr.ErrAuthRequired)

	changes, err := j.Repair(testToken(t))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	fixed, _ := j.At(0)
	assert.True(t, fixed.Debe.Equal(dec("75")))
	assert.True(t, fixed.Haber.IsZero())
	assert.True(t, fixed.Saldo.Equal(dec("-75")))

	income, _ := j.At(1)
	assert.True(t, income.Haber.Equal(dec("500")), "income accounts are left alone")
	assert.True(t, income.Saldo.Equal(dec("500")))

	assert.NoError(t, j.Diagnose())

	again, err := j.Repair(testToken(t))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRevertRepair_ViaFile(t *testing.T) {
	j := repairFixture(t)
	tok := testToken(t)

	changes, err := j.Repair(tok)
	require.NoError(t, err)

	revert := filepath.Join(t.TempDir(), "reparacion.json")
	require.NoError(t, j.WriteRevertFile(revert, changes))

	// The user edits R3 after the repair; its change no longer applies.
	concept := "Traspaso corregido"
	_, err = j.Edit(tok, 2, Patch{Concepto: &concept}, AppendOptions{})
	require.NoError(t, err)

	loaded, err := ReadRevertFile(revert)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	n, err := j.RevertRepair(tok, loaded)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	m, _ := j.At(0)
	assert.True(t, m.Haber.Equal(dec("75")))
	assert.True(t, m.Saldo.Equal(dec("75")))
	r3, _ := j.At(2)
	assert.True(t, r3.Debe.Equal(dec("20")), "edited movement keeps its repaired sides")
}

func TestReadRevertFile_Missing(t *testing.T) {
	_, err := ReadRevertFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, apperr.ErrStorageRead)
}
