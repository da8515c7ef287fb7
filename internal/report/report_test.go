package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/libro/internal/journal"
	"github.com/cleared-dev/libro/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeJournal []model.Movement

func (f fakeJournal) ByMonth(month, year int) []journal.Entry {
	var out []journal.Entry
	for i, m := range f {
		if t, ok := m.Date(); ok && int(t.Month()) == month && t.Year() == year {
			out = append(out, journal.Entry{Index: i, Movement: m})
		}
	}
	return out
}

type fakeNames map[string]string

func (f fakeNames) NameOf(code string) string {
	if n, ok := f[code]; ok {
		return n
	}
	return model.UnknownAccountName
}

type fakeCategories map[string]model.Category

func (f fakeCategories) Categorize(code string) model.Category {
	if c, ok := f[code]; ok {
		return c
	}
	return model.CategoryOther
}

type fakeBalances struct {
	openings map[string]decimal.Decimal
	calls    []string
}

func (f *fakeBalances) Opening(month, year int, bank string) decimal.Decimal {
	f.calls = append(f.calls, bank)
	return f.openings[bank]
}

func (f *fakeBalances) BanksSeen() []string {
	var out []string
	for b := range f.openings {
		out = append(out, b)
	}
	return out
}

func fixture() (Sources, *fakeBalances) {
	bal := &fakeBalances{openings: map[string]decimal.Decimal{"Caja": dec("1000"), "SBI": dec("500")}}
	return Sources{
		Journal: fakeJournal{
			{Fecha: "02/11/2024", Documento: "A", Concepto: "arroz", Cuenta: "603000", Debe: dec("100"), Banco: "Caja", Estado: model.StatusPaid, Saldo: dec("12345")},
			{Fecha: "05/11/2024", Documento: "B", Concepto: "donativo", Cuenta: "705000", Haber: dec("300"), Banco: "SBI", Estado: model.StatusPaid},
			{Fecha: "2024-11-07", Documento: "C", Concepto: "internet", Cuenta: "629200", Debe: dec("50"), Banco: "Caja", Estado: model.StatusPending},
			{Fecha: "01/12/2024", Documento: "D", Concepto: "arroz", Cuenta: "603000", Debe: dec("70"), Banco: "Caja"},
		},
		Accounts:   fakeNames{"603000": "Comestibles", "705000": "Donativos"},
		Classifier: fakeCategories{"603000": model.CategoryFood, "629200": model.CategoryOnline},
		Balances:   bal,
	}, bal
}

func TestBuild_StrictSingleBank(t *testing.T) {
	src, _ := fixture()
	r, err := Build(src, Params{Month: 11, Year: 2024, Bank: "Caja"})
	require.NoError(t, err)

	require.Len(t, r.Rows, 3)
	open := r.Rows[0]
	assert.Equal(t, "01/11/2024", open.Fecha)
	assert.Equal(t, OpeningConcept, open.Concepto)
	assert.True(t, open.Debe.IsZero())
	assert.True(t, open.Haber.IsZero())
	assert.True(t, open.SaldoAcumulado.Equal(dec("1000")))
	assert.Equal(t, -1, open.Index)

	first := r.Rows[1]
	assert.Equal(t, "A", first.Documento)
	assert.Equal(t, "Comestibles", first.NombreCuenta)
	assert.Equal(t, model.CategoryFood, first.Categoria)
	assert.True(t, first.SaldoAcumulado.Equal(dec("900")), "stored saldo is ignored")

	second := r.Rows[2]
	assert.Equal(t, model.UnknownAccountName, second.NombreCuenta)
	assert.Equal(t, model.CategoryOnline, second.Categoria)
	assert.True(t, second.SaldoAcumulado.Equal(dec("850")))

	assert.True(t, r.Closing.Equal(dec("850")))
	assert.True(t, r.TotalDebe.Equal(dec("150")))
	assert.Equal(t, Strict, r.Orientation)
}

func TestBuild_AllBanksSumsOpenings(t *testing.T) {
	src, bal := fixture()
	r, err := Build(src, Params{Month: 11, Year: 2024})
	require.NoError(t, err)

	assert.True(t, r.Opening.Equal(dec("1500")))
	require.Len(t, r.Rows, 4)
	assert.True(t, r.Closing.Equal(dec("1650")))
	assert.ElementsMatch(t, []string{"Caja", "SBI"}, bal.calls)
}

func TestBuild_Flow(t *testing.T) {
	src, _ := fixture()
	r, err := Build(src, Params{Month: 11, Year: 2024, Bank: "Caja", Orientation: Flow})
	require.NoError(t, err)

	first := r.Rows[1]
	assert.True(t, first.Debe.IsZero(), "columns swapped")
	assert.True(t, first.Haber.Equal(dec("100")))
	assert.True(t, first.SaldoAcumulado.Equal(dec("1100")))
	assert.True(t, r.Closing.Equal(dec("1150")))
}

func TestBuild_BadMonth(t *testing.T) {
	src, _ := fixture()
	_, err := Build(src, Params{Month: 0, Year: 2024})
	assert.Error(t, err)
}

func TestParseOrientation(t *testing.T) {
	for in, want := range map[string]Orientation{"": Strict, "Strict": Strict, "contable": Strict, "flow": Flow, "FLUJO": Flow} {
		got, err := ParseOrientation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOrientation("sideways")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	src, _ := fixture()
	r, err := Build(src, Params{Month: 11, Year: 2024, Bank: "Caja"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"01/11/2024", "", OpeningConcept, "", "", "0.00", "0.00", "1000.00", "Caja", "", ""}, records[1])
	assert.Equal(t, []string{"02/11/2024", "A", "arroz", "603000", "Comestibles", "100.00", "0.00", "900.00", "Caja", "pagado", "FOOD"}, records[2])
}

func TestRender(t *testing.T) {
	src, _ := fixture()
	r, err := Build(src, Params{Month: 11, Year: 2024})
	require.NoError(t, err)

	out := Render(r)
	assert.Contains(t, out, "todos los bancos")
	assert.Contains(t, out, OpeningConcept)
	assert.Contains(t, out, "Comestibles")
	assert.True(t, strings.Contains(out, "1650.00"))
}

func TestTable(t *testing.T) {
	out := Table([]string{"Código", "Nombre"}, [][]string{{"603000", "Comestibles"}})
	assert.Contains(t, out, "603000")
	assert.Contains(t, out, "Nombre")
}
