package accounts

import "github.com/cleared-dev/libro/internal/model"

// DefaultChart returns the seed chart of accounts written by `libro init`.
func DefaultChart() []model.Account {
	return []model.Account{
		{Code: "210000", Name: "Mobiliario y equipos"},
		{Code: "570000", Name: "Caja"},
		{Code: "572000", Name: "Bancos"},
		{Code: "600000", Name: "Farmacia y material sanitario", Permitted: []string{"farmacia", "medicina", "tabletas"}},
		{Code: "602400", Name: "Material de limpieza", Permitted: []string{"jabón", "detergente", "escoba"}},
		{Code: "603000", Name: "Comestibles y bebidas", Permitted: []string{"arroz", "leche", "verdura", "aceite"}},
		{Code: "620401", Name: "Lavandería"},
		{Code: "629000", Name: "Otros servicios"},
		{Code: "629200", Name: "Telefonía e internet", Permitted: []string{"recarga", "internet", "teléfono"}},
		{Code: "640000", Name: "Sueldos y salarios"},
		{Code: "705000", Name: "Donativos recibidos"},
		{Code: "750000", Name: "Otros ingresos"},
	}
}
