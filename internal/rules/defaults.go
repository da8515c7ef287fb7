package rules

// DefaultRules returns the seed rulebook written by `libro init`.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"600000": {Categoria: "Farmacia y material sanitario", Permitidos: []string{"farmacia", "medicina"}},
		"602400": {Categoria: "Material de limpieza", Permitidos: []string{"jabón", "detergente"}},
		"603000": {Categoria: "Comestibles y bebidas", Permitidos: []string{"arroz", "leche", "verdura"}},
		"620401": {Categoria: "Lavandería"},
		"629200": {Categoria: "Telefonía e internet", Permitidos: []string{"recarga", "internet"}},
		"640000": {Categoria: "Sueldos y salarios"},
	}
}
