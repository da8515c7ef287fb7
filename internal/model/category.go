package model

import "strings"

// Category is the reporting tag assigned to a movement.
type Category string

const (
	CategoryFood        Category = "FOOD"
	CategoryMedicine    Category = "MEDICINE"
	CategoryHygiene     Category = "HYGIENE"
	CategorySalary      Category = "SALARY"
	CategoryOnline      Category = "ONLINE"
	CategoryTherapeutic Category = "THERAPEUTIC"
	CategoryDiet        Category = "DIET"
	CategoryOther       Category = "OTROS"
)

// Categories lists the closed tag set in report order.
var Categories = []Category{
	CategoryFood,
	CategoryMedicine,
	CategoryHygiene,
	CategorySalary,
	CategoryOnline,
	CategoryTherapeutic,
	CategoryDiet,
	CategoryOther,
}

var spanishLabels = map[string]Category{
	"COMESTIBLES Y BEBIDAS":         CategoryFood,
	"ALIMENTACIÓN":                  CategoryFood,
	"FARMACIA Y MATERIAL SANITARIO": CategoryMedicine,
	"FARMACIA":                      CategoryMedicine,
	"MEDICAMENTOS":                  CategoryMedicine,
	"MATERIAL DE LIMPIEZA":          CategoryHygiene,
	"LIMPIEZA":                      CategoryHygiene,
	"LAVANDERÍA":                    CategoryHygiene,
	"HIGIENE":                       CategoryHygiene,
	"ASEO PERSONAL":                 CategoryHygiene,
	"SUELDOS Y SALARIOS":            CategorySalary,
	"NOMINAS":                       CategorySalary,
	"TELEFONÍA E INTERNET":          CategoryOnline,
	"INTERNET":                      CategoryOnline,
	"TELEFONO":                      CategoryOnline,
	"TERAPIAS":                      CategoryTherapeutic,
	"DIETA":                         CategoryDiet,
}

// NormalizeLabel translates a rulebook label into a Category. Labels outside
// the dictionary pass through uppercased. ok is false for blank labels.
func NormalizeLabel(label string) (Category, bool) {
	upper := strings.ToUpper(strings.TrimSpace(label))
	if upper == "" {
		return "", false
	}
	if c, found := spanishLabels[upper]; found {
		return c, true
	}
	return Category(upper), true
}

// IsKnown reports whether c is one of the closed tag set.
func (c Category) IsKnown() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}
