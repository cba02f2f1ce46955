package quotation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// VehicleCategory is the pricing category a vehicle is quoted under.
type VehicleCategory string

const (
	CategoryNormal     VehicleCategory = "NORMAL"
	CategoryEspecial   VehicleCategory = "ESPECIAL"
	CategoryUtilitario VehicleCategory = "UTILITARIO"
	CategoryMoto       VehicleCategory = "MOTO"
)

// Categories lists every category in limit-table order.
var Categories = []VehicleCategory{CategoryNormal, CategoryEspecial, CategoryUtilitario, CategoryMoto}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (VehicleCategory, bool) {
	c := VehicleCategory(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// UserCategory is the category picked by the customer on the quotation form.
type UserCategory string

const (
	UserCategoryLeve       UserCategory = "LEVE"
	UserCategoryUtilitario UserCategory = "UTILITARIO"
)

// Usage is the declared vehicle usage.
type Usage string

const (
	UsageParticular Usage = "PARTICULAR"
	UsageComercial  Usage = "COMERCIAL"
)

// CategoryInput is the normalized input a CategoryRule matches against.
type CategoryInput struct {
	RawTypeTokens []string
	UserCategory  UserCategory
	Usage         Usage
}

func (in CategoryInput) hasToken(tokens ...string) bool {
	for _, have := range in.RawTypeTokens {
		for _, want := range tokens {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CategoryRule maps a matching input to a category.
type CategoryRule struct {
	Name     string
	Matches  func(CategoryInput) bool
	Category VehicleCategory
}

// CategoryRules is evaluated top to bottom and the first match wins. The last
// rule always matches, so every input resolves to exactly one category.
var CategoryRules = []CategoryRule{
	{
		Name:     "motorcycle raw type",
		Matches:  func(in CategoryInput) bool { return in.hasToken("MOTOCICLETA", "MOTOCICLETAS", "MOTO", "MOTOS") },
		Category: CategoryMoto,
	},
	{
		Name:     "truck raw type",
		Matches:  func(in CategoryInput) bool { return in.hasToken("CAMINHAO", "CAMINHOES") },
		Category: CategoryUtilitario,
	},
	{
		Name:     "utility selected by user",
		Matches:  func(in CategoryInput) bool { return in.UserCategory == UserCategoryUtilitario },
		Category: CategoryUtilitario,
	},
	{
		Name:     "commercial usage",
		Matches:  func(in CategoryInput) bool { return in.Usage == UsageComercial },
		Category: CategoryEspecial,
	},
	{
		Name:     "default",
		Matches:  func(CategoryInput) bool { return true },
		Category: CategoryNormal,
	},
}

// DetermineCategory resolves the pricing category from the raw FIPE vehicle
// type, the user-selected category and the usage.
func DetermineCategory(rawType string, userCategory UserCategory, usage Usage) VehicleCategory {
	in := CategoryInput{
		RawTypeTokens: tokenizeVehicleType(rawType),
		UserCategory:  UserCategory(strings.ToUpper(strings.TrimSpace(string(userCategory)))),
		Usage:         Usage(strings.ToUpper(strings.TrimSpace(string(usage)))),
	}
	for _, rule := range CategoryRules {
		if rule.Matches(in) {
			return rule.Category
		}
	}
	return CategoryNormal
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// tokenizeVehicleType folds accents and case and splits on anything that is not a letter.
func tokenizeVehicleType(rawType string) []string {
	folded, _, err := transform.String(accentFolder, rawType)
	if err != nil {
		folded = rawType
	}
	return strings.FieldsFunc(strings.ToUpper(folded), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
