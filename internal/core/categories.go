package core

var categories = map[TxType][]string{
	Income:  {"Gaji", "Bonus", "Investasi", "Freelance", "Lainnya", "Dividen"},
	Expense: {"Makanan", "Transportasi", "Belanja", "Tagihan", "Hiburan", "Kesehatan", "Pendidikan", "Amal", "Cicilan", "Lainnya"},
}

// CategoryInvestment is the category the radar investment axis reads from the
// expense breakdown.
const CategoryInvestment = "Investasi"

// Categories returns the fixed category list offered for the given type.
func Categories(t TxType) []string {
	return append([]string(nil), categories[t]...)
}

// IsValidCategory reports whether c is one of the enumerated categories of t.
func IsValidCategory(t TxType, c string) bool {
	for _, v := range categories[t] {
		if v == c {
			return true
		}
	}
	return false
}

var categoryIcons = map[string]string{
	"Gaji":         "ph-money",
	"Makanan":      "ph-hamburger",
	"Transportasi": "ph-car",
	"Belanja":      "ph-shopping-bag",
	"Hiburan":      "ph-film-strip",
	"Investasi":    "ph-trend-up",
	"Kesehatan":    "ph-heartbeat",
	"Pendidikan":   "ph-student",
	"Cicilan":      "ph-credit-card",
	"Service":      "ph-wrench",
}

// CategoryIcon returns the icon key renderers use for a category.
func CategoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "ph-receipt"
}
