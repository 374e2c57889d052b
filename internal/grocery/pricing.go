package grocery

import (
	"math"
	"strings"
)

// Prices are a static heuristic for a rough budget figure, not a pricing
// service. Base prices are USD per pound-equivalent.

// DefaultBasePrice applies when no catalog keyword matches the ingredient.
const DefaultBasePrice = 3.00

// unpricedUnitCap bounds the multiplier for units the table does not know
// (pieces, cloves, cans, pinches) so counts like "12 cloves" stay sane.
const unpricedUnitCap = 2.0

type priceEntry struct {
	keyword string
	price   float64
}

// priceCatalog is matched by substring in order, so longer and more specific
// keywords come first.
var priceCatalog = []priceEntry{
	// Names that contain a more general keyword further down
	{"peanut butter", 4.00},
	{"broth", 2.00},
	{"stock", 2.00},
	{"eggplant", 2.00},
	{"pineapple", 1.50},

	// Proteins
	{"chicken breast", 4.50},
	{"chicken thigh", 3.50},
	{"ground beef", 5.50},
	{"ground turkey", 5.00},
	{"pork chop", 4.50},
	{"pork loin", 4.00},
	{"smoked salmon", 16.00},
	{"salmon", 12.00},
	{"shrimp", 11.00},
	{"steak", 12.00},
	{"bacon", 7.00},
	{"sausage", 5.00},
	{"tofu", 2.50},
	{"tuna", 6.00},
	{"cod", 9.00},
	{"chicken", 4.00},
	{"turkey", 5.00},
	{"beef", 7.00},
	{"pork", 4.00},
	{"lamb", 10.00},
	{"ham", 5.00},
	{"fish", 9.00},
	{"egg", 4.00},

	// Dairy
	{"cream cheese", 5.00},
	{"sour cream", 3.50},
	{"heavy cream", 5.00},
	{"parmesan", 12.00},
	{"mozzarella", 6.00},
	{"cheddar", 6.00},
	{"cheese", 6.00},
	{"butter", 5.00},
	{"yogurt", 3.00},
	{"milk", 1.00},
	{"cream", 4.00},

	// Vegetables and fruit
	{"bell pepper", 3.00},
	{"sweet potato", 1.50},
	{"green bean", 2.50},
	{"mushroom", 4.00},
	{"asparagus", 4.00},
	{"broccoli", 2.50},
	{"cauliflower", 2.50},
	{"spinach", 4.00},
	{"lettuce", 2.00},
	{"kale", 3.00},
	{"zucchini", 2.00},
	{"cucumber", 1.50},
	{"tomato", 2.50},
	{"potato", 1.00},
	{"carrot", 1.00},
	{"celery", 1.50},
	{"onion", 1.20},
	{"garlic", 5.00},
	{"ginger", 4.00},
	{"avocado", 4.00},
	{"lemon", 3.00},
	{"lime", 3.00},
	{"apple", 2.00},
	{"banana", 0.70},
	{"berries", 6.00},
	{"pepper", 3.00},

	// Herbs
	{"cilantro", 8.00},
	{"parsley", 8.00},
	{"basil", 10.00},
	{"thyme", 12.00},
	{"rosemary", 12.00},
	{"oregano", 10.00},
	{"mint", 10.00},
	{"dill", 10.00},

	// Pantry staples
	{"olive oil", 10.00},
	{"soy sauce", 4.00},
	{"tomato sauce", 2.00},
	{"maple syrup", 12.00},
	{"brown sugar", 1.50},
	{"breadcrumb", 3.00},
	{"flour", 0.80},
	{"sugar", 1.00},
	{"rice", 1.50},
	{"pasta", 2.00},
	{"noodle", 2.50},
	{"bread", 3.50},
	{"tortilla", 3.00},
	{"bean", 1.50},
	{"lentil", 1.80},
	{"honey", 8.00},
	{"vinegar", 2.00},
	{"oil", 4.00},
	{"salt", 0.50},
	{"spice", 15.00},
}

// BasePrice returns the catalog price for an ingredient name, falling back to
// DefaultBasePrice.
func BasePrice(name string) float64 {
	key := normalizeName(name)
	if key == "" {
		return DefaultBasePrice
	}
	for _, e := range priceCatalog {
		if strings.Contains(key, e.keyword) {
			return e.price
		}
	}
	return DefaultBasePrice
}

var unitAliases = map[string]string{
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"kg": "kg", "kgs": "kg", "kilogram": "kg", "kilograms": "kg",
	"g": "g", "gr": "g", "gram": "g", "grams": "g",
	"cup": "cup", "cups": "cup",
	"tbsp": "tbsp", "tbs": "tbsp", "tablespoon": "tbsp", "tablespoons": "tbsp",
	"tsp": "tsp", "teaspoon": "tsp", "teaspoons": "tsp",
}

// canonicalUnit maps unit spellings onto the priced unit table. Unknown units
// come back unchanged (lower-cased).
func canonicalUnit(unit string) string {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), ".")
	if c, ok := unitAliases[u]; ok {
		return c
	}
	return u
}

// unitMultiplier converts an amount in the given unit to a pound-equivalent
// quantity for pricing.
func unitMultiplier(amount float64, unit string) float64 {
	switch canonicalUnit(unit) {
	case "lb":
		return amount
	case "oz":
		return amount / 16
	case "kg":
		return amount * 2.2
	case "g":
		return amount / 454
	case "cup":
		return amount * 0.5
	case "tbsp":
		return amount * 0.05
	case "tsp":
		return amount * 0.02
	default:
		return math.Min(amount*0.25, unpricedUnitCap)
	}
}

// EstimatePrice returns the approximate cost in USD of buying amount of unit
// of the named ingredient, rounded to cents.
func EstimatePrice(name string, amount float64, unit string) float64 {
	return roundCents(BasePrice(name) * unitMultiplier(amount, unit))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
