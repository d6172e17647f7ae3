package models

// Category is a closed spending-category enum. The mapping tables are plain
// data (pattern -> Category); free-text categories are not representable.
type Category string

const (
	CategoryFoodDining     Category = "Food & Dining"
	CategoryGroceries      Category = "Groceries"
	CategoryTransportation Category = "Transportation"
	CategoryBillsUtilities Category = "Bills & Utilities"
	CategoryShopping       Category = "Shopping"
	CategoryHealth         Category = "Health"
	CategoryEntertainment  Category = "Entertainment"
	CategoryTravel         Category = "Travel"
	CategoryEducation      Category = "Education"
	CategoryFeesCharges    Category = "Fees & Charges"
	CategoryIncome         Category = "Income"
	CategoryTransfers      Category = "Transfers"
	CategoryUncategorized  Category = "Uncategorized"
)

// Categories lists every valid category, Uncategorized last.
var Categories = []Category{
	CategoryFoodDining,
	CategoryGroceries,
	CategoryTransportation,
	CategoryBillsUtilities,
	CategoryShopping,
	CategoryHealth,
	CategoryEntertainment,
	CategoryTravel,
	CategoryEducation,
	CategoryFeesCharges,
	CategoryIncome,
	CategoryTransfers,
	CategoryUncategorized,
}

// ParseCategory validates a user-supplied category label. Unknown labels
// map to Uncategorized with ok=false rather than creating a new category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryUncategorized, false
}
