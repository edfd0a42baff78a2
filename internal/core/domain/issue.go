package domain

type Category string

const (
	CategoryRequiredField  Category = "REQUIRED_FIELD"
	CategoryTranslation    Category = "TRANSLATION"
	CategoryMetafield      Category = "METAFIELD"
	CategorySalesSetting   Category = "SALES_SETTING"
	CategoryCategorization Category = "CATEGORIZATION"
	CategoryTagLanguage    Category = "TAG_LANGUAGE"
)

// Categories lists every issue category in canonical report order.
var Categories = []Category{
	CategoryRequiredField,
	CategoryTranslation,
	CategoryMetafield,
	CategorySalesSetting,
	CategoryCategorization,
	CategoryTagLanguage,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Issue struct {
	Category    Category
	Description string
	Detail      string
}

// A BrandRule maps a brand keyword to the collections
// its products are expected to belong to.
type BrandRule struct {
	Brand       string
	Collections []string
}
