package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	StatusActive   ProductStatus = "active"
	StatusDraft    ProductStatus = "draft"
	StatusArchived ProductStatus = "archived"
)

type (
	// A Product is a catalog record as seen by the checker.
	//
	// Optional attributes are pointers: nil means the catalog did not
	// return the field at all, which is not the same as a zero value.
	Product struct {
		ID             int64
		Handle         string
		Title          string
		Description    string
		SEOTitle       string
		SEODescription string
		Tags           []string
		Variants       []Variant
		Images         []ProductImage
		LinkMetafield  *string
		Publications   []Publication
		Status         ProductStatus
		Collections    []Collection
	}

	Variant struct {
		ID               int64
		Title            string
		SKU              *string
		Weight           *float64
		Price            *decimal.Decimal
		InventoryTracked bool
	}

	ProductImage struct {
		ID  int64
		URL string
	}

	// A Publication is the product state on a single sales channel.
	Publication struct {
		Channel   string
		Published bool
	}

	Collection struct {
		ID     int64
		Handle string
		Title  string
	}
)

// Matches reports whether ident refers to the collection by ID, handle or title.
func (c Collection) Matches(ident string) bool {
	if ident == "" {
		return false
	}
	return ident == c.Title || ident == c.Handle ||
		ident == strconv.FormatInt(c.ID, 10)
}

// Label returns a short human readable variant reference.
func (v Variant) Label() string {
	title := v.Title
	if title == "" {
		title = "Default"
	}
	if v.SKU == nil {
		return title
	}
	sku := strings.TrimSpace(*v.SKU)
	if sku == "" {
		return title
	}
	return title + " (SKU " + sku + ")"
}
