package domain_test

import (
	"testing"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestVariantLabel(t *testing.T) {
	sku := func(s string) *string { return &s }

	tests := []struct {
		name    string
		variant domain.Variant
		want    string
	}{
		{"NoSKU", domain.Variant{Title: "Large"}, "Large"},
		{"BlankSKU", domain.Variant{Title: "Large", SKU: sku("")}, "Large"},
		{"WhitespaceSKU", domain.Variant{Title: "Large", SKU: sku("  \t")}, "Large"},
		{"PaddedSKU", domain.Variant{Title: "Large", SKU: sku(" YK-1 ")}, "Large (SKU YK-1)"},
		{"DefaultTitle", domain.Variant{SKU: sku("YK-2")}, "Default (SKU YK-2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.variant.Label())
		})
	}
}

func TestCollectionMatches(t *testing.T) {
	c := domain.Collection{ID: 10, Handle: "yokumoku", Title: "YOKUMOKU"}

	assert.True(t, c.Matches("10"))
	assert.True(t, c.Matches("yokumoku"))
	assert.True(t, c.Matches("YOKUMOKU"))
	assert.False(t, c.Matches(""))
	assert.False(t, c.Matches("sale"))
}
