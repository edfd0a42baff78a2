package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMetafield(t *testing.T) {
	tests := []struct {
		in, namespace, key string
	}{
		{"custom.link", "custom", "link"},
		{"shop.product_url", "shop", "product_url"},
		{"link", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			namespace, key := splitMetafield(tt.in)
			assert.Equal(t, tt.namespace, namespace)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestPublicationLimit(t *testing.T) {
	assert.Equal(t, 10, publicationLimit(nil))
	assert.Equal(t, 10, publicationLimit([]string{"Online Store", "Shop"}))

	many := make([]string, 12)
	assert.Equal(t, 12, publicationLimit(many))
}
