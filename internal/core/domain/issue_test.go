package domain_test

import (
	"testing"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range domain.Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, domain.Category("RETIRED").Valid())
	assert.False(t, domain.Category("").Valid())
}
