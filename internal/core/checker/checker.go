// Package checker evaluates catalog products against the audit rule set.
//
// Evaluation is pure: the same product and brand rules always produce the
// same issues in the same order. Rules never suppress each other.
package checker

import (
	"fmt"
	"strings"

	"github.com/niksmo/catalog-audit/internal/core/domain"
)

const (
	DefaultLinkMetafield = "custom.link"
	DefaultDetailLimit   = 50

	noVariants = "no variants"
)

type Policy struct {
	// RequiredChannels must all be published. When empty every channel
	// the product is known on is required.
	RequiredChannels []string

	// LinkMetafield is the namespace.key shown in metafield issues.
	LinkMetafield string

	// FlagUnbranded reports products whose title and tags match no brand rule.
	FlagUnbranded bool

	// DetailLimit caps quoted text in issue details, in runes.
	DetailLimit int
}

type Checker struct {
	policy Policy
}

func New(policy Policy) Checker {
	if policy.LinkMetafield == "" {
		policy.LinkMetafield = DefaultLinkMetafield
	}
	if policy.DetailLimit <= 0 {
		policy.DetailLimit = DefaultDetailLimit
	}
	return Checker{policy}
}

// Check returns every issue found on p.
func (c Checker) Check(p domain.Product, rules []domain.BrandRule) []domain.Issue {
	var issues []domain.Issue
	issues = c.checkRequiredFields(issues, p)
	issues = c.checkTranslation(issues, p)
	issues = c.checkMetafield(issues, p)
	issues = c.checkSalesSetting(issues, p)
	issues = c.checkCategorization(issues, p, rules)
	issues = c.checkTags(issues, p)
	return issues
}

func (c Checker) checkRequiredFields(
	issues []domain.Issue, p domain.Product,
) []domain.Issue {
	const (
		weightDesc = "weight is missing or zero"
		priceDesc  = "price is missing or zero"
		imageDesc  = "product has no images"
		skuDesc    = "SKU is blank"
	)

	if len(p.Variants) == 0 {
		issues = append(issues,
			requiredField(weightDesc, noVariants),
			requiredField(priceDesc, noVariants),
		)
	}

	for _, v := range p.Variants {
		if v.Weight == nil || *v.Weight == 0 {
			issues = append(issues, requiredField(weightDesc, variantDetail(v)))
		}
	}

	for _, v := range p.Variants {
		if v.Price == nil || v.Price.IsZero() {
			issues = append(issues, requiredField(priceDesc, variantDetail(v)))
		}
	}

	if len(p.Images) == 0 {
		issues = append(issues, requiredField(imageDesc, ""))
	}

	if len(p.Variants) == 0 {
		issues = append(issues, requiredField(skuDesc, noVariants))
	}

	for _, v := range p.Variants {
		if v.SKU == nil || strings.TrimSpace(*v.SKU) == "" {
			issues = append(issues, requiredField(skuDesc, variantDetail(v)))
		}
	}

	return issues
}

func (c Checker) checkTranslation(
	issues []domain.Issue, p domain.Product,
) []domain.Issue {
	fields := []struct {
		name  string
		value string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"SEO title", p.SEOTitle},
		{"SEO description", p.SEODescription},
	}

	for _, f := range fields {
		if !ContainsKana(f.value) {
			continue
		}
		issues = append(issues, domain.Issue{
			Category:    domain.CategoryTranslation,
			Description: f.name + " contains Japanese text",
			Detail:      truncate(firstKanaRun(f.value), c.policy.DetailLimit),
		})
	}
	return issues
}

func (c Checker) checkMetafield(
	issues []domain.Issue, p domain.Product,
) []domain.Issue {
	if p.LinkMetafield != nil && strings.TrimSpace(*p.LinkMetafield) != "" {
		return issues
	}
	return append(issues, domain.Issue{
		Category:    domain.CategoryMetafield,
		Description: "product link metafield is empty",
		Detail:      "missing " + c.policy.LinkMetafield,
	})
}

func (c Checker) checkSalesSetting(
	issues []domain.Issue, p domain.Product,
) []domain.Issue {
	if missing := c.unpublishedChannels(p); len(missing) != 0 {
		issues = append(issues, domain.Issue{
			Category:    domain.CategorySalesSetting,
			Description: "not published on every sales channel",
			Detail:      "missing channels: " + strings.Join(missing, ", "),
		})
	}

	var tracked []string
	for _, v := range p.Variants {
		if v.InventoryTracked {
			tracked = append(tracked, v.Label())
		}
	}
	if len(tracked) != 0 {
		issues = append(issues, domain.Issue{
			Category:    domain.CategorySalesSetting,
			Description: "inventory tracking is enabled",
			Detail:      "variants: " + strings.Join(tracked, ", "),
		})
	}

	if p.Status == domain.StatusDraft {
		issues = append(issues, domain.Issue{
			Category:    domain.CategorySalesSetting,
			Description: "product is a draft",
			Detail:      "status: " + string(p.Status),
		})
	}
	return issues
}

func (c Checker) unpublishedChannels(p domain.Product) (missing []string) {
	if len(c.policy.RequiredChannels) == 0 {
		for _, pub := range p.Publications {
			if !pub.Published {
				missing = append(missing, pub.Channel)
			}
		}
		return missing
	}

	published := make(map[string]bool, len(p.Publications))
	for _, pub := range p.Publications {
		published[pub.Channel] = published[pub.Channel] || pub.Published
	}
	for _, ch := range c.policy.RequiredChannels {
		if !published[ch] {
			missing = append(missing, ch)
		}
	}
	return missing
}

func (c Checker) checkCategorization(
	issues []domain.Issue, p domain.Product, rules []domain.BrandRule,
) []domain.Issue {
	rule, ok := matchBrand(p, rules)
	if !ok {
		if !c.policy.FlagUnbranded {
			return issues
		}
		return append(issues, domain.Issue{
			Category:    domain.CategoryCategorization,
			Description: "title matches no known brand",
			Detail:      truncate(p.Title, c.policy.DetailLimit),
		})
	}

	if len(rule.Collections) == 0 || inAnyCollection(p, rule.Collections) {
		return issues
	}

	current := "none"
	if len(p.Collections) != 0 {
		titles := make([]string, len(p.Collections))
		for i, col := range p.Collections {
			titles[i] = col.Title
		}
		current = strings.Join(titles, ", ")
	}

	return append(issues, domain.Issue{
		Category:    domain.CategoryCategorization,
		Description: "not in the brand collection",
		Detail: fmt.Sprintf(
			"brand %s expects %s, current: %s",
			rule.Brand, strings.Join(rule.Collections, " or "), current,
		),
	})
}

func (c Checker) checkTags(
	issues []domain.Issue, p domain.Product,
) []domain.Issue {
	for _, tag := range p.Tags {
		if !ContainsKana(tag) {
			continue
		}
		issues = append(issues, domain.Issue{
			Category:    domain.CategoryTagLanguage,
			Description: "tag contains Japanese text",
			Detail:      "tag: " + tag,
		})
	}
	return issues
}

// matchBrand returns the first rule whose brand is a case sensitive
// substring of the product title or one of its tags.
func matchBrand(
	p domain.Product, rules []domain.BrandRule,
) (domain.BrandRule, bool) {
	for _, r := range rules {
		if r.Brand == "" {
			continue
		}
		if strings.Contains(p.Title, r.Brand) {
			return r, true
		}
		for _, tag := range p.Tags {
			if strings.Contains(tag, r.Brand) {
				return r, true
			}
		}
	}
	return domain.BrandRule{}, false
}

func inAnyCollection(p domain.Product, idents []string) bool {
	for _, ident := range idents {
		for _, col := range p.Collections {
			if col.Matches(ident) {
				return true
			}
		}
	}
	return false
}

func requiredField(desc, detail string) domain.Issue {
	return domain.Issue{
		Category:    domain.CategoryRequiredField,
		Description: desc,
		Detail:      detail,
	}
}

func variantDetail(v domain.Variant) string {
	return "variant: " + v.Label()
}
