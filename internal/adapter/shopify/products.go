package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.CatalogFetcher = (*Client)(nil)

const productGIDPrefix = "gid://shopify/Product/"

// FetchProducts returns the full catalog enriched with collections,
// SEO fields, the link metafield and publication state.
// Any non 2xx response that survives retries fails the whole fetch.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "Client.FetchProducts"
	log := slog.With("op", op)

	raw, err := c.listProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: products: %w", op, err)
	}

	memberships, err := c.collectionMemberships(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: collections: %w", op, err)
	}

	details, err := c.productDetails(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: details: %w", op, err)
	}

	products := make([]domain.Product, 0, len(raw))
	for _, rp := range raw {
		p := toDomainProduct(rp)
		p.Collections = memberships[rp.ID]
		if node, ok := details[rp.ID]; ok {
			applyDetails(&p, node)
		}
		products = append(products, p)
	}

	log.Info("catalog fetched",
		"products", len(products), "collectionsMapped", len(memberships))
	return products, nil
}

func (c *Client) listProducts(ctx context.Context) ([]restProduct, error) {
	next := c.pageURL("/products.json", url.Values{
		"fields": {"id,title,handle,body_html,status,tags,variants,images"},
	})

	var products []restProduct
	for next != "" {
		var page productsPage
		link, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		products = append(products, page.Products...)
		next = link
	}
	return products, nil
}

// collectionMemberships maps product IDs to the collections containing them.
// Custom collections come first, then smart ones, each in API order.
func (c *Client) collectionMemberships(
	ctx context.Context,
) (map[int64][]domain.Collection, error) {
	var collections []restCollection

	next := c.pageURL("/custom_collections.json", url.Values{"fields": {"id,handle,title"}})
	for next != "" {
		var page customCollectionsPage
		link, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		collections = append(collections, page.Collections...)
		next = link
	}

	next = c.pageURL("/smart_collections.json", url.Values{"fields": {"id,handle,title"}})
	for next != "" {
		var page smartCollectionsPage
		link, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		collections = append(collections, page.Collections...)
		next = link
	}

	memberships := make(map[int64][]domain.Collection)
	for _, rc := range collections {
		coll := domain.Collection{ID: rc.ID, Handle: rc.Handle, Title: rc.Title}

		path := "/collections/" + strconv.FormatInt(rc.ID, 10) + "/products.json"
		next := c.pageURL(path, url.Values{"fields": {"id"}})
		for next != "" {
			var page collectionProductsPage
			link, err := c.getJSON(ctx, next, &page)
			if err != nil {
				return nil, err
			}
			for _, p := range page.Products {
				memberships[p.ID] = append(memberships[p.ID], coll)
			}
			next = link
		}
	}
	return memberships, nil
}

// productDetails loads the GraphQL-only fields, c.graphQLBatch products
// per query.
func (c *Client) productDetails(
	ctx context.Context, products []restProduct,
) (map[int64]productNode, error) {
	details := make(map[int64]productNode, len(products))

	for start := 0; start < len(products); start += c.graphQLBatch {
		end := min(start+c.graphQLBatch, len(products))

		ids := make([]string, 0, end-start)
		for _, p := range products[start:end] {
			ids = append(ids, productGIDPrefix+strconv.FormatInt(p.ID, 10))
		}

		var data nodesData
		err := c.graphQL(ctx, graphQLRequest{
			Query: productDetailsQuery,
			Variables: map[string]any{
				"ids":       ids,
				"namespace": c.linkNamespace,
				"key":       c.linkKey,
				"channels":  c.publications,
			},
		}, &data)
		if err != nil {
			return nil, err
		}

		for _, rawNode := range data.Nodes {
			if len(rawNode) == 0 || string(rawNode) == "null" {
				continue
			}
			var node productNode
			if err := json.Unmarshal(rawNode, &node); err != nil {
				return nil, fmt.Errorf("decode product node: %w", err)
			}
			id, err := strconv.ParseInt(strings.TrimPrefix(node.ID, productGIDPrefix), 10, 64)
			if err != nil {
				continue
			}
			details[id] = node
		}
	}
	return details, nil
}

func (c *Client) pageURL(path string, q url.Values) string {
	q.Set("limit", strconv.Itoa(maxPageSize))
	return c.baseURL + path + "?" + q.Encode()
}

func toDomainProduct(rp restProduct) domain.Product {
	p := domain.Product{
		ID:          rp.ID,
		Handle:      rp.Handle,
		Title:       rp.Title,
		Description: plainText(rp.BodyHTML),
		Tags:        splitTags(rp.Tags),
		Status:      domain.ProductStatus(strings.ToLower(rp.Status)),
	}

	for _, rv := range rp.Variants {
		p.Variants = append(p.Variants, toDomainVariant(rp.ID, rv))
	}
	for _, img := range rp.Images {
		p.Images = append(p.Images, domain.ProductImage{ID: img.ID, URL: img.Src})
	}
	return p
}

func toDomainVariant(productID int64, rv restVariant) domain.Variant {
	v := domain.Variant{
		ID:     rv.ID,
		Title:  rv.Title,
		SKU:    rv.SKU,
		Weight: rv.Weight,
	}

	if rv.Price != nil && strings.TrimSpace(*rv.Price) != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(*rv.Price))
		if err != nil {
			slog.Warn("unparsable variant price",
				"productID", productID, "variantID", rv.ID, "price", *rv.Price)
		} else {
			v.Price = &price
		}
	}

	if rv.InventoryManagement != nil && *rv.InventoryManagement != "" {
		v.InventoryTracked = true
	}
	return v
}

func applyDetails(p *domain.Product, node productNode) {
	p.SEOTitle = deref(node.SEO.Title)
	p.SEODescription = deref(node.SEO.Description)

	if node.Metafield != nil {
		value := node.Metafield.Value
		p.LinkMetafield = &value
	}

	for _, edge := range node.ResourcePublications.Edges {
		p.Publications = append(p.Publications, domain.Publication{
			Channel:   edge.Node.Publication.Name,
			Published: edge.Node.IsPublished,
		})
	}
}

// plainText strips markup from a product body.
func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
