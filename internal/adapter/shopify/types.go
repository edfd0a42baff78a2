package shopify

import "encoding/json"

// REST payloads

type (
	productsPage struct {
		Products []restProduct `json:"products"`
	}

	restProduct struct {
		ID       int64         `json:"id"`
		Title    string        `json:"title"`
		Handle   string        `json:"handle"`
		BodyHTML string        `json:"body_html"`
		Status   string        `json:"status"`
		Tags     string        `json:"tags"`
		Variants []restVariant `json:"variants"`
		Images   []restImage   `json:"images"`
	}

	restVariant struct {
		ID                  int64    `json:"id"`
		Title               string   `json:"title"`
		SKU                 *string  `json:"sku"`
		Price               *string  `json:"price"`
		Weight              *float64 `json:"weight"`
		InventoryManagement *string  `json:"inventory_management"`
	}

	restImage struct {
		ID  int64  `json:"id"`
		Src string `json:"src"`
	}

	restCollection struct {
		ID     int64  `json:"id"`
		Handle string `json:"handle"`
		Title  string `json:"title"`
	}

	customCollectionsPage struct {
		Collections []restCollection `json:"custom_collections"`
	}

	smartCollectionsPage struct {
		Collections []restCollection `json:"smart_collections"`
	}

	collectionProductsPage struct {
		Products []struct {
			ID int64 `json:"id"`
		} `json:"products"`
	}
)

// GraphQL payloads

type (
	graphQLRequest struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables,omitempty"`
	}

	graphQLResponse[T any] struct {
		Data   T              `json:"data"`
		Errors []graphQLError `json:"errors,omitempty"`
	}

	graphQLError struct {
		Message string `json:"message"`
	}

	nodesData struct {
		Nodes []json.RawMessage `json:"nodes"`
	}

	productNode struct {
		ID  string `json:"id"`
		SEO struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
		} `json:"seo"`
		Metafield *struct {
			Value string `json:"value"`
		} `json:"metafield"`
		ResourcePublications struct {
			Edges []struct {
				Node struct {
					IsPublished bool `json:"isPublished"`
					Publication struct {
						Name string `json:"name"`
					} `json:"publication"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"resourcePublications"`
	}
)

const productDetailsQuery = `query productDetails($ids: [ID!]!, $namespace: String!, $key: String!, $channels: Int!) {
  nodes(ids: $ids) {
    ... on Product {
      id
      seo { title description }
      metafield(namespace: $namespace, key: $key) { value }
      resourcePublications(first: $channels) {
        edges { node { isPublished publication { name } } }
      }
    }
  }
}`
