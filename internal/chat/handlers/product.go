package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// ===================================
// Product handler (product_query)
// ===================================

// Product is the catalog's view of an item.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	ProductType string   `json:"product_type"`
	Price       float64  `json:"price"`
	Sizes       []string `json:"sizes,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	InStock     bool     `json:"in_stock"`
	Rating      float64  `json:"rating"`
}

// CatalogQuery carries the focus filters a product search runs under.
type CatalogQuery struct {
	Text        string
	Brand       string
	ProductType string
	Size        string
	Color       string
	MaxPrice    float64
	MaxResults  int
}

// Catalog is the product search capability. Real deployments back this with a
// vector-search product index; the core only depends on this interface.
type Catalog interface {
	Search(ctx context.Context, q CatalogQuery) ([]Product, error)
}

type ProductHandler struct {
	catalog Catalog
}

func NewProductHandler(catalog Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

func (h *ProductHandler) Handle(ctx context.Context, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error) {
	q := queryFromFocus(message, focus)

	products, err := h.catalog.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	if len(products) == 0 {
		return &model.HandlerResult{
			Reply: "I couldn't find anything matching that. Want to try a different brand or loosen the price range?",
		}, nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("I found %d option(s) for you:\n", len(products)))
	for i, p := range products {
		stock := "in stock"
		if !p.InStock {
			stock = "out of stock"
		}
		b.WriteString(fmt.Sprintf("%d. %s - $%.2f (%s)\n", i+1, p.Name, p.Price, stock))
	}
	b.WriteString("Would you like details on any of these, or should I narrow it down further?")

	return &model.HandlerResult{
		Reply:       strings.TrimRight(b.String(), "\n"),
		SlotUpdates: map[string]string{"last_product_id": products[0].ID},
	}, nil
}

// queryFromFocus turns accumulated focus filters into a catalog query.
func queryFromFocus(message string, focus model.FocusState) CatalogQuery {
	q := CatalogQuery{
		Text:        message,
		Brand:       focus.Filters["brand"],
		ProductType: focus.Filters["product_type"],
		Size:        focus.Filters["size"],
		Color:       focus.Filters["color"],
		MaxResults:  5,
	}
	if raw, ok := focus.Filters["max_price"]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			q.MaxPrice = v
		}
	}
	return q
}

// ===================================
// Mock catalog
// ===================================

// MockCatalog searches a fixed inventory. It stands in for the product index
// during tests and demos.
type MockCatalog struct{}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{}
}

func (c *MockCatalog) Search(ctx context.Context, q CatalogQuery) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	max := q.MaxResults
	if max <= 0 {
		max = 5
	}

	var out []Product
	for _, p := range MockProducts {
		if !matches(p, q) {
			continue
		}
		out = append(out, p)
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

func matches(p Product, q CatalogQuery) bool {
	if q.Brand != "" && !strings.EqualFold(p.Brand, q.Brand) {
		return false
	}
	if q.ProductType != "" && !strings.EqualFold(p.ProductType, q.ProductType) {
		return false
	}
	if q.MaxPrice > 0 && p.Price > q.MaxPrice {
		return false
	}
	if q.Size != "" && len(p.Sizes) > 0 && !containsFold(p.Sizes, q.Size) {
		return false
	}
	if q.Color != "" && len(p.Colors) > 0 && !containsFold(p.Colors, q.Color) {
		return false
	}
	return true
}

func containsFold(vals []string, want string) bool {
	for _, v := range vals {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

var MockProducts = []Product{
	{
		ID:          "PROD-001",
		Name:        "Nike Air Max 270",
		Brand:       "Nike",
		Category:    "Footwear",
		ProductType: "running_shoes",
		Price:       150.00,
		Sizes:       []string{"7", "8", "9", "10", "11", "12"},
		Colors:      []string{"black", "white", "red"},
		InStock:     true,
		Rating:      4.5,
	},
	{
		ID:          "PROD-002",
		Name:        "Nike Pegasus 41",
		Brand:       "Nike",
		Category:    "Footwear",
		ProductType: "running_shoes",
		Price:       139.99,
		Sizes:       []string{"8", "9", "10", "11"},
		Colors:      []string{"blue", "black"},
		InStock:     true,
		Rating:      4.6,
	},
	{
		ID:          "PROD-003",
		Name:        "Adidas Ultraboost 24",
		Brand:       "Adidas",
		Category:    "Footwear",
		ProductType: "running_shoes",
		Price:       180.00,
		Sizes:       []string{"7", "8", "9", "10", "11"},
		Colors:      []string{"white", "black"},
		InStock:     false,
		Rating:      4.4,
	},
	{
		ID:          "PROD-004",
		Name:        "iPhone 15 Pro - Blue Titanium",
		Brand:       "Apple",
		Category:    "Electronics",
		ProductType: "phone",
		Price:       999.00,
		InStock:     true,
		Rating:      4.8,
	},
	{
		ID:          "PROD-005",
		Name:        "Samsung Galaxy S24 Ultra",
		Brand:       "Samsung",
		Category:    "Electronics",
		ProductType: "phone",
		Price:       1199.00,
		InStock:     true,
		Rating:      4.7,
	},
	{
		ID:          "PROD-006",
		Name:        "Sony WH-1000XM5",
		Brand:       "Sony",
		Category:    "Electronics",
		ProductType: "headphones",
		Price:       349.00,
		Colors:      []string{"black", "silver"},
		InStock:     true,
		Rating:      4.7,
	},
	{
		ID:          "PROD-007",
		Name:        "Dell XPS 13",
		Brand:       "Dell",
		Category:    "Electronics",
		ProductType: "laptop",
		Price:       1099.00,
		InStock:     true,
		Rating:      4.5,
	},
}

var _ Catalog = (*MockCatalog)(nil)
