package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the highest stock still reported as low.
const LowStockThreshold = 5

// Stock status keys.
const (
	StockIn  = "in_stock"
	StockLow = "low_stock"
	StockOut = "out_of_stock"
)

// Product represents a sellable item in the catalog.
// Fields are tagged for both DB scanning and JSON serialization.
type Product struct {
	ID          int64           `db:"id" json:"id"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	Name        string          `db:"name" json:"name"`
	Slug        string          `db:"slug" json:"slug"`
	Image       string          `db:"image" json:"image"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Available   bool            `db:"available" json:"available"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`

	// Joined from categories
	CategoryName string `db:"category_name" json:"category_name"`
	CategorySlug string `db:"category_slug" json:"category_slug"`
}

// StockStatus is the display badge for a stock level.
type StockStatus struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// StockStatusOf maps a stock count to its badge.
func StockStatusOf(stock int) StockStatus {
	switch {
	case stock <= 0:
		return StockStatus{Key: StockOut, Label: "Bitib"}
	case stock <= LowStockThreshold:
		return StockStatus{Key: StockLow, Label: "Az qalıb"}
	default:
		return StockStatus{Key: StockIn, Label: "Stokda var"}
	}
}

// IsLowStock reports whether stock sits in the low band.
func (p *Product) IsLowStock() bool {
	return StockStatusOf(p.Stock).Key == StockLow
}

// ProductView is a product with its derived stock badge.
type ProductView struct {
	Product
	StockStatus StockStatus `json:"stock_status"`
}

func (p Product) View() ProductView {
	return ProductView{Product: p, StockStatus: StockStatusOf(p.Stock)}
}

// Views converts a list of products.
func Views(products []Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, p.View())
	}
	return out
}

// ProductSuggestion is a search suggestion entry.
type ProductSuggestion struct {
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Category string          `json:"category"`
}

// ProductStats are the storefront counters.
type ProductStats struct {
	TotalProducts     int `db:"total_products" json:"total_products"`
	AvailableProducts int `db:"available_products" json:"available_products"`
	TotalCategories   int `db:"total_categories" json:"total_categories"`
	InStock           int `db:"in_stock" json:"in_stock"`
	LowStock          int `db:"low_stock" json:"low_stock"`
	OutOfStock        int `db:"out_of_stock" json:"out_of_stock"`
}
