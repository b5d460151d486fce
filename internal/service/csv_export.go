package service

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/GTDGit/dropaz_api/internal/models"
)

var categoryCSVHeader = []string{"id", "name", "slug", "parent", "priority", "icon_class", "icon_color", "icon_image", "created_at", "updated_at"}

var productCSVHeader = []string{"id", "category", "name", "slug", "image", "description", "price", "stock", "available", "created_at", "updated_at"}

// WriteCategoriesCSV writes one header row and one row per category.
func WriteCategoriesCSV(w io.Writer, categories []models.Category) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(categoryCSVHeader); err != nil {
		return err
	}
	for _, c := range categories {
		parent := ""
		if c.ParentID != nil {
			parent = strconv.FormatInt(*c.ParentID, 10)
		}
		row := []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Slug,
			parent,
			strconv.Itoa(c.Priority),
			c.IconClass,
			c.IconColor,
			c.IconImage,
			c.CreatedAt.Format(time.RFC3339),
			c.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProductsCSV writes one header row and one row per product.
func WriteProductsCSV(w io.Writer, products []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(productCSVHeader); err != nil {
		return err
	}
	for _, p := range products {
		row := []string{
			strconv.FormatInt(p.ID, 10),
			p.CategoryName,
			p.Name,
			p.Slug,
			p.Image,
			p.Description,
			p.Price.StringFixed(2),
			strconv.Itoa(p.Stock),
			strconv.FormatBool(p.Available),
			p.CreatedAt.Format(time.RFC3339),
			p.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
