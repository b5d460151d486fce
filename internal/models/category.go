package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultIconColor is applied when a category is saved without a color.
const DefaultIconColor = "#007bff"

// MaxCategoryDepth is the deepest allowed category level; roots are level 1.
const MaxCategoryDepth = 3

// Category is a node in the catalog tree.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	ParentID  *int64    `db:"parent_id" json:"parent_id"`
	Priority  int       `db:"priority" json:"priority"`
	IconClass string    `db:"icon_class" json:"icon_class"`
	IconColor string    `db:"icon_color" json:"icon_color"`
	IconImage string    `db:"icon_image" json:"icon_image"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryRef is the short form used in breadcrumbs and suggestions.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (c *Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

// AdminCategoryRow is a category as listed in the back office.
type AdminCategoryRow struct {
	Category
	ParentName   *string       `db:"parent_name" json:"parent_name"`
	ProductCount int           `db:"product_count" json:"product_count"`
	Level        PriorityLevel `db:"-" json:"priority_level"`
	Icon         *IconInfo     `db:"-" json:"icon_info"`
}

// PriorityLevel classifies a category priority for display.
type PriorityLevel struct {
	Level string `json:"level"`
	Color string `json:"color"`
}

// PriorityPreset is a named shortcut value for the priority field.
type PriorityPreset struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// PriorityPresets are the quick values offered in the back office.
var PriorityPresets = []PriorityPreset{
	{Name: "TOP", Value: 0},
	{Name: "HIGH", Value: 1},
	{Name: "MID", Value: 5},
	{Name: "LOW", Value: 10},
}

// PriorityLevelOf maps a priority to its level: 0 TOP, 1-3 HIGH, 4-7 MID, otherwise LOW.
func PriorityLevelOf(priority int) PriorityLevel {
	switch {
	case priority <= 0:
		return PriorityLevel{Level: "TOP", Color: "#6f42c1"}
	case priority <= 3:
		return PriorityLevel{Level: "HIGH", Color: "#28a745"}
	case priority <= 7:
		return PriorityLevel{Level: "MID", Color: "#ffc107"}
	default:
		return PriorityLevel{Level: "LOW", Color: "#dc3545"}
	}
}

// IconInfo describes a FontAwesome class.
type IconInfo struct {
	Class         string `json:"class"`
	Type          string `json:"type"`
	TypeColor     string `json:"type_color"`
	Name          string `json:"name"`
	FormattedName string `json:"formatted_name"`
}

var iconTitle = cases.Title(language.Und)

// IconInfoOf returns nil for empty or non FontAwesome values.
func IconInfoOf(class string) *IconInfo {
	class = strings.TrimSpace(class)
	if class == "" || !strings.Contains(class, "fa-") {
		return nil
	}

	info := &IconInfo{Class: class, Type: "Solid", TypeColor: "#007bff"}
	switch {
	case strings.HasPrefix(class, "fab"):
		info.Type, info.TypeColor = "Brand", "#fd7e14"
	case strings.HasPrefix(class, "far"):
		info.Type, info.TypeColor = "Regular", "#6f42c1"
	}

	name := class
	if i := strings.LastIndex(class, "fa-"); i >= 0 {
		name = class[i+len("fa-"):]
	}
	info.Name = name
	info.FormattedName = iconTitle.String(strings.ReplaceAll(name, "-", " "))
	return info
}

// Decorate fills the derived display fields.
func (r *AdminCategoryRow) Decorate() {
	r.Level = PriorityLevelOf(r.Priority)
	r.Icon = IconInfoOf(r.IconClass)
}

// CategoryNode is a category with its subtree and product counts.
type CategoryNode struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	ParentID          *int64          `json:"parent_id"`
	Priority          int             `json:"priority"`
	IconClass         string          `json:"icon_class"`
	IconColor         string          `json:"icon_color"`
	IconImage         string          `json:"icon_image"`
	Level             int             `json:"level"`
	PriorityLevel     PriorityLevel   `json:"priority_level"`
	ProductCount      int             `json:"product_count"`
	TotalProductCount int             `json:"total_product_count"`
	Children          []*CategoryNode `json:"children"`
}

// HeaderCategory is a root category shown in the storefront header.
type HeaderCategory struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Priority    int           `json:"priority"`
	IconClass   string        `json:"icon_class"`
	IconColor   string        `json:"icon_color"`
	IconImage   string        `json:"icon_image"`
	HasChildren bool          `json:"has_children"`
	Children    []CategoryRef `json:"children"`
}

// HeaderCategories is the header navigation payload.
type HeaderCategories struct {
	Categories           []HeaderCategory `json:"header_categories"`
	TotalCategoriesCount int              `json:"total_categories_count"`
}
