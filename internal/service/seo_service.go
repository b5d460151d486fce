package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// StaticPage is the metadata of an informational page.
type StaticPage struct {
	Page            string `json:"page"`
	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
}

var staticPages = []StaticPage{
	{"about", "Haqqımızda", "drop.az haqqında məlumat - missiyamız və dəyərlərimiz"},
	{"contact", "Əlaqə", "drop.az ilə əlaqə saxlayın - telefon, e-mail və ünvan"},
	{"delivery", "Çatdırılma", "drop.az çatdırılma şərtləri və qiymətləri"},
	{"returns", "Qaytarma", "drop.az qaytarma şərtləri və prosedurları"},
	{"payment", "Ödəniş", "drop.az ödəniş üsulları və təhlükəsizlik"},
	{"faq", "FAQ", "drop.az tez-tez verilən suallar və cavablar"},
	{"warranty", "Zəmanət", "drop.az zəmanət şərtləri və xidmətləri"},
	{"terms", "İstifadə Şərtləri", "drop.az istifadə şərtləri və qaydalar"},
	{"privacy", "Məxfilik Siyasəti", "drop.az məxfilik siyasəti və şəxsi məlumatların qorunması"},
	{"cookies", "Çerez Siyasəti", "drop.az çerez siyasəti və istifadəsi"},
}

// StaticPages lists every informational page in display order.
func StaticPages() []StaticPage {
	out := make([]StaticPage, len(staticPages))
	copy(out, staticPages)
	return out
}

// FindStaticPage looks a page up by its path segment.
func FindStaticPage(page string) (StaticPage, bool) {
	for _, p := range staticPages {
		if p.Page == page {
			return p, true
		}
	}
	return StaticPage{}, false
}

// SitemapSource provides the entries of the sitemap.
type SitemapSource interface {
	GetAll(ctx context.Context) ([]models.Category, error)
}

// AvailableProducts lists products that are for sale.
type AvailableProducts interface {
	ListAvailable(ctx context.Context) ([]models.Product, error)
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SEOService renders sitemap.xml and robots.txt.
type SEOService struct {
	categories SitemapSource
	products   AvailableProducts
	siteURL    string
}

func NewSEOService(categories SitemapSource, products AvailableProducts, siteURL string) *SEOService {
	return &SEOService{categories: categories, products: products, siteURL: strings.TrimRight(siteURL, "/")}
}

// Sitemap returns the XML sitemap with the home page, static pages, categories and available products.
func (s *SEOService) Sitemap(ctx context.Context) ([]byte, error) {
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.products.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, sitemapURL{Loc: s.siteURL + "/", ChangeFreq: "daily", Priority: "1.0"})
	for _, p := range staticPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: s.siteURL + "/" + p.Page + "/", ChangeFreq: "monthly", Priority: "0.3"})
	}
	for _, c := range categories {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/category/%s/", s.siteURL, c.Slug),
			LastMod:    lastMod(c.UpdatedAt),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}
	for _, p := range products {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/product/%s/", s.siteURL, p.Slug),
			LastMod:    lastMod(p.UpdatedAt),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// Robots returns robots.txt pointing crawlers at the sitemap.
func (s *SEOService) Robots() string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("\n")
	b.WriteString("Sitemap: " + s.siteURL + "/sitemap.xml\n")
	return b.String()
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
