package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// Product list sort keys. Aliases mirror the storefront's query values.
var productSorts = map[string]string{
	"newest":     "p.created_at DESC",
	"oldest":     "p.created_at ASC",
	"price_asc":  "p.price ASC",
	"price_low":  "p.price ASC",
	"price_desc": "p.price DESC",
	"price_high": "p.price DESC",
	"name_asc":   "p.name ASC",
	"name_az":    "p.name ASC",
	"name_desc":  "p.name DESC",
	"name_za":    "p.name DESC",
}

// IsProductSort reports whether sort is a known sort key.
func IsProductSort(sort string) bool {
	_, ok := productSorts[sort]
	return ok
}

func productOrderBy(sort string) string {
	if clause, ok := productSorts[sort]; ok {
		return clause + ", p.id DESC"
	}
	return productSorts["newest"] + ", p.id DESC"
}

const productColumns = `p.id, p.category_id, p.name, p.slug, p.image, p.description, p.price, p.stock,
        p.available, p.created_at, p.updated_at, c.name AS category_name, c.slug AS category_slug`

const productFrom = ` FROM products p JOIN categories c ON c.id = p.category_id `

// ProductFilter narrows product listings. Zero values disable a filter.
type ProductFilter struct {
	Search      string
	SearchSlug  bool
	CategoryIDs []int64
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	InStock     bool
	Available   *bool
	StockLevel  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Sort        string
	Page        int
	PerPage     int
}

// where builds a WHERE clause with positional placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) arg(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern turns a search term into an ILIKE pattern that matches it literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func (f ProductFilter) where() *where {
	w := &where{}
	if f.Available != nil {
		w.add("p.available = " + w.arg(*f.Available))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := w.arg(containsPattern(s))
		cond := "(p.name ILIKE " + p + " OR p.description ILIKE " + p + " OR c.name ILIKE " + p
		if f.SearchSlug {
			cond += " OR p.slug ILIKE " + p
		}
		w.add(cond + ")")
	}
	if len(f.CategoryIDs) > 0 {
		w.add("p.category_id = ANY(" + w.arg(pq.Array(f.CategoryIDs)) + ")")
	}
	if f.MinPrice != nil {
		w.add("p.price >= " + w.arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		w.add("p.price <= " + w.arg(*f.MaxPrice))
	}
	if f.InStock {
		w.add("p.stock > 0")
	}
	switch f.StockLevel {
	case models.StockIn:
		w.add(fmt.Sprintf("p.stock > %d", models.LowStockThreshold))
	case models.StockLow:
		w.add(fmt.Sprintf("p.stock BETWEEN 1 AND %d", models.LowStockThreshold))
	case models.StockOut:
		w.add("p.stock = 0")
	}
	if f.CreatedFrom != nil {
		w.add("p.created_at >= " + w.arg(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		w.add("p.created_at < " + w.arg(*f.CreatedTo))
	}
	return w
}

// ProductRepository handles data access for products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns one page of products matching f and the total match count.
// Page begins at 1.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = 12
	}
	w := f.where()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1)`+productFrom+w.String(), w.args...); err != nil {
		return nil, 0, err
	}

	limit := w.arg(f.PerPage)
	offset := w.arg((f.Page - 1) * f.PerPage)
	q := `SELECT ` + productColumns + productFrom + w.String() +
		` ORDER BY ` + productOrderBy(f.Sort) + ` LIMIT ` + limit + ` OFFSET ` + offset

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, w.args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Newest returns the most recently created available products.
func (r *ProductRepository) Newest(ctx context.Context, limit int) ([]models.Product, error) {
	q := `SELECT ` + productColumns + productFrom + `WHERE p.available = true
        ORDER BY p.created_at DESC, p.id DESC LIMIT $1`
	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, limit); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+productFrom+`WHERE p.id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySlug returns a single product by slug regardless of availability.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+productFrom+`WHERE p.slug = $1`, slug); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns products by id ordered newest first. Empty ids return every product.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	q := `SELECT ` + productColumns + productFrom
	args := []interface{}{}
	if len(ids) > 0 {
		q += `WHERE p.id = ANY($1) `
		args = append(args, pq.Array(ids))
	}
	q += `ORDER BY p.created_at DESC, p.id DESC`

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, args...); err != nil {
		return nil, err
	}
	return products, nil
}

// Related returns available products of a category other than excludeID.
func (r *ProductRepository) Related(ctx context.Context, categoryID, excludeID int64, limit int) ([]models.Product, error) {
	q := `SELECT ` + productColumns + productFrom + `WHERE p.category_id = $1 AND p.id <> $2 AND p.available = true
        ORDER BY p.created_at DESC, p.id DESC LIMIT $3`
	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, categoryID, excludeID, limit); err != nil {
		return nil, err
	}
	return products, nil
}

// Suggest returns available products whose name matches term.
func (r *ProductRepository) Suggest(ctx context.Context, term string, limit int) ([]models.Product, error) {
	q := `SELECT ` + productColumns + productFrom + `WHERE p.available = true AND p.name ILIKE $1
        ORDER BY p.name ASC LIMIT $2`
	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, containsPattern(term), limit); err != nil {
		return nil, err
	}
	return products, nil
}

// ListAvailable returns every available product, used for search indexing and the sitemap.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]models.Product, error) {
	q := `SELECT ` + productColumns + productFrom + `WHERE p.available = true ORDER BY p.id`
	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q); err != nil {
		return nil, err
	}
	return products, nil
}

// AvailableCountsByCategory returns the number of available products per category.
func (r *ProductRepository) AvailableCountsByCategory(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		CategoryID int64 `db:"category_id"`
		Count      int   `db:"cnt"`
	}
	err := r.db.SelectContext(ctx, &rows, `
        SELECT category_id, COUNT(1) AS cnt FROM products
        WHERE available = true GROUP BY category_id`)
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Count
	}
	return counts, nil
}

// Stats returns catalog counters. Stock bands count available products only.
func (r *ProductRepository) Stats(ctx context.Context) (*models.ProductStats, error) {
	q := fmt.Sprintf(`
        SELECT
            COUNT(1) AS total_products,
            COUNT(1) FILTER (WHERE available) AS available_products,
            (SELECT COUNT(1) FROM categories) AS total_categories,
            COUNT(1) FILTER (WHERE available AND stock > %[1]d) AS in_stock,
            COUNT(1) FILTER (WHERE available AND stock BETWEEN 1 AND %[1]d) AS low_stock,
            COUNT(1) FILTER (WHERE available AND stock = 0) AS out_of_stock
        FROM products`, models.LowStockThreshold)
	var stats models.ProductStats
	if err := r.db.GetContext(ctx, &stats, q); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SlugExists reports whether slug is used by a product other than excludeID.
func (r *ProductRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`, slug, excludeID)
	return exists, err
}

// Create creates a new product.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := `INSERT INTO products (category_id, name, slug, image, description, price, stock, available)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		p.CategoryID,
		p.Name,
		p.Slug,
		p.Image,
		p.Description,
		p.Price,
		p.Stock,
		p.Available,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Update updates an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	query := `UPDATE products
              SET category_id = $1, name = $2, slug = $3, image = $4, description = $5,
                  price = $6, stock = $7, available = $8, updated_at = NOW()
              WHERE id = $9
              RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.CategoryID,
		p.Name,
		p.Slug,
		p.Image,
		p.Description,
		p.Price,
		p.Stock,
		p.Available,
		p.ID,
	).Scan(&p.UpdatedAt)
	return err
}

// ProductPatch holds inline edits; nil fields are left unchanged.
type ProductPatch struct {
	Price     *decimal.Decimal
	Stock     *int
	Available *bool
}

// Patch applies an inline edit in a single UPDATE.
func (r *ProductRepository) Patch(ctx context.Context, id int64, patch ProductPatch) error {
	w := &where{}
	sets := []string{"updated_at = NOW()"}
	if patch.Price != nil {
		sets = append(sets, "price = "+w.arg(*patch.Price))
	}
	if patch.Stock != nil {
		sets = append(sets, "stock = "+w.arg(*patch.Stock))
	}
	if patch.Available != nil {
		sets = append(sets, "available = "+w.arg(*patch.Available))
	}
	q := `UPDATE products SET ` + strings.Join(sets, ", ") + ` WHERE id = ` + w.arg(id)
	return expectOne(r.db.ExecContext(ctx, q, w.args...))
}

// SetAvailable updates the availability of several products at once.
func (r *ProductRepository) SetAvailable(ctx context.Context, ids []int64, available bool) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET available = $1, updated_at = NOW() WHERE id = ANY($2)`,
		available, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateImage stores the public URL of an uploaded product image.
func (r *ProductRepository) UpdateImage(ctx context.Context, id int64, url string) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE products SET image = $2, updated_at = NOW() WHERE id = $1`, id, url))
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id))
}

// expectOne converts a zero-row Exec into sql.ErrNoRows.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
