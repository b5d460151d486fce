package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/dropaz_api/internal/models"
)

const categoryColumns = `id, name, slug, parent_id, priority, icon_class, icon_color, icon_image, created_at, updated_at`

// CategoryRepository handles data access for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetAll returns every category ordered by priority then name.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.db.SelectContext(ctx, &categories, `SELECT `+categoryColumns+` FROM categories ORDER BY priority, name`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// GetByID returns a single category by id.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	if err := r.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetBySlug returns a single category by slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug); err != nil {
		return nil, err
	}
	return &c, nil
}

// Suggest returns categories whose name matches term.
func (r *CategoryRepository) Suggest(ctx context.Context, term string, limit int) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.db.SelectContext(ctx, &categories,
		`SELECT `+categoryColumns+` FROM categories WHERE name ILIKE $1 ORDER BY priority, name LIMIT $2`,
		containsPattern(term), limit)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// AdminCategoryFilter narrows the back office category list.
// RootOnly selects top level categories; ParentID selects children of one parent.
type AdminCategoryFilter struct {
	ParentID *int64
	RootOnly bool
	Search   string
	Page     int
	PerPage  int
}

// AdminList returns a page of categories with parent names and available product counts.
func (r *CategoryRepository) AdminList(ctx context.Context, f AdminCategoryFilter) ([]models.AdminCategoryRow, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = 20
	}

	w := &where{}
	switch {
	case f.RootOnly:
		w.add("c.parent_id IS NULL")
	case f.ParentID != nil:
		w.add("c.parent_id = " + w.arg(*f.ParentID))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := w.arg(containsPattern(s))
		w.add("(c.name ILIKE " + p + " OR c.slug ILIKE " + p + ")")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM categories c`+w.String(), w.args...); err != nil {
		return nil, 0, err
	}

	limit := w.arg(f.PerPage)
	offset := w.arg((f.Page - 1) * f.PerPage)
	q := `SELECT c.id, c.name, c.slug, c.parent_id, c.priority, c.icon_class, c.icon_color, c.icon_image,
            c.created_at, c.updated_at, parent.name AS parent_name,
            (SELECT COUNT(1) FROM products p WHERE p.category_id = c.id AND p.available = true) AS product_count
        FROM categories c LEFT JOIN categories parent ON parent.id = c.parent_id` + w.String() +
		` ORDER BY c.priority, c.name LIMIT ` + limit + ` OFFSET ` + offset

	rows := []models.AdminCategoryRow{}
	if err := r.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, err
	}
	for i := range rows {
		rows[i].Decorate()
	}
	return rows, total, nil
}

// GetByIDs returns categories by id ordered by priority and name. Empty ids return every category.
func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories`
	args := []interface{}{}
	if len(ids) > 0 {
		q += ` WHERE id = ANY($1)`
		args = append(args, pq.Array(ids))
	}
	q += ` ORDER BY priority, name`

	categories := []models.Category{}
	if err := r.db.SelectContext(ctx, &categories, q, args...); err != nil {
		return nil, err
	}
	return categories, nil
}

// SlugExists reports whether slug is used by a category other than excludeID.
func (r *CategoryRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`, slug, excludeID)
	return exists, err
}

// Create creates a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	query := `INSERT INTO categories (name, slug, parent_id, priority, icon_class, icon_color, icon_image)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, query,
		c.Name, c.Slug, c.ParentID, c.Priority, c.IconClass, c.IconColor, c.IconImage,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update updates an existing category.
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	query := `UPDATE categories
              SET name = $1, slug = $2, parent_id = $3, priority = $4,
                  icon_class = $5, icon_color = $6, icon_image = $7, updated_at = NOW()
              WHERE id = $8
              RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, query,
		c.Name, c.Slug, c.ParentID, c.Priority, c.IconClass, c.IconColor, c.IconImage, c.ID,
	).Scan(&c.UpdatedAt)
}

// UpdatePriority sets the priority of one category.
func (r *CategoryRepository) UpdatePriority(ctx context.Context, id int64, priority int) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE categories SET priority = $2, updated_at = NOW() WHERE id = $1`, id, priority))
}

// BulkUpdatePriority sets the same priority on several categories.
func (r *CategoryRepository) BulkUpdatePriority(ctx context.Context, ids []int64, priority int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET priority = $1, updated_at = NOW() WHERE id = ANY($2)`, priority, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateIconImage stores the public URL of an uploaded icon image.
func (r *CategoryRepository) UpdateIconImage(ctx context.Context, id int64, url string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE categories SET icon_image = $2, updated_at = NOW() WHERE id = $1`, id, url))
}

// Delete removes a category; children and products cascade.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id))
}
