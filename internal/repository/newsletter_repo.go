package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// NewsletterRepository handles newsletter subscribers.
type NewsletterRepository struct {
	db *sqlx.DB
}

func NewNewsletterRepository(db *sqlx.DB) *NewsletterRepository {
	return &NewsletterRepository{db: db}
}

func (r *NewsletterRepository) GetByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	var s models.NewsletterSubscriber
	err := r.db.GetContext(ctx, &s,
		`SELECT id, email, is_active, created_at, updated_at FROM newsletter_subscribers WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Subscribe inserts email or reactivates an existing row.
func (r *NewsletterRepository) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	var s models.NewsletterSubscriber
	err := r.db.GetContext(ctx, &s, `
        INSERT INTO newsletter_subscribers (email) VALUES ($1)
        ON CONFLICT (email) DO UPDATE SET is_active = true, updated_at = NOW()
        RETURNING id, email, is_active, created_at, updated_at`, email)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Deactivate marks a subscriber inactive.
func (r *NewsletterRepository) Deactivate(ctx context.Context, email string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers SET is_active = false, updated_at = NOW() WHERE email = $1`, email))
}
