package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// SubscriberStore is the newsletter persistence.
type SubscriberStore interface {
	GetByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	Deactivate(ctx context.Context, email string) error
}

// WelcomeMailer sends the subscription confirmation.
type WelcomeMailer interface {
	SendNewsletterWelcome(ctx context.Context, to, unsubscribeURL string) error
}

type NewsletterService struct {
	subscribers SubscriberStore
	mailer      WelcomeMailer
	secret      string
	siteURL     string
	sendAsync   func(func())
}

// NewNewsletterService constructs the service. mailer may be nil.
func NewNewsletterService(subscribers SubscriberStore, mailer WelcomeMailer, secret, siteURL string) *NewsletterService {
	return &NewsletterService{
		subscribers: subscribers,
		mailer:      mailer,
		secret:      secret,
		siteURL:     strings.TrimRight(siteURL, "/"),
		sendAsync:   func(fn func()) { go fn() },
	}
}

// Subscribe stores email. It returns ErrAlreadySubscribed for an active subscriber.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, utils.ErrInvalidEmail
	}

	existing, err := s.subscribers.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil && existing.IsActive {
		return existing, utils.ErrAlreadySubscribed
	}

	sub, err := s.subscribers.Subscribe(ctx, email)
	if err != nil {
		return nil, err
	}
	log.Info().Str("email", email).Msg("Newsletter subscription stored")

	if s.mailer != nil {
		link := s.UnsubscribeURL(email)
		s.sendAsync(func() {
			mailCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendNewsletterWelcome(mailCtx, email, link); err != nil {
				log.Error().Err(err).Str("email", email).Msg("Failed to send newsletter welcome")
			}
		})
	}
	return sub, nil
}

// Unsubscribe deactivates email after checking its signed token.
func (s *NewsletterService) Unsubscribe(ctx context.Context, email, token string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !utils.VerifyUnsubscribeToken(email, token, s.secret) {
		return utils.ErrInvalidToken
	}
	if err := s.subscribers.Deactivate(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrSubscriberNotFound
		}
		return err
	}
	log.Info().Str("email", email).Msg("Newsletter subscription cancelled")
	return nil
}

// UnsubscribeURL builds the signed one-click unsubscribe link.
func (s *NewsletterService) UnsubscribeURL(email string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", utils.UnsubscribeToken(email, s.secret))
	return s.siteURL + "/api/newsletter-unsubscribe?" + q.Encode()
}
