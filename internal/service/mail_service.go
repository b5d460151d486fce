package service

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"github.com/GTDGit/dropaz_api/internal/config"
)

// MailService sends transactional mail over SMTP.
type MailService struct {
	cfg config.SMTPConfig
}

// NewMailService returns nil when SMTP is not configured.
func NewMailService(cfg *config.SMTPConfig) *MailService {
	if cfg == nil || cfg.Host == "" {
		return nil
	}
	return &MailService{cfg: *cfg}
}

// SendNewsletterWelcome sends the welcome mail with an unsubscribe link.
func (s *MailService) SendNewsletterWelcome(ctx context.Context, to, unsubscribeURL string) error {
	if s == nil {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("drop.az xəbər bülleteninə xoş gəlmisiniz")
	msg.SetBodyString(mail.TypeTextHTML, newsletterWelcomeHTML(unsubscribeURL))
	msg.AddAlternativeString(mail.TypeTextPlain, fmt.Sprintf(
		"drop.az bülleteninə abunə olduğunuz üçün təşəkkür edirik.\nAbunəlikdən çıxmaq üçün: %s\n", unsubscribeURL))

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}

	log.Debug().Str("to", to).Msg("Sending newsletter welcome mail")
	return client.DialAndSendWithContext(ctx, msg)
}

func newsletterWelcomeHTML(unsubscribeURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="az">
<head><meta charset="UTF-8"><title>drop.az</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Xoş gəlmisiniz!</h2>
		<p>drop.az bülleteninə abunə olduğunuz üçün təşəkkür edirik. Yeni məhsullar və endirimlər haqqında ilk siz xəbər tutacaqsınız.</p>
		<p style="margin-top: 30px; color: #888; font-size: 12px;">
			Abunəlikdən çıxmaq üçün <a href="%s">bura klikləyin</a>.
		</p>
	</div>
</body>
</html>`, html.EscapeString(unsubscribeURL))
}
