package service

import (
	"context"

	"github.com/rs/zerolog/log"
)

// OTPSender delivers one-time codes to a phone.
type OTPSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// LogOTPSender writes codes to the log instead of sending an SMS.
// Codes are only logged when debug is on.
// TODO: replace with the SMS gateway client once the provider contract is signed.
type LogOTPSender struct {
	debug bool
}

func NewLogOTPSender(debug bool) *LogOTPSender {
	return &LogOTPSender{debug: debug}
}

func (s *LogOTPSender) SendOTP(_ context.Context, phone, code string) error {
	ev := log.Info().Str("phone", phone)
	if s.debug {
		ev = ev.Str("otp_code", code)
	}
	ev.Msg("OTP issued")
	return nil
}
