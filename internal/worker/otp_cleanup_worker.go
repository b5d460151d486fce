package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// OTPStore clears one-time passwords that can no longer be used.
type OTPStore interface {
	ClearExpiredOTP(ctx context.Context, cutoff time.Time) (int64, error)
}

// OTPCleanupWorker periodically wipes expired OTP codes from user rows.
type OTPCleanupWorker struct {
	store    OTPStore
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewOTPCleanupWorker constructs an OTPCleanupWorker. Codes created more than ttl ago are cleared.
func NewOTPCleanupWorker(store OTPStore, ttl, interval time.Duration) *OTPCleanupWorker {
	return &OTPCleanupWorker{
		store:    store,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the periodic cleanup loop until context is canceled.
func (w *OTPCleanupWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Dur("ttl", w.ttl).Msg("Starting OTP cleanup worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("OTP cleanup worker stopped")
			return
		}
	}
}

func (w *OTPCleanupWorker) run(ctx context.Context) {
	cleared, err := w.store.ClearExpiredOTP(ctx, w.now().Add(-w.ttl))
	if err != nil {
		log.Error().Err(err).Msg("Failed to clear expired OTP codes")
		return
	}
	if cleared > 0 {
		log.Info().Int64("cleared", cleared).Msg("Expired OTP codes cleared")
	}
}
