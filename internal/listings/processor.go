package listings

import (
	"context"
	"time"

	"github.com/medibid/auction-api/internal/notify"
	"github.com/rs/zerolog/log"
)

// Processor is the scheduled sweep that closes OPEN listings whose
// bidding timeout has passed. The core never transitions state on read;
// this loop is the single writer for timeout expiry.
type Processor struct {
	db       *Database
	notifier notify.Notifier
	interval time.Duration
}

func NewProcessor(db *Database, notifier notify.Notifier, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Processor{
		db:       db,
		notifier: notifier,
		interval: interval,
	}
}

// Start begins the expiry sweep loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "expiry_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting expiry processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down expiry processor")
			return
		case <-ticker.C:
			if err := p.sweep(); err != nil {
				logger.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

func (p *Processor) sweep() error {
	logger := log.With().Str("component", "expiry_processor").Logger()

	expired, err := p.db.GetExpiredOpen(time.Now())
	if err != nil {
		return err
	}

	if len(expired) == 0 {
		return nil
	}

	logger.Info().Int("expired_count", len(expired)).Msg("cancelling expired listings")

	for _, listing := range expired {
		cancelled, err := p.db.CancelExpired(&listing)
		if err != nil {
			logger.Error().
				Err(err).
				Str("listing_id", listing.ListingID).
				Msg("failed to cancel expired listing")
			continue
		}
		if !cancelled {
			// Lost the race to an award between fetch and update.
			logger.Debug().
				Str("listing_id", listing.ListingID).
				Msg("listing no longer open, skipping")
			continue
		}

		p.notifier.Publish(notify.NewEvent(listing.ListingID, notify.EventCancelled, "", 0))

		logger.Info().
			Str("listing_id", listing.ListingID).
			Time("timeout_at", listing.TimeoutAt).
			Msg("expired listing cancelled")
	}

	return nil
}
