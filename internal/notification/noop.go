package notification

import (
	"context"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
)

// NoOpPublisher logs trade events instead of publishing them.
// Use this when SNS is not configured (local development, testing).
type NoOpPublisher struct {
	logger *observability.Logger
}

// NewNoOpPublisher creates a new no-op publisher that only logs trade events.
func NewNoOpPublisher(logger *observability.Logger) *NoOpPublisher {
	return &NoOpPublisher{
		logger: logger,
	}
}

// PublishTrade logs the trade event instead of publishing to SNS.
func (p *NoOpPublisher) PublishTrade(ctx context.Context, event *TradeEvent) error {
	if p.logger != nil {
		p.logger.Info("trade event (SNS disabled)",
			"pair", event.Pair,
			"venue", event.Venue,
			"outcome", event.Outcome,
			"reason", event.Reason,
			"tx_hash", event.TxHash,
			"net_usd", event.NetUSD,
			"attempts", event.Attempts,
		)
	}
	return nil
}
