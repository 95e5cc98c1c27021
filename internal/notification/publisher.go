// Package notification publishes trade results to interested consumers.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/aws"
	"github.com/SwatticusDevelopment/Swatticus-Crypto-Bot/internal/platform/observability"
)

// TradeEvent is the payload published after each trade attempt.
type TradeEvent struct {
	Pair        string    `json:"pair"`
	Venue       string    `json:"venue"`
	Outcome     string    `json:"outcome"` // success, failed, unconfirmed, skipped
	Reason      string    `json:"reason,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	GrossUSD    float64   `json:"gross_usd"`
	GasUSD      float64   `json:"gas_usd"`
	NetUSD      float64   `json:"net_usd"`
	Attempts    int       `json:"attempts"`
	SlippageBps int64     `json:"slippage_bps"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher is the sink for trade events.
type Publisher interface {
	PublishTrade(ctx context.Context, event *TradeEvent) error
}

// SNSPublisher publishes trade events to an SNS topic.
type SNSPublisher struct {
	snsClient *aws.SNSClient
	topicARN  string
	logger    *observability.Logger
}

// SNSPublisherConfig holds publisher configuration
type SNSPublisherConfig struct {
	SNSClient *aws.SNSClient
	TopicARN  string
	Logger    *observability.Logger
}

// NewSNSPublisher creates a publisher backed by SNS.
func NewSNSPublisher(cfg SNSPublisherConfig) (*SNSPublisher, error) {
	if cfg.SNSClient == nil {
		return nil, fmt.Errorf("SNS client is required")
	}
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("SNS topic ARN is required")
	}

	return &SNSPublisher{
		snsClient: cfg.SNSClient,
		topicARN:  cfg.TopicARN,
		logger:    cfg.Logger,
	}, nil
}

// PublishTrade publishes a trade event to SNS.
func (p *SNSPublisher) PublishTrade(ctx context.Context, event *TradeEvent) error {
	attributes := map[string]string{
		"pair":    event.Pair,
		"outcome": event.Outcome,
	}
	if event.Venue != "" {
		attributes["venue"] = event.Venue
	}

	if err := p.snsClient.Publish(ctx, p.topicARN, event, attributes); err != nil {
		if p.logger != nil {
			p.logger.LogError(ctx, "failed to publish trade event", err,
				"pair", event.Pair,
				"outcome", event.Outcome,
				"topic_arn", p.topicARN,
			)
		}
		return fmt.Errorf("SNS publish failed: %w", err)
	}

	if p.logger != nil {
		p.logger.Info("published trade event",
			"pair", event.Pair,
			"outcome", event.Outcome,
			"net_usd", event.NetUSD,
		)
	}

	return nil
}
