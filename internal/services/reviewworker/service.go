// Package reviewworker provides a service that consumes review decisions from
// a queue and applies them to held purchase intents. Back-office tooling that
// cannot call the HTTP API posts its decisions here instead.
package reviewworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/inbound"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that Service implements inbound.HealthChecker
var _ inbound.HealthChecker = (*Service)(nil)

// Config holds configuration for the review worker.
type Config struct {
	// BatchSize is how many messages to fetch at once (max 10).
	BatchSize int

	// ErrorBackoff is how long to pause after a receive failure.
	ErrorBackoff time.Duration

	// StaleThreshold is how long without a successful poll before the
	// liveness probe reports unhealthy.
	StaleThreshold time.Duration

	// Logger for the service.
	Logger *slog.Logger
}

// ConfigDefaults returns sensible defaults for the review worker.
func ConfigDefaults() Config {
	return Config{
		BatchSize:      10,
		ErrorBackoff:   5 * time.Second,
		StaleThreshold: 2 * time.Minute,
		Logger:         slog.Default(),
	}
}

// decisionMessage is the queue payload for one review decision.
type decisionMessage struct {
	TenantID   string `json:"tenantId"`
	IntentID   string `json:"intentId"`
	Decision   string `json:"decision"`
	ReviewerID string `json:"reviewerId"`
}

// Service is the review decision worker.
type Service struct {
	config    Config
	consumer  outbound.QueueConsumer
	reviews   inbound.ReviewService
	logger    *slog.Logger
	closeOnce sync.Once
	stopCh    chan struct{}

	ready      atomic.Bool
	lastPollAt atomic.Int64
}

// NewService creates a new review worker.
func NewService(config Config, consumer outbound.QueueConsumer, reviews inbound.ReviewService) (*Service, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if reviews == nil {
		return nil, fmt.Errorf("review service is required")
	}

	// Apply defaults
	defaults := ConfigDefaults()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = defaults.ErrorBackoff
	}
	if config.StaleThreshold <= 0 {
		config.StaleThreshold = defaults.StaleThreshold
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &Service{
		config:   config,
		consumer: consumer,
		reviews:  reviews,
		logger:   config.Logger.With("component", "review-worker"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Run starts the worker and blocks until the context is cancelled or Stop is
// called.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting review worker", "batchSize", s.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, stopping review worker")
			return ctx.Err()
		case <-s.stopCh:
			s.logger.Info("stop signal received, stopping review worker")
			return nil
		default:
		}

		messages, err := s.consumer.ReceiveMessages(ctx, s.config.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("failed to receive messages", "error", err)
			select {
			case <-time.After(s.config.ErrorBackoff):
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stopCh:
				return nil
			}
			continue
		}

		s.ready.Store(true)
		s.lastPollAt.Store(time.Now().UnixNano())

		for _, msg := range messages {
			s.handleMessage(ctx, msg)
		}
	}
}

// Stop signals the worker to stop.
func (s *Service) Stop() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
}

// IsReady returns true once the worker has completed its first poll.
func (s *Service) IsReady() bool {
	return s.ready.Load()
}

// IsHealthy returns true while the worker is polling regularly.
func (s *Service) IsHealthy() bool {
	last := s.lastPollAt.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) < s.config.StaleThreshold
}

// handleMessage applies one decision and decides the message's fate. Messages
// that can never succeed (malformed, unknown intent, already resolved) are
// deleted so they do not cycle through the queue; messages that failed on an
// internal error stay visible for redelivery.
func (s *Service) handleMessage(ctx context.Context, msg outbound.QueueMessage) {
	err := s.processMessage(ctx, msg)
	if err != nil && entity.CodeOf(err) == entity.CodeInternal {
		s.logger.Error("failed to process review decision",
			"messageID", msg.MessageID,
			"error", err)
		return
	}
	if err != nil {
		s.logger.Warn("discarding unprocessable review decision",
			"messageID", msg.MessageID,
			"code", entity.CodeOf(err),
			"error", err)
	}

	if err := s.consumer.DeleteMessage(ctx, msg.ReceiptHandle); err != nil {
		s.logger.Error("failed to delete message",
			"messageID", msg.MessageID,
			"error", err)
	}
}

// processMessage parses a single queue message and resolves the review.
func (s *Service) processMessage(ctx context.Context, msg outbound.QueueMessage) error {
	body := msg.Body

	// Messages delivered via an SNS subscription carry an envelope.
	var snsWrapper struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &snsWrapper); err == nil && snsWrapper.Message != "" {
		body = snsWrapper.Message
	}

	var decision decisionMessage
	if err := json.Unmarshal([]byte(body), &decision); err != nil {
		return entity.Errorf(entity.CodeInvalidArgument, "malformed review decision: %v", err)
	}

	intent, err := s.reviews.Resolve(ctx, decision.TenantID, decision.IntentID,
		inbound.ReviewDecision(decision.Decision), decision.ReviewerID)
	if err != nil {
		return err
	}

	s.logger.Info("applied review decision",
		"tenant", decision.TenantID,
		"intent", decision.IntentID,
		"decision", decision.Decision,
		"status", intent.Status)
	return nil
}
