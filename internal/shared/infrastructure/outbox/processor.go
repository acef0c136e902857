package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fakturly/fakturly/internal/shared/infrastructure/eventbus"
)

// ProcessorConfig holds the tuning knobs for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultProcessorConfig returns sensible defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     5 * time.Second,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: 10 * time.Second,
		RetryBackoffMax:  10 * time.Minute,
	}
}

// Processor polls the outbox table and publishes pending messages to the
// event bus. Messages that keep failing past MaxRetries are dead-lettered
// so a stuck message cannot block the queue.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewProcessor creates a new outbox processor.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultProcessorConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultProcessorConfig().PollInterval
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// Start begins polling in a background goroutine. It is a no-op if the
// processor is already running.
func (p *Processor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(runCtx)
}

// Stop halts polling and waits for the current batch to finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *Processor) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("outbox processor started",
		slog.Duration("poll_interval", p.config.PollInterval),
		slog.Int("batch_size", p.config.BatchSize))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return
		case <-ticker.C:
			if _, err := p.processBatch(ctx); err != nil {
				p.logger.Error("outbox batch failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ProcessOnce runs a single batch. Exposed for tests and one-shot CLI use.
func (p *Processor) ProcessOnce(ctx context.Context) (int, error) {
	return p.processBatch(ctx)
}

func (p *Processor) processBatch(ctx context.Context) (int, error) {
	messages, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("fetching unpublished messages: %w", err)
	}

	published := 0
	for _, msg := range messages {
		if err := p.publishMessage(ctx, msg); err != nil {
			p.handleFailure(ctx, msg, err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
			p.logger.Error("marking message published",
				slog.Int64("message_id", msg.ID),
				slog.String("error", err.Error()))
			continue
		}
		published++
	}
	return published, nil
}

func (p *Processor) publishMessage(ctx context.Context, msg *Message) error {
	return p.publisher.Publish(ctx, msg.RoutingKey, msg.Payload)
}

func (p *Processor) handleFailure(ctx context.Context, msg *Message, publishErr error) {
	if p.shouldDeadLetter(msg) {
		reason := fmt.Sprintf("exceeded %d retries: %v", p.config.MaxRetries, publishErr)
		if err := p.repo.MarkDead(ctx, msg.ID, reason); err != nil {
			p.logger.Error("dead-lettering message",
				slog.Int64("message_id", msg.ID),
				slog.String("error", err.Error()))
			return
		}
		p.logger.Warn("message dead-lettered",
			slog.Int64("message_id", msg.ID),
			slog.String("routing_key", msg.RoutingKey),
			slog.String("reason", reason))
		return
	}

	nextRetry := time.Now().Add(p.retryBackoff(msg.RetryCount + 1))
	if err := p.repo.MarkFailed(ctx, msg.ID, publishErr.Error(), nextRetry); err != nil {
		p.logger.Error("marking message failed",
			slog.Int64("message_id", msg.ID),
			slog.String("error", err.Error()))
		return
	}
	p.logger.Warn("message publish failed, scheduled retry",
		slog.Int64("message_id", msg.ID),
		slog.Int("retry_count", msg.RetryCount+1),
		slog.Time("next_retry_at", nextRetry),
		slog.String("error", publishErr.Error()))
}

func (p *Processor) shouldDeadLetter(msg *Message) bool {
	return msg.RetryCount+1 >= p.config.MaxRetries
}

// retryBackoff returns base * 2^(attempt-1), capped at RetryBackoffMax.
func (p *Processor) retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := p.config.RetryBackoffBase
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= p.config.RetryBackoffMax {
			return p.config.RetryBackoffMax
		}
	}
	if backoff > p.config.RetryBackoffMax {
		return p.config.RetryBackoffMax
	}
	return backoff
}
