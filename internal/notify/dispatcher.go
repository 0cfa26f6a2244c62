package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/interview-scheduler/internal/persistence"
)

const (
	DefaultInterval  = 2 * time.Second
	DefaultTimeout   = 5 * time.Second
	DefaultBatchSize = 50
)

// Dispatcher drains the outbox to a webhook. Messages stay pending until the webhook
// answers 2xx, so a message may be delivered more than once.
type Dispatcher struct {
	repo       persistence.OutboxRepository
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	interval   time.Duration
	batchSize  int
	now        func() time.Time
	logger     *slog.Logger
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		if hc != nil {
			d.httpClient = hc
		}
	}
}

// WithRateLimit caps webhook calls per second. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) DispatcherOption {
	return func(d *Dispatcher) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithInterval sets the polling period.
func WithInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithBatchSize bounds the messages read per poll.
func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithClock injects the clock used to stamp deliveries.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher builds a dispatcher posting to webhookURL. An empty URL yields an idle
// dispatcher that leaves the outbox untouched.
func NewDispatcher(repo persistence.OutboxRepository, webhookURL string, timeout time.Duration, opts ...DispatcherOption) (*Dispatcher, error) {
	if repo == nil {
		return nil, errors.New("notify: outbox repository is required")
	}
	endpoint := strings.TrimSpace(webhookURL)
	if endpoint != "" {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("notify: invalid webhook URL %q: %w", webhookURL, err)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	d := &Dispatcher{
		repo:       repo,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		interval:   DefaultInterval,
		batchSize:  DefaultBatchSize,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "notify_dispatcher")
	return d, nil
}

// Enabled reports whether a webhook is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.endpoint != ""
}

// Run dispatches immediately and then on every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.Enabled() {
		d.logger.InfoContext(ctx, "notification webhook not configured, dispatcher idle")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.logger.WarnContext(ctx, "notification dispatch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce posts one batch of pending messages in enqueue order. It stops at the
// first failed delivery, recording the failure on that message.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	if !d.Enabled() {
		return 0, nil
	}
	pending, err := d.repo.ListPendingOutbox(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("notify: list pending: %w", err)
	}

	delivered := 0
	for _, msg := range pending {
		if err := d.post(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return delivered, ctx.Err()
			}
			if recErr := d.repo.RecordOutboxFailure(ctx, msg.ID, err.Error()); recErr != nil {
				d.logger.ErrorContext(ctx, "failed to record delivery failure", "event_id", msg.ID, "error", recErr)
			}
			d.logger.WarnContext(ctx, "notification delivery failed",
				"event_id", msg.ID,
				"event_type", msg.EventType,
				"attempts", msg.Attempts+1,
				"error", err,
			)
			return delivered, err
		}
		if err := d.repo.MarkOutboxDelivered(ctx, msg.ID, d.now().UTC()); err != nil {
			return delivered, fmt.Errorf("notify: mark %s delivered: %w", msg.ID, err)
		}
		delivered++
		d.logger.DebugContext(ctx, "notification delivered", "event_id", msg.ID, "event_type", msg.EventType)
	}
	return delivered, nil
}

func (d *Dispatcher) post(ctx context.Context, msg persistence.OutboxMessage) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(msg.Payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Scheduler-Event", msg.EventType)
	req.Header.Set("X-Scheduler-Delivery", msg.ID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
