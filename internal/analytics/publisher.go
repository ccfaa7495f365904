// Package analytics provides click event capture and processing.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/qelal/qelal/internal/metrics"
	"github.com/qelal/qelal/internal/model"
)

const (
	// StreamKey is the Redis stream for click events.
	StreamKey = "stream:clicks"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:clicks:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond

	// maxFieldLen truncates referer and user-agent strings.
	maxFieldLen = 500
)

// ClickEventPayload is the compressed event format for the Redis stream.
type ClickEventPayload struct {
	DropID    int64  `json:"d"`            // urls.id or bundles.id
	Variant   string `json:"v"`            // "url" or "bundle"
	Referer   string `json:"r,omitempty"`  // referer (truncated)
	UserAgent string `json:"ua,omitempty"` // user_agent (truncated)
	ClickedAt int64  `json:"t"`            // Unix milliseconds
}

// Publisher enqueues click events to the Redis stream.
// The redirect path hands events here and never waits on the result.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new click event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "analytics.publisher"),
		metrics: recorder,
	}
}

// Publish adds a click event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event ClickEventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event ClickEventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish click event",
				"drop_id", event.DropID,
				"variant", event.Variant,
				"error", err,
			)
			p.metrics.IncClickEventPublished("dropped")
			return
		}

		p.logger.Debug("click event published",
			"drop_id", event.DropID,
			"variant", event.Variant,
			"stream_id", streamID,
		)
		p.metrics.IncClickEventPublished("success")
	}()
}

// NewClickEvent builds a payload from request metadata for a drop.
func NewClickEvent(drop *model.Drop, referer, userAgent string, clickedAt time.Time) ClickEventPayload {
	return ClickEventPayload{
		DropID:    drop.ID,
		Variant:   string(drop.Variant),
		Referer:   SanitizeReferer(referer),
		UserAgent: TruncateUserAgent(userAgent),
		ClickedAt: clickedAt.UnixMilli(),
	}
}

// ValidateClickEventPayload rejects events that cannot be persisted.
func ValidateClickEventPayload(event ClickEventPayload) error {
	if event.DropID <= 0 {
		return fmt.Errorf("drop id %d out of range", event.DropID)
	}
	if !model.DropVariant(event.Variant).IsValid() {
		return fmt.Errorf("unknown variant %q", event.Variant)
	}
	if event.ClickedAt <= 0 {
		return fmt.Errorf("clicked_at %d out of range", event.ClickedAt)
	}
	return nil
}

// SanitizeReferer cleans and truncates the referer URL.
// Strips query parameters and fragments for privacy.
func SanitizeReferer(ref string) string {
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	// Keep only scheme + host + path; strip query params and fragments
	parsed.RawQuery = ""
	parsed.Fragment = ""

	sanitized := parsed.String()
	if len(sanitized) > maxFieldLen {
		return sanitized[:maxFieldLen]
	}
	return sanitized
}

// TruncateUserAgent truncates the user agent to max 500 chars.
func TruncateUserAgent(ua string) string {
	if len(ua) > maxFieldLen {
		return ua[:maxFieldLen]
	}
	return ua
}
