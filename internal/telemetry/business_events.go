package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents traces collector-level operations: posting, liking,
// commenting, following and collection changes
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("flexbase/business-events"),
	}
}

// FeedEventAttrs describes a feed read
type FeedEventAttrs struct {
	FeedType  string // "following", "explore", "profile", "collection"
	Limit     int
	Offset    int
	ItemCount int
}

// TraceGetFeed creates a span for feed retrieval operations
func (be *BusinessEvents) TraceGetFeed(ctx context.Context, attrs FeedEventAttrs) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "feed.get",
		trace.WithAttributes(
			attribute.String("feed.type", attrs.FeedType),
			attribute.Int("feed.limit", attrs.Limit),
			attribute.Int("feed.offset", attrs.Offset),
		),
	)
}

// TraceCreatePost creates a span for post creation
func (be *BusinessEvents) TraceCreatePost(ctx context.Context, userID, visibility, mediaKind string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "post.create",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("post.visibility", visibility),
			attribute.String("media.kind", mediaKind),
		),
	)
}

// SocialInteractionAttrs attributes for social operations
type SocialInteractionAttrs struct {
	UserID     string
	TargetType string // "post", "user", "collection"
	TargetID   string
}

// TraceSocialInteraction creates a span named social.<action>
func (be *BusinessEvents) TraceSocialInteraction(ctx context.Context, action string, attrs SocialInteractionAttrs) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "social."+action,
		trace.WithAttributes(
			attribute.String("action.type", action),
			attribute.String("user.id", attrs.UserID),
			attribute.String("target.type", attrs.TargetType),
			attribute.String("target.id", attrs.TargetID),
		),
	)
}

// RecordToggle stores the outcome of a like or follow toggle
func RecordToggle(span trace.Span, on bool, count int) {
	span.SetAttributes(
		attribute.Bool("toggle.on", on),
		attribute.Int("toggle.count", count),
	)
}

// RecordItemCount stores the size of a returned page
func RecordItemCount(span trace.Span, n int) {
	span.SetAttributes(attribute.Int("result.item_count", n))
}

var globalBusinessEvents = NewBusinessEvents()

// GetBusinessEvents returns the shared business events tracer. It reads the
// global provider lazily, so tracing installed after startup is picked up.
func GetBusinessEvents() *BusinessEvents {
	return globalBusinessEvents
}
