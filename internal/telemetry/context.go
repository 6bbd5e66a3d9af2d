package telemetry

import "context"

// Ingest sources recorded on mirrored envelopes.
const (
	SourceWebSocket = "websocket"
	SourceHTTP      = "http"
)

type sourceKey struct{}

// WithSource returns a context that tags writes made with it as coming from source.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the ingest source stored in ctx, defaulting to SourceWebSocket.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceWebSocket
}
