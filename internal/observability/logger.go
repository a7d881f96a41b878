package observability

import (
	"context"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// MaxLoggedTextLength caps question and statement attributes; model output can be arbitrarily long.
const MaxLoggedTextLength = 512

const redacted = "[redacted]"

var (
	truncatedKeys = map[string]struct{}{"question": {}, "statement": {}, "raw_output": {}}
	secretKeys    = map[string]struct{}{"api_key": {}, "dsn": {}, "secret_key": {}, "authorization": {}}
)

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	options := &slog.HandlerOptions{Level: cfg.Observability.LogLevel, ReplaceAttr: scrubAttr}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, options)
	} else {
		handler = slog.NewTextHandler(writer, options)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
		slog.String("ai_provider", cfg.AI.Provider),
		slog.String("data_source", cfg.Data.Source),
	)
}

func scrubAttr(_ []string, attr slog.Attr) slog.Attr {
	if _, ok := secretKeys[attr.Key]; ok {
		if attr.Value.Kind() == slog.KindString && attr.Value.String() == "" {
			return attr
		}
		return slog.String(attr.Key, redacted)
	}
	if _, ok := truncatedKeys[attr.Key]; ok && attr.Value.Kind() == slog.KindString {
		return slog.String(attr.Key, TruncateText(attr.Value.String(), MaxLoggedTextLength))
	}
	return attr
}

// TruncateText shortens text to at most limit runes, marking the cut with an ellipsis.
func TruncateText(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "…"
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
