package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds transaction-scoped logging context
type LogContext struct {
	TraceID       string    // OpenTelemetry trace ID
	SpanID        string    // OpenTelemetry span ID
	Operation     string    // MTP operation name (GetObjectInfo, SendObject, etc.)
	SessionID     uint32    // MTP session ID (OpenSession)
	TransactionID uint32    // MTP transaction ID
	StorageID     uint32    // Storage ID the operation targets, if any
	Handle        uint32    // Object handle the operation targets, if any
	StartTime     time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a transaction with the
// given session ID
func NewLogContext(sessionID uint32) *LogContext {
	return &LogContext{
		SessionID: sessionID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:       lc.TraceID,
		SpanID:        lc.SpanID,
		Operation:     lc.Operation,
		SessionID:     lc.SessionID,
		TransactionID: lc.TransactionID,
		StorageID:     lc.StorageID,
		Handle:        lc.Handle,
		StartTime:     lc.StartTime,
	}
}

// WithOperation returns a copy with the operation name set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithTransaction returns a copy with the transaction ID set
func (lc *LogContext) WithTransaction(transactionID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TransactionID = transactionID
	}
	return clone
}

// WithTarget returns a copy with the storage ID and object handle set
func (lc *LogContext) WithTarget(storageID, handle uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.StorageID = storageID
		clone.Handle = handle
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
