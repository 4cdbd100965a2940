package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these keys
// consistently across all log statements for log aggregation and
// querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// MTP Transaction Identity
	// ========================================================================
	KeyOperation     = "operation"     // MTP operation name (GetObjectInfo, SendObject, etc.)
	KeySessionID     = "session_id"    // MTP session ID (OpenSession)
	KeyTransactionID = "transaction_id" // MTP transaction ID
	KeyStorageID     = "storage_id"    // MTP storage ID
	KeyHandle        = "handle"        // MTP object handle
	KeyResponseCode  = "response_code" // MTP response code
	KeyEventCode     = "event_code"    // MTP event code

	// ========================================================================
	// File System Operations (storage engine)
	// ========================================================================
	KeyPath     = "path"     // Full file/directory path
	KeyFilename = "filename" // File or directory name (basename)
	KeySize     = "size"     // Object size in bytes
	KeyFormat   = "format"   // MTP object format code

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyOffset       = "offset"        // Byte offset for partial object reads
	KeyCount        = "count"         // Byte count requested
	KeyBytesRead    = "bytes_read"    // Actual bytes read
	KeyBytesWritten = "bytes_written" // Actual bytes written

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Operation returns a slog.Attr for MTP operation name
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// SessionID returns a slog.Attr for MTP session ID
func SessionID(id uint32) slog.Attr {
	return slog.Uint64(KeySessionID, uint64(id))
}

// TransactionID returns a slog.Attr for MTP transaction ID
func TransactionID(id uint32) slog.Attr {
	return slog.Uint64(KeyTransactionID, uint64(id))
}

// StorageID returns a slog.Attr for MTP storage ID
func StorageID(id uint32) slog.Attr {
	return slog.Uint64(KeyStorageID, uint64(id))
}

// Handle returns a slog.Attr for an MTP object handle
func Handle(h uint32) slog.Attr {
	return slog.Uint64(KeyHandle, uint64(h))
}

// ResponseCode returns a slog.Attr for an MTP response code
func ResponseCode(code uint16) slog.Attr {
	return slog.Uint64(KeyResponseCode, uint64(code))
}

// EventCode returns a slog.Attr for an MTP event code
func EventCode(code uint16) slog.Attr {
	return slog.Uint64(KeyEventCode, uint64(code))
}

// Path returns a slog.Attr for file/directory path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for filename (basename)
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// Size returns a slog.Attr for object size
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Format returns a slog.Attr for MTP object format code
func Format(f uint16) slog.Attr {
	return slog.Uint64(KeyFormat, uint64(f))
}

// Offset returns a slog.Attr for byte offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for byte count requested
func Count(c uint32) slog.Attr {
	return slog.Uint64(KeyCount, uint64(c))
}

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}
