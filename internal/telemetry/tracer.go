package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for MTP transactions, following OpenTelemetry
// semantic convention style (dotted, lowercase segments).
const (
	// ========================================================================
	// MTP transaction attributes
	// ========================================================================
	AttrOperation     = "mtp.operation"      // Operation name (GetObjectInfo, SendObject, etc.)
	AttrSessionID     = "mtp.session_id"     // Session ID from OpenSession
	AttrTransactionID = "mtp.transaction_id" // Transaction ID
	AttrStorageID     = "mtp.storage_id"     // Storage ID
	AttrHandle        = "mtp.handle"         // Object handle
	AttrResponseCode  = "mtp.response_code"  // Response code
	AttrEventCode     = "mtp.event_code"     // Event code

	// ========================================================================
	// Object/file attributes
	// ========================================================================
	AttrPath     = "object.path"   // Backing file path on the storage root
	AttrFilename = "object.name"   // Object filename
	AttrFormat   = "object.format" // MTP object format code
	AttrSize     = "object.size"   // Object size in bytes
	AttrOffset   = "object.offset" // Byte offset for partial reads
	AttrCount    = "object.count"  // Byte count requested

	// ========================================================================
	// Transport attributes
	// ========================================================================
	AttrEndpoint = "transport.endpoint" // "control", "bulk_in", "bulk_out", "interrupt"
)

// Span names for operations.
const (
	// SpanTransaction is the root span for one MTP transaction.
	SpanTransaction = "mtp.transaction"

	// Storage engine spans.
	SpanStorageMount  = "storage.mount"
	SpanStorageScan   = "storage.scan"
	SpanObjectRead    = "object.read"
	SpanObjectWrite   = "object.write"
	SpanObjectDelete  = "object.delete"
	SpanObjectMove    = "object.move"
	SpanObjectCopy    = "object.copy"

	// Thumbnail client spans.
	SpanThumbnailRequest = "thumbnail.request"

	// Transport spans.
	SpanTransportSetup = "transport.setup"
	SpanTransportBulk  = "transport.bulk"
)

// Operation returns an attribute for the MTP operation name.
func Operation(name string) attribute.KeyValue {
	return attribute.String(AttrOperation, name)
}

// SessionID returns an attribute for the MTP session ID.
func SessionID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrSessionID, int64(id))
}

// TransactionID returns an attribute for the MTP transaction ID.
func TransactionID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrTransactionID, int64(id))
}

// StorageID returns an attribute for the MTP storage ID.
func StorageID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrStorageID, int64(id))
}

// Handle returns an attribute for an MTP object handle.
func Handle(h uint32) attribute.KeyValue {
	return attribute.Int64(AttrHandle, int64(h))
}

// ResponseCode returns an attribute for an MTP response code.
func ResponseCode(code uint16) attribute.KeyValue {
	return attribute.Int64(AttrResponseCode, int64(code))
}

// EventCode returns an attribute for an MTP event code.
func EventCode(code uint16) attribute.KeyValue {
	return attribute.Int64(AttrEventCode, int64(code))
}

// Path returns an attribute for a backing file path.
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// Filename returns an attribute for an object filename.
func Filename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

// Format returns an attribute for an MTP object format code.
func Format(f uint16) attribute.KeyValue {
	return attribute.Int64(AttrFormat, int64(f))
}

// Size returns an attribute for object size.
func Size(size uint64) attribute.KeyValue {
	return attribute.Int64(AttrSize, int64(size))
}

// Offset returns an attribute for byte offset.
func Offset(offset uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(offset))
}

// Count returns an attribute for byte count requested.
func Count(count uint32) attribute.KeyValue {
	return attribute.Int64(AttrCount, int64(count))
}

// Endpoint returns an attribute for the transport endpoint involved.
func Endpoint(name string) attribute.KeyValue {
	return attribute.String(AttrEndpoint, name)
}

// StartTransaction starts the root span for one MTP transaction,
// tagging it with the operation name, transaction ID, and session ID.
func StartTransaction(ctx context.Context, operation string, sessionID, transactionID uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Operation(operation),
		SessionID(sessionID),
		TransactionID(transactionID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanTransaction, trace.WithAttributes(allAttrs...))
}

// StartObjectSpan starts a span for a storage-engine object operation.
func StartObjectSpan(ctx context.Context, spanName string, handle uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Handle(handle),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}
