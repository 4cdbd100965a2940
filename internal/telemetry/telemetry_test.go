package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "mtpd", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, Operation("GetObjectInfo"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("Operation", func(t *testing.T) {
		attr := Operation("GetObjectInfo")
		assert.Equal(t, AttrOperation, string(attr.Key))
		assert.Equal(t, "GetObjectInfo", attr.Value.AsString())
	})

	t.Run("SessionID", func(t *testing.T) {
		attr := SessionID(7)
		assert.Equal(t, AttrSessionID, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("TransactionID", func(t *testing.T) {
		attr := TransactionID(42)
		assert.Equal(t, AttrTransactionID, string(attr.Key))
		assert.Equal(t, int64(42), attr.Value.AsInt64())
	})

	t.Run("StorageID", func(t *testing.T) {
		attr := StorageID(0x00010001)
		assert.Equal(t, AttrStorageID, string(attr.Key))
		assert.Equal(t, int64(0x00010001), attr.Value.AsInt64())
	})

	t.Run("Handle", func(t *testing.T) {
		attr := Handle(5)
		assert.Equal(t, AttrHandle, string(attr.Key))
		assert.Equal(t, int64(5), attr.Value.AsInt64())
	})

	t.Run("ResponseCode", func(t *testing.T) {
		attr := ResponseCode(0x2001)
		assert.Equal(t, AttrResponseCode, string(attr.Key))
		assert.Equal(t, int64(0x2001), attr.Value.AsInt64())
	})

	t.Run("EventCode", func(t *testing.T) {
		attr := EventCode(0x4002)
		assert.Equal(t, AttrEventCode, string(attr.Key))
		assert.Equal(t, int64(0x4002), attr.Value.AsInt64())
	})

	t.Run("Path", func(t *testing.T) {
		attr := Path("/media/dcim/100photo/img_0001.jpg")
		assert.Equal(t, AttrPath, string(attr.Key))
		assert.Equal(t, "/media/dcim/100photo/img_0001.jpg", attr.Value.AsString())
	})

	t.Run("Filename", func(t *testing.T) {
		attr := Filename("img_0001.jpg")
		assert.Equal(t, AttrFilename, string(attr.Key))
		assert.Equal(t, "img_0001.jpg", attr.Value.AsString())
	})

	t.Run("Format", func(t *testing.T) {
		attr := Format(0x3801)
		assert.Equal(t, AttrFormat, string(attr.Key))
		assert.Equal(t, int64(0x3801), attr.Value.AsInt64())
	})

	t.Run("Size", func(t *testing.T) {
		attr := Size(1048576)
		assert.Equal(t, AttrSize, string(attr.Key))
		assert.Equal(t, int64(1048576), attr.Value.AsInt64())
	})

	t.Run("Offset", func(t *testing.T) {
		attr := Offset(1024)
		assert.Equal(t, AttrOffset, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("Count", func(t *testing.T) {
		attr := Count(4096)
		assert.Equal(t, AttrCount, string(attr.Key))
		assert.Equal(t, int64(4096), attr.Value.AsInt64())
	})

	t.Run("Endpoint", func(t *testing.T) {
		attr := Endpoint("bulk")
		assert.Equal(t, AttrEndpoint, string(attr.Key))
		assert.Equal(t, "bulk", attr.Value.AsString())
	})
}

func TestStartTransaction(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartTransaction(ctx, "GetObjectInfo", 1, 42)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartTransaction(ctx, "SendObject", 1, 43, Size(4096))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartObjectSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartObjectSpan(ctx, SpanObjectRead, 5)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartObjectSpan(ctx, SpanObjectWrite, 6, Offset(0), Count(4096))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
