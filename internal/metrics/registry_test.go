package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledByDefault(t *testing.T) {
	reset()
	require.False(t, IsEnabled())
	require.Nil(t, GetRegistry())
	require.Nil(t, NewResponderMetrics())
	require.Nil(t, NewTransportMetrics())
	require.Nil(t, Handler())
}

func TestInitRegistryEnables(t *testing.T) {
	reset()
	defer reset()

	reg := InitRegistry()
	require.NotNil(t, reg)
	require.True(t, IsEnabled())
	require.Same(t, reg, GetRegistry())
	require.NotNil(t, Handler())
}

func TestResponderMetricsNilReceiverSafe(t *testing.T) {
	reset()
	var m *ResponderMetrics
	require.NotPanics(t, func() {
		m.ObserveTransaction("GetObjectInfo", "OK", 0)
		m.RecordEventQueueLength(3)
		m.RecordEventEmitted("ObjectAdded")
		m.RecordTxCancel()
	})
}

func TestTransportMetricsNilReceiverSafe(t *testing.T) {
	reset()
	var m *TransportMetrics
	require.NotPanics(t, func() {
		m.RecordBulkBytesIn(1024)
		m.RecordBulkBytesOut(1024)
		m.RecordReadError("bulk")
		m.RecordSignal("suspend")
	})
}

func TestResponderMetricsRecordsWhenEnabled(t *testing.T) {
	reset()
	defer reset()
	InitRegistry()

	m := NewResponderMetrics()
	require.NotNil(t, m)
	m.ObserveTransaction("GetObjectInfo", "OK", 0)
	m.RecordEventEmitted("ObjectAdded")
}
