package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsAreRegistered(t *testing.T) {
	assert.NotNil(t, CapsulesIssued)
	assert.NotNil(t, CapsulesRejected)
	assert.NotNil(t, CapsulePaddedSize)

	assert.NotNil(t, HandshakesInitiated)
	assert.NotNil(t, HandshakesCompleted)
	assert.NotNil(t, HandshakeSignatureMismatches)
	assert.NotNil(t, HandshakeDuration)

	assert.NotNil(t, EpochsInstalled)
	assert.NotNil(t, RekeysTriggered)
	assert.NotNil(t, GKFramesWrapped)
	assert.NotNil(t, GKFramesApplied)
	assert.NotNil(t, GKRetriesExhausted)

	assert.NotNil(t, MessagesEncrypted)
	assert.NotNil(t, MessagesDecrypted)
	assert.NotNil(t, MessagesDropped)
	assert.NotNil(t, MessagesBuffered)

	assert.NotNil(t, FramesDispatched)
}

func TestMetricsIncrementAndCollect(t *testing.T) {
	CapsulesIssued.Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(CapsulesIssued), float64(1))

	CapsulesRejected.WithLabelValues("expired").Inc()
	HandshakesCompleted.WithLabelValues("init").Inc()
	GKFramesApplied.WithLabelValues("installed").Inc()
	MessagesDropped.WithLabelValues("replay").Inc()
	FramesDispatched.WithLabelValues("m", "ok").Inc()

	assert.Equal(t, 1, testutil.CollectAndCount(HandshakeDuration))
	HandshakeDuration.Observe(0.01)
	assert.Equal(t, 1, testutil.CollectAndCount(HandshakeDuration))
}

func TestHandlerServesRegistry(t *testing.T) {
	h := Handler()
	assert.NotNil(t, h)
}
