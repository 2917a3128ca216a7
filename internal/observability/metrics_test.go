package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordActivityLogged(t *testing.T) {
	before := testutil.ToFloat64(activityQuantity.WithLabelValues("call"))
	beforeCount := testutil.ToFloat64(activityLogged.WithLabelValues("call"))

	RecordActivityLogged("call", 3)
	RecordActivityLogged("call", -3)

	assert.Equal(t, before+3, testutil.ToFloat64(activityQuantity.WithLabelValues("call")))
	assert.Equal(t, beforeCount+2, testutil.ToFloat64(activityLogged.WithLabelValues("call")))
}

func TestRecordRollupAudit(t *testing.T) {
	at := time.Date(2024, 3, 6, 2, 30, 0, 0, time.UTC)
	RecordRollupAudit(4, at)

	assert.Equal(t, 4.0, testutil.ToFloat64(rollupMismatches))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(rollupAuditTimestamp))
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecordMetadataReseal(t *testing.T) {
	resealed := testutil.ToFloat64(metadataResealed.WithLabelValues("resealed"))
	failed := testutil.ToFloat64(metadataResealed.WithLabelValues("failed"))

	RecordMetadataReseal(5, 1)

	assert.Equal(t, resealed+5, testutil.ToFloat64(metadataResealed.WithLabelValues("resealed")))
	assert.Equal(t, failed+1, testutil.ToFloat64(metadataResealed.WithLabelValues("failed")))
}
