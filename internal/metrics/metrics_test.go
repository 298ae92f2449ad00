package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(AnalysesTotal.WithLabelValues("REAL"))
	AnalysesTotal.WithLabelValues("REAL").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AnalysesTotal.WithLabelValues("REAL")))

	hits := testutil.ToFloat64(CacheHits)
	CacheHits.Inc()
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHits))
}

func TestRecordStage(t *testing.T) {
	RecordStage("fusion", time.Now().Add(-time.Millisecond))
	assert.Equal(t, 1, testutil.CollectAndCount(StageDuration))
}
