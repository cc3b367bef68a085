package metrics

import (
	"errors"
	"testing"

	"LPPLWatch/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordRun("SPY", false)
	r.RecordRun("SPY", true)
	r.RecordRun("SPY", true)
	r.RecordClusters("SPY", models.LabelTop, 4)
	r.RecordPurged("SPY", 2)
	r.RecordError("render")
	r.RecordStage(models.StageFit, 0.5, errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("SPY", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("SPY", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.clusters.WithLabelValues("SPY", "Top")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.purgedTotal.WithLabelValues("SPY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("render")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageDuration))
}
