package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.WellFetches.WithLabelValues("success").Inc()
	m.ModelLoaded.Set(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WellFetches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelLoaded))
}
