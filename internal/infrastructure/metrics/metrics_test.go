package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "error", StatusLabel(0))
	assert.Equal(t, "409", StatusLabel(409))
}

func TestStoreRequestsTotal(t *testing.T) {
	counter := StoreRequestsTotal.WithLabelValues("test_op", "200")
	before := testutil.ToFloat64(counter)

	counter.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
