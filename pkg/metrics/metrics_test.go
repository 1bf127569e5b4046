package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAdmissionsCounter(t *testing.T) {
	before := testutil.ToFloat64(Admissions.WithLabelValues(OutcomeConflict))
	Admissions.WithLabelValues(OutcomeConflict).Inc()
	after := testutil.ToFloat64(Admissions.WithLabelValues(OutcomeConflict))

	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}
