package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	assert.True(t, IsSchedulerErrorRetryable(context.Canceled))
	assert.True(t, IsSchedulerErrorRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsSchedulerErrorRetryable(errors.New("rate_not_found")))
	assert.False(t, IsSchedulerErrorRetryable(nil))
}

func TestAddAccountOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetricsForTest(registry)

	m.AddAccountOutcome("monthly_invoices", AccountOutcomeInvoiced, 3)
	m.AddAccountOutcome("monthly_invoices", AccountOutcomeInvoiced, 0)
	m.ObserveJobDuration("monthly_invoices", time.Second)

	got := testutil.ToFloat64(m.accountsDone.WithLabelValues("monthly_invoices", AccountOutcomeInvoiced))
	assert.Equal(t, float64(3), got)
}
