package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveDuration("payment-reconcile", 250*time.Millisecond)
	m.IncSuccess("payment-reconcile")
	m.IncFailure("payment-reconcile")
	m.IncFailure("")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "storefront_cron_job_runs_total", map[string]string{"job": "payment-reconcile", "outcome": "success"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "storefront_cron_job_runs_total", map[string]string{"job": "unknown", "outcome": "failure"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	sum, err := fetchHistogramSum(mfs, "storefront_cron_job_duration_seconds", map[string]string{"job": "payment-reconcile"})
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	cron.ObserveDuration("x", time.Second)

	var payments *PaymentMetrics
	payments.IncWebhook("payment.updated", "processed")
	payments.IncStatusUpdate(SourcePoll, "completed")

	NewPaymentMetrics(nil).IncGatewayError(SourcePoll)
}

func TestPaymentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)
	m.IncWebhook("payment.updated", "processed")
	m.IncWebhook("payment.updated", "processed")
	m.IncStatusUpdate(SourceWebhook, "completed")
	m.IncGatewayError(SourcePoll)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "storefront_webhook_events_total", map[string]string{"action": "payment.updated", "outcome": "processed"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "storefront_order_status_updates_total", map[string]string{"source": "webhook", "status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "storefront_gateway_errors_total", map[string]string{"source": "poll"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, metric := range findMetricFamily(mfs, name).GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("counter %q with labels %v not found", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, metric := range findMetricFamily(mfs, name).GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q with labels %v not found", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
