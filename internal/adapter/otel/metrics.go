// Package otel provides OpenTelemetry instrumentation for farmd.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "farmd"

// Metrics holds all farm metric instruments.
type Metrics struct {
	WikisCreated      metric.Int64Counter
	WikisDeleted      metric.Int64Counter
	RequestsSubmitted metric.Int64Counter
	RequestsApproved  metric.Int64Counter
	RequestsDeclined  metric.Int64Counter
	ProvisionFailures metric.Int64Counter
	ProvisionDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.WikisCreated, err = meter.Int64Counter("farmd.wikis.created",
		metric.WithDescription("Number of wikis created"))
	if err != nil {
		return nil, err
	}

	m.WikisDeleted, err = meter.Int64Counter("farmd.wikis.deleted",
		metric.WithDescription("Number of wikis deleted"))
	if err != nil {
		return nil, err
	}

	m.RequestsSubmitted, err = meter.Int64Counter("farmd.requests.submitted",
		metric.WithDescription("Number of creation requests submitted"))
	if err != nil {
		return nil, err
	}

	m.RequestsApproved, err = meter.Int64Counter("farmd.requests.approved",
		metric.WithDescription("Number of creation requests approved"))
	if err != nil {
		return nil, err
	}

	m.RequestsDeclined, err = meter.Int64Counter("farmd.requests.declined",
		metric.WithDescription("Number of creation requests declined"))
	if err != nil {
		return nil, err
	}

	m.ProvisionFailures, err = meter.Int64Counter("farmd.provision.failures",
		metric.WithDescription("Number of failed provisioning attempts"))
	if err != nil {
		return nil, err
	}

	m.ProvisionDuration, err = meter.Float64Histogram("farmd.provision.duration_seconds",
		metric.WithDescription("Tenant provisioning duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
