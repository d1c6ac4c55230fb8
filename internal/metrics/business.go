package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("ladle/business")

	// Import pipeline metrics
	ImportsTotal   metric.Int64Counter
	ImportDuration metric.Float64Histogram

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// Extraction metrics
	ExtractionDuration    metric.Float64Histogram
	RefinementPassesTotal metric.Int64Counter
)

func Init() error {
	var err error

	ImportsTotal, err = meter.Int64Counter(
		"import.jobs.total",
		metric.WithDescription("Total number of recipe import jobs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ImportDuration, err = meter.Float64Histogram(
		"import.job.duration",
		metric.WithDescription("Duration of recipe import jobs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	ExtractionDuration, err = meter.Float64Histogram(
		"extraction.pass.duration",
		metric.WithDescription("Duration of one model extraction pass"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	RefinementPassesTotal, err = meter.Int64Counter(
		"extraction.refinement.total",
		metric.WithDescription("Total number of second-pass refinement attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
