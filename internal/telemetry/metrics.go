package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	DocumentParseTime   metric.Float64Histogram
	EntitiesRecognized  metric.Int64Counter
	StoreOperations     metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics(serviceName string) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentParseTime, err := meter.Float64Histogram(
		"resume.parse.duration",
		metric.WithDescription("Resume text extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	entitiesRecognized, err := meter.Int64Counter(
		"entities.recognized.total",
		metric.WithDescription("Entity occurrences returned by the recognizer"),
	)
	if err != nil {
		return nil, err
	}

	storeOperations, err := meter.Int64Counter(
		"entity_store.operations.total",
		metric.WithDescription("Total entity store operations"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		DocumentParseTime:   documentParseTime,
		EntitiesRecognized:  entitiesRecognized,
		StoreOperations:     storeOperations,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordDocumentParse records text extraction metrics
func (m *Metrics) RecordDocumentParse(duration float64, status string) {
	if m == nil {
		return
	}
	m.DocumentParseTime.Record(context.Background(), duration,
		metric.WithAttributes(attribute.String("parse.status", status)))
}

// RecordEntitiesRecognized counts recognizer output
func (m *Metrics) RecordEntitiesRecognized(count int, recognizer string) {
	if m == nil {
		return
	}
	m.EntitiesRecognized.Add(context.Background(), int64(count),
		metric.WithAttributes(attribute.String("recognizer", recognizer)))
}

// RecordStoreOperation records entity store operation metrics
func (m *Metrics) RecordStoreOperation(operation string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("store.operation", operation),
		attribute.Bool("store.success", success),
	}

	m.StoreOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
