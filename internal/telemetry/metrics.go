package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"

	AttrDBOperation = "db.operation"

	AttrAuthMethod  = "auth.method"
	AttrAuthSuccess = "auth.success"

	AttrRateLimitRoute = "ratelimit.route"
)

// instruments collects the first error hit while creating a meter's
// instruments so constructors can check once at the end.
type instruments struct {
	meter metric.Meter
	err   error
}

func newInstruments(scope string) *instruments {
	return &instruments{meter: otel.Meter("hrapi/" + scope)}
}

func (b *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if b.err == nil {
		b.err = err
	}
	return c
}

func (b *instruments) upDown(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if b.err == nil {
		b.err = err
	}
	return c
}

// millis creates a millisecond histogram with explicit bucket bounds.
func (b *instruments) millis(name, desc string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	if b.err == nil {
		b.err = err
	}
	return h
}

// ServerMetrics records HTTP traffic. Create once at startup.
type ServerMetrics struct {
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
	connections metric.Int64UpDownCounter
	errors      metric.Int64Counter
}

func NewServerMetrics() (*ServerMetrics, error) {
	b := newInstruments("http")
	m := &ServerMetrics{
		requests:    b.counter("http.server.request.count", "Total number of HTTP requests", "{request}"),
		duration:    b.millis("http.server.request.duration", "HTTP request duration", 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
		connections: b.upDown("http.server.active_connections", "Number of open HTTP connections", "{connection}"),
		errors:      b.counter("http.server.error.count", "Total number of 5xx responses", "{error}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordRequest is called by the HTTP metrics middleware once per request.
// route is the chi route pattern, not the raw path.
func (m *ServerMetrics) RecordRequest(ctx context.Context, method, route, status string, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.String(AttrHTTPStatusCode, status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, durationMs, attrs)
	if strings.HasPrefix(status, "5") {
		m.errors.Add(ctx, 1, attrs)
	}
}

func (m *ServerMetrics) ConnectionOpened(ctx context.Context) { m.connections.Add(ctx, 1) }
func (m *ServerMetrics) ConnectionClosed(ctx context.Context) { m.connections.Add(ctx, -1) }

// DatabaseMetrics records bun queries; see bunx.MetricsHook.
type DatabaseMetrics struct {
	queries  metric.Int64Counter
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

func NewDatabaseMetrics() (*DatabaseMetrics, error) {
	b := newInstruments("database")
	m := &DatabaseMetrics{
		queries:  b.counter("db.query.count", "Total number of database queries", "{query}"),
		duration: b.millis("db.query.duration", "Database query duration", 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000),
		failures: b.counter("db.query.error.count", "Total number of failed database queries", "{error}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordQuery records one query. operation is the SQL verb.
func (d *DatabaseMetrics) RecordQuery(ctx context.Context, operation string, durationMs float64, err error) {
	attrs := metric.WithAttributes(attribute.String(AttrDBOperation, operation))
	d.queries.Add(ctx, 1, attrs)
	d.duration.Record(ctx, durationMs, attrs)
	if err != nil {
		d.failures.Add(ctx, 1, attrs)
	}
}

// AuthMetrics records sign-in and session restore attempts.
type AuthMetrics struct {
	attempts metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func NewAuthMetrics() (*AuthMetrics, error) {
	b := newInstruments("auth")
	m := &AuthMetrics{
		attempts: b.counter("auth.attempt.count", "Total number of authentication attempts", "{attempt}"),
		failures: b.counter("auth.failure.count", "Total number of failed authentication attempts", "{failure}"),
		duration: b.millis("auth.duration", "Authentication duration", 5, 10, 25, 50, 100, 250, 500, 1000),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordAuth records one attempt. method is "password" or "session".
func (a *AuthMetrics) RecordAuth(ctx context.Context, method string, success bool, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String(AttrAuthMethod, method),
		attribute.Bool(AttrAuthSuccess, success),
	)
	a.attempts.Add(ctx, 1, attrs)
	a.duration.Record(ctx, durationMs, attrs)
	if !success {
		a.failures.Add(ctx, 1, attrs)
	}
}

// RateLimitMetrics counts requests rejected by the login limiter.
type RateLimitMetrics struct {
	rejected metric.Int64Counter
}

func NewRateLimitMetrics() (*RateLimitMetrics, error) {
	b := newInstruments("ratelimit")
	m := &RateLimitMetrics{
		rejected: b.counter("ratelimit.rejected.count", "Requests rejected by the per-client rate limiter", "{request}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

func (r *RateLimitMetrics) RecordRejected(ctx context.Context, route string) {
	r.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrRateLimitRoute, route)))
}
