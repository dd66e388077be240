package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry returns middleware that records a span and request metrics for
// each request. Routes are labeled by mux path template so high-cardinality
// ids do not explode the metric space.
func Telemetry(tracer trace.Tracer, meter metric.Meter) func(http.Handler) http.Handler {
	requests, _ := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Completed HTTP requests"))
	duration, _ := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tmpl, err := cur.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route)
			defer span.End()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			attrs := metric.WithAttributes(
				attribute.String("http.route", route),
				attribute.String("http.method", r.Method),
				attribute.Int("http.status_code", rec.status),
			)
			requests.Add(ctx, 1, attrs)
			duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		})
	}
}
